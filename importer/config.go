package importer

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedsConfig accepts either:
//  1. mapping form (preferred):
//     seeds:
//     1245620: trending
//     289070:  strategy
//  2. list form:
//     seeds:
//     - id: 1245620
//     section: trending
type SeedsConfig struct {
	Items []Seed
}

func (s *SeedsConfig) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.MappingNode:
		items := make([]Seed, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			k := value.Content[i]
			v := value.Content[i+1]
			id, err := strconv.Atoi(strings.TrimSpace(k.Value))
			if err != nil {
				return fmt.Errorf("seeds: line %d: app id %q is not a number", k.Line, k.Value)
			}
			section := DefaultSection
			if v.Kind == yaml.ScalarNode && strings.TrimSpace(v.Value) != "" {
				section = strings.TrimSpace(v.Value)
			}
			items = append(items, Seed{AppID: id, Section: section})
		}
		s.Items = items
		return nil
	case yaml.SequenceNode:
		var items []Seed
		if err := value.Decode(&items); err != nil {
			return err
		}
		s.Items = items
		return nil
	default:
		return nil
	}
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Migrate defaults to true.
	Migrate *bool `yaml:"migrate"`
}

type StoreConfig struct {
	BaseURL   string `yaml:"base_url"`
	CDNBase   string `yaml:"cdn_base"`
	Language  string `yaml:"language"`
	Currency  string `yaml:"currency"`
	UserAgent string `yaml:"user_agent"`
}

type TimeoutsConfig struct {
	Fetch time.Duration `yaml:"fetch"`
	Probe time.Duration `yaml:"probe"`
	DLC   time.Duration `yaml:"dlc"`
}

type PausesConfig struct {
	Throttled time.Duration `yaml:"throttled"`
	Blocked   time.Duration `yaml:"blocked"`
	Error     time.Duration `yaml:"error"`
	Pacing    time.Duration `yaml:"pacing"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type FileConfig struct {
	Database DatabaseConfig `yaml:"database"`

	// Ledger is the progress file path.
	Ledger string `yaml:"ledger"`

	// SeedFile is an optional free-form list ("Title.....1245620" per line).
	SeedFile string `yaml:"seed_file"`
	// Seeds are appended after the built-in list and the seed file.
	Seeds            SeedsConfig `yaml:"seeds"`
	SkipDefaultSeeds bool        `yaml:"skip_default_seeds"`

	// PriceOverrides extend the built-in manual price table.
	PriceOverrides map[int]float64 `yaml:"price_overrides"`
	StockQuantity  int             `yaml:"stock_quantity"`

	Store    StoreConfig    `yaml:"store"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Pauses   PausesConfig   `yaml:"pauses"`
	Log      LogConfig      `yaml:"log"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultFileConfig is the configuration used when no file is given.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "catalog.db"},
		Ledger:   DefaultLedgerPath,
		SeedFile: "Games IDS.txt",
		Log:      LogConfig{Level: "info"},
	}
}

func (c *FileConfig) migrate() bool {
	if c.Database.Migrate == nil {
		return true
	}
	return *c.Database.Migrate
}

// RunnerConfig converts the file config into runner settings.
func (c *FileConfig) RunnerConfig(log *zap.Logger) RunnerConfig {
	var headers HeaderProvider
	if ua := strings.TrimSpace(c.Store.UserAgent); ua != "" {
		h := NewBrowserHeaders(nil).Headers()
		h.Set("User-Agent", ua)
		headers = StaticHeaders(h)
	}
	return RunnerConfig{
		DB: DBConfig{
			Driver:  c.Database.Driver,
			DSN:     c.Database.DSN,
			Migrate: c.migrate(),
		},
		LedgerPath:     c.Ledger,
		StoreBaseURL:   c.Store.BaseURL,
		CDNBase:        c.Store.CDNBase,
		Language:       c.Store.Language,
		Currency:       c.Store.Currency,
		FetchTimeout:   c.Timeouts.Fetch,
		ProbeTimeout:   c.Timeouts.Probe,
		DLCTimeout:     c.Timeouts.DLC,
		Pauses:         Pauses(c.Pauses),
		PriceOverrides: DefaultPriceOverrides().Merge(c.PriceOverrides),
		StockQuantity:  c.StockQuantity,
		Headers:        headers,
		Logger:         log,
	}
}

// WorkList assembles the ordered seed list: built-in defaults, then the
// seed file, then seeds from the config file.
func (c *FileConfig) WorkList(log *zap.Logger) ([]Seed, error) {
	var lists [][]Seed
	if !c.SkipDefaultSeeds {
		lists = append(lists, DefaultSeeds())
	}
	if strings.TrimSpace(c.SeedFile) != "" {
		fromFile, ok, err := LoadSeedFile(c.SeedFile)
		if err != nil {
			return nil, err
		}
		if log != nil {
			if ok {
				log.Info("loaded seed file", zap.String("path", c.SeedFile), zap.Int("games", len(fromFile)))
			} else {
				log.Info("seed file not found", zap.String("path", c.SeedFile))
			}
		}
		lists = append(lists, fromFile)
	}
	lists = append(lists, c.Seeds.Items)
	return MergeSeeds(lists...), nil
}
