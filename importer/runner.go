package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RunnerConfig struct {
	DB         DBConfig
	LedgerPath string

	StoreBaseURL string
	CDNBase      string
	Language     string
	// Currency is the cc parameter for game lookups. Add-on lookups never
	// send one.
	Currency string

	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	DLCTimeout   time.Duration
	Pauses       Pauses

	PriceOverrides PriceOverrides
	StockQuantity  int
	Headers        HeaderProvider

	Logger *zap.Logger
}

// Runner imports a work list one app at a time. It owns one database handle
// and one HTTP client for its lifetime.
type Runner struct {
	cfg      RunnerConfig
	db       *gorm.DB
	ledger   *Ledger
	catalog  Catalog
	upserter *Upserter
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Stats summarizes one run.
type Stats struct {
	Seeds       int
	AlreadyDone int
	Pending     int
	Processed   int
	Throttled   int
	Blocked     int
	Failed      int
	Interrupted bool
	Elapsed     time.Duration
}

func (s *Stats) record(o Outcome) {
	switch o {
	case OutcomeProcessed:
		s.Processed++
	case OutcomeSkippedThrottled:
		s.Throttled++
	case OutcomeSkippedBlocked:
		s.Blocked++
	default:
		s.Failed++
	}
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	if strings.TrimSpace(cfg.LedgerPath) == "" {
		cfg.LedgerPath = DefaultLedgerPath
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.PriceOverrides == nil {
		cfg.PriceOverrides = DefaultPriceOverrides()
	}
	if cfg.StockQuantity <= 0 {
		cfg.StockQuantity = DefaultStockQuantity
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cfg.Pauses = cfg.Pauses.withDefaults()

	ledger, err := OpenLedger(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	db, err := OpenDB(cfg.DB, cfg.Logger)
	if err != nil {
		return nil, err
	}

	client := NewCatalogClient(ClientConfig{
		BaseURL:      cfg.StoreBaseURL,
		Language:     cfg.Language,
		Headers:      cfg.Headers,
		FetchTimeout: cfg.FetchTimeout,
		ProbeTimeout: cfg.ProbeTimeout,
	})

	r := &Runner{
		cfg:     cfg,
		db:      db,
		ledger:  ledger,
		catalog: client,
		log:     cfg.Logger,
		sleep:   sleepContext,
	}
	r.upserter = &Upserter{
		DB: db,
		Deriver: &Deriver{
			CDNBase:       cfg.CDNBase,
			Overrides:     cfg.PriceOverrides,
			Prober:        client,
			StockQuantity: cfg.StockQuantity,
		},
		Enricher: &DLCEnricher{Catalog: client, Timeout: cfg.DLCTimeout, Logger: cfg.Logger},
		Parser:   HeuristicParser{},
		Logger:   cfg.Logger,
	}
	return r, nil
}

func (r *Runner) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	err := closeDB(r.db)
	r.db = nil
	return err
}

func (r *Runner) DB() *gorm.DB { return r.db }

func (r *Runner) Ledger() *Ledger { return r.ledger }

// RunOnce walks seeds in order, skipping ids already in the ledger. A failed
// item never stops the run; cancelling ctx stops it before the next fetch.
func (r *Runner) RunOnce(ctx context.Context, seeds []Seed) (Stats, error) {
	start := time.Now()
	stats := Stats{Seeds: len(seeds)}
	if r.db == nil {
		return stats, fmt.Errorf("runner is closed")
	}

	work := Pending(seeds, r.ledger)
	stats.AlreadyDone = len(seeds) - len(work)
	stats.Pending = len(work)
	r.log.Info("run start",
		zap.Int("seeds", stats.Seeds),
		zap.Int("already_imported", stats.AlreadyDone),
		zap.Int("pending", stats.Pending),
	)
	if len(work) == 0 {
		r.log.Info("all games already imported")
	}

	for _, s := range work {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}
		outcome, pause := r.processOne(ctx, s)
		if ctx.Err() != nil && outcome != OutcomeProcessed {
			stats.Interrupted = true
			break
		}
		stats.record(outcome)
		if err := r.sleep(ctx, pause); err != nil {
			stats.Interrupted = true
			break
		}
	}

	stats.Elapsed = time.Since(start)
	r.log.Info("run done",
		zap.Int("processed", stats.Processed),
		zap.Int("throttled", stats.Throttled),
		zap.Int("blocked", stats.Blocked),
		zap.Int("failed", stats.Failed),
		zap.Bool("interrupted", stats.Interrupted),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// processOne fetches and stores a single seed and returns its outcome with
// the pause that should follow it.
func (r *Runner) processOne(ctx context.Context, s Seed) (Outcome, time.Duration) {
	log := r.log.With(zap.Int("app_id", s.AppID))
	log.Info("fetching")

	gd, err := r.catalog.FetchApp(ctx, s.AppID, Query{Currency: r.cfg.Currency})
	if err != nil {
		outcome := ClassifyFetchError(err)
		pause := r.cfg.Pauses.After(outcome)
		switch outcome {
		case OutcomeSkippedThrottled:
			log.Warn("rate limited, pausing", zap.Duration("pause", pause))
		case OutcomeSkippedBlocked:
			log.Warn("access denied, possibly blocked, pausing", zap.Duration("pause", pause))
		default:
			log.Warn("fetch failed", zap.Error(err), zap.Duration("pause", pause))
		}
		return outcome, pause
	}

	if err := r.importApp(ctx, s, gd); err != nil {
		log.Error("error processing", zap.Error(err))
		return OutcomeSkippedError, 0
	}
	if err := r.ledger.Append(s.AppID); err != nil {
		log.Error("stored but not recorded in ledger", zap.Error(err))
	}
	return OutcomeProcessed, r.cfg.Pauses.Pacing
}

func (r *Runner) importApp(ctx context.Context, s Seed, gd *AppDetails) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while importing app %d: %v", s.AppID, p)
		}
	}()
	_, err = r.upserter.Upsert(ctx, s.AppID, s.Section, gd)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
