package importer

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "CATALOG_"

// LoadEnv reads .env style files into the process environment. Missing
// files are ignored; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays CATALOG_* variables on c. Connection strings usually
// arrive this way so they stay out of the YAML file.
func (c *FileConfig) ApplyEnv() {
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")
	setString(&c.Ledger, "LEDGER")
	setString(&c.SeedFile, "SEED_FILE")
	setString(&c.Store.BaseURL, "STORE_URL")
	setString(&c.Store.Currency, "CURRENCY")
	setString(&c.Store.UserAgent, "USER_AGENT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.File, "LOG_FILE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}
