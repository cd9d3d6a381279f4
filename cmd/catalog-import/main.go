package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MohamedAyman-Navigator/GamerZ-Gaming-Store/importer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.3.0"

type options struct {
	configPath       string
	envFile          string
	dbDriver         string
	dbDSN            string
	ledger           string
	seedFile         string
	storeURL         string
	currency         string
	logLevel         string
	logFile          string
	skipDefaultSeeds bool
}

func main() {
	opts := &options{}
	cmdRoot := &cobra.Command{
		Use:           "catalog-import",
		Short:         "Import storefront catalog records into the games database",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}
	pf := cmdRoot.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file path.")
	pf.StringVar(&opts.envFile, "env-file", ".env", "Optional .env file with CATALOG_* variables.")
	pf.StringVar(&opts.dbDriver, "db-driver", importer.DriverSQLite, "Database driver: sqlite, postgres or sqlserver.")
	pf.StringVar(&opts.dbDSN, "db", "catalog.db", "Database DSN (file path for sqlite).")
	pf.StringVar(&opts.ledger, "ledger", importer.DefaultLedgerPath, "Progress ledger file.")
	pf.StringVar(&opts.seedFile, "seed-file", "Games IDS.txt", "Free-form seed list (\"Title.....12345\" per line).")
	pf.StringVar(&opts.storeURL, "store-url", importer.DefaultStoreBaseURL, "Storefront base URL.")
	pf.StringVar(&opts.currency, "currency", importer.DefaultCurrency, "Country code for prices (cc parameter).")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error.")
	pf.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stdout.")
	pf.BoolVar(&opts.skipDefaultSeeds, "skip-default-seeds", false, "Do not import the built-in trending list.")

	cmdRoot.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Import every pending seed (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	})
	cmdRoot.AddCommand(&cobra.Command{
		Use:   "seeds",
		Short: "Print the pending work list without importing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSeeds(cmd, opts)
		},
	})
	cmdRoot.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("catalog-import %s\n", version)
		},
	})

	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges defaults, the YAML file, CATALOG_* variables and the
// flags the user actually set, in that order.
func loadConfig(cmd *cobra.Command, opts *options) (*importer.FileConfig, error) {
	if err := importer.LoadEnv(opts.envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := importer.DefaultFileConfig()
	if opts.configPath != "" {
		fileCfg, err := importer.LoadConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		mergeFileConfig(cfg, fileCfg)
	}
	cfg.ApplyEnv()

	changed := cmd.Flags().Changed
	if changed("db-driver") {
		cfg.Database.Driver = opts.dbDriver
	}
	if changed("db") {
		cfg.Database.DSN = opts.dbDSN
	}
	if changed("ledger") {
		cfg.Ledger = opts.ledger
	}
	if changed("seed-file") {
		cfg.SeedFile = opts.seedFile
	}
	if changed("store-url") {
		cfg.Store.BaseURL = opts.storeURL
	}
	if changed("currency") {
		cfg.Store.Currency = opts.currency
	}
	if changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if changed("skip-default-seeds") {
		cfg.SkipDefaultSeeds = opts.skipDefaultSeeds
	}
	return cfg, nil
}

func mergeFileConfig(dst, src *importer.FileConfig) {
	defaults := *dst
	*dst = *src
	if dst.Database.Driver == "" {
		dst.Database.Driver = defaults.Database.Driver
	}
	if dst.Database.DSN == "" {
		dst.Database.DSN = defaults.Database.DSN
	}
	if dst.Ledger == "" {
		dst.Ledger = defaults.Ledger
	}
	if dst.SeedFile == "" {
		dst.SeedFile = defaults.SeedFile
	}
	if dst.Log.Level == "" {
		dst.Log.Level = defaults.Log.Level
	}
}

func runImport(cmd *cobra.Command, opts *options) error {
	start := time.Now()
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log, err := importer.NewLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	defer func() {
		log.Info("total time", zap.String("elapsed", fmt.Sprintf("%.2fs", time.Since(start).Seconds())))
	}()

	seeds, err := cfg.WorkList(log)
	if err != nil {
		return err
	}

	runner, err := importer.NewRunner(cfg.RunnerConfig(log))
	if err != nil {
		log.Error("init runner", zap.Error(err))
		return err
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := runner.RunOnce(ctx, seeds)
	if err != nil {
		log.Error("run", zap.Error(err))
		return err
	}
	if stats.Interrupted {
		log.Warn("import interrupted by user, progress saved", zap.String("ledger", runner.Ledger().Path()))
	} else {
		log.Info("import completed")
	}
	return nil
}

func printSeeds(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	seeds, err := cfg.WorkList(nil)
	if err != nil {
		return err
	}
	ledger, err := importer.OpenLedger(cfg.Ledger)
	if err != nil {
		return err
	}
	pending := importer.Pending(seeds, ledger)
	for _, s := range pending {
		fmt.Printf("%d\t%s\n", s.AppID, s.Section)
	}
	fmt.Fprintf(os.Stderr, "%d seeds, %d already imported, %d pending\n", len(seeds), len(seeds)-len(pending), len(pending))
	return nil
}
