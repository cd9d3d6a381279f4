package importer

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

// DBConfig selects the relational store. DSN is a file path for sqlite and a
// connection string for postgres and sqlserver.
type DBConfig struct {
	Driver string
	DSN    string
	// Migrate creates or updates the five catalog tables on open.
	Migrate bool
}

func dialectorFor(cfg DBConfig) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres, "postgresql", "pgx":
		return postgres.Open(cfg.DSN), nil
	case DriverSQLServer, "mssql":
		return sqlserver.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func OpenDB(cfg DBConfig, log *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", orDefault(cfg.Driver, DriverSQLite), err)
	}
	if cfg.Migrate {
		if err := Migrate(db); err != nil {
			_ = closeDB(db)
			return nil, err
		}
	}
	if log != nil {
		log.Debug("database opened", zap.String("driver", orDefault(cfg.Driver, DriverSQLite)), zap.Bool("migrate", cfg.Migrate))
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Game{}, &GameSpec{}, &GameDLC{}, &GameEdition{}, &GameScreenshot{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
