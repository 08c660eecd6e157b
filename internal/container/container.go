package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"painel/adapters/excel"
	"painel/adapters/postgres"
	"painel/adapters/sqlite"
	"painel/internal"
	"painel/internal/config"
	datasetsvc "painel/internal/dataset"
	"painel/internal/errors"
	"painel/internal/filtering"
	"painel/internal/inference"
	"painel/internal/migration"
	"painel/internal/session"
	"painel/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB      *sqlx.DB
	Storage datasetsvc.FileStorage

	// Catalog (data access layer)
	Catalog ports.DatasetCatalog

	// Dashboard components
	Reader     *excel.DataReader
	Inferencer *inference.Inferencer
	Processor  *datasetsvc.Processor
	Engine     *filtering.Engine
	Sessions   *session.Store

	stopSweeper context.CancelFunc
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)).With("Container"),
	}, nil
}

// OpenDatabase connects to the catalog database selected by cfg.Driver.
func OpenDatabase(ctx context.Context, cfg config.CatalogConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.Path)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported catalog driver %q", cfg.Driver))
	}
}

// InitWithDatabase migrates the catalog schema and builds every component
// that depends on it.
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError("database connection test failed", err)
	}

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return errors.Wrap(err, "catalog migration failed")
	}
	c.Logger.Info("catalog schema at version %s (%s)", runner.Version(), db.DriverName())

	if err := c.initCatalog(); err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	c.initServices()

	c.Logger.Info("initialized with %s catalog", db.DriverName())
	return nil
}

func (c *Container) initCatalog() error {
	switch c.DB.DriverName() {
	case sqlite.DriverName:
		c.Catalog = sqlite.NewDatasetCatalog(c.DB)
	case "postgres":
		c.Catalog = postgres.NewDatasetCatalog(c.DB)
	default:
		return errors.ConfigInvalid(fmt.Sprintf("no catalog for driver %q", c.DB.DriverName()))
	}
	return nil
}

func (c *Container) initServices() {
	c.Storage = datasetsvc.NewLocalFileStorage(&datasetsvc.StorageConfig{
		BasePath:    c.Config.Uploads.Dir,
		MaxFileSize: c.Config.Uploads.MaxBytes(),
		ChunkSize:   datasetsvc.DefaultStorageConfig().ChunkSize,
	})

	c.Reader = excel.NewDataReader(excel.DefaultReaderConfig())
	c.Inferencer = inference.New(inference.Config{
		CategoricalRatio:       c.Config.Inference.CategoricalRatio,
		CategoricalMaxDistinct: c.Config.Inference.CategoricalMaxDistinct,
		DateThreshold:          c.Config.Inference.DateThreshold,
	})
	c.Processor = datasetsvc.NewProcessor(c.Reader, c.Catalog, c.Inferencer, c.Storage)
	c.Engine = filtering.NewEngine(c.Config.Filter.CacheSize)
	c.Sessions = session.NewStore()
}

// StartSessionSweeper drops idle sessions every SweepInterval until ctx is
// done or Shutdown is called.
func (c *Container) StartSessionSweeper(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.stopSweeper = cancel

	interval, ttl := c.Config.Sessions.SweepInterval, c.Config.Sessions.TTL
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sessions.CleanupExpired(ttl); n > 0 {
					c.Logger.Debug("swept %d idle sessions", n)
				}
			}
		}
	}()
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.stopSweeper != nil {
		c.stopSweeper()
	}
	if c.Engine != nil {
		c.Engine.Purge()
	}

	if c.DB != nil {
		log.Printf("[Container] Closing %s catalog", c.DB.DriverName())
		return c.DB.Close()
	}
	return nil
}
