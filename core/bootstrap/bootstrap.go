package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/pagebot/core/config"
	coredatabase "github.com/m3rciful/pagebot/core/database"
	"github.com/m3rciful/pagebot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	// Migrations holds one directory of *.sql files per database driver.
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, *sqlx.DB, fs.FS) error

	// Seeders run in order after migrations; the first failure aborts bootstrap.
	Seeders []NamedSeeder
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects to the database, applies migrations, and seeds reference data.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.Migrate
	}
	if opts.Migrations == nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: no migrations provided")
	}
	if err := migrate(ctx, db, opts.Migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	if err := runSeeders(ctx, db, opts.Seeders); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Result{DB: db}, nil
}

func runSeeders(ctx context.Context, db *sqlx.DB, seeders []NamedSeeder) error {
	for _, s := range seeders {
		if s.Seeder == nil {
			continue
		}
		start := time.Now()
		if err := s.Seeder.Seed(ctx, db); err != nil {
			logger.LogEvent(ctx, logger.SEED, slog.LevelError, "seed.apply",
				slog.String("status", "fail"),
				slog.String("name", s.Name),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("bootstrap: seeder %s failed: %w", s.Name, err)
		}
		logger.LogEvent(ctx, logger.SEED, slog.LevelInfo, "seed.apply",
			slog.String("status", "ok"),
			slog.String("name", s.Name),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}
