package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/netutil"
)

const pingInterval = 2 * time.Second

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens the configured database, configures the pool and waits up to
// cfg.WaitSeconds for the server to answer a ping.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	start := time.Now()
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	if cfg.Driver == DriverSQLite {
		// idle expiry would drop an in-memory database
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}

	if err := waitReady(ctx, db, cfg); err != nil {
		_ = db.Close()
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect",
			slog.String("status", "fail"),
			slog.String("driver", cfg.Driver),
			slog.String("db", cfg.Target()),
			slog.String("err", netutil.Redact(err.Error())),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, err
	}

	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect",
		slog.String("status", "ok"),
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.Target()),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)
	return db, nil
}

func waitReady(ctx context.Context, db *sqlx.DB, cfg Config) error {
	deadline := time.Now().Add(time.Duration(cfg.WaitSeconds) * time.Second)
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().Add(pingInterval).After(deadline) {
			return fmt.Errorf("db ping: %w", err)
		}
		logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.wait",
			slog.String("driver", cfg.Driver),
			slog.Int("attempts", attempt),
			slog.String("err_code", netutil.Kind(err)),
		)
		if err := netutil.Sleep(ctx, pingInterval); err != nil {
			return fmt.Errorf("db ping: %w", err)
		}
	}
}
