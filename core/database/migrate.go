package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/pagebot/core/logger"
)

// Migrate applies every up migration found under fsys/<driver> to db.
// db stays open; the migration driver only borrows a connection.
func Migrate(ctx context.Context, db *sqlx.DB, fsys fs.FS) error {
	name := db.DriverName()
	dir := name
	files := listMigrationFiles(fsys, dir)
	preview, truncated := logger.SummarizeStrings(files, 6)
	attrs := []slog.Attr{
		slog.String("driver", name),
		slog.Int("files_total", len(files)),
	}
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "migrate.resolve", attrs...)

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return migrateFailed(ctx, "source", fmt.Errorf("migrations source %s: %w", dir, err))
	}
	defer src.Close()

	target, release, err := migrationTarget(ctx, db)
	if err != nil {
		return migrateFailed(ctx, "target", err)
	}
	defer release()

	m, err := migrate.NewWithInstance("iofs", src, name, target)
	if err != nil {
		return migrateFailed(ctx, "init", fmt.Errorf("init migrations: %w", err))
	}

	fromVer, err := currentVersion(m)
	if err != nil {
		return migrateFailed(ctx, "version", err)
	}

	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return migrateFailed(ctx, "apply", fmt.Errorf("migration execution failed: %w", upErr))
	}

	toVer, err := currentVersion(m)
	if err != nil {
		return migrateFailed(ctx, "version", err)
	}
	applied := selectApplied(files, fromVer, toVer)
	if len(applied) > 0 {
		names, more := logger.SummarizeStrings(applied, 6)
		logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "migrate.apply",
			slog.Int("files_total", len(applied)),
			slog.String("files_preview", names),
			slog.Bool("files_truncated", more),
		)
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "migrate.summary",
		slog.String("status", "ok"),
		slog.String("driver", name),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

// migrationTarget wraps db in a migrate driver. release frees what the
// driver holds without closing db itself.
func migrationTarget(ctx context.Context, db *sqlx.DB) (migratedb.Driver, func(), error) {
	switch db.DriverName() {
	case DriverPostgres:
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("migrations conn: %w", err)
		}
		drv, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("migrations driver: %w", err)
		}
		return drv, func() { _ = drv.Close() }, nil
	case DriverSQLite:
		// the sqlite driver's Close would close db, so it is never called
		drv, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("migrations driver: %w", err)
		}
		return drv, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("migrations: unsupported driver %q", db.DriverName())
	}
}

func currentVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("migration version: %w", err)
	case dirty:
		return v, fmt.Errorf("database is dirty at version %d", v)
	}
	return v, nil
}

func migrateFailed(ctx context.Context, stage string, err error) error {
	logger.LogEvent(ctx, logger.MIG, slog.LevelError, "migrate."+stage,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
	return err
}

func listMigrationFiles(fsys fs.FS, dir string) []string {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, path.Base(e.Name()))
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > uint64(from) && v <= uint64(to) {
			out = append(out, f)
		}
	}
	return out
}
