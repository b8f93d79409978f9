package database

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/pagebot/migrations"
)

func openMigrated(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Connect(ctx, Config{Driver: DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(ctx, db, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openMigrated(t)
	if err := Migrate(context.Background(), db, migrations.FS); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var version int
	if err := db.Get(&version, "SELECT version FROM schema_migrations"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d", version)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("db closed by migrate: %v", err)
	}
}

func TestMigrateAppliesNewFiles(t *testing.T) {
	db := openMigrated(t)
	fsys := fstest.MapFS{
		"sqlite/000001_create_page_documents.up.sql":   {Data: []byte("SELECT 1;")},
		"sqlite/000001_create_page_documents.down.sql": {Data: []byte("SELECT 1;")},
		"sqlite/000002_add_note.up.sql":                {Data: []byte("ALTER TABLE page_documents ADD COLUMN note TEXT NOT NULL DEFAULT '';")},
		"sqlite/000002_add_note.down.sql":              {Data: []byte("SELECT 1;")},
	}
	if err := Migrate(context.Background(), db, fsys); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Exec("UPDATE page_documents SET note = 'x'"); err != nil {
		t.Fatalf("new column missing: %v", err)
	}
}

func TestMigrateUnknownDriverDir(t *testing.T) {
	db := openMigrated(t)
	err := Migrate(context.Background(), db, fstest.MapFS{"postgres/000001_x.up.sql": {Data: []byte("SELECT 1;")}})
	if err == nil || !strings.Contains(err.Error(), "source") {
		t.Fatalf("error = %v", err)
	}
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}
	if got := selectApplied(files, 1, 3); strings.Join(got, ",") != "000002_b.up.sql,000003_c.up.sql" {
		t.Fatalf("applied = %v", got)
	}
	if got := selectApplied(files, 3, 3); len(got) != 0 {
		t.Fatalf("no change = %v", got)
	}
	if parseVersion("junk") != 0 {
		t.Fatal("junk version should be 0")
	}
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
		check   func(Config) bool
	}{
		{"postgres defaults", Config{Host: "db", Name: "pagebot"}, "", func(c Config) bool {
			return c.Driver == DriverPostgres && c.Port == "5432" && c.SSLMode == "disable" && c.MaxConnections == 10 && c.WaitSeconds == 30
		}},
		{"postgres missing host", Config{Driver: "postgres", Name: "x"}, "database.host", nil},
		{"sqlite alias", Config{Driver: "SQLite3", Path: "pages.db", MaxConnections: 8}, "", func(c Config) bool {
			return c.Driver == DriverSQLite && c.MaxConnections == 1
		}},
		{"sqlite missing path", Config{Driver: "sqlite"}, "database.path", nil},
		{"unknown", Config{Driver: "mysql"}, "database.driver", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Normalize()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || !tt.check(cfg) {
				t.Fatalf("cfg = %+v, err = %v", cfg, err)
			}
		})
	}
}

func TestConfigDSN(t *testing.T) {
	pg := Config{Driver: DriverPostgres, Host: "h", Port: "5433", User: "u", Password: "p@ss", Name: "n", SSLMode: "require"}
	if got := pg.DSN(); got != "postgres://u:p%40ss@h:5433/n?sslmode=require" {
		t.Fatalf("dsn = %s", got)
	}
	if got := pg.Target(); got != "h:5433/n" {
		t.Fatalf("target = %s", got)
	}
	lite := Config{Driver: DriverSQLite, Path: ":memory:"}
	if lite.DSN() != ":memory:" || lite.Target() != ":memory:" {
		t.Fatalf("sqlite dsn = %s", lite.DSN())
	}
}
