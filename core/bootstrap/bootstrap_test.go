package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/pagebot/core/config"
	coredatabase "github.com/m3rciful/pagebot/core/database"
)

func testOptions(t *testing.T) (Options, **sqlx.DB) {
	t.Helper()
	var opened *sqlx.DB
	return Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Migrations: fstest.MapFS{},
		Connect: func(ctx context.Context, cfg coredatabase.Config) (*sqlx.DB, error) {
			db, err := coredatabase.Connect(ctx, coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: ":memory:"})
			opened = db
			return db, err
		},
		Migrate: func(context.Context, *sqlx.DB, fs.FS) error { return nil },
	}, &opened
}

func TestRunSeedsInOrder(t *testing.T) {
	opts, _ := testOptions(t)
	var order []string
	seed := func(name string) NamedSeeder {
		return NamedSeeder{Name: name, Seeder: SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
			if db == nil {
				t.Fatal("seeder got nil db")
			}
			order = append(order, name)
			return nil
		})}
	}
	opts.Seeders = []NamedSeeder{seed("guide"), {Name: "nil"}, seed("samples")}

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	defer res.DB.Close()
	if strings.Join(order, ",") != "guide,samples" {
		t.Fatalf("order = %v", order)
	}
}

func TestRunSeederFailureClosesDB(t *testing.T) {
	opts, opened := testOptions(t)
	boom := errors.New("boom")
	opts.Seeders = []NamedSeeder{{Name: "guide", Seeder: SeederFunc(func(context.Context, *sqlx.DB) error { return boom })}}

	if _, err := Run(context.Background(), opts); !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
	if err := (*opened).Ping(); err == nil {
		t.Fatal("db should be closed after a failed seeder")
	}
}

func TestRunStages(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}

	opts, _ := testOptions(t)
	opts.LoggerInit = func(*coreconfig.Config) error { return errors.New("no sink") }
	if _, err := Run(context.Background(), opts); err == nil || !strings.Contains(err.Error(), "logger init") {
		t.Fatalf("logger error = %v", err)
	}

	opts, opened := testOptions(t)
	opts.Migrate = func(context.Context, *sqlx.DB, fs.FS) error { return errors.New("dirty") }
	if _, err := Run(context.Background(), opts); err == nil || !strings.Contains(err.Error(), "migrations") {
		t.Fatalf("migrate error = %v", err)
	}
	if err := (*opened).Ping(); err == nil {
		t.Fatal("db should be closed after failed migrations")
	}
}

func TestRunRealMigrations(t *testing.T) {
	opts, _ := testOptions(t)
	opts.Migrate = nil
	opts.Migrations = fstest.MapFS{
		"sqlite/000001_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"sqlite/000001_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	}
	opts.Seeders = []NamedSeeder{{Name: "notes", Seeder: SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx, "INSERT INTO notes (id) VALUES (1)")
		return err
	})}}
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	defer res.DB.Close()

	opts, opened := testOptions(t)
	opts.Migrations = nil
	if _, err := Run(context.Background(), opts); err == nil || !strings.Contains(err.Error(), "no migrations") {
		t.Fatalf("missing migrations error = %v", err)
	}
	if err := (*opened).Ping(); err == nil {
		t.Fatal("db should be closed when migrations are missing")
	}
}
