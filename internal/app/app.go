// Package app is the pagebot application: stored books served as paginated
// messages on Telegram or Discord.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/pagebot/core/bootstrap"
	"github.com/m3rciful/pagebot/core/cmd"
	coreconfig "github.com/m3rciful/pagebot/core/config"
	"github.com/m3rciful/pagebot/core/database"
	"github.com/m3rciful/pagebot/core/discord"
	coretelegram "github.com/m3rciful/pagebot/core/telegram"
	"github.com/m3rciful/pagebot/migrations"

	tele "gopkg.in/telebot.v4"
)

const shutdownTimeout = 15 * time.Second

// App holds the bootstrapped infrastructure and the book library.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	library *Library

	newBot      func(*coreconfig.Config) (*tele.Bot, error)
	runTelegram func(context.Context, coretelegram.RunOptions) error
	runDiscord  func(context.Context, discord.RunOptions) error
}

// New builds an App on an open database.
func New(cfg *Config, db *sqlx.DB) *App {
	return &App{
		cfg:         cfg,
		db:          db,
		library:     NewLibrary(database.NewCatalog(db), cfg.Pages, cfg.DefaultBook, NewSessions()),
		newBot:      coretelegram.NewBot,
		runTelegram: coretelegram.RunTelegram,
		runDiscord:  discord.RunDiscord,
	}
}

// Load is the cmd.Options loader for pagebot configuration files.
func Load(path string) (cmd.ConfigCarrier, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap initializes logging, the database, migrations and the guide book.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.App, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
		Seeders:    []bootstrap.NamedSeeder{GuideSeeder()},
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, res.DB), nil
}

// Run serves the configured platform until ctx is done.
func (a *App) Run(ctx context.Context, lc cmd.Lifecycle) error {
	switch a.cfg.Platform {
	case coreconfig.PlatformDiscord:
		return a.runDiscord(ctx, a.discordRunOptions(lc))
	default:
		opts, err := a.telegramRunOptions(lc)
		if err != nil {
			_ = a.db.Close()
			return err
		}
		return a.runTelegram(ctx, opts)
	}
}

// shutdown ends every listening window, then closes the database.
func (a *App) shutdown(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	stopErr := a.library.Sessions().StopAll(stopCtx)
	return errors.Join(stopErr, a.db.Close())
}
