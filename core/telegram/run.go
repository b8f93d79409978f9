// Package telegram runs a telebot bot with the shared registry, middleware
// chain and outbox.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/pagebot/core/config"
	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/netutil"
	"github.com/m3rciful/pagebot/core/outbox"
	tghelpers "github.com/m3rciful/pagebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	// Bot is used as is when set; otherwise RunTelegram builds one with NewBot.
	Bot *tele.Bot
	// Outbox carries replies; RunTelegram starts one from OutboxOptions when nil
	// and closes it on return either way.
	Outbox        *outbox.Outbox
	OutboxOptions outbox.Options

	Middlewares []Middleware
	Routes      []Route

	// KeepWebhook skips removing a stale webhook before long polling.
	KeepWebhook bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Outbox   *outbox.Outbox
	Registry *Registry
}

// NewOutbox returns an outbox that retries Bot API calls according to Classify.
func NewOutbox(opts outbox.Options) *outbox.Outbox {
	if opts.Classify == nil {
		opts.Classify = Classify
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	return outbox.New(opts)
}

// NewBot builds a bot with the poller and HTTP client derived from cfg.
// Building it before the routes lets page hosts hold it early.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, errors.New("telegram: nil config provided")
	}
	// The client timeout has to outlive a long poll.
	window := pollTimeout(cfg)
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: BuildPoller(cfg),
		Client: netutil.NewClient(netutil.ClientOptions{
			Timeout:       window + 20*time.Second,
			HeaderTimeout: window + 10*time.Second,
			Retries:       3,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

// RunTelegram wires opts into a bot and serves updates until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	start := time.Now()
	bot := opts.Bot
	if bot == nil {
		var err error
		if bot, err = NewBot(cfg); err != nil {
			return err
		}
	}
	out := opts.Outbox
	if out == nil {
		out = NewOutbox(opts.OutboxOptions)
	}
	tghelpers.SetOutbox(out)
	defer func() {
		tghelpers.SetOutbox(nil)
		out.Close()
	}()

	logMode(ctx, bot, opts, time.Since(start))

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	// A stale menu is cosmetic; keep serving.
	_ = PublishCommands(bot, reg)

	rt := Runtime{Bot: bot, Outbox: out, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
	case <-done:
		runErr = errors.New("telegram: poller stopped unexpectedly")
	}

	if opts.OnStop != nil {
		// Shutdown work must not inherit the cancellation that triggered it.
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	return runErr
}

func logMode(ctx context.Context, bot *tele.Bot, opts RunOptions, took time.Duration) {
	switch p := bot.Poller.(type) {
	case *tele.Webhook:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
	case *tele.LongPoller:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", "polling"),
			slog.Duration("window", p.Timeout),
			slog.Duration("duration", took),
		)
		if opts.KeepWebhook {
			return
		}
		err := bot.RemoveWebhook()
		lvl := slog.LevelInfo
		if err != nil {
			lvl = slog.LevelWarn
		}
		logger.LogEvent(ctx, logger.TG, lvl, "webhook.delete",
			slog.String("status", logger.Status(err)),
			slog.Any("err", err),
		)
	}
}
