// Package discord runs the bot on the Discord gateway and hosts paginated
// messages as embeds navigated with message reactions.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	coreconfig "github.com/m3rciful/pagebot/core/config"
	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/netutil"
	"github.com/m3rciful/pagebot/core/outbox"
	"github.com/m3rciful/pagebot/core/ratelimit"
)

// Intents are the gateway events the runtime subscribes to.
const Intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// RunOptions controls the behaviour of RunDiscord.
type RunOptions struct {
	Config *coreconfig.Config
	Router *Router

	// Outbox overrides the REST retry queue; RunDiscord closes it on return.
	Outbox        *outbox.Outbox
	OutboxOptions outbox.Options

	// Setup runs after the page host exists and before the gateway connection opens.
	Setup   func(ctx context.Context, rt Runtime) error
	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Session *discordgo.Session
	Host    *Host
	Router  *Router
	Outbox  *outbox.Outbox
}

// RunDiscord opens a gateway session and serves commands and reactions until ctx is done.
func RunDiscord(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("discord: nil config provided")
	}
	cfg := opts.Config

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("discord: session initialization failed: %w", err)
	}
	session.Identify.Intents = Intents
	session.Client = netutil.NewClient(netutil.ClientOptions{Retries: 1})

	out := opts.Outbox
	if out == nil {
		out = NewOutbox(opts.OutboxOptions)
	}
	defer out.Close()

	router := opts.Router
	if router == nil {
		router = NewRouter(cfg.Discord.CommandPrefix)
	}
	router.bind(out, messageLimiter(cfg))
	host := NewHost(session, WithOutbox(out))
	rt := Runtime{Session: session, Host: host, Router: router, Outbox: out}

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		host.SetSelf(r.User.ID)
		logger.LogEvent(ctx, logger.DC, slog.LevelInfo, "gateway.ready",
			slog.String("user", r.User.Username),
			slog.Int("guilds", len(r.Guilds)),
		)
	})
	session.AddHandler(host.HandleReactionAdd)
	session.AddHandler(router.HandleMessageCreate)

	if opts.Setup != nil {
		if err := opts.Setup(ctx, rt); err != nil {
			return err
		}
	}

	openStart := time.Now()
	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: gateway open failed: %w", err)
	}
	if session.State != nil && session.State.User != nil {
		host.SetSelf(session.State.User.ID)
	}
	logger.LogEvent(ctx, logger.DC, slog.LevelInfo, "mode",
		slog.String("mode", "gateway"),
		slog.String("prefix", router.Prefix()),
		slog.Int("commands", len(router.Names(false))),
		slog.Duration("duration", logger.RoundMS(time.Since(openStart))),
	)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			_ = session.Close()
			return err
		}
	}

	<-ctx.Done()

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	closeErr := session.Close()
	if err := errors.Join(stopErr, closeErr); err != nil {
		return err
	}
	return nil
}

// messageLimiter builds the per-author command limiter, or nil when limiting
// is off or message updates are excluded.
func messageLimiter(cfg *coreconfig.Config) *ratelimit.Limiter {
	if cfg.RateLimit.IntervalMS <= 0 {
		return nil
	}
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		if kind == coreconfig.UpdateMessage {
			return nil
		}
	}
	return ratelimit.New(time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond)
}
