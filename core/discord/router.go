package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/outbox"
	"github.com/m3rciful/pagebot/core/pages"
	"github.com/m3rciful/pagebot/core/ratelimit"
)

// HandlerFunc handles one prefix command invocation.
type HandlerFunc func(ctx context.Context, inv *Invocation) error

// Command represents a prefix command with its handler, description, and metadata.
type Command struct {
	Handler     HandlerFunc
	Description string
	Hidden      bool
	Aliases     []string
}

// Invocation is a parsed command message.
type Invocation struct {
	API       API
	ChannelID string
	GuildID   string
	MessageID string
	Author    pages.User
	Name      string
	Args      []string

	ctx context.Context
	out *outbox.Outbox
}

// Reply posts text to the channel the command came from, retrying through
// the router's outbox when one is bound.
func (inv *Invocation) Reply(text string) error {
	ctx := inv.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	send := func(ctx context.Context) error {
		_, err := inv.API.ChannelMessageSend(inv.ChannelID, text, discordgo.WithContext(ctx))
		return err
	}
	if inv.out == nil {
		return send(ctx)
	}
	return inv.out.Do(ctx, "channelMessageSend", send)
}

// Router maps "<prefix><name> args..." messages to commands.
type Router struct {
	prefix string

	mu       sync.RWMutex
	commands map[string]Command

	out     *outbox.Outbox
	limiter *ratelimit.Limiter
}

// bind attaches the runtime's outbox and per-author limiter.
func (r *Router) bind(out *outbox.Outbox, limiter *ratelimit.Limiter) {
	r.mu.Lock()
	r.out, r.limiter = out, limiter
	r.mu.Unlock()
}

// NewRouter returns an empty router for prefix.
func NewRouter(prefix string) *Router {
	if prefix == "" {
		prefix = "!"
	}
	return &Router{prefix: prefix, commands: make(map[string]Command)}
}

// Prefix returns the command prefix.
func (r *Router) Prefix() string { return r.prefix }

// Register adds a command under name (without prefix).
func (r *Router) Register(name string, cmd Command) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.DC.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return errors.New("invalid command registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		logger.DC.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return fmt.Errorf("command already registered: %s", name)
	}
	r.commands[name] = cmd
	return nil
}

// Lookup finds a command by name or alias and returns its canonical name.
func (r *Router) Lookup(name string) (string, Command, bool) {
	name = strings.ToLower(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if strings.EqualFold(alias, name) {
				return key, cmd, true
			}
		}
	}
	return "", Command{}, false
}

// Names returns the sorted names of commands, optionally without hidden ones.
func (r *Router) Names(visibleOnly bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && cmd.Hidden {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse splits a message into command name and arguments.
func (r *Router) Parse(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, r.prefix) {
		return "", nil, false
	}
	parts := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(parts) == 0 {
		return "", nil, false
	}
	return strings.ToLower(parts[0]), parts[1:], true
}

// HandleMessageCreate is registered with Session.AddHandler.
func (r *Router) HandleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil {
		return
	}
	_ = r.Dispatch(s, m.Message)
}

// Dispatch runs the command m invokes, if any. Messages from bots are ignored.
func (r *Router) Dispatch(api API, m *discordgo.Message) error {
	if m.Author == nil || m.Author.Bot {
		return nil
	}
	name, args, ok := r.Parse(m.Content)
	if !ok {
		return nil
	}
	key, cmd, ok := r.Lookup(name)
	if !ok {
		return nil
	}

	ctx := logger.WithOrigin(context.Background(), logger.Origin{
		Platform: "discord",
		Update:   m.ID,
		Chat:     m.ChannelID,
		User:     m.Author.ID,
	})
	ctx = logger.WithLogger(logger.WithRID(ctx, m.ID), logger.DC)
	ctx = logger.WithHandler(ctx, key)

	r.mu.RLock()
	out, limiter := r.out, r.limiter
	r.mu.RUnlock()
	if !limiter.Allow(m.Author.ID) {
		logger.LogEvent(ctx, logger.DC, slog.LevelWarn, "update.rate_limited",
			slog.String("status", "rate_limited"),
		)
		return nil
	}

	inv := &Invocation{
		API:       api,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		MessageID: m.ID,
		Author:    pages.User{ID: m.Author.ID, Name: m.Author.Username, Bot: m.Author.Bot},
		Name:      key,
		Args:      args,
		ctx:       ctx,
		out:       out,
	}

	start := time.Now()
	err := run(ctx, cmd.Handler, inv)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.DC, slog.LevelInfo, "handler.handled", attrs...)
	return err
}

func run(ctx context.Context, h HandlerFunc, inv *Invocation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogEvent(ctx, logger.DC, slog.LevelError, "handler.panic",
				slog.String("status", "fail"),
				slog.String("err", fmt.Sprint(rec)),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("discord: handler %s panicked: %v", inv.Name, rec)
		}
	}()
	return h(ctx, inv)
}

func errorCode(err error) string {
	var c interface{ Code() string }
	if errors.As(err, &c) {
		return strings.ToUpper(c.Code())
	}
	return "UNKNOWN_ERROR"
}
