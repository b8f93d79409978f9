package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/pagebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command with its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin and stay out of the menu.
	AdminOnly bool
	Hidden    bool
	// Aliases are extra names, with or without the leading slash.
	Aliases []string
}

// Registry holds the bot commands and callback handlers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty Registry. Unknown callbacks are answered
// with a short notice.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// commandName normalizes "/Name@bot", "name" and "/name" to "/name".
func commandName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "/" {
		return ""
	}
	if s[0] != '/' {
		s = "/" + s
	}
	return s
}

func skipRegistration(kind, name, reason string) error {
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelWarn, "register."+kind+".skip",
		slog.String("handler", name),
		slog.String("cause", reason),
	)
	return fmt.Errorf("telegram: %s %q: %s", kind, name, reason)
}

// RegisterCommand adds cmd under name and its aliases.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	key := commandName(name)
	if key == "" || cmd.Handler == nil || cmd.Description == "" {
		return skipRegistration("command", name, "invalid")
	}
	names := []string{key}
	for _, a := range cmd.Aliases {
		if a = commandName(a); a != "" && a != key {
			names = append(names, a)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if _, taken := r.commands[n]; taken {
			return skipRegistration("command", n, "duplicate")
		}
		if _, taken := r.aliases[n]; taken {
			return skipRegistration("command", n, "duplicate")
		}
	}
	r.commands[key] = cmd
	for _, n := range names[1:] {
		r.aliases[n] = key
	}
	return nil
}

// LookupCommand resolves a command name or alias, as typed by a user, to the
// canonical name and its Command.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	key := commandName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[key]; ok {
		key = target
	}
	cmd, ok := r.commands[key]
	if !ok {
		return "", Command{}, false
	}
	return key, cmd, true
}

// CommandNames lists the canonical command names in order.
func (r *Registry) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListCommands returns the menu entries. With visibleOnly, hidden and
// admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for _, name := range r.CommandNames() {
		_, cmd, _ := r.LookupCommand(name)
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	return list
}

// RegisterCallback binds handler to a callback unique key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	key = strings.TrimSpace(key)
	if key == "" || handler == nil {
		return skipRegistration("callback", key, "invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return skipRegistration("callback", key, "duplicate")
	}
	r.callbacks[key] = handler
	return nil
}

// Callback returns the handler bound to key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackKeys lists the registered callback keys in order.
func (r *Registry) CallbackKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the handler for unknown callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for unknown callback keys.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that is not a command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the handler for text that is not a command.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// CommandSetter is the part of *tele.Bot that publishes the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// PublishCommands sends the visible commands to Telegram's command menu.
func PublishCommands(bot CommandSetter, reg *Registry) error {
	if bot == nil || reg == nil {
		return errors.New("telegram: nil bot or registry")
	}
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelError, "register.commands.fail",
			slog.Int("count", len(list)),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "register.commands",
		slog.Int("count", len(list)),
	)
	return nil
}
