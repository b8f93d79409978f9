// Package router turns a telegram.Registry into bot routes.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/pagebot/core/logger"
	tg "github.com/m3rciful/pagebot/core/telegram"
	"github.com/m3rciful/pagebot/core/telegram/callbacks"
	"github.com/m3rciful/pagebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Options configures the routes built from a registry.
type Options struct {
	// AdminID is the only user allowed to run AdminOnly commands.
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	// UnknownCallback overrides the registry's not-found handler.
	UnknownCallback tele.HandlerFunc
	UnknownText     tele.HandlerFunc
}

// Routes returns the command, callback and text routes for reg.
func Routes(reg *tg.Registry, opts Options) []tg.Route {
	if reg == nil {
		return nil
	}
	routes := CommandRoutes(reg, opts)
	routes = append(routes, CallbackRoute(reg, opts), TextRoute(reg, opts))
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "routes.ready",
		slog.Int("count", len(routes)),
		slog.String("cb_key", strings.Join(reg.CallbackKeys(), ",")),
	)
	return routes
}

// command wraps cmd with the admin gate and the summary log.
func command(name string, cmd tg.Command, opts Options) tele.HandlerFunc {
	h := cmd.Handler
	if cmd.AdminOnly {
		h = middleware.AdminOnly(opts.AdminID, opts.OnAdminReject)(h)
	}
	return summarize(handlerName(name), h)
}

// CommandRoutes binds every registered command to its canonical endpoint.
// Aliases are served by TextRoute.
func CommandRoutes(reg *tg.Registry, opts Options) []tg.Route {
	names := reg.CommandNames()
	routes := make([]tg.Route, 0, len(names))
	for _, name := range names {
		_, cmd, _ := reg.LookupCommand(name)
		routes = append(routes, tg.Route{Endpoint: name, Handler: command(name, cmd, opts)})
	}
	return routes
}

// CallbackRoute dispatches callback queries by their unique key. Handlers
// answer their own queries.
func CallbackRoute(reg *tg.Registry, opts Options) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			if c.Callback() == nil {
				return nil
			}
			key := callbacks.Key(c)
			h, ok := reg.Callback(key)
			if !ok {
				if h = opts.UnknownCallback; h == nil {
					h = reg.CallbackNotFound()
				}
			}
			return summarize("callback."+handlerName(key), h)(c)
		},
	}
}

// TextRoute runs aliased commands such as "/p guide", then the registry's
// text fallback, then UnknownText.
func TextRoute(reg *tg.Registry, opts Options) tg.Route {
	return tg.Route{
		Endpoint: tele.OnText,
		Handler: func(c tele.Context) error {
			word, _, _ := strings.Cut(strings.TrimSpace(c.Text()), " ")
			if strings.HasPrefix(word, "/") {
				if name, cmd, ok := reg.LookupCommand(word); ok {
					return command(name, cmd, opts)(c)
				}
			}
			if fb := reg.TextFallback(); fb != nil {
				return summarize("fallback", fb)(c)
			}
			if opts.UnknownText != nil {
				return summarize("unknown_text", opts.UnknownText)(c)
			}
			return nil
		},
	}
}
