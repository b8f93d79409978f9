package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyHandler
	keyOrigin
	keySession
)

// Origin identifies the update a log line belongs to. IDs are kept as strings
// so Telegram integers and Discord snowflakes share one shape.
type Origin struct {
	Platform string
	Update   string
	Chat     string
	User     string
}

func (o Origin) attrs() []slog.Attr {
	var out []slog.Attr
	if o.Platform != "" {
		out = append(out, slog.String("platform", o.Platform))
	}
	if o.Update != "" {
		out = append(out, slog.String("update_id", o.Update))
	}
	if o.Chat != "" {
		out = append(out, slog.String("chat_id", o.Chat))
	}
	if o.User != "" {
		out = append(out, slog.String("user_id", o.User))
	}
	return out
}

func with(ctx context.Context, key ctxKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func from[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(key).(T)
	return v
}

// WithLogger stores log in ctx; LogEvent falls back to it when no logger is passed.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return with(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l := from[*slog.Logger](ctx, keyLogger); l != nil {
		return l
	}
	return L
}

// WithRID attaches a request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return with(ctx, keyRID, rid)
}

// RIDFrom returns the correlation id in ctx, if any.
func RIDFrom(ctx context.Context) string { return from[string](ctx, keyRID) }

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return with(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name in ctx, if any.
func HandlerFrom(ctx context.Context) string { return from[string](ctx, keyHandler) }

// WithOrigin attaches the update identifiers.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return with(ctx, keyOrigin, o)
}

// OriginFrom returns the update identifiers in ctx.
func OriginFrom(ctx context.Context) Origin { return from[Origin](ctx, keyOrigin) }

// WithSession tags log lines with a paginated message session id.
func WithSession(ctx context.Context, id string) context.Context {
	return with(ctx, keySession, id)
}

// SessionFrom returns the session id in ctx, if any.
func SessionFrom(ctx context.Context) string { return from[string](ctx, keySession) }

// BuildRID joins update, chat and user ids into a correlation id.
func BuildRID(update, chat, user string) string {
	return update + ":" + chat + ":" + user
}

// CompactRID rewrites the numeric segments of a three-part rid in base36.
// Anything else is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatUint(n, 36)
	}
	return strings.Join(parts, ".")
}
