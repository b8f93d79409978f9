package middleware

import (
	"log/slog"
	"strconv"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/ratelimit"
	tghelpers "github.com/m3rciful/pagebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind names the update for rate limit exclusions: "callback",
// "message", "inline_query" or "other".
func UpdateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return "message"
	case u.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimit drops updates from a sender who acted less than the limiter's
// interval ago. Update kinds listed in exclude always pass.
func RateLimit(l *ratelimit.Limiter, exclude map[string]bool, onLimited tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			kind := UpdateKind(c.Update())
			if u == nil || exclude[kind] || l.Allow(strconv.FormatInt(u.ID, 10)) {
				return next(c)
			}
			logger.LogEvent(tghelpers.Context(c), logger.TG, slog.LevelWarn, "update.rate_limited",
				slog.String("status", "rate_limited"),
				slog.String("op", kind),
			)
			if onLimited != nil {
				return onLimited(c)
			}
			return nil
		}
	}
}
