package middleware

import (
	"log/slog"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/pagebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Logger prepares the update context for downstream handlers and writes a
// sampled debug line describing the update.
func Logger(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.Context(c)
		if !logger.ShouldSampleDebug() {
			return next(c)
		}

		attrs := []slog.Attr{slog.String("op", UpdateKind(c.Update()))}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if u := c.Sender(); u != nil && u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		switch upd := c.Update(); {
		case upd.Callback != nil:
			data := callbacks.Parse(upd.Callback)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(data.Unique, 128)),
				slog.String("payload", logger.SanitizeLimit(data.Payload, 256)),
			)
		case upd.Message != nil:
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}
