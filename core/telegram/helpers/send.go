package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/outbox"

	tele "gopkg.in/telebot.v4"
)

var box atomic.Pointer[outbox.Outbox]

// SetOutbox routes replies through o. A nil o makes replies synchronous.
func SetOutbox(o *outbox.Outbox) {
	box.Store(o)
}

// SendText replies with plain text. With an outbox installed the reply is
// queued; a full or closed queue falls back to sending inline.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	send := func(context.Context) error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	}
	o := box.Load()
	if o == nil {
		return send(context.Background())
	}
	ctx := Context(c)
	err := o.Enqueue(ctx, "sendMessage", send)
	if errors.Is(err, outbox.ErrFull) || errors.Is(err, outbox.ErrClosed) {
		logger.LogEvent(ctx, logger.Out, slog.LevelWarn, "queue.fallback",
			slog.String("op", "sendMessage"),
			slog.String("err", err.Error()),
		)
		return send(ctx)
	}
	return err
}
