// Package helpers bridges tele.Context to the context.Context based logging
// and to the shared outbox.
package helpers

import (
	"context"
	"strconv"

	"github.com/m3rciful/pagebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "pagebot.ctx"

// Origin identifies the update c carries.
func Origin(c tele.Context) logger.Origin {
	o := logger.Origin{Platform: "telegram"}
	if c == nil {
		return o
	}
	if id := c.Update().ID; id != 0 {
		o.Update = strconv.Itoa(id)
	}
	if chat := c.Chat(); chat != nil {
		o.Chat = strconv.FormatInt(chat.ID, 10)
	}
	if u := c.Sender(); u != nil {
		o.User = strconv.FormatInt(u.ID, 10)
	}
	return o
}

// Context returns the context stored on c, creating one with the update's
// rid and origin on first use.
func Context(c tele.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	o := Origin(c)
	ctx := logger.WithOrigin(context.Background(), o)
	ctx = logger.WithRID(ctx, logger.BuildRID(o.Update, o.Chat, o.User))
	ctx = logger.WithLogger(ctx, logger.TG)
	c.Set(ctxKey, ctx)
	return ctx
}

// WithHandler names the handler in the stored context and returns it.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(Context(c), handler)
	if c != nil {
		c.Set(ctxKey, ctx)
	}
	return ctx
}
