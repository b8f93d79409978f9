package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/pagebot/core/logger"
	tghelpers "github.com/m3rciful/pagebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Recover turns a handler panic into an error and logs the stack.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = fmt.Errorf("telegram: handler panic: %v", r)
			logger.LogEvent(tghelpers.Context(c), logger.TG, slog.LevelError, "handler.panic",
				slog.String("status", "fail"),
				slog.String("err", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}()
		return next(c)
	}
}
