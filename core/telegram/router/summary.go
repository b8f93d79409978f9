package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/pagebot/core/logger"
	tghelpers "github.com/m3rciful/pagebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// summarize runs h and writes one handler.handled line with its outcome.
func summarize(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if h == nil {
			return nil
		}
		start := time.Now()
		ctx := tghelpers.WithHandler(c, name)
		err := h(c)

		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("outcome", "ok"),
			slog.Duration("duration", logger.Took(start)),
		}
		lvl := slog.LevelInfo
		if err != nil {
			lvl = slog.LevelWarn
			attrs[1] = slog.String("outcome", "fail")
			attrs = append(attrs,
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				slog.String("err_code", errorCode(err)),
			)
		}
		logger.LogEvent(ctx, logger.TG, lvl, "handler.handled", attrs...)
		return err
	}
}

func handlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode prefers an explicit Code() and falls back to the type name of
// the outermost error that is not a plain wrapper.
func errorCode(err error) string {
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		t := reflect.TypeOf(e)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if name := t.Name(); name != "" && name != "wrapError" && name != "errorString" {
			return strings.ToUpper(name)
		}
	}
	return "UNKNOWN_ERROR"
}
