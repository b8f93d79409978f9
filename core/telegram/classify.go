package telegram

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/pagebot/core/outbox"

	tele "gopkg.in/telebot.v4"
)

// Classify decides whether a failed Bot API call is worth repeating. Flood
// waits carry their own delay; server errors and network failures retry with
// backoff; client errors never do.
func Classify(err error) outbox.Verdict {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return outbox.Verdict{
			Retry: true,
			Wait:  time.Duration(flood.RetryAfter) * time.Second,
			Kind:  "rate_limited",
		}
	}
	switch code := statusCode(err); {
	case code == http.StatusTooManyRequests:
		return outbox.Verdict{Retry: true, Kind: "rate_limited"}
	case code >= 500:
		return outbox.Verdict{Retry: true, Kind: "http_5xx"}
	case code >= 400:
		return outbox.Verdict{Kind: "http_4xx"}
	}
	return outbox.Transient(err)
}

// statusCode extracts the Bot API error code, either from a typed error or
// from the "(NNN)" suffix telebot puts on errors it does not know.
func statusCode(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}
	msg := strings.TrimSpace(err.Error())
	open := strings.LastIndexByte(msg, '(')
	if open < 0 || !strings.HasSuffix(msg, ")") {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil || code < 100 || code > 599 {
		return 0
	}
	return code
}
