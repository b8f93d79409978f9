package telegram

import (
	"errors"
	"net"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		retry bool
		wait  time.Duration
		kind  string
	}{
		{"flood", tele.FloodError{RetryAfter: 3}, true, 3 * time.Second, "rate_limited"},
		{"typed 403", tele.ErrBlockedByUser, false, 0, "http_4xx"},
		{"untyped 502", errors.New("telegram: Bad Gateway (502)"), true, 0, "http_5xx"},
		{"untyped 400", errors.New("telegram: Bad Request: chat not found (400)"), false, 0, "http_4xx"},
		{"suffix not a code", errors.New("telegram: something (odd)"), false, 0, "unknown"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true, 0, "dial"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Classify(tc.err)
			if v.Retry != tc.retry || v.Wait != tc.wait || v.Kind != tc.kind {
				t.Fatalf("Classify = %+v", v)
			}
		})
	}
}
