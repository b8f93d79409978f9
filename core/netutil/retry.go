// Package netutil holds the HTTP client and error helpers shared by the
// Telegram and Discord transports.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"regexp"
	"time"
)

// Transient reports whether err looks like a dial failure or a timeout that a
// second attempt could get past.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Kind buckets a transport error for logging.
func Kind(err error) string {
	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		netErr net.Error
		alert  tls.AlertError
		urlErr *url.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alert):
		return "tls"
	case errors.As(err, &urlErr):
		return "http"
	}
	return "unknown"
}

// Backoff grows linearly with the attempt number, starting at base.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(attempt)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var secretRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+|Bot [A-Za-z0-9._-]{20,}`)

// Redact hides Telegram bot tokens in URLs and Discord authorization headers.
func Redact(msg string) string {
	return secretRe.ReplaceAllStringFunc(msg, func(m string) string {
		if m[0] == 'B' {
			return "Bot <redacted>"
		}
		return "bot<redacted>"
	})
}
