package discord

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/m3rciful/pagebot/core/outbox"
)

// Classify decides whether a failed REST call is worth repeating. discordgo
// already waits out bucket limits itself; this covers the global limit when
// that retry is off, server errors and network failures.
func Classify(err error) outbox.Verdict {
	var limited *discordgo.RateLimitError
	if errors.As(err, &limited) {
		v := outbox.Verdict{Retry: true, Kind: "rate_limited"}
		if limited.RateLimit != nil && limited.TooManyRequests != nil {
			v.Wait = limited.RetryAfter
		}
		return v
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch code := rest.Response.StatusCode; {
		case code == http.StatusTooManyRequests:
			return outbox.Verdict{Retry: true, Kind: "rate_limited"}
		case code >= 500:
			return outbox.Verdict{Retry: true, Kind: "http_5xx"}
		case code >= 400:
			return outbox.Verdict{Kind: "http_4xx"}
		}
	}
	return outbox.Transient(err)
}

// NewOutbox returns an outbox that retries REST calls according to Classify.
func NewOutbox(opts outbox.Options) *outbox.Outbox {
	if opts.Classify == nil {
		opts.Classify = Classify
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	return outbox.New(opts)
}
