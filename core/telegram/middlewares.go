package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/pagebot/core/config"
	"github.com/m3rciful/pagebot/core/ratelimit"
	"github.com/m3rciful/pagebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares is the global chain: panic recovery, the per-user rate
// limit when configured, then update logging.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.Recover}}
	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]bool, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[kind] = true
		}
		limiter := ratelimit.New(time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond)
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use:  middleware.RateLimit(limiter, exclude, onLimited),
		})
	}
	return append(mws, Middleware{Name: "logger", Use: middleware.Logger})
}
