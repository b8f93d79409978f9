package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/pagebot/core/config"

	tele "gopkg.in/telebot.v4"
)

// AllowedUpdates are the update types the bot subscribes to: commands arrive
// as messages and page navigation as callback queries.
var AllowedUpdates = []string{"message", "callback_query"}

const defaultPollTimeout = 10 * time.Second

// BuildPoller returns the webhook or long poller selected by cfg.Telegram.RunMode.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			AllowedUpdates: AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{
		Timeout:        pollTimeout(cfg),
		AllowedUpdates: AllowedUpdates,
	}
}

func pollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.LongPollTimeoutSeconds <= 0 {
		return defaultPollTimeout
	}
	return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
}
