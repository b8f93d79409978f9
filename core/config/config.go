package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// PlatformTelegram serves paginated messages through the Telegram Bot API.
	PlatformTelegram = "telegram"
	// PlatformDiscord serves paginated messages through the Discord gateway.
	PlatformDiscord = "discord"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	Token         string `yaml:"token" envconfig:"DISCORD_TOKEN"`
	CommandPrefix string `yaml:"command_prefix" envconfig:"DISCORD_COMMAND_PREFIX"`
	AdminID       string `yaml:"admin_id" envconfig:"DISCORD_ADMIN_ID"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// PagesConfig controls how paginated messages behave.
type PagesConfig struct {
	// DurationMS is the reaction listening window; 0 -> 60000.
	DurationMS int `yaml:"duration_ms" envconfig:"PAGES_DURATION_MS"`
	// PageFooter toggles the "Page: i/N" footer; unset -> true.
	PageFooter *bool `yaml:"page_footer" envconfig:"PAGES_FOOTER"`
	// AllowEveryone lets any user navigate a paginated message instead of only the one who opened it.
	AllowEveryone bool `yaml:"allow_everyone" envconfig:"PAGES_ALLOW_EVERYONE"`
}

// FooterEnabled reports whether pages carry the page counter.
func (p PagesConfig) FooterEnabled() bool {
	return p.PageFooter == nil || *p.PageFooter
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	// UpdateCallback is a Telegram inline button press.
	UpdateCallback = "callback"
	// UpdateMessage is a command message on either platform.
	UpdateMessage = "message"
)

// DefaultPagesDurationMS is the listening window used when pages.duration_ms is unset.
const DefaultPagesDurationMS = 60000

// RateLimitConfig sets the minimum gap between two updates of one user.
// ExcludeUpdates lists update kinds that bypass it.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Platform  string          `yaml:"platform" envconfig:"BOT_PLATFORM"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Discord   DiscordConfig   `yaml:"discord"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Pages     PagesConfig     `yaml:"pages"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills out from the YAML file at path and then from the environment.
// out may be any struct, so applications can embed Config next to their own sections.
func Decode(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	platform := strings.ToLower(strings.TrimSpace(cfg.Platform))
	if platform == "" {
		platform = PlatformTelegram
	}
	switch platform {
	case PlatformTelegram:
		if err := normalizeTelegram(cfg); err != nil {
			return err
		}
	case PlatformDiscord:
		if strings.TrimSpace(cfg.Discord.Token) == "" {
			return fmt.Errorf("discord token is required")
		}
		if strings.TrimSpace(cfg.Discord.CommandPrefix) == "" {
			cfg.Discord.CommandPrefix = "!"
		}
	default:
		return fmt.Errorf("invalid platform %q; allowed: telegram, discord", cfg.Platform)
	}
	cfg.Platform = platform

	if err := normalizeRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	if cfg.Pages.DurationMS < 0 {
		return fmt.Errorf("pages.duration_ms must be >= 0")
	}
	if cfg.Pages.DurationMS == 0 {
		cfg.Pages.DurationMS = DefaultPagesDurationMS
	}
	return nil
}

func normalizeTelegram(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	if rl.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	kinds := rl.ExcludeUpdates[:0]
	for _, v := range rl.ExcludeUpdates {
		switch key := strings.ToLower(strings.TrimSpace(v)); key {
		case "":
		case UpdateCallback, UpdateMessage:
			kinds = append(kinds, key)
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
	}
	rl.ExcludeUpdates = kinds
	return nil
}
