package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeTelegramDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: " Polling "}}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Platform != PlatformTelegram {
		t.Fatalf("platform = %q", cfg.Platform)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Pages.DurationMS != DefaultPagesDurationMS {
		t.Fatalf("duration = %d", cfg.Pages.DurationMS)
	}
	if !cfg.Pages.FooterEnabled() {
		t.Fatal("footer should default to enabled")
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing telegram token", Config{}, "telegram token"},
		{"bad platform", Config{Platform: "irc"}, "invalid platform"},
		{"missing discord token", Config{Platform: "discord"}, "discord token"},
		{"webhook without url", Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}, "webhook.url"},
		{"bad run mode", Config{Telegram: TelegramConfig{Token: "t", RunMode: "push"}}, "run_mode"},
		{"negative duration", Config{Telegram: TelegramConfig{Token: "t"}, Pages: PagesConfig{DurationMS: -1}}, "duration_ms"},
		{"bad exclude", Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}}, "exclude_updates"},
		{"inline queries are not served", Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}}, "exclude_updates"},
		{"negative interval", Config{Platform: "discord", Discord: DiscordConfig{Token: "d"}, RateLimit: RateLimitConfig{IntervalMS: -5}}, "interval_ms"},
	}
	for _, tt := range tests {
		cfg := tt.cfg
		err := Normalize(&cfg)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: error = %v, want containing %q", tt.name, err, tt.want)
		}
	}
}

func TestNormalizeDiscordPrefix(t *testing.T) {
	cfg := &Config{
		Platform:  "Discord",
		Discord:   DiscordConfig{Token: "d"},
		RateLimit: RateLimitConfig{IntervalMS: 500, ExcludeUpdates: []string{" ", "MESSAGE"}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Platform != PlatformDiscord || cfg.Discord.CommandPrefix != "!" {
		t.Fatalf("unexpected discord config: %+v", cfg)
	}
	if len(cfg.RateLimit.ExcludeUpdates) != 1 || cfg.RateLimit.ExcludeUpdates[0] != UpdateMessage {
		t.Fatalf("exclude = %q", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
platform: telegram
telegram:
  token: "123:abc"
pages:
  duration_ms: 15000
  page_footer: false
  allow_everyone: true
rate_limit:
  exclude_updates: ["Callback"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pages.DurationMS != 15000 || cfg.Pages.FooterEnabled() || !cfg.Pages.AllowEveryone {
		t.Fatalf("pages config = %+v", cfg.Pages)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclude = %v", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
