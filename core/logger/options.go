package logger

import (
	"log/slog"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/pagebot/core/config"
)

type settings struct {
	json      bool
	level     slog.Level
	order     []string
	profile   string
	file      string
	sampleNum int
	sampleDen int
}

func (s settings) encoder() encoder {
	if s.json {
		return jsonEncoder{order: s.order}
	}
	return kvEncoder{order: s.order}
}

// resolve turns the logging section into handler settings. Unknown values
// fall back to production defaults.
func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		json:      true,
		level:     slog.LevelInfo,
		order:     defaultKeyOrder,
		profile:   "prod",
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.json = false
	case "json":
	default:
		s.json = s.profile != "debug" && s.profile != "dev"
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if order := splitList(lc.KeysOrder); len(order) > 0 && lc.KeysOrder != "default" {
		s.order = order
	}

	if ratio := strings.TrimSpace(lc.DebugSample); ratio != "" {
		if num, den, ok := parseRatio(ratio); ok {
			s.sampleNum, s.sampleDen = num, den
		}
	}

	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
