package logger

import "strings"

// Canonical level names written in the "level" field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

func canonicalLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return LevelInfo
	case "warning":
		return LevelWarn
	}
	return strings.ToUpper(strings.TrimSpace(level))
}

// enums lists the closed vocabularies. A field in strict mode is dropped
// when its value is outside the set; otherwise it is kept lower-cased.
var enums = map[string]struct {
	values []string
	strict bool
}{
	"status":  {values: []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}},
	"outcome": {values: []string{"ok", "fail", "cancelled", "rate_limited", "stopped", "expired", "deleted"}, strict: true},
	"cache":   {values: []string{"hit", "miss", "refresh"}, strict: true},
}

func normalizeEnums(fields map[string]any) {
	for key, enum := range enums {
		raw, ok := fields[key].(string)
		if !ok || raw == "" {
			continue
		}
		v := strings.ToLower(strings.TrimSpace(raw))
		known := false
		for _, allowed := range enum.values {
			if v == allowed {
				known = true
				break
			}
		}
		switch {
		case known:
			fields[key] = v
		case enum.strict:
			delete(fields, key)
		}
	}
}

// defaultKeyOrder puts correlation fields first, then the paginated message
// vocabulary, then transport and error details. Other keys follow sorted.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"platform", "update_id", "user_id", "chat_id", "chat_type", "handler", "op", "cb_key",
	"session", "channel", "message", "symbol", "reactor", "bot", "help", "outcome",
	"duration_ms", "window_ms", "count", "page", "pages", "affordances", "restricted",
	"book", "books", "cache", "payload", "username",
	"mode", "listen", "public_url", "http_code", "db", "driver", "host", "port",
	"err", "err_code", "cause", "deleted", "retryable", "attempts", "backoff_ms", "rate_limited",
}
