package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T, lvl slog.Level, enc encoder, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter(buf, 1024)
	emit(slog.New(newHandler(aw, lvl, enc)))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func assertOrdered(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%q missing or out of order in %s", p, line)
		}
		pos = idx
	}
}

func TestHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithOrigin(ctx, Origin{Platform: "telegram", Update: "42", Chat: "9", User: "7"})

	line := capture(t, slog.LevelInfo, kvEncoder{order: defaultKeyOrder}, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "app"), slog.LevelInfo, "test.event",
			slog.String("status", "OK"),
			slog.String("cause", "unit"),
		)
	})
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "platform=telegram", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(want) {
		t.Fatalf("unexpected token count in %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	line := capture(t, slog.LevelInfo, jsonEncoder{order: defaultKeyOrder}, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "service.test"), slog.LevelError, "service.failed",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
		)
	})
	assertOrdered(t, line, `{"ts":`, `"level":"ERROR"`, `"component":"service.test"`, `"event":"service.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"ts_unix_nano"`, `"err":"boom"`)
}

func TestHandlerCompactRID(t *testing.T) {
	const raw = "12:34:56"
	ctx := WithRID(context.Background(), raw)
	emit := func(l *slog.Logger) { LogEvent(ctx, l, slog.LevelInfo, "rid.test") }

	kv := capture(t, slog.LevelInfo, kvEncoder{order: defaultKeyOrder}, emit)
	if !strings.Contains(kv, "rid=c.y.1k") || strings.Contains(kv, "rid_full=") {
		t.Fatalf("unexpected kv rid fields: %s", kv)
	}
	js := capture(t, slog.LevelInfo, jsonEncoder{order: defaultKeyOrder}, emit)
	if !strings.Contains(js, `"rid":"c.y.1k"`) || !strings.Contains(js, `"rid_full":"`+raw+`"`) {
		t.Fatalf("unexpected json rid fields: %s", js)
	}
}

func TestHandlerPageSessionKeys(t *testing.T) {
	ctx := WithSession(context.Background(), "s-1")
	line := capture(t, slog.LevelDebug, kvEncoder{order: defaultKeyOrder}, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "pages"), slog.LevelInfo, "pages.create",
			slog.Int("pages", 3),
			slog.String("symbol", "▶️"),
			slog.Duration("window", 60*time.Second),
		)
	})
	assertOrdered(t, line, "session=s-1", "symbol=▶️", "window_ms=60000", "pages=3")
}

func TestHandlerGroupsAndFiltering(t *testing.T) {
	line := capture(t, slog.LevelWarn, kvEncoder{order: defaultKeyOrder}, func(l *slog.Logger) {
		l.Info("dropped")
		g := l.WithGroup("req").With("id", 5).WithGroup("hdr")
		g.Warn("grouped", "ua", "x", "cache", "bogus", "outcome", "expired", "empty", "")
	})
	if strings.Contains(line, "dropped") {
		t.Fatalf("info record passed a warn handler: %s", line)
	}
	for _, want := range []string{"event=grouped", "req.id=5", "req.hdr.ua=x", "req.hdr.outcome=expired"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
	if strings.Contains(line, "empty=") {
		t.Fatalf("empty value kept: %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:36:0":     "z.10.0",
		" 1:2:3 ":     "1.2.3",
		"a:b:c":       "a:b:c",
		"1:2":         "1:2",
		"rid-plain":   "rid-plain",
		"1:2:3:4":     "1:2:3:4",
		"10:-1:3":     "10:-1:3",
		"100:200:300": "2s.5k.8c",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
	if got := BuildRID("1", "2", "3"); got != "1:2:3" {
		t.Fatalf("BuildRID = %q", got)
	}
}
