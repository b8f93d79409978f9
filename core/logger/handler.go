package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// handler flattens records into a single map and hands it to an encoder.
// Record attrs win over handler attrs; context values only fill gaps.
type handler struct {
	out    *asyncWriter
	level  slog.Leveler
	enc    encoder
	attrs  []slog.Attr
	prefix string
}

func newHandler(out *asyncWriter, level slog.Leveler, enc encoder) *handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &handler{out: out, level: level, enc: enc}
}

func (h *handler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = join(h.prefix, name)
	return &c
}

// qualify moves attrs under the current group prefix so later groups do not
// rename them.
func (h *handler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.prefix == "" {
		return attrs
	}
	return []slog.Attr{{Key: h.prefix, Value: slog.GroupValue(attrs...)}}
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return errors.New("logger: writer not initialized")
	}
	fields := make(map[string]any, 16)
	ts := r.Time.UTC()
	fields["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	fields["level"] = canonicalLevel(r.Level.String())
	if h.enc.verbose() {
		fields["ts_unix_nano"] = ts.UnixNano()
	}

	for _, a := range h.attrs {
		collect(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(fields, h.prefix, a)
		return true
	})
	fromContext(ctx, fields)

	if rid, ok := fields["rid"].(string); ok && rid != "" {
		if short := CompactRID(rid); short != rid {
			fields["rid"] = short
			if h.enc.verbose() {
				fields["rid_full"] = rid
			}
		}
	}
	if ev, _ := fields["event"].(string); ev == "" {
		fields["event"] = r.Message
		if r.Message == "" {
			fields["event"] = "unknown"
		}
	}
	if comp, _ := fields["component"].(string); comp == "" {
		fields["component"] = "app"
	}
	normalizeEnums(fields)
	for k, v := range fields {
		if v == nil || v == "" {
			delete(fields, k)
		}
	}

	line, err := h.enc.encode(fields)
	if err != nil {
		return err
	}
	return h.out.Write(append(line, '\n'))
}

func fromContext(ctx context.Context, fields map[string]any) {
	if ctx == nil {
		return
	}
	fill := func(key, val string) {
		if val == "" {
			return
		}
		if _, ok := fields[key]; !ok {
			fields[key] = val
		}
	}
	fill("rid", RIDFrom(ctx))
	fill("handler", HandlerFrom(ctx))
	fill("session", SessionFrom(ctx))
	for _, a := range OriginFrom(ctx).attrs() {
		fill(a.Key, a.Value.String())
	}
}

func collect(fields map[string]any, prefix string, a slog.Attr) {
	key := join(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			collect(fields, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := scalar(key, v); ok {
		fields[k] = val
	}
}

func join(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// scalar converts a value to a JSON friendly form. Durations are written as
// integer milliseconds under a "_ms" key.
func scalar(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	case string:
		return key, strings.TrimSpace(x), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}
