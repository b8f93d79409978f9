package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type encoder interface {
	encode(fields map[string]any) ([]byte, error)
	// verbose encoders also receive ts_unix_nano and rid_full.
	verbose() bool
}

type kvEncoder struct{ order []string }

func (kvEncoder) verbose() bool { return false }

func (e kvEncoder) encode(fields map[string]any) ([]byte, error) {
	var b bytes.Buffer
	for i, key := range orderKeys(fields, e.order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(kvValue(fields[key]))
	}
	return b.Bytes(), nil
}

func kvValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

type jsonEncoder struct{ order []string }

func (jsonEncoder) verbose() bool { return true }

func (e jsonEncoder) encode(fields map[string]any) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, key := range orderKeys(fields, e.order) {
		val, err := json.Marshal(fields[key])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", key, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(key))
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// orderKeys lists the keys in order first, then the rest alphabetically.
func orderKeys(fields map[string]any, order []string) []string {
	keys := make([]string, 0, len(fields))
	listed := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := fields[k]; ok && !listed[k] {
			keys = append(keys, k)
		}
		listed[k] = true
	}
	head := len(keys)
	for k := range fields {
		if !listed[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys[head:])
	return keys
}
