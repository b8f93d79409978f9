package format

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

var (
	mdV1Re = regexp.MustCompile(`([_*\\\[` + "`" + `])`)
	mdV2Re = regexp.MustCompile(`([\\_*\[\]()~` + "`" + `>#+\-=|{}.!])`)
	// inside (...) of an inline link only ')' and '\' need escaping
	mdV2LinkRe = regexp.MustCompile(`([)\\])`)
	// inside `code` and ```pre``` only '`' and '\' need escaping
	mdV2CodeRe = regexp.MustCompile("([`\\\\])")
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
// entityType narrows V2 escaping for "text_link" URLs and "code"/"pre" bodies; empty means plain text.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$1`), nil
	case MarkdownV2:
		switch strings.ToLower(entityType) {
		case "text_link", "url":
			return mdV2LinkRe.ReplaceAllString(text, `\$1`), nil
		case "code", "pre":
			return mdV2CodeRe.ReplaceAllString(text, `\$1`), nil
		}
		return mdV2Re.ReplaceAllString(text, `\$1`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// EscapeV2 is EscapeMarkdown for plain MarkdownV2 text.
func EscapeV2(text string) string {
	s, _ := EscapeMarkdown(text, MarkdownV2, "")
	return s
}
