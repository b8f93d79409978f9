package pagehost

import (
	"strings"

	"github.com/m3rciful/pagebot/core/pages"
	"github.com/m3rciful/pagebot/core/telegram/format"
)

// Text renders r as a MarkdownV2 message body.
func Text(r pages.Render) string {
	var b strings.Builder
	p := r.Page
	if p.Title != "" {
		title := "*" + format.EscapeV2(p.Title) + "*"
		if p.URL != "" {
			link, _ := format.EscapeMarkdown(p.URL, format.MarkdownV2, "text_link")
			title = "[" + title + "](" + link + ")"
		}
		b.WriteString(title)
	}
	if p.Description != "" {
		section(&b)
		b.WriteString(format.EscapeV2(p.Description))
	}
	for _, f := range p.Fields {
		section(&b)
		b.WriteString("*" + format.EscapeV2(f.Name) + "*\n")
		b.WriteString(format.EscapeV2(f.Value))
	}
	if p.ImageURL != "" {
		section(&b)
		link, _ := format.EscapeMarkdown(p.ImageURL, format.MarkdownV2, "text_link")
		b.WriteString("[" + format.EscapeV2("image") + "](" + link + ")")
	}
	if r.Footer != "" {
		section(&b)
		b.WriteString("_" + format.EscapeV2(r.Footer) + "_")
	}
	return b.String()
}

func section(b *strings.Builder) {
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
}
