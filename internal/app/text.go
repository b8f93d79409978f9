package app

import (
	"fmt"
	"strings"

	"github.com/m3rciful/pagebot/core/pages"
)

// HelpText lists the commands followed by the navigation legend.
func HelpText(commands []string) string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range commands {
		b.WriteString("\n")
		b.WriteString(c)
	}
	b.WriteString("\n\n")
	b.WriteString(pages.HelpPage().Description)
	return b.String()
}

// SessionsText describes the listening messages for operators.
func SessionsText(list []Session) string {
	if len(list) == 0 {
		return "No active paginated messages."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Active paginated messages: %d", len(list))
	for _, s := range list {
		fmt.Fprintf(&b, "\n%s page %d/%d", s.ID, s.State.Index+1, s.State.Count)
		if s.State.Help {
			b.WriteString(" (help)")
		}
	}
	return b.String()
}
