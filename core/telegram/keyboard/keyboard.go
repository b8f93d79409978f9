// Package keyboard builds inline keyboards from plain button values.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button routed to the callback registered under Unique.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Inline lays rows out as an inline keyboard. Empty rows are skipped and a
// keyboard without buttons yields nil, which removes the markup.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var out []tele.Row
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make(tele.Row, 0, len(row))
		for _, b := range row {
			r = append(r, markup.Data(b.Text, b.Unique, b.Data))
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	markup.Inline(out...)
	return markup
}

// Chunk splits buttons into rows of at most n.
func Chunk(buttons []Button, n int) [][]Button {
	if n <= 0 {
		n = len(buttons)
	}
	var rows [][]Button
	for len(buttons) > 0 {
		k := min(n, len(buttons))
		rows = append(rows, buttons[:k:k])
		buttons = buttons[k:]
	}
	return rows
}
