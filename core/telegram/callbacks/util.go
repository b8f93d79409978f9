// Package callbacks decodes inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Data is a decoded callback: the button's unique endpoint and its payload.
type Data struct {
	Unique  string
	Payload string
}

// Parse decodes cb. Handlers bound to a unique endpoint get both parts from
// telebot already; the generic OnCallback handler sees "\f<unique>|<payload>".
func Parse(cb *tele.Callback) Data {
	if cb == nil {
		return Data{}
	}
	if cb.Unique != "" {
		return Data{Unique: cb.Unique, Payload: cb.Data}
	}
	unique, payload, _ := strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return Data{Unique: strings.TrimSpace(unique), Payload: payload}
}

// Key returns the unique endpoint of the callback in c, if any.
func Key(c tele.Context) string {
	return Parse(c.Callback()).Unique
}
