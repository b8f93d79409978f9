package pages

import "context"

// Symbol is a reaction shown on a paginated message.
type Symbol string

const (
	SkipBack    Symbol = "⏮️"
	Back        Symbol = "◀️"
	Forward     Symbol = "▶️"
	SkipForward Symbol = "⏭️"
	Stop        Symbol = "⏹"
	Help        Symbol = "ℹ️"
)

var symbols = [...]Symbol{SkipBack, Back, Forward, SkipForward, Stop, Help}

// Symbols returns the reaction vocabulary in the order it is attached to a message.
func Symbols() []Symbol {
	return append([]Symbol(nil), symbols[:]...)
}

// Known reports whether s belongs to the navigation vocabulary.
func (s Symbol) Known() bool {
	for _, v := range symbols {
		if v == s {
			return true
		}
	}
	return false
}

// MessageRef addresses a message on a host.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Reaction is a single press of a symbol by a user.
type Reaction struct {
	Symbol Symbol
	User   User
}

// Listener streams reactions for one message until stopped.
type Listener interface {
	Events() <-chan Reaction
	// Stop releases the listener. It is safe to call more than once.
	Stop()
}

// Host is the chat platform a paginated message lives on.
type Host interface {
	Send(ctx context.Context, channel string, r Render) (MessageRef, error)
	Edit(ctx context.Context, msg MessageRef, r Render) error
	Delete(ctx context.Context, msg MessageRef) error
	AttachAffordance(ctx context.Context, msg MessageRef, s Symbol) error
	// Listen opens a reaction stream for msg. The listening window ends when ctx is done.
	Listen(ctx context.Context, msg MessageRef) (Listener, error)
	RetractReaction(ctx context.Context, msg MessageRef, userID string, s Symbol) error
	ClearReactions(ctx context.Context, msg MessageRef) error
}
