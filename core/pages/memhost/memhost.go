// Package memhost provides an in-memory pages.Host for tests and local development.
// It records every call and lets callers inject reactions.
package memhost

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/m3rciful/pagebot/core/pages"
)

// ErrUnknownMessage is returned for operations on messages the host never sent or already deleted.
var ErrUnknownMessage = errors.New("memhost: unknown message")

// Retraction records a RetractReaction call.
type Retraction struct {
	UserID string
	Symbol pages.Symbol
}

// Message is the recorded state of one sent message.
type Message struct {
	Ref         pages.MessageRef
	Renders     []pages.Render
	Affordances []pages.Symbol
	Retractions []Retraction
	Clears      int
	Deleted     bool
}

// Current returns the last render shown on the message.
func (m Message) Current() pages.Render {
	if len(m.Renders) == 0 {
		return pages.Render{}
	}
	return m.Renders[len(m.Renders)-1]
}

// Host is an in-memory pages.Host.
type Host struct {
	mu         sync.Mutex
	next       int
	messages   map[string]*Message
	listeners  map[string]*listener
	failAttach map[pages.Symbol]error
	failSend   error
	failEdit   error
	failDelete error
	failListen error
}

// New returns an empty host.
func New() *Host {
	return &Host{
		messages:   make(map[string]*Message),
		listeners:  make(map[string]*listener),
		failAttach: make(map[pages.Symbol]error),
	}
}

// FailAttach makes AttachAffordance fail for s.
func (h *Host) FailAttach(s pages.Symbol, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failAttach, s)
		return
	}
	h.failAttach[s] = err
}

// FailSend makes Send fail with err; nil restores normal behaviour.
func (h *Host) FailSend(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failSend = err
}

// FailEdit makes Edit fail with err; nil restores normal behaviour.
func (h *Host) FailEdit(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failEdit = err
}

// FailDelete makes Delete fail with err; nil restores normal behaviour.
func (h *Host) FailDelete(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failDelete = err
}

// FailListen makes Listen fail with err; nil restores normal behaviour.
func (h *Host) FailListen(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failListen = err
}

// Send implements pages.Host.
func (h *Host) Send(_ context.Context, channel string, r pages.Render) (pages.MessageRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failSend != nil {
		return pages.MessageRef{}, h.failSend
	}
	h.next++
	ref := pages.MessageRef{ChannelID: channel, MessageID: strconv.Itoa(h.next)}
	h.messages[ref.MessageID] = &Message{Ref: ref, Renders: []pages.Render{r}}
	return ref, nil
}

// Edit implements pages.Host.
func (h *Host) Edit(_ context.Context, msg pages.MessageRef, r pages.Render) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, err := h.liveLocked(msg)
	if err != nil {
		return err
	}
	if h.failEdit != nil {
		return h.failEdit
	}
	m.Renders = append(m.Renders, r)
	return nil
}

// Delete implements pages.Host.
func (h *Host) Delete(_ context.Context, msg pages.MessageRef) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, err := h.liveLocked(msg)
	if err != nil {
		return err
	}
	if h.failDelete != nil {
		return h.failDelete
	}
	m.Deleted = true
	return nil
}

// AttachAffordance implements pages.Host.
func (h *Host) AttachAffordance(_ context.Context, msg pages.MessageRef, s pages.Symbol) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, err := h.liveLocked(msg)
	if err != nil {
		return err
	}
	if err := h.failAttach[s]; err != nil {
		return err
	}
	m.Affordances = append(m.Affordances, s)
	return nil
}

// Listen implements pages.Host. The listener stops by itself when ctx is done.
func (h *Host) Listen(ctx context.Context, msg pages.MessageRef) (pages.Listener, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.liveLocked(msg); err != nil {
		return nil, err
	}
	if h.failListen != nil {
		return nil, h.failListen
	}
	l := &listener{
		events: make(chan pages.Reaction, 64),
		done:   make(chan struct{}),
	}
	l.release = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.listeners[msg.MessageID] == l {
			delete(h.listeners, msg.MessageID)
		}
	}
	h.listeners[msg.MessageID] = l
	go func() {
		select {
		case <-ctx.Done():
			l.Stop()
		case <-l.done:
		}
	}()
	return l, nil
}

// RetractReaction implements pages.Host.
func (h *Host) RetractReaction(_ context.Context, msg pages.MessageRef, userID string, s pages.Symbol) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, err := h.liveLocked(msg)
	if err != nil {
		return err
	}
	m.Retractions = append(m.Retractions, Retraction{UserID: userID, Symbol: s})
	return nil
}

// ClearReactions implements pages.Host.
func (h *Host) ClearReactions(_ context.Context, msg pages.MessageRef) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, err := h.liveLocked(msg)
	if err != nil {
		return err
	}
	m.Clears++
	m.Affordances = nil
	return nil
}

// Emit delivers a reaction to the listener of msg. It fails when nobody listens.
func (h *Host) Emit(msg pages.MessageRef, s pages.Symbol, u pages.User) error {
	h.mu.Lock()
	l, ok := h.listeners[msg.MessageID]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("memhost: no listener for message %s", msg.MessageID)
	}
	select {
	case l.events <- pages.Reaction{Symbol: s, User: u}:
		return nil
	case <-l.done:
		return fmt.Errorf("memhost: listener for message %s stopped", msg.MessageID)
	}
}

// Listening reports whether msg has an active listener.
func (h *Host) Listening(msg pages.MessageRef) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.listeners[msg.MessageID]
	return ok
}

// Message returns a copy of the recorded state of msg.
func (h *Host) Message(msg pages.MessageRef) (Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.messages[msg.MessageID]
	if !ok {
		return Message{}, false
	}
	out := *m
	out.Renders = append([]pages.Render(nil), m.Renders...)
	out.Affordances = append([]pages.Symbol(nil), m.Affordances...)
	out.Retractions = append([]Retraction(nil), m.Retractions...)
	return out, true
}

func (h *Host) liveLocked(msg pages.MessageRef) (*Message, error) {
	m, ok := h.messages[msg.MessageID]
	if !ok || m.Deleted {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, msg.MessageID)
	}
	return m, nil
}

type listener struct {
	events  chan pages.Reaction
	done    chan struct{}
	once    sync.Once
	release func()
}

func (l *listener) Events() <-chan pages.Reaction { return l.events }

func (l *listener) Stop() {
	l.once.Do(func() {
		close(l.done)
		if l.release != nil {
			l.release()
		}
	})
}
