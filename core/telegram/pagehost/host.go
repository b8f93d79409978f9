// Package pagehost lets paginated messages run on Telegram.
//
// Telegram has no message reactions a bot can read back reliably, so each
// navigation symbol becomes an inline keyboard button. Pressing a button is a
// reaction; answering its callback query is the retraction.
package pagehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/outbox"
	"github.com/m3rciful/pagebot/core/pages"
	"github.com/m3rciful/pagebot/core/telegram/callbacks"
	"github.com/m3rciful/pagebot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// CallbackUnique is the callback key navigation buttons are registered under.
const CallbackUnique = "pg"

const eventBuffer = 16

var codes = map[pages.Symbol]string{
	pages.SkipBack:    "b10",
	pages.Back:        "b1",
	pages.Forward:     "f1",
	pages.SkipForward: "f10",
	pages.Stop:        "stop",
	pages.Help:        "help",
}

// Code returns the callback payload carried by the button for s.
func Code(s pages.Symbol) string { return codes[s] }

func symbolFor(code string) (pages.Symbol, bool) {
	for s, c := range codes {
		if c == code {
			return s, true
		}
	}
	return "", false
}

// API is the part of *tele.Bot the host needs.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Host implements pages.Host on top of the Telegram Bot API.
type Host struct {
	api API
	out *outbox.Outbox

	mu        sync.Mutex
	buttons   map[string][]pages.Symbol
	listeners map[string]*listener
	pending   map[string]*tele.Callback
}

var _ pages.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithOutbox retries message calls through out, e.g. after a flood wait.
func WithOutbox(out *outbox.Outbox) Option {
	return func(h *Host) { h.out = out }
}

// New returns a Host that talks to Telegram through api.
func New(api API, opts ...Option) *Host {
	h := &Host{
		api:       api,
		buttons:   make(map[string][]pages.Symbol),
		listeners: make(map[string]*listener),
		pending:   make(map[string]*tele.Callback),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) call(ctx context.Context, action string, fn func() error) error {
	if h.out == nil {
		return fn()
	}
	return h.out.Do(ctx, action, func(context.Context) error { return fn() })
}

func messageKey(ref pages.MessageRef) string {
	return ref.ChannelID + ":" + ref.MessageID
}

func pendingKey(msgKey, userID string, s pages.Symbol) string {
	return msgKey + "|" + userID + "|" + string(s)
}

func stored(ref pages.MessageRef) (tele.StoredMessage, error) {
	chatID, err := strconv.ParseInt(ref.ChannelID, 10, 64)
	if err != nil {
		return tele.StoredMessage{}, fmt.Errorf("pagehost: bad chat id %q: %w", ref.ChannelID, err)
	}
	return tele.StoredMessage{ChatID: chatID, MessageID: ref.MessageID}, nil
}

func markupFor(syms []pages.Symbol) *tele.ReplyMarkup {
	if len(syms) == 0 {
		return nil
	}
	row := make([]keyboard.Button, 0, len(syms))
	for _, s := range syms {
		row = append(row, keyboard.Button{Text: string(s), Unique: CallbackUnique, Data: codes[s]})
	}
	return keyboard.Inline(row)
}

// Send posts r to the chat whose numeric ID is channel.
func (h *Host) Send(ctx context.Context, channel string, r pages.Render) (pages.MessageRef, error) {
	chatID, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return pages.MessageRef{}, fmt.Errorf("pagehost: bad chat id %q: %w", channel, err)
	}
	var m *tele.Message
	err = h.call(ctx, "sendMessage", func() (err error) {
		m, err = h.api.Send(tele.ChatID(chatID), Text(r), &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
		return err
	})
	if err != nil {
		return pages.MessageRef{}, err
	}
	if m == nil {
		return pages.MessageRef{}, errors.New("pagehost: empty send result")
	}
	return pages.MessageRef{ChannelID: channel, MessageID: strconv.Itoa(m.ID)}, nil
}

// Edit replaces the text of msg and keeps its navigation buttons.
func (h *Host) Edit(ctx context.Context, msg pages.MessageRef, r pages.Render) error {
	sm, err := stored(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	markup := markupFor(h.buttons[messageKey(msg)])
	h.mu.Unlock()

	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: markup}
	return h.call(ctx, "editMessageText", func() error {
		if _, err := h.api.Edit(sm, Text(r), opts); err != nil && !notModified(err) {
			return err
		}
		return nil
	})
}

// Telegram refuses edits that change nothing, e.g. wrapping around a single page.
func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// Delete removes msg from the chat.
func (h *Host) Delete(ctx context.Context, msg pages.MessageRef) error {
	sm, err := stored(msg)
	if err != nil {
		return err
	}
	if err := h.call(ctx, "deleteMessage", func() error { return h.api.Delete(sm) }); err != nil {
		return err
	}
	h.forget(msg)
	return nil
}

// AttachAffordance appends a button for s to the message keyboard.
func (h *Host) AttachAffordance(ctx context.Context, msg pages.MessageRef, s pages.Symbol) error {
	if _, ok := codes[s]; !ok {
		return fmt.Errorf("pagehost: no button for symbol %q", s)
	}
	sm, err := stored(msg)
	if err != nil {
		return err
	}
	key := messageKey(msg)

	h.mu.Lock()
	next := append(append([]pages.Symbol(nil), h.buttons[key]...), s)
	h.mu.Unlock()

	err = h.call(ctx, "editMessageReplyMarkup", func() error {
		_, err := h.api.EditReplyMarkup(sm, markupFor(next))
		return err
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.buttons[key] = append(h.buttons[key], s)
	h.mu.Unlock()
	return nil
}

// Listen starts collecting button presses on msg until ctx is done or the listener is stopped.
func (h *Host) Listen(ctx context.Context, msg pages.MessageRef) (pages.Listener, error) {
	key := messageKey(msg)
	l := &listener{
		host:   h,
		key:    key,
		events: make(chan pages.Reaction, eventBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	old := h.listeners[key]
	h.listeners[key] = l
	h.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	go func() {
		select {
		case <-ctx.Done():
			l.Stop()
		case <-l.done:
		}
	}()
	return l, nil
}

// RetractReaction answers the callback query the press arrived with.
func (h *Host) RetractReaction(ctx context.Context, msg pages.MessageRef, userID string, s pages.Symbol) error {
	k := pendingKey(messageKey(msg), userID, s)
	h.mu.Lock()
	cb := h.pending[k]
	delete(h.pending, k)
	h.mu.Unlock()
	if cb == nil {
		return nil
	}
	return h.api.Respond(cb)
}

// ClearReactions removes the navigation keyboard from msg.
func (h *Host) ClearReactions(ctx context.Context, msg pages.MessageRef) error {
	sm, err := stored(msg)
	if err != nil {
		return err
	}
	err = h.call(ctx, "editMessageReplyMarkup", func() error {
		if _, err := h.api.EditReplyMarkup(sm, nil); err != nil && !notModified(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.forget(msg)
	return nil
}

// forget drops the keyboard and answers presses nobody will retract.
func (h *Host) forget(msg pages.MessageRef) {
	key := messageKey(msg)
	prefix := key + "|"
	var stale []*tele.Callback

	h.mu.Lock()
	delete(h.buttons, key)
	for k, cb := range h.pending {
		if strings.HasPrefix(k, prefix) {
			stale = append(stale, cb)
			delete(h.pending, k)
		}
	}
	h.mu.Unlock()

	for _, cb := range stale {
		_ = h.api.Respond(cb)
	}
}

// HandleCallback is the tele.HandlerFunc for CallbackUnique.
func (h *Host) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	if notice, ok := h.deliver(cb); !ok {
		return c.Respond(&tele.CallbackResponse{Text: notice})
	}
	return nil
}

// deliver turns a button press into a reaction for the listening controller.
// When it returns false the press was not delivered and notice explains why.
func (h *Host) deliver(cb *tele.Callback) (notice string, ok bool) {
	if cb.Message == nil || cb.Message.Chat == nil || cb.Sender == nil {
		return "This message is no longer available.", false
	}
	payload := callbacks.Parse(cb).Payload
	s, known := symbolFor(payload)
	if !known {
		return "Unsupported action", false
	}

	ref := pages.MessageRef{
		ChannelID: strconv.FormatInt(cb.Message.Chat.ID, 10),
		MessageID: strconv.Itoa(cb.Message.ID),
	}
	key := messageKey(ref)
	user := pages.User{
		ID:   strconv.FormatInt(cb.Sender.ID, 10),
		Name: cb.Sender.Username,
		Bot:  cb.Sender.IsBot,
	}

	h.mu.Lock()
	l := h.listeners[key]
	if l == nil {
		h.mu.Unlock()
		return "This navigation has ended.", false
	}
	pk := pendingKey(key, user.ID, s)
	prev := h.pending[pk]
	h.pending[pk] = cb
	h.mu.Unlock()

	if prev != nil {
		_ = h.api.Respond(prev)
	}

	select {
	case l.events <- pages.Reaction{Symbol: s, User: user}:
		return "", true
	case <-l.done:
		notice = "This navigation has ended."
	default:
		logger.LogEvent(context.Background(), logger.TG, slog.LevelWarn, "pagehost.event.drop",
			slog.String("channel", ref.ChannelID),
			slog.String("message", ref.MessageID),
			slog.String("symbol", string(s)),
		)
		notice = "Please wait a moment."
	}

	h.mu.Lock()
	if h.pending[pk] == cb {
		delete(h.pending, pk)
	}
	h.mu.Unlock()
	return notice, false
}

func (h *Host) release(key string, l *listener) {
	h.mu.Lock()
	if h.listeners[key] == l {
		delete(h.listeners, key)
	}
	h.mu.Unlock()
}

// Listening reports whether a listener is registered for msg.
func (h *Host) Listening(msg pages.MessageRef) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listeners[messageKey(msg)] != nil
}

type listener struct {
	host   *Host
	key    string
	events chan pages.Reaction
	done   chan struct{}
	once   sync.Once
}

func (l *listener) Events() <-chan pages.Reaction { return l.events }

func (l *listener) Stop() {
	l.once.Do(func() {
		close(l.done)
		l.host.release(l.key, l)
	})
}
