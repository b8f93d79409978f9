package discord

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/outbox"
	"github.com/m3rciful/pagebot/core/pages"
)

const eventBuffer = 16

// API is the part of *discordgo.Session the bot needs.
type API interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// Host implements pages.Host with Discord embeds and message reactions.
type Host struct {
	api API
	out *outbox.Outbox

	mu        sync.Mutex
	selfID    string
	listeners map[string]*listener
}

var _ pages.Host = (*Host)(nil)

// HostOption configures a Host.
type HostOption func(*Host)

// WithOutbox retries REST calls through out.
func WithOutbox(out *outbox.Outbox) HostOption {
	return func(h *Host) { h.out = out }
}

// NewHost returns a Host using api for every Discord call.
func NewHost(api API, opts ...HostOption) *Host {
	h := &Host{api: api, listeners: make(map[string]*listener)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) call(ctx context.Context, action string, fn outbox.Call) error {
	if h.out == nil {
		return fn(ctx)
	}
	return h.out.Do(ctx, action, fn)
}

// SetSelf records the bot's own user ID; reactions it places itself are never delivered.
func (h *Host) SetSelf(id string) {
	h.mu.Lock()
	h.selfID = id
	h.mu.Unlock()
}

func messageKey(ref pages.MessageRef) string {
	return ref.ChannelID + ":" + ref.MessageID
}

// Embed converts a render into a Discord embed.
func Embed(r pages.Render) *discordgo.MessageEmbed {
	p := r.Page
	e := &discordgo.MessageEmbed{
		Title:       p.Title,
		Description: p.Description,
		URL:         p.URL,
		Color:       p.Color,
	}
	if p.ImageURL != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: p.ImageURL}
	}
	for _, f := range p.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if r.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: r.Footer}
	}
	return e
}

// Send implements pages.Host.
func (h *Host) Send(ctx context.Context, channel string, r pages.Render) (pages.MessageRef, error) {
	var m *discordgo.Message
	err := h.call(ctx, "channelMessageSendEmbed", func(ctx context.Context) (err error) {
		m, err = h.api.ChannelMessageSendEmbed(channel, Embed(r), discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return pages.MessageRef{}, err
	}
	return pages.MessageRef{ChannelID: channel, MessageID: m.ID}, nil
}

// Edit implements pages.Host.
func (h *Host) Edit(ctx context.Context, msg pages.MessageRef, r pages.Render) error {
	return h.call(ctx, "channelMessageEditEmbed", func(ctx context.Context) error {
		_, err := h.api.ChannelMessageEditEmbed(msg.ChannelID, msg.MessageID, Embed(r), discordgo.WithContext(ctx))
		return err
	})
}

// Delete implements pages.Host.
func (h *Host) Delete(ctx context.Context, msg pages.MessageRef) error {
	return h.call(ctx, "channelMessageDelete", func(ctx context.Context) error {
		return h.api.ChannelMessageDelete(msg.ChannelID, msg.MessageID, discordgo.WithContext(ctx))
	})
}

// AttachAffordance adds s as a reaction of the bot itself.
func (h *Host) AttachAffordance(ctx context.Context, msg pages.MessageRef, s pages.Symbol) error {
	return h.call(ctx, "messageReactionAdd", func(ctx context.Context) error {
		return h.api.MessageReactionAdd(msg.ChannelID, msg.MessageID, string(s), discordgo.WithContext(ctx))
	})
}

// RetractReaction removes the reaction userID placed with s.
func (h *Host) RetractReaction(ctx context.Context, msg pages.MessageRef, userID string, s pages.Symbol) error {
	return h.call(ctx, "messageReactionRemove", func(ctx context.Context) error {
		return h.api.MessageReactionRemove(msg.ChannelID, msg.MessageID, string(s), userID, discordgo.WithContext(ctx))
	})
}

// ClearReactions removes every reaction from msg.
func (h *Host) ClearReactions(ctx context.Context, msg pages.MessageRef) error {
	return h.call(ctx, "messageReactionsRemoveAll", func(ctx context.Context) error {
		return h.api.MessageReactionsRemoveAll(msg.ChannelID, msg.MessageID, discordgo.WithContext(ctx))
	})
}

// Listen implements pages.Host. Reactions reach the listener through HandleReactionAdd.
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

// HandleReactionAdd is registered with Session.AddHandler.
func (h *Host) HandleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r == nil || r.MessageReaction == nil {
		return
	}
	h.deliver(r)
}

func (h *Host) deliver(r *discordgo.MessageReactionAdd) bool {
	key := messageKey(pages.MessageRef{ChannelID: r.ChannelID, MessageID: r.MessageID})
	h.mu.Lock()
	l := h.listeners[key]
	self := h.selfID
	h.mu.Unlock()
	// the bot's own reactions are the affordances themselves
	if l == nil || (self != "" && r.UserID == self) {
		return false
	}

	ev := pages.Reaction{
		Symbol: symbolOf(r.Emoji),
		User:   h.reactor(r),
	}
	select {
	case l.events <- ev:
		return true
	case <-l.done:
	default:
		logger.LogEvent(context.Background(), logger.DC, slog.LevelWarn, "pagehost.event.drop",
			slog.String("channel", r.ChannelID),
			slog.String("message", r.MessageID),
			slog.String("symbol", string(ev.Symbol)),
		)
	}
	return false
}

// reactor resolves who reacted. Gateway events from guilds carry the member;
// direct messages only carry the ID, so the user is looked up.
func (h *Host) reactor(r *discordgo.MessageReactionAdd) pages.User {
	u := pages.User{ID: r.UserID}
	if r.Member != nil && r.Member.User != nil {
		u.Name = r.Member.User.Username
		u.Bot = r.Member.User.Bot
		return u
	}
	du, err := h.api.User(r.UserID)
	if err != nil {
		logger.LogEvent(context.Background(), logger.DC, slog.LevelWarn, "pagehost.user.lookup_fail",
			slog.String("reactor", r.UserID),
			slog.String("err", err.Error()),
		)
		return u
	}
	u.Name = du.Username
	u.Bot = du.Bot
	return u
}

// Discord may report an emoji with or without the U+FE0F variation selector.
func symbolOf(e discordgo.Emoji) pages.Symbol {
	if e.ID != "" {
		return pages.Symbol(e.APIName())
	}
	name := strings.TrimSuffix(e.Name, "\ufe0f")
	for _, s := range pages.Symbols() {
		if strings.TrimSuffix(string(s), "\ufe0f") == name {
			return s
		}
	}
	return pages.Symbol(e.Name)
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
