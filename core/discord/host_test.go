package discord

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/m3rciful/pagebot/core/pages"
)

type removal struct {
	emoji, userID string
}

type fakeAPI struct {
	mu        sync.Mutex
	texts     []string
	embeds    []*discordgo.MessageEmbed
	edits     []*discordgo.MessageEmbed
	deleted   []string
	reactions []string
	removals  []removal
	clears    int
	users     map[string]*discordgo.User
	failEmoji string
}

func (f *fakeAPI) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, content)
	return &discordgo.Message{ID: "m-text", ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, embed)
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if emojiID == f.failEmoji {
		return errors.New("HTTP 403 Forbidden")
	}
	f.reactions = append(f.reactions, emojiID)
	return nil
}

func (f *fakeAPI) MessageReactionRemove(channelID, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals = append(f.removals, removal{emoji: emojiID, userID: userID})
	return nil
}

func (f *fakeAPI) MessageReactionsRemoveAll(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeAPI) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, errors.New("HTTP 404 Not Found")
}

func (f *fakeAPI) snapshot() (edits []*discordgo.MessageEmbed, removals []removal, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.MessageEmbed(nil), f.edits...), append([]removal(nil), f.removals...), f.clears
}

func reactionEvent(channel, message, userID, emoji string, member *discordgo.Member) *discordgo.MessageReactionAdd {
	return &discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    userID,
			MessageID: message,
			ChannelID: channel,
			Emoji:     discordgo.Emoji{Name: emoji},
		},
		Member: member,
	}
}

func member(id string, bot bool) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "u" + id, Bot: bot}}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEmbed(t *testing.T) {
	e := Embed(pages.RenderPage(pages.Page{
		Title:    "T",
		URL:      "https://e.com",
		Color:    0x00ff00,
		ImageURL: "https://e.com/i.png",
		Fields:   []pages.Field{{Name: "n", Value: "v", Inline: true}},
	}, "Page: 1/2"))
	if e.Title != "T" || e.URL != "https://e.com" || e.Color != 0x00ff00 {
		t.Fatalf("embed = %+v", e)
	}
	if e.Image == nil || e.Image.URL != "https://e.com/i.png" {
		t.Fatal("image missing")
	}
	if len(e.Fields) != 1 || !e.Fields[0].Inline {
		t.Fatalf("fields = %+v", e.Fields)
	}
	if e.Footer == nil || e.Footer.Text != "Page: 1/2" {
		t.Fatal("footer missing")
	}
	if Embed(pages.RenderPage(pages.Page{Title: "x"}, "")).Footer != nil {
		t.Fatal("empty footer should be omitted")
	}
}

func TestControllerOverDiscord(t *testing.T) {
	api := &fakeAPI{}
	host := NewHost(api)
	host.SetSelf("bot-self")

	book := []pages.Page{{Title: "one"}, {Title: "two"}, {Title: "three"}}
	ctrl, err := pages.New(host, pages.Options{Pages: book, Channel: "c1", Restricted: pages.AllowUser("u1")})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := ctrl.CreatePages(context.Background()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(api.reactions) != 6 {
		t.Fatalf("reactions = %v", api.reactions)
	}
	if api.embeds[0].Footer.Text != "Page: 1/3" {
		t.Fatalf("first footer = %q", api.embeds[0].Footer.Text)
	}

	// the bot's own affordances echo back through the gateway
	if host.deliver(reactionEvent("c1", "m1", "bot-self", string(pages.Forward), nil)) {
		t.Fatal("own reaction must not be delivered")
	}
	// another message in the same channel
	if host.deliver(reactionEvent("c1", "m2", "u1", string(pages.Forward), member("u1", false))) {
		t.Fatal("reaction on another message must not be delivered")
	}

	// Discord drops the variation selector on some clients
	host.HandleReactionAdd(nil, reactionEvent("c1", "m1", "u1", "▶", member("u1", false)))
	waitFor(t, "forward", func() bool { return ctrl.State().Index == 1 })

	host.HandleReactionAdd(nil, reactionEvent("c1", "m1", "u2", string(pages.Forward), member("u2", false)))
	waitFor(t, "two retractions", func() bool {
		_, removals, _ := api.snapshot()
		return len(removals) == 2
	})
	if ctrl.State().Index != 1 {
		t.Fatal("restricted user moved the page")
	}

	edits, removals, _ := api.snapshot()
	if edits[len(edits)-1].Footer.Text != "Page: 2/3" {
		t.Fatalf("edit footer = %q", edits[len(edits)-1].Footer.Text)
	}
	if removals[0] != (removal{emoji: string(pages.Forward), userID: "u1"}) || removals[1].userID != "u2" {
		t.Fatalf("removals = %+v", removals)
	}

	host.HandleReactionAdd(nil, reactionEvent("c1", "m1", "u1", string(pages.Stop), member("u1", false)))
	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not end the window")
	}
	if _, _, clears := api.snapshot(); clears != 1 {
		t.Fatalf("clears = %d", clears)
	}
	if host.Listening(pages.MessageRef{ChannelID: "c1", MessageID: "m1"}) {
		t.Fatal("listener still registered")
	}
}

func TestAttachFailureKeepsOthers(t *testing.T) {
	api := &fakeAPI{failEmoji: string(pages.Help)}
	ctrl, err := pages.New(NewHost(api), pages.Options{Pages: []pages.Page{{Title: "a"}}, Channel: "c1"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := ctrl.CreatePages(context.Background()); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer ctrl.Stop()
	if len(api.reactions) != 5 {
		t.Fatalf("reactions = %v", api.reactions)
	}
}

func TestReactorLookup(t *testing.T) {
	api := &fakeAPI{users: map[string]*discordgo.User{"b7": {ID: "b7", Username: "helper", Bot: true}}}
	host := NewHost(api)
	ref := pages.MessageRef{ChannelID: "dm", MessageID: "m9"}
	l, _ := host.Listen(context.Background(), ref)
	defer l.Stop()

	host.deliver(reactionEvent("dm", "m9", "b7", string(pages.Help), nil))
	ev := <-l.Events()
	if !ev.User.Bot || ev.User.Name != "helper" {
		t.Fatalf("looked up user = %+v", ev.User)
	}

	host.deliver(reactionEvent("dm", "m9", "ghost", string(pages.Help), nil))
	ev = <-l.Events()
	if ev.User.ID != "ghost" || ev.User.Bot {
		t.Fatalf("unknown user = %+v", ev.User)
	}
}

func TestSymbolOf(t *testing.T) {
	tests := []struct {
		emoji discordgo.Emoji
		want  pages.Symbol
	}{
		{discordgo.Emoji{Name: "⏮️"}, pages.SkipBack},
		{discordgo.Emoji{Name: "⏮"}, pages.SkipBack},
		{discordgo.Emoji{Name: "⏹️"}, pages.Stop},
		{discordgo.Emoji{Name: "ℹ"}, pages.Help},
		{discordgo.Emoji{Name: "👍"}, pages.Symbol("👍")},
		{discordgo.Emoji{Name: "party", ID: "123"}, pages.Symbol("party:123")},
	}
	for _, tt := range tests {
		if got := symbolOf(tt.emoji); got != tt.want {
			t.Fatalf("symbolOf(%q) = %q, want %q", tt.emoji.Name, got, tt.want)
		}
	}
}
