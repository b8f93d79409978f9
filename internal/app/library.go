package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/pagebot/core/config"
	"github.com/m3rciful/pagebot/core/database"
	"github.com/m3rciful/pagebot/core/pages"
)

// BookStore is the part of the catalog the bot reads from.
type BookStore interface {
	Book(ctx context.Context, name string) ([]pages.Page, error)
	Books(ctx context.Context) ([]database.BookInfo, error)
}

// OpenRequest asks for a stored book to be shown in a channel.
type OpenRequest struct {
	Book    string
	Channel string
	Invoker pages.User
}

// Library turns stored books into paginated messages.
type Library struct {
	store       BookStore
	pages       coreconfig.PagesConfig
	defaultBook string
	sessions    *Sessions
}

// NewLibrary returns a Library reading from store and tracking sessions.
func NewLibrary(store BookStore, cfg coreconfig.PagesConfig, defaultBook string, sessions *Sessions) *Library {
	if defaultBook == "" {
		defaultBook = GuideBook
	}
	if sessions == nil {
		sessions = NewSessions()
	}
	return &Library{store: store, pages: cfg, defaultBook: defaultBook, sessions: sessions}
}

// Sessions returns the tracker holding every listening message.
func (l *Library) Sessions() *Sessions { return l.sessions }

// Restriction returns who may navigate a message opened by invoker.
func (l *Library) Restriction(invoker pages.User) pages.Restriction {
	if l.pages.AllowEveryone || invoker.ID == "" {
		return pages.Unrestricted()
	}
	return pages.AllowUser(invoker.ID)
}

// Open loads the requested book and posts it on host.
func (l *Library) Open(ctx context.Context, host pages.Host, req OpenRequest) (*pages.Controller, error) {
	name := strings.TrimSpace(req.Book)
	if name == "" {
		name = l.defaultBook
	}
	set, err := l.store.Book(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := pages.New(host, pages.Options{
		Pages:      set,
		Channel:    req.Channel,
		Duration:   time.Duration(l.pages.DurationMS) * time.Millisecond,
		Restricted: l.Restriction(req.Invoker),
		HideFooter: !l.pages.FooterEnabled(),
	})
	if err != nil {
		return nil, err
	}
	if err := l.sessions.Start(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Listing describes the stored books, one per line.
func (l *Library) Listing(ctx context.Context) (string, error) {
	books, err := l.store.Books(ctx)
	if err != nil {
		return "", err
	}
	if len(books) == 0 {
		return "No books stored yet.", nil
	}
	var b strings.Builder
	b.WriteString("Books:")
	for _, info := range books {
		fmt.Fprintf(&b, "\n• %s (%d %s)", info.Name, info.Pages, plural(info.Pages, "page", "pages"))
	}
	return b.String(), nil
}

// ErrorText is the reply shown to a user whose /pages request failed.
func ErrorText(book string, err error) string {
	switch {
	case errors.Is(err, database.ErrBookNotFound):
		return fmt.Sprintf("No book named %q.", strings.TrimSpace(book))
	case errors.Is(err, pages.ErrInvalidPage), errors.Is(err, pages.ErrEmptyPageSet):
		return "That book cannot be displayed."
	default:
		return "Something went wrong, please try again later."
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
