package pages_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/pagebot/core/pages"
	"github.com/m3rciful/pagebot/core/pages/memhost"
)

func TestFailedEditKeepsState(t *testing.T) {
	boom := errors.New("edit refused")
	tests := []struct {
		name string
		op   func(context.Context, *pages.Controller) error
	}{
		{"next", func(ctx context.Context, c *pages.Controller) error { return c.NextPage(ctx) }},
		{"previous", func(ctx context.Context, c *pages.Controller) error { return c.PreviousPage(ctx) }},
		{"goto", func(ctx context.Context, c *pages.Controller) error { return c.GoToPage(ctx, 2) }},
		{"add", func(ctx context.Context, c *pages.Controller) error { return c.AddPage(ctx, pages.Page{Title: "new"}) }},
		{"delete page", func(ctx context.Context, c *pages.Controller) error { return c.DeletePage(ctx, 1) }},
		{"help", func(ctx context.Context, c *pages.Controller) error { return c.ToggleHelp(ctx) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			host := memhost.New()
			c, msg := start(t, host, pages.Options{Pages: bookOf(3)})
			if err := c.GoToPage(ctx, 1); err != nil {
				t.Fatalf("goto: %v", err)
			}
			before := c.State()
			shown, _ := host.Message(msg)

			host.FailEdit(boom)
			if err := tt.op(ctx, c); !errors.Is(err, boom) {
				t.Fatalf("expected edit error, got %v", err)
			}
			if got := c.State(); got != before {
				t.Fatalf("state = %+v, want %+v", got, before)
			}
			after, _ := host.Message(msg)
			if len(after.Renders) != len(shown.Renders) || after.Current().Footer != "Page: 2/3" {
				t.Fatalf("message changed on failed edit: %d renders, footer %q", len(after.Renders), after.Current().Footer)
			}

			host.FailEdit(nil)
			if err := tt.op(ctx, c); err != nil {
				t.Fatalf("retry: %v", err)
			}
		})
	}
}

func TestDeleteFailureKeepsSessionActive(t *testing.T) {
	ctx := context.Background()
	host := memhost.New()
	boom := errors.New("delete refused")
	c, msg := start(t, host, pages.Options{Pages: bookOf(2)})

	host.FailDelete(boom)
	if err := c.Delete(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected delete error, got %v", err)
	}
	if got := c.State().Phase; got != pages.PhaseActive {
		t.Fatalf("phase = %s, want active", got)
	}
	if _, ok := c.Message(); !ok {
		t.Fatal("message should still be reported active")
	}
	if !host.Listening(msg) {
		t.Fatal("listener should stay open after a failed delete")
	}
	select {
	case <-c.Done():
		t.Fatal("window ended on a failed delete")
	default:
	}

	host.FailDelete(nil)
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("retry delete: %v", err)
	}
	waitDone(t, c)
	m, _ := host.Message(msg)
	if !m.Deleted || m.Clears != 0 {
		t.Fatalf("deleted=%v clears=%d, want deleted without cleanup", m.Deleted, m.Clears)
	}
}

func TestDeleteFailureThenTimeoutClearsReactions(t *testing.T) {
	host := memhost.New()
	c, msg := start(t, host, pages.Options{Pages: bookOf(2), Duration: 30 * time.Millisecond})
	host.FailDelete(errors.New("delete refused"))
	if err := c.Delete(context.Background()); err == nil {
		t.Fatal("expected delete error")
	}
	waitDone(t, c)
	m, _ := host.Message(msg)
	if m.Deleted || m.Clears != 1 || len(m.Affordances) != 0 {
		t.Fatalf("deleted=%v clears=%d affordances=%d, want reactions cleared", m.Deleted, m.Clears, len(m.Affordances))
	}
}

func TestDeleteLastPageFailureKeepsPage(t *testing.T) {
	ctx := context.Background()
	host := memhost.New()
	boom := errors.New("delete refused")
	c, msg := start(t, host, pages.Options{Pages: bookOf(1)})

	host.FailDelete(boom)
	if err := c.DeletePage(ctx, 0); !errors.Is(err, boom) {
		t.Fatalf("expected delete error, got %v", err)
	}
	st := c.State()
	if st.Count != 1 || st.Index != 0 || st.Phase != pages.PhaseActive {
		t.Fatalf("state = %+v, want the single page still active", st)
	}
	if r := current(t, host, msg); r.Page.Title != "page 0" {
		t.Fatalf("render = %q", r.Page.Title)
	}

	host.FailDelete(nil)
	if err := c.DeletePage(ctx, 0); err != nil {
		t.Fatalf("retry delete page: %v", err)
	}
	waitDone(t, c)
	if st := c.State(); st.Count != 0 || st.Phase != pages.PhaseTerminated {
		t.Fatalf("state = %+v, want empty and terminated", st)
	}
}

func TestCreatePagesListenFailure(t *testing.T) {
	tests := []struct {
		name        string
		failDelete  bool
		wantDeleted bool
		wantClears  int
	}{
		{name: "sent message is removed", wantDeleted: true},
		{name: "undeletable message is cleaned up", failDelete: true, wantClears: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := memhost.New()
			boom := errors.New("gateway closed")
			host.FailListen(boom)
			if tt.failDelete {
				host.FailDelete(errors.New("delete refused"))
			}
			c, err := pages.New(host, pages.Options{Channel: "c", Pages: bookOf(2)})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if err := c.CreatePages(context.Background()); !errors.Is(err, boom) {
				t.Fatalf("expected listen error, got %v", err)
			}
			waitDone(t, c)
			if got := c.State().Phase; got != pages.PhaseTerminated {
				t.Fatalf("phase = %s, want terminated", got)
			}
			ref, ok := c.Message()
			if ok {
				t.Fatal("message should not be reported active")
			}
			m, _ := host.Message(ref)
			if m.Deleted != tt.wantDeleted || m.Clears != tt.wantClears {
				t.Fatalf("deleted=%v clears=%d, want %v %d", m.Deleted, m.Clears, tt.wantDeleted, tt.wantClears)
			}
			if err := c.NextPage(context.Background()); !errors.Is(err, pages.ErrNotInitialized) {
				t.Fatalf("expected ErrNotInitialized, got %v", err)
			}
		})
	}
}
