package app

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/pages"
)

// Sessions tracks paginated messages that are still listening for reactions.
type Sessions struct {
	mu     sync.Mutex
	active map[string]*pages.Controller
	wg     sync.WaitGroup
}

// NewSessions returns an empty tracker.
func NewSessions() *Sessions {
	return &Sessions{active: make(map[string]*pages.Controller)}
}

// Start creates the message for c and tracks it until its listening window ends.
func (s *Sessions) Start(ctx context.Context, c *pages.Controller) error {
	if err := c.CreatePages(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.active[c.ID()] = c
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		<-c.Done()
		s.mu.Lock()
		delete(s.active, c.ID())
		s.mu.Unlock()
	}()
	return nil
}

// Len reports how many messages are listening.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Session is a snapshot of one listening message.
type Session struct {
	ID    string
	State pages.State
}

// Snapshot returns every listening message, ordered by session ID.
func (s *Sessions) Snapshot() []Session {
	s.mu.Lock()
	list := make([]*pages.Controller, 0, len(s.active))
	for _, c := range s.active {
		list = append(list, c)
	}
	s.mu.Unlock()

	out := make([]Session, 0, len(list))
	for _, c := range list {
		out = append(out, Session{ID: c.ID(), State: c.State()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StopAll ends every listening window and waits for the reaction cleanup to finish or ctx to end.
func (s *Sessions) StopAll(ctx context.Context) error {
	s.mu.Lock()
	n := len(s.active)
	for _, c := range s.active {
		c.Stop()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.LogEvent(ctx, logger.Pages, slog.LevelInfo, "pages.sessions.stop",
			slog.String("status", "ok"),
			slog.Int("sessions", n),
		)
		return nil
	case <-ctx.Done():
		logger.LogEvent(ctx, logger.Pages, slog.LevelWarn, "pages.sessions.stop",
			slog.String("status", "fail"),
			slog.Int("sessions", n),
			slog.Int("remaining", s.Len()),
		)
		return ctx.Err()
	}
}
