package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/pagebot/core/logger"
)

// DefaultDuration is how long a paginated message listens for reactions when Options.Duration is zero.
const DefaultDuration = 60 * time.Second

const (
	skipStep       = 10
	cleanupTimeout = 10 * time.Second
)

// Phase is the lifecycle stage of a Controller.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseActive
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

// State is a snapshot of the navigation state.
type State struct {
	Index int
	Count int
	Help  bool
	Phase Phase
}

// Options configures a Controller.
type Options struct {
	Pages   []Page
	Channel string
	// Duration bounds the reaction listening window; zero means DefaultDuration.
	Duration   time.Duration
	Restricted Restriction
	// HideFooter disables the "Page: i/N" footer.
	HideFooter bool
}

// Controller renders a list of pages as one message and moves between them on reactions.
type Controller struct {
	host       Host
	id         string
	channel    string
	duration   time.Duration
	restricted Restriction
	footer     bool
	done       chan struct{}

	mu         sync.Mutex
	pages      []Page
	index      int
	help       bool
	phase      Phase
	msg        MessageRef
	deleted    bool
	cancel     context.CancelFunc
	stopReason string
}

// view is the part of the state a failed edit rolls back.
type view struct {
	pages []Page
	index int
	help  bool
}

// New validates opts and returns a controller that has not rendered anything yet.
func New(host Host, opts Options) (*Controller, error) {
	if host == nil {
		return nil, errors.New("pages: nil host")
	}
	if opts.Channel == "" {
		return nil, errors.New("pages: channel is required")
	}
	set := make([]Page, 0, len(opts.Pages))
	for _, p := range opts.Pages {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		set = append(set, p.clone())
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Controller{
		host:       host,
		id:         uuid.NewString(),
		channel:    opts.Channel,
		duration:   duration,
		restricted: opts.Restricted,
		footer:     !opts.HideFooter,
		pages:      set,
		done:       make(chan struct{}),
	}, nil
}

// ID returns the session identifier used in logs.
func (c *Controller) ID() string { return c.id }

// State returns a snapshot of the navigation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Index: c.index, Count: len(c.pages), Help: c.help, Phase: c.phase}
}

// Message returns the rendered message, if any.
func (c *Controller) Message() (MessageRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msg, c.phase == PhaseActive
}

// Done is closed once the listening window has ended and reactions were cleaned up.
// It never closes if CreatePages did not send a message.
func (c *Controller) Done() <-chan struct{} { return c.done }

// CreatePages sends the first page, attaches the navigation reactions and starts listening.
func (c *Controller) CreatePages(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case PhaseActive:
		c.mu.Unlock()
		return ErrAlreadyCreated
	case PhaseTerminated:
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if len(c.pages) == 0 {
		c.mu.Unlock()
		return ErrEmptyPageSet
	}

	start := time.Now()
	msg, err := c.host.Send(ctx, c.channel, c.currentRender())
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("pages: send first page: %w", err)
	}
	c.msg = msg
	c.phase = PhaseActive

	attached := 0
	for _, s := range symbols {
		if err := c.host.AttachAffordance(ctx, msg, s); err != nil {
			c.log(ctx, slog.LevelWarn, "pages.affordance.fail",
				slog.String("symbol", string(s)),
				slog.String("err", err.Error()),
			)
			continue
		}
		attached++
	}

	listenCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.duration)
	listener, err := c.host.Listen(listenCtx, msg)
	if err != nil {
		cancel()
		// nothing would ever clean up a message nobody listens to
		c.phase = PhaseTerminated
		if derr := c.host.Delete(ctx, msg); derr != nil {
			c.log(ctx, slog.LevelWarn, "pages.create.rollback",
				slog.String("status", "fail"),
				slog.String("err", derr.Error()),
			)
		} else {
			c.deleted = true
		}
		c.mu.Unlock()
		c.finish(ctx, msg, "listen_failed")
		return fmt.Errorf("pages: open listener: %w", err)
	}
	c.cancel = cancel
	count := len(c.pages)
	c.mu.Unlock()

	c.log(ctx, slog.LevelInfo, "pages.create",
		slog.String("status", "ok"),
		slog.Int("pages", count),
		slog.Int("affordances", attached),
		slog.String("restricted", restrictionKind(c.restricted)),
		slog.Duration("window", c.duration),
		slog.Duration("duration", logger.Took(start)),
	)

	go c.run(listenCtx, msg, listener)
	return nil
}

func (c *Controller) run(ctx context.Context, msg MessageRef, l Listener) {
	reason := ""
	defer func() {
		l.Stop()
		if reason == "" {
			reason = c.endReason(ctx)
		}
		c.finish(ctx, msg, reason)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.Events():
			if !ok {
				reason = "listener_closed"
				return
			}
			if c.handle(ctx, msg, ev) {
				reason = "stop"
				return
			}
		}
	}
}

// handle processes one reaction and reports whether the listening window should end.
func (c *Controller) handle(ctx context.Context, msg MessageRef, ev Reaction) bool {
	if err := c.host.RetractReaction(ctx, msg, ev.User.ID, ev.Symbol); err != nil {
		c.log(ctx, slog.LevelDebug, "pages.retract.fail",
			slog.String("symbol", string(ev.Symbol)),
			slog.String("reactor", ev.User.ID),
			slog.String("err", err.Error()),
		)
	}
	if !Permits(c.restricted, ev.User) {
		c.log(ctx, slog.LevelDebug, "pages.reaction.rejected",
			slog.String("symbol", string(ev.Symbol)),
			slog.String("reactor", ev.User.ID),
			slog.Bool("bot", ev.User.Bot),
		)
		return false
	}

	var err error
	switch ev.Symbol {
	case SkipForward:
		err = c.jump(ctx, skipStep)
	case Forward:
		err = c.NextPage(ctx)
	case Back:
		err = c.PreviousPage(ctx)
	case SkipBack:
		err = c.jump(ctx, -skipStep)
	case Stop:
		return true
	case Help:
		err = c.ToggleHelp(ctx)
	default:
		c.log(ctx, slog.LevelDebug, "pages.reaction.unknown",
			slog.String("symbol", string(ev.Symbol)),
		)
		return false
	}
	if err != nil {
		c.log(ctx, slog.LevelWarn, "pages.dispatch.fail",
			slog.String("symbol", string(ev.Symbol)),
			slog.String("reactor", ev.User.ID),
			slog.String("err", err.Error()),
		)
		return errors.Is(err, ErrNotInitialized)
	}
	return false
}

func (c *Controller) endReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopReason != "" {
		return c.stopReason
	}
	return "cancelled"
}

func (c *Controller) finish(ctx context.Context, msg MessageRef, reason string) {
	c.mu.Lock()
	deleted := c.deleted
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if !deleted {
		if err := c.host.ClearReactions(cleanupCtx, msg); err != nil {
			c.log(cleanupCtx, slog.LevelWarn, "pages.cleanup.fail",
				slog.String("err", err.Error()),
			)
		}
	}
	c.log(cleanupCtx, slog.LevelInfo, "pages.listener.end",
		slog.String("status", "ok"),
		slog.String("cause", reason),
		slog.Bool("deleted", deleted),
	)
	close(c.done)
}

// Stop ends the listening window early. The message stays as it is.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endWindowLocked("cancelled")
}

func (c *Controller) endWindowLocked(reason string) {
	if c.cancel == nil {
		return
	}
	if c.stopReason == "" {
		c.stopReason = reason
	}
	c.cancel()
}

// NextPage moves one page forward, wrapping past the last page to the first.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blocked, err := c.checkLocked(ctx, "next"); blocked || err != nil {
		return err
	}
	prev := c.viewLocked()
	c.index++
	if c.index >= len(c.pages) {
		c.index = 0
	}
	return c.showLocked(ctx, prev)
}

// PreviousPage moves one page back, wrapping before the first page to the last.
func (c *Controller) PreviousPage(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blocked, err := c.checkLocked(ctx, "previous"); blocked || err != nil {
		return err
	}
	prev := c.viewLocked()
	c.index--
	if c.index < 0 {
		c.index = len(c.pages) - 1
	}
	return c.showLocked(ctx, prev)
}

// GoToPage shows page n, clamped to the first and last page.
func (c *Controller) GoToPage(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blocked, err := c.checkLocked(ctx, "goto"); blocked || err != nil {
		return err
	}
	return c.goToLocked(ctx, n)
}

func (c *Controller) jump(ctx context.Context, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blocked, err := c.checkLocked(ctx, "jump"); blocked || err != nil {
		return err
	}
	return c.goToLocked(ctx, c.index+delta)
}

func (c *Controller) goToLocked(ctx context.Context, n int) error {
	prev := c.viewLocked()
	switch {
	case n > len(c.pages)-1:
		c.index = len(c.pages) - 1
	case n < 0:
		c.index = 0
	default:
		c.index = n
	}
	return c.showLocked(ctx, prev)
}

// AddPage appends p. The current page stays on screen with an updated counter.
func (c *Controller) AddPage(ctx context.Context, p Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blocked, err := c.checkLocked(ctx, "add"); blocked || err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	prev := c.viewLocked()
	c.pages = append(c.pages, p.clone())
	return c.showLocked(ctx, prev)
}

// DeletePage removes page n. Removing the last remaining page deletes the message.
func (c *Controller) DeletePage(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blocked, err := c.checkLocked(ctx, "delete_page"); blocked || err != nil {
		return err
	}
	if n < 0 || n >= len(c.pages) {
		return &PageIndexOutOfRangeError{Index: n, Count: len(c.pages)}
	}
	if len(c.pages) == 1 {
		if err := c.deleteLocked(ctx); err != nil {
			return err
		}
		c.pages, c.index = nil, 0
		return nil
	}
	prev := c.viewLocked()
	rest := make([]Page, 0, len(c.pages)-1)
	rest = append(rest, c.pages[:n]...)
	c.pages = append(rest, c.pages[n+1:]...)
	if c.index == len(c.pages) {
		c.index--
	}
	return c.showLocked(ctx, prev)
}

// ToggleHelp switches between the navigation legend and the current page.
func (c *Controller) ToggleHelp(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseActive {
		return ErrNotInitialized
	}
	prev := c.viewLocked()
	c.help = !c.help
	c.log(ctx, slog.LevelDebug, "pages.help",
		slog.Bool("help", c.help),
		slog.Int("page", c.index+1),
	)
	return c.showLocked(ctx, prev)
}

// Delete removes the message from the host and ends the session.
// When the host refuses, the session stays active and Delete can be retried.
func (c *Controller) Delete(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseActive {
		return ErrNotInitialized
	}
	return c.deleteLocked(ctx)
}

func (c *Controller) deleteLocked(ctx context.Context) error {
	if err := c.host.Delete(ctx, c.msg); err != nil {
		c.log(ctx, slog.LevelWarn, "pages.delete",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("pages: delete message: %w", err)
	}
	c.phase = PhaseTerminated
	c.deleted = true
	c.endWindowLocked("deleted")
	c.log(ctx, slog.LevelInfo, "pages.delete", slog.String("status", "ok"))
	return nil
}

// checkLocked reports whether the operation is blocked by help mode or not allowed at all.
func (c *Controller) checkLocked(ctx context.Context, op string) (bool, error) {
	if c.phase != PhaseActive {
		return true, ErrNotInitialized
	}
	if c.help {
		c.log(ctx, slog.LevelInfo, "pages.blocked",
			slog.String("status", "skip"),
			slog.String("op", op),
			slog.String("cause", "help_active"),
		)
		return true, nil
	}
	return false, nil
}

func (c *Controller) currentRender() Render {
	footer := ""
	if c.footer {
		footer = FooterText(c.index, len(c.pages))
	}
	return RenderPage(c.pages[c.index], footer)
}

func (c *Controller) viewLocked() view {
	return view{pages: c.pages, index: c.index, help: c.help}
}

// showLocked renders the current state. A failed edit restores prev so the
// state keeps matching what the message shows.
func (c *Controller) showLocked(ctx context.Context, prev view) error {
	if err := c.renderLocked(ctx); err != nil {
		c.pages, c.index, c.help = prev.pages, prev.index, prev.help
		return err
	}
	return nil
}

func (c *Controller) renderLocked(ctx context.Context) error {
	r := helpRender()
	if !c.help {
		r = c.currentRender()
	}
	if err := c.host.Edit(ctx, c.msg, r); err != nil {
		return fmt.Errorf("pages: edit message: %w", err)
	}
	c.log(ctx, slog.LevelDebug, "pages.render",
		slog.Int("page", c.index+1),
		slog.Int("pages", len(c.pages)),
		slog.Bool("help", c.help),
	)
	return nil
}

func (c *Controller) log(ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) {
	base := []slog.Attr{slog.String("session", c.id)}
	if c.msg.MessageID != "" {
		base = append(base,
			slog.String("channel", c.msg.ChannelID),
			slog.String("message", c.msg.MessageID),
		)
	}
	logger.LogEvent(ctx, logger.Pages, level, event, append(base, attrs...)...)
}
