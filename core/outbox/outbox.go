// Package outbox runs outgoing chat API calls with bounded retries, either
// inline or on a small worker pool.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/netutil"
)

var (
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("outbox: closed")
	// ErrFull is returned by Enqueue when the queue has no room.
	ErrFull = errors.New("outbox: queue full")
)

// Verdict is a Classifier's decision about a failed call.
type Verdict struct {
	Retry bool
	// Wait overrides the linear backoff, e.g. with a server supplied retry-after.
	Wait time.Duration
	// Kind labels the failure in logs.
	Kind string
}

// Classifier inspects a failed call.
type Classifier func(error) Verdict

// Transient retries network failures and nothing else.
func Transient(err error) Verdict {
	return Verdict{Retry: netutil.Transient(err), Kind: netutil.Kind(err)}
}

// Options controls an Outbox. Zero values select the defaults.
type Options struct {
	QueueSize  int
	Workers    int
	MaxRetries int
	Backoff    time.Duration
	// MaxWait caps a single server supplied wait.
	MaxWait time.Duration
	// MaxDuration bounds all attempts of one call.
	MaxDuration time.Duration
	Classify    Classifier
	Log         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 10 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 15 * time.Second
	}
	if o.Classify == nil {
		o.Classify = Transient
	}
	if o.Log == nil {
		o.Log = logger.Out
	}
	return o
}

// Call is one outgoing API request. It must be safe to repeat.
type Call func(ctx context.Context) error

type job struct {
	ctx    context.Context
	action string
	call   Call
}

// Outbox executes calls with retries. Do runs inline; Enqueue hands the call
// to a worker and returns at once.
type Outbox struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	failures atomic.Uint64
}

// New starts the worker pool.
func New(opts Options) *Outbox {
	opts = opts.withDefaults()
	o := &Outbox{opts: opts, jobs: make(chan job, opts.QueueSize)}
	o.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer o.wg.Done()
			for j := range o.jobs {
				_ = o.Do(j.ctx, j.action, j.call)
			}
		}()
	}
	return o
}

// Enqueue schedules call. Values in ctx are kept but its cancellation is
// not, so a finished handler does not abort its own reply.
func (o *Outbox) Enqueue(ctx context.Context, action string, call Call) error {
	if call == nil {
		return errors.New("outbox: nil call")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}
	select {
	case o.jobs <- job{ctx: context.WithoutCancel(ctx), action: action, call: call}:
		return nil
	default:
		return ErrFull
	}
}

// Do runs call until it succeeds, the classifier gives up or the attempt
// budget is spent. It returns the last error.
func (o *Outbox) Do(ctx context.Context, action string, call Call) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := o.opts.MaxRetries + 1
	var (
		err     error
		verdict Verdict
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = call(ctx); err == nil {
			if attempt > 1 {
				logger.LogEvent(ctx, o.opts.Log, slog.LevelInfo, "send.retry.success",
					slog.String("op", action),
					slog.Int("attempts", attempt),
					slog.Duration("duration", time.Since(start)),
				)
			}
			return nil
		}
		verdict = o.opts.Classify(err)
		if !verdict.Retry || attempt == attempts {
			break
		}
		wait := netutil.Backoff(o.opts.Backoff, attempt)
		if verdict.Wait > 0 {
			wait = min(verdict.Wait, o.opts.MaxWait)
		}
		logger.LogEvent(ctx, o.opts.Log, slog.LevelDebug, "send.retry.backoff",
			slog.String("op", action),
			slog.Int("attempts", attempt),
			slog.String("err_code", verdict.Kind),
			slog.Duration("backoff", wait),
		)
		if sleepErr := netutil.Sleep(ctx, wait); sleepErr != nil {
			err = errors.Join(err, sleepErr)
			break
		}
	}

	o.failures.Add(1)
	logger.LogEvent(ctx, o.opts.Log, slog.LevelError, "send.fail",
		slog.String("status", "fail"),
		slog.String("op", action),
		slog.String("err", netutil.Redact(err.Error())),
		slog.String("err_code", verdict.Kind),
		slog.Bool("retryable", verdict.Retry),
		slog.Duration("duration", time.Since(start)),
	)
	return err
}

// Failures counts calls that ended in an error.
func (o *Outbox) Failures() uint64 { return o.failures.Load() }

// Close rejects new calls and waits for queued ones to finish.
func (o *Outbox) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.jobs)
	}
	o.mu.Unlock()
	o.wg.Wait()
}
