// Package logger provides the structured slog setup shared by every pagebot
// component: an ordered key schema, kv or json lines and an async writer.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/pagebot/core/buildinfo"
	coreconfig "github.com/m3rciful/pagebot/core/config"
)

var (
	initOnce sync.Once

	stateMu sync.Mutex
	sink    *asyncWriter
	files   []io.Closer
	closed  bool

	level   slog.LevelVar
	debug   = newSampler(1, 50)
	tracing bool

	// L is the base logger; it is slog.Default until InitLogger runs.
	L *slog.Logger

	// DB logs database connection events.
	DB *slog.Logger
	// MIG logs schema migrations.
	MIG *slog.Logger
	// SEED logs catalog seeding.
	SEED *slog.Logger
	// TG logs Telegram updates.
	TG *slog.Logger
	// TWire logs Telegram command and route wiring.
	TWire *slog.Logger
	// DC logs Discord events.
	DC *slog.Logger
	// Pages logs paginated message sessions.
	Pages *slog.Logger
	// Out logs the outgoing message queue.
	Out *slog.Logger
)

func init() {
	setBase(slog.Default())
}

func setBase(base *slog.Logger) {
	L = base
	DB = Component("db")
	MIG = Component("db.migrate")
	SEED = Component("db.seed")
	TG = Component("tg")
	TWire = Component("tg.wire")
	DC = Component("dc")
	Pages = Component("pages")
	Out = Component("outbox")
}

// InitLogger installs the structured handler as the slog default. Only the
// first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := resolve(cfg)
		level.Set(s.level)
		debug.set(s.sampleNum, s.sampleDen)
		tracing = envFlag("TRACE") || envFlag("LOG_TRACE")

		outputs := []io.Writer{os.Stdout}
		if s.file != "" {
			f, openErr := openLogFile(s.file)
			if openErr != nil {
				err = fmt.Errorf("logger: open %s: %w", s.file, openErr)
				return
			}
			outputs = append(outputs, f)
			files = append(files, f)
		}

		stateMu.Lock()
		sink = newAsyncWriter(io.MultiWriter(outputs...), 64*1024)
		stateMu.Unlock()

		base := slog.New(newHandler(sink, &level, s.encoder()))
		slog.SetDefault(base)
		setBase(base)
		announce(cfg, s)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func announce(cfg *coreconfig.Config, s settings) {
	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	}
	if cfg != nil {
		attrs = append(attrs, slog.String("platform", cfg.Platform))
	}
	LogEvent(context.Background(), Component("app"), slog.LevelInfo, "startup", attrs...)
}

// Shutdown drains the async writer and closes the log file.
func Shutdown() error {
	stateMu.Lock()
	defer stateMu.Unlock()
	if closed {
		return nil
	}
	closed = true
	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes a message-less record carrying event plus attrs. A nil
// logger resolves to the one stored in ctx.
func LogEvent(ctx context.Context, log *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = FromContext(ctx)
	}
	if log == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	log.LogAttrs(ctx, lvl, "", attrs...)
}

// Component scopes L to a component name.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// ShouldSampleDebug reports whether a high-volume debug record should be kept.
func ShouldSampleDebug() bool {
	return tracing || debug.allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
