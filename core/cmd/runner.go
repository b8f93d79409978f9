package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/pagebot/core/config"
	"github.com/m3rciful/pagebot/core/logger"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// Lifecycle carries the hooks an App calls around its platform runtime.
type Lifecycle struct {
	// Ready is called once the bot accepts updates.
	Ready func(ctx context.Context)
	// Stopping is called when shutdown begins.
	Stopping func(ctx context.Context)
}

// App is a bootstrapped bot that runs until ctx is done.
type App interface {
	Run(ctx context.Context, lc Lifecycle) error
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (App, error)

	ShutdownLogger func() error
	// Context replaces the signal-bound root context; used by tests.
	Context context.Context
}

// Run loads configuration, bootstraps the app, and runs it until SIGINT or SIGTERM.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: loaded config is missing core configuration")
	}

	root := opts.Context
	if root == nil {
		root = context.Background()
	}
	ctx, cancel := signal.NotifyContext(root, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	// bootstrap starts the logger, so it is flushed even when bootstrap fails
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	platform := cfg.CoreConfig().Platform
	lc := Lifecycle{
		Ready: func(ctx context.Context) {
			logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "ready",
				slog.String("platform", platform),
				slog.Duration("startup_duration", logger.Took(startedAt)),
			)
		},
		Stopping: func(ctx context.Context) {
			logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "shutdown",
				slog.String("platform", platform),
				slog.String("cause", causeOf(ctx)),
			)
		},
	}

	runErr := application.Run(ctx, lc)
	if runErr != nil {
		logger.LogEvent(ctx, logger.Component("app"), slog.LevelError, "stopped",
			slog.String("status", "fail"),
			slog.String("err", runErr.Error()),
		)
	}
	return runErr
}

// causeOf reports why the root context ended: "signal" once it is done.
func causeOf(ctx context.Context) string {
	if ctx.Err() != nil {
		return "signal"
	}
	return "app"
}
