// Package bootstrap runs a long-lived service: validate config, run start
// hooks, wait for SIGINT/SIGTERM or context cancellation, then run stop
// hooks in reverse order within a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg, bootstrap.WithLogger(log))
//	app.OnStart("server", srv.Start)
//	app.OnStop("server", srv.Stop)
//	return app.Run(ctx)
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/authflow/config"
	"github.com/kbukum/authflow/logger"
)

// Config is satisfied by any application config embedding
// config.ServiceConfig and implementing the defaults/validate pair.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// App is a service with uniform lifecycle management.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	gracefulTimeout time.Duration
	onStart         []namedHook
	onStop          []namedHook
}

type namedHook struct {
	name string
	fn   Hook
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
}

// WithLogger sets the application logger. Without it the global logger is
// initialized from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGracefulTimeout bounds the stop phase (default 15s).
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) { o.gracefulTimeout = d }
}

// NewApp applies defaults to cfg, validates it and prepares the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := options{gracefulTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	base := cfg.GetServiceConfig()
	log := o.logger
	if log == nil {
		log = logger.Init(base.Logging, base.Name)
	}

	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          log,
		gracefulTimeout: o.gracefulTimeout,
	}, nil
}

// OnStart registers a named hook run, in order, before the app is ready.
func (a *App[C]) OnStart(name string, fn Hook) {
	a.onStart = append(a.onStart, namedHook{name, fn})
}

// OnStop registers a named hook run, in reverse order, on shutdown.
func (a *App[C]) OnStop(name string, fn Hook) {
	a.onStop = append(a.onStop, namedHook{name, fn})
}

// Run starts the app and blocks until a signal or ctx is done, then stops
// it. If a start hook fails, every stop hook still runs before Run returns.
func (a *App[C]) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))
	start := time.Now()
	for _, h := range a.onStart {
		if err := h.fn(ctx); err != nil {
			startErr := fmt.Errorf("start %s: %w", h.name, err)
			return errors.Join(startErr, a.shutdown())
		}
	}
	a.Logger.Info("Application ready", logger.DurationFields("startup", time.Since(start)))

	<-ctx.Done()
	a.Logger.Info("Shutdown signal received")
	return a.shutdown()
}

// shutdown runs every stop hook even if some fail and joins their errors.
func (a *App[C]) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	for i := len(a.onStop) - 1; i >= 0; i-- {
		h := a.onStop[i]
		if err := h.fn(ctx); err != nil {
			a.Logger.Error("Stop hook failed", logger.ErrorFields(h.name, err))
			errs = append(errs, fmt.Errorf("stop %s: %w", h.name, err))
		}
	}
	a.Logger.Info("Application shutdown complete")
	return errors.Join(errs...)
}
