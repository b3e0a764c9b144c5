package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"notifyconf/internal/config"
	"notifyconf/internal/domain"
	"notifyconf/internal/notify"
	"notifyconf/internal/settings"
	"notifyconf/internal/tags"
	"notifyconf/internal/throttle"
	"notifyconf/internal/watch"
)

// ErrNoServices is returned by Notify when the tag filter selects nothing.
var ErrNoServices = errors.New("no services matched")

// App composes config loading, service resolution, and delivery.
// Params: settings snapshot and shared logger.
// Returns: runtime facade used by the CLI.
type App struct {
	cfg        settings.Config
	logger     *slog.Logger
	registry   *config.Registry
	defaults   config.SourceDefaults
	manager    *config.Manager
	dispatcher *notify.Dispatcher
}

// New wires registries, throttle, manager, and dispatcher from settings.
// Params: validated settings and logger (nil falls back to slog.Default).
// Returns: app with sources loaded; failed sources are logged, not fatal.
func New(cfg settings.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	settings.ApplyDefaults(&cfg)
	if err := settings.Validate(cfg); err != nil {
		return nil, err
	}

	limiter := throttle.NewLimiter(time.Duration(cfg.Throttle.IntervalMS)*time.Millisecond, cfg.Throttle.Burst)
	defaults := config.SourceDefaults{
		Encoding:      cfg.Sources.Encoding,
		MaxBufferSize: cfg.Sources.MaxBufferBytes,
		HTTPTimeout:   time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
		Throttler:     limiter,
		Logger:        logger,
		Services:      notify.DefaultRegistry(),
	}
	registry := config.DefaultRegistry()

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		defaults: defaults,
		manager: config.NewManager(
			config.WithRegistry(registry),
			config.WithSourceDefaults(defaults),
		),
		dispatcher: notify.NewDispatcher(cfg.Notify.Retry, logger),
	}
	a.loadSources()
	return a, nil
}

func (a *App) loadSources() {
	if len(a.cfg.Sources.Paths) > 0 {
		if !a.manager.Add(a.cfg.Sources.Paths, config.WithTags(a.cfg.Sources.Tag...)) {
			a.logger.Warn("some config sources failed to load", "paths", len(a.cfg.Sources.Paths))
		}
	}
	if a.cfg.Sources.UseSearchDefaults() {
		if !a.manager.AddDefaults() {
			a.logger.Warn("some default config sources failed to load")
		}
	}
	a.logger.Debug("config sources loaded", "count", a.manager.Len())
}

// Manager exposes the underlying source manager.
func (a *App) Manager() *config.Manager {
	return a.manager
}

// Services resolves every service and keeps those whose tags match expr.
// Services carry their source tags plus per-entry YAML tags, so the filter runs
// per service. Text sources add no tags of their own and are skipped unread when
// their source tags cannot match.
func (a *App) Services(ctx context.Context, expr tags.Expression) []notify.Service {
	if expr.Empty() {
		return a.manager.Services(ctx, nil)
	}
	selected := make([]notify.Service, 0)
	for _, source := range a.manager.Sources() {
		if isTextSource(source) && !tags.Matches(expr, source.Tags()) {
			continue
		}
		for _, service := range source.Services(ctx) {
			if tags.Matches(expr, service.Tags()) {
				selected = append(selected, service)
				continue
			}
			a.Release([]notify.Service{service})
		}
	}
	return selected
}

// isTextSource reports whether the source format is known to be text before reading.
func isTextSource(source config.Source) bool {
	if detected, ok := source.(interface{ EffectiveFormat() config.Format }); ok {
		return detected.EffectiveFormat() == config.FormatText
	}
	return source.Format() == config.FormatText
}

// Notify delivers n to the services selected by expr.
// Params: context, tag expression, and notification.
// Returns: dispatch result, or error when n is invalid or nothing matched.
func (a *App) Notify(ctx context.Context, expr tags.Expression, n domain.Notification) (notify.Result, error) {
	if n.Type == "" {
		n.Type = domain.NotifyTypeInfo
	}
	if err := n.Validate(); err != nil {
		return notify.Result{}, fmt.Errorf("invalid notification: %w", err)
	}
	services := a.Services(ctx, expr)
	defer a.Release(services)
	if len(services) == 0 {
		return notify.Result{}, fmt.Errorf("%w: %s", ErrNoServices, expr.String())
	}
	return a.dispatcher.Notify(ctx, services, n), nil
}

// Validate instantiates url strictly, returning the raw constructor error.
func (a *App) Validate(url string) (config.Source, error) {
	return a.registry.Instantiate(url, config.InstantiateOptions{
		Tags:     a.cfg.Sources.Tag,
		Defaults: a.defaults,
	})
}

// Watch blocks until ctx is done, calling onChange after local config files change.
// Params: context and change callback.
// Returns: error when no file sources are loaded.
func (a *App) Watch(ctx context.Context, onChange func(ctx context.Context)) error {
	paths := a.FilePaths()
	if len(paths) == 0 {
		return errors.New("no file config sources to watch")
	}
	watcher, err := watch.New(paths, time.Duration(a.cfg.Watch.DebounceMS)*time.Millisecond, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("watching config files", "files", len(paths))
	return watcher.Run(ctx, onChange)
}

// FilePaths lists the paths of loaded file sources in source order.
func (a *App) FilePaths() []string {
	var paths []string
	for _, source := range a.manager.Sources() {
		if file, ok := source.(*config.FileSource); ok {
			paths = append(paths, file.Path())
		}
	}
	return paths
}

// Release closes clients held by services such as redis.
func (a *App) Release(services []notify.Service) {
	for _, service := range services {
		closer, ok := service.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			a.logger.Debug("service close failed", "service", service.Name(), "error", err.Error())
		}
	}
}
