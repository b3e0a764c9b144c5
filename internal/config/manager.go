package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"notifyconf/internal/asset"
	"notifyconf/internal/notify"
	"notifyconf/internal/tags"
	"notifyconf/internal/throttle"
)

// Manager holds an ordered list of config sources and resolves their services.
// Add and Clear take the write lock; Services reads under the read lock.
type Manager struct {
	mu          sync.RWMutex
	sources     []Source
	registry    *Registry
	asset       *asset.Asset
	defaults    SourceDefaults
	searchPaths []string
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used by the manager and its sources.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.defaults.Logger = logger }
}

// WithAsset sets the default asset passed to sources.
func WithAsset(a *asset.Asset) ManagerOption {
	return func(m *Manager) { m.asset = a }
}

// WithRegistry replaces the source registry.
func WithRegistry(r *Registry) ManagerOption {
	return func(m *Manager) { m.registry = r }
}

// WithServiceRegistry replaces the service registry used by parsers.
func WithServiceRegistry(r *notify.Registry) ManagerOption {
	return func(m *Manager) { m.defaults.Services = r }
}

// WithThrottler sets the throttle hook used before source and service I/O.
func WithThrottler(t throttle.Throttler) ManagerOption {
	return func(m *Manager) { m.defaults.Throttler = t }
}

// WithSearchPaths replaces the default search path list.
func WithSearchPaths(paths ...string) ManagerOption {
	return func(m *Manager) { m.searchPaths = append([]string(nil), paths...) }
}

// WithSourceDefaults sets encoding, buffer, and timeout defaults; collaborators already set by other options are kept.
func WithSourceDefaults(d SourceDefaults) ManagerOption {
	return func(m *Manager) {
		if d.Throttler == nil {
			d.Throttler = m.defaults.Throttler
		}
		if d.Logger == nil {
			d.Logger = m.defaults.Logger
		}
		if d.Services == nil {
			d.Services = m.defaults.Services
		}
		m.defaults = d
	}
}

// NewManager builds an empty manager.
// Params: options; unset collaborators fall back to built-in defaults.
// Returns: manager ready for Add.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		searchPaths: DefaultSearchPaths(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = DefaultRegistry()
	}
	m.asset = asset.OrDefault(m.asset)
	m.defaults = m.defaults.withFallbacks()
	return m
}

type addOptions struct {
	tags  []string
	asset *asset.Asset
}

// AddOption customizes one Add call.
type AddOption func(*addOptions)

// WithTags tags every source added by the call.
func WithTags(values ...string) AddOption {
	return func(o *addOptions) { o.tags = append(o.tags, values...) }
}

// WithAddAsset overrides the manager asset for the call.
func WithAddAsset(a *asset.Asset) AddOption {
	return func(o *addOptions) { o.asset = a }
}

// Add registers config sources.
// Params: a string, []string, map[string]struct{}, Source, or []Source, plus options.
// Returns: true when every entry was added; a failed entry is logged and the batch continues.
func (m *Manager) Add(configs any, opts ...AddOption) bool {
	var options addOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.asset == nil {
		options.asset = m.asset
	}

	var urls []string
	switch value := configs.(type) {
	case Source:
		m.append(value)
		return true
	case []Source:
		m.append(value...)
		return true
	case string:
		urls = []string{value}
	case []string:
		urls = value
	case map[string]struct{}:
		urls = make([]string, 0, len(value))
		for url := range value {
			urls = append(urls, url)
		}
		sort.Strings(urls)
	default:
		m.defaults.Logger.Error("invalid config path type", "type", fmt.Sprintf("%T", configs), "error", ErrInvalidInput.Error())
		return false
	}

	ok := true
	for _, url := range urls {
		source, err := m.registry.Instantiate(url, InstantiateOptions{
			Tags:           options.tags,
			Asset:          options.asset,
			SuppressErrors: true,
			Defaults:       m.defaults,
		})
		if err != nil {
			m.defaults.Logger.Error("failed to load configuration url", "url", url)
			ok = false
			continue
		}
		m.append(source)
	}
	return ok
}

func (m *Manager) append(sources ...Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, source := range sources {
		if source != nil {
			m.sources = append(m.sources, source)
		}
	}
}

// AddDefaults adds every default search path that exists as a readable regular file.
// Returns: true when all found paths were added (also true when none exist).
func (m *Manager) AddDefaults() bool {
	found := ExistingPaths(m.searchPaths)
	if len(found) == 0 {
		return true
	}
	return m.Add(found)
}

// Services builds services from every source whose tags satisfy expr.
// Params: context and tag expression (empty matches everything).
// Returns: services in source order then line order.
func (m *Manager) Services(ctx context.Context, expr tags.Expression) []notify.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]notify.Service, 0)
	for _, source := range m.sources {
		if !tags.Matches(expr, source.Tags()) {
			continue
		}
		out = append(out, source.Services(ctx)...)
	}
	return out
}

// Clear removes every source.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = nil
}

// Len returns the number of sources.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sources)
}

// Sources returns a copy of the source list.
func (m *Manager) Sources() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Source(nil), m.sources...)
}

// DefaultSearchPaths returns the conventional config locations in lookup order.
func DefaultSearchPaths() []string {
	return []string{
		"~/.apprise",
		"~/.apprise.yml",
		"~/.config/apprise",
		"~/.config/apprise.yml",
	}
}

// ExistingPaths expands "~" and keeps readable regular files, preserving order.
func ExistingPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		expanded := ExpandHome(path)
		info, err := os.Stat(expanded)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		file, err := os.Open(expanded)
		if err != nil {
			continue
		}
		_ = file.Close()
		out = append(out, expanded)
	}
	return out
}
