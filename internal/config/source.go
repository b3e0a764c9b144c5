package config

import (
	"context"
	"log/slog"
	"time"

	"notifyconf/internal/asset"
	"notifyconf/internal/notify"
	"notifyconf/internal/settings"
	"notifyconf/internal/throttle"
	"notifyconf/internal/urlutil"
)

// Source fetches raw configuration text from one location.
// Params: location and decoding options captured at construction.
// Returns: content on Read and parsed services on Services.
type Source interface {
	Read(ctx context.Context) (string, error)
	URL() string
	Tags() []string
	Format() Format
	Services(ctx context.Context) []notify.Service
}

// SourceDefaults are process-wide values applied to every constructed source.
type SourceDefaults struct {
	Encoding      string
	MaxBufferSize int64
	HTTPTimeout   time.Duration
	Throttler     throttle.Throttler
	Logger        *slog.Logger
	Services      *notify.Registry
}

// DefaultSourceDefaults returns built-in defaults with the default service registry.
func DefaultSourceDefaults() SourceDefaults {
	return SourceDefaults{
		Encoding:      settings.DefaultEncoding,
		MaxBufferSize: settings.DefaultMaxBufferBytes,
		HTTPTimeout:   10 * time.Second,
		Throttler:     throttle.Nop{},
		Logger:        slog.Default(),
		Services:      notify.DefaultRegistry(),
	}
}

func (d SourceDefaults) withFallbacks() SourceDefaults {
	if d.Encoding == "" {
		d.Encoding = settings.DefaultEncoding
	}
	if d.MaxBufferSize == 0 {
		d.MaxBufferSize = settings.DefaultMaxBufferBytes
	}
	if d.HTTPTimeout <= 0 {
		d.HTTPTimeout = 10 * time.Second
	}
	d.Throttler = throttle.OrNop(d.Throttler)
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Services == nil {
		d.Services = notify.DefaultRegistry()
	}
	return d
}

// SourceArgs is the constructor input for one source.
type SourceArgs struct {
	urlutil.Parsed
	Encoding string
	Format   Format
	Tags     []string
	Asset    *asset.Asset
	Defaults SourceDefaults
}

// Base holds fields shared by every source variant.
type Base struct {
	encoding       string
	encodingPinned bool
	format         Format
	defaultFormat  Format
	tags           []string
	asset          *asset.Asset
	maxBufferSize  int64
	throttler      throttle.Throttler
	logger         *slog.Logger
	services       *notify.Registry
}

// NewBase copies shared settings from args.
// Params: constructor args; the explicit format must already be validated.
// Returns: base with text as the default format.
func NewBase(args SourceArgs) Base {
	defaults := args.Defaults.withFallbacks()
	encoding := args.Encoding
	if encoding == "" {
		encoding = defaults.Encoding
	}
	return Base{
		encoding:       encoding,
		encodingPinned: args.Encoding != "",
		format:         args.Format,
		defaultFormat:  FormatText,
		tags:           append([]string(nil), args.Tags...),
		asset:          asset.OrDefault(args.Asset),
		maxBufferSize:  defaults.MaxBufferSize,
		throttler:      defaults.Throttler,
		logger:         defaults.Logger,
		services:       defaults.Services,
	}
}

// Tags returns the source tags.
func (b *Base) Tags() []string {
	return append([]string(nil), b.tags...)
}

// Format returns the explicitly configured format, or FormatUnset.
func (b *Base) Format() Format {
	return b.format
}

// Encoding returns the configured charset.
func (b *Base) Encoding() string {
	return b.encoding
}

// reader fetches content and reports the default format detected while reading.
type reader func(ctx context.Context) (string, Format, error)

// loadServices reads content and runs the parser for the effective format.
// Read and parse failures yield an empty result.
func (b *Base) loadServices(ctx context.Context, read reader) []notify.Service {
	content, detected, err := read(ctx)
	if err != nil {
		return []notify.Service{}
	}
	format := b.format
	if format == FormatUnset {
		format = detected
	}
	if format == FormatUnset {
		format = b.defaultFormat
	}
	parse, ok := parsers[format]
	if !ok {
		b.logger.Error("no parser for config format", "format", string(format))
		return []notify.Service{}
	}
	services, err := parse(content, b.parseContext())
	if err != nil {
		return []notify.Service{}
	}
	return services
}

func (b *Base) parseContext() ParseContext {
	return ParseContext{
		Services:  b.services,
		Tags:      b.tags,
		Asset:     b.asset,
		Throttler: b.throttler,
		Logger:    b.logger,
	}
}

// checkSize enforces the buffer limit; a negative limit disables it.
func (b *Base) checkSize(size int64) bool {
	return b.maxBufferSize <= 0 || size <= b.maxBufferSize
}

func (b *Base) maxKB() int64 {
	return b.maxBufferSize / 1024
}
