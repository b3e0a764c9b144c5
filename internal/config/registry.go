package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"notifyconf/internal/asset"
	"notifyconf/internal/registry"
	"notifyconf/internal/urlutil"
)

// Descriptor describes one config source kind.
type Descriptor struct {
	Name    string
	Schemas []string
	New     func(args SourceArgs) (Source, error)
}

// Registry maps config source schemes (file, http, https) to descriptors.
// It is separate from the service registry.
type Registry struct {
	entries *registry.Registry[Descriptor]
}

// NewRegistry returns an empty source registry.
func NewRegistry() *Registry {
	return &Registry{entries: registry.New[Descriptor]("config source")}
}

// DefaultRegistry returns a registry holding the file and web sources.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, descriptor := range []Descriptor{fileDescriptor(), httpDescriptor()} {
		if err := r.Register(descriptor); err != nil {
			panic("config: builtin registry: " + err.Error())
		}
	}
	return r
}

// Register adds a descriptor under every scheme it names.
// Returns: error on missing constructor or scheme collision (case-insensitive).
func (r *Registry) Register(descriptor Descriptor) error {
	if descriptor.New == nil {
		return errors.New("config source descriptor " + descriptor.Name + " has no constructor")
	}
	return r.entries.Register(descriptor, descriptor.Schemas...)
}

// Resolve returns the descriptor for a scheme ignoring case.
func (r *Registry) Resolve(schema string) (Descriptor, bool) {
	return r.entries.Resolve(schema)
}

// Schemas lists every registered scheme.
func (r *Registry) Schemas() []string {
	return r.entries.Schemes()
}

// InstantiateOptions controls one Instantiate call.
type InstantiateOptions struct {
	Tags           []string
	Asset          *asset.Asset
	SuppressErrors bool
	Defaults       SourceDefaults
}

// ParseSourceURL applies the generic grammar plus the format= and encoding= options.
// An unknown format= value is dropped with a warning.
// Params: raw URL and logger for warnings.
// Returns: constructor args without tags, asset, or defaults.
func ParseSourceURL(raw string, logger *slog.Logger) (SourceArgs, error) {
	parsed, err := urlutil.Parse(raw, true)
	if err != nil {
		return SourceArgs{}, err
	}
	args := SourceArgs{Parsed: parsed}
	if value, ok := parsed.QSD["format"]; ok {
		format, valid := ParseFormat(value)
		if valid {
			args.Format = format
		} else {
			logger.Warn("unsupported config format", "format", value)
		}
	}
	if value := strings.TrimSpace(parsed.QSD["encoding"]); value != "" {
		args.Encoding = value
	}
	return args, nil
}

// Instantiate builds a source from a URL or bare path.
//
// Unknown schemes and unparseable URLs are always logged. A constructor failure is
// logged and wrapped with ErrConstruct when SuppressErrors is set; otherwise the raw
// constructor error is returned without logging.
func (r *Registry) Instantiate(rawURL string, opts InstantiateOptions) (Source, error) {
	source, err := r.instantiate(rawURL, opts)
	if err == nil {
		return source, nil
	}
	var failed *constructError
	if !errors.As(err, &failed) {
		return nil, err
	}
	if !opts.SuppressErrors {
		return nil, failed.err
	}
	opts.Defaults.withFallbacks().Logger.Error("could not load config url", "url", rawURL, "error", failed.err.Error())
	return nil, fmt.Errorf("%w: %s: %w", ErrConstruct, rawURL, failed.err)
}

// constructError marks a failure raised by a source constructor.
type constructError struct {
	err error
}

func (e *constructError) Error() string { return e.err.Error() }
func (e *constructError) Unwrap() error { return e.err }

func (r *Registry) instantiate(rawURL string, opts InstantiateOptions) (Source, error) {
	defaults := opts.Defaults.withFallbacks()
	logger := defaults.Logger

	url := strings.TrimSpace(rawURL)
	if url == "" {
		logger.Error("empty config url")
		return nil, fmt.Errorf("%w: empty config url", ErrUnparseableURL)
	}
	schema, ok := urlutil.Schema(url)
	if !ok {
		path := url
		if !strings.HasPrefix(path, "~") {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		schema = "file"
		url = "file://" + urlutil.Quote(filepath.ToSlash(path))
	}

	descriptor, ok := r.Resolve(schema)
	if !ok {
		logger.Error("unsupported schema", "schema", schema)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSchema, schema)
	}
	args, err := ParseSourceURL(url, logger)
	if err != nil {
		logger.Error("unparseable url", "url", url, "error", err.Error())
		return nil, fmt.Errorf("%w: %s: %w", ErrUnparseableURL, url, err)
	}
	args.Tags = urlutil.ParseList(opts.Tags...)
	args.Asset = asset.OrDefault(opts.Asset)
	args.Defaults = defaults

	source, err := descriptor.New(args)
	if err != nil {
		return nil, &constructError{err: err}
	}
	return source, nil
}
