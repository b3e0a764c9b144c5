package notify

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"notifyconf/internal/asset"
	"notifyconf/internal/domain"
	"notifyconf/internal/throttle"
	"notifyconf/internal/urlutil"
)

const defaultHTTPTimeout = 10 * time.Second

// Service is one resolved, ready-to-notify target built from a URL line.
// Params: service-specific configuration captured at construction.
// Returns: delivery handle used by the dispatcher.
type Service interface {
	Name() string
	URL() string
	Tags() []string
	Send(ctx context.Context, notification domain.Notification) error
}

// Args is the attribute set a service constructor receives.
// Params: parsed URL plus injected tags, asset, throttle hook, and logger.
// Returns: constructor input for one service.
type Args struct {
	urlutil.Parsed
	Tags      []string
	Asset     *asset.Asset
	Throttler throttle.Throttler
	Logger    *slog.Logger
}

// Base holds attributes common to every service.
// Params: values copied from constructor args.
// Returns: embeddable helper with shared accessors.
type Base struct {
	schema     string
	secure     bool
	host       string
	port       int
	user       string
	password   string
	verifyHost bool
	tags       []string
	asset      *asset.Asset
	throttler  throttle.Throttler
	logger     *slog.Logger
}

// NewBase copies shared attributes from args.
// Params: constructor args and the scheme that marks a secure variant ("" when none).
// Returns: initialized base with defaults for nil collaborators.
func NewBase(args Args, secureSchema string) Base {
	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Base{
		schema:     args.Schema,
		secure:     secureSchema != "" && args.Schema == secureSchema,
		host:       args.Host,
		port:       args.Port,
		user:       args.User,
		password:   args.Password,
		verifyHost: args.VerifyHost,
		tags:       append([]string(nil), args.Tags...),
		asset:      asset.OrDefault(args.Asset),
		throttler:  throttle.OrNop(args.Throttler),
		logger:     logger,
	}
}

// Tags returns the tags attached at construction.
func (b *Base) Tags() []string {
	return append([]string(nil), b.tags...)
}

// Asset returns the branding context.
func (b *Base) Asset() *asset.Asset {
	return b.asset
}

// Secure reports whether the secure scheme variant was used.
func (b *Base) Secure() bool {
	return b.secure
}

// Logger returns the service logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// throttle is called immediately before any remote I/O.
func (b *Base) throttle() {
	b.throttler.Throttle()
}

// hostPort renders host with the port when one was given.
func (b *Base) hostPort() string {
	if b.port > 0 {
		return b.host + ":" + strconv.Itoa(b.port)
	}
	return b.host
}

// verifyArg renders the verify flag for URL round trips.
func (b *Base) verifyArg() string {
	if b.verifyHost {
		return "yes"
	}
	return "no"
}

// httpClient builds a client honoring the verify-host flag.
func (b *Base) httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &http.Client{Timeout: timeout}
	if !b.verifyHost {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in via verify=no
		}
	}
	return client
}
