package notify

import (
	"errors"
	"strings"

	"notifyconf/internal/registry"
	"notifyconf/internal/urlutil"
)

// Descriptor describes one service kind: the schemes it claims and how to build it.
// Params: name, schemes, optional custom parser, and constructor.
// Returns: registry entry resolved by scheme.
type Descriptor struct {
	Name    string
	Schemas []string
	Parse   func(raw string) (urlutil.Parsed, error)
	New     func(args Args) (Service, error)
}

// ParseURL runs the descriptor parser, falling back to the generic grammar.
// Params: raw URL line.
// Returns: parsed attributes or parse error.
func (d Descriptor) ParseURL(raw string) (urlutil.Parsed, error) {
	if d.Parse != nil {
		return d.Parse(raw)
	}
	return urlutil.Parse(raw, true)
}

// Registry maps URL schemes to service descriptors.
type Registry struct {
	entries *registry.Registry[Descriptor]
}

// NewRegistry returns an empty service registry.
func NewRegistry() *Registry {
	return &Registry{entries: registry.New[Descriptor]("service")}
}

// Register adds a descriptor under every scheme it names.
// Params: descriptor with a constructor and at least one scheme.
// Returns: error on missing constructor or scheme collision (case-insensitive).
func (r *Registry) Register(descriptor Descriptor) error {
	if descriptor.New == nil {
		return errors.New("service descriptor " + strings.TrimSpace(descriptor.Name) + " has no constructor")
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

// DefaultRegistry returns a registry holding every built-in service.
// Params: none.
// Returns: populated registry; panics only if the built-in table itself collides.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, descriptor := range Builtin() {
		if err := r.Register(descriptor); err != nil {
			panic("notify: builtin registry: " + err.Error())
		}
	}
	return r
}

// Builtin returns descriptors for all bundled services.
func Builtin() []Descriptor {
	return []Descriptor{
		matrixDescriptor(),
		slackDescriptor(),
		emailDescriptor(),
		webhookDescriptor(),
		telegramDescriptor(),
		natsDescriptor(),
		redisDescriptor(),
	}
}
