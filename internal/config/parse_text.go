package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"notifyconf/internal/asset"
	"notifyconf/internal/notify"
	"notifyconf/internal/throttle"
	"notifyconf/internal/urlutil"
)

var (
	lineSplitPattern   = regexp.MustCompile(`\r*\n`)
	commentLinePattern = regexp.MustCompile(`^\s*[;#].*$`)
)

// ParseContext carries what parsers need to build services.
type ParseContext struct {
	Services  *notify.Registry
	Tags      []string
	Asset     *asset.Asset
	Throttler throttle.Throttler
	Logger    *slog.Logger
}

func (pc ParseContext) logger() *slog.Logger {
	if pc.Logger == nil {
		return slog.Default()
	}
	return pc.Logger
}

func (pc ParseContext) registry() *notify.Registry {
	if pc.Services == nil {
		return notify.DefaultRegistry()
	}
	return pc.Services
}

func (pc ParseContext) args(parsed urlutil.Parsed, extraTags []string) notify.Args {
	return notify.Args{
		Parsed:    parsed,
		Tags:      urlutil.ParseList(append(append([]string(nil), pc.Tags...), extraTags...)...),
		Asset:     pc.Asset,
		Throttler: pc.Throttler,
		Logger:    pc.Logger,
	}
}

// ParseText reads one service URL per line.
// Comment lines start with ';' or '#'. Lines with an unknown or unparseable scheme are skipped.
// Params: content and parse context.
// Returns: services in line order; a constructor failure aborts the whole parse with (nil, ErrConstruct).
func ParseText(content string, pc ParseContext) ([]notify.Service, error) {
	logger := pc.logger()
	registry := pc.registry()
	services := make([]notify.Service, 0)

	for index, line := range lineSplitPattern.Split(content, -1) {
		number := index + 1
		if commentLinePattern.MatchString(line) || strings.TrimSpace(line) == "" {
			continue
		}

		raw := strings.ReplaceAll(line, "/#", "/%23")
		schema, ok := urlutil.Schema(raw)
		if !ok {
			logger.Warn("unparseable schema:// in url", "url", line, "line", number)
			continue
		}
		descriptor, ok := registry.Resolve(schema)
		if !ok {
			logger.Warn("unsupported schema", "schema", schema, "line", number)
			continue
		}
		parsed, err := descriptor.ParseURL(raw)
		if err != nil {
			logger.Warn("unparseable url", "url", line, "line", number, "error", err.Error())
			continue
		}

		service, err := descriptor.New(pc.args(parsed, nil))
		if err != nil {
			logger.Warn("could not load url", "url", line, "line", number, "error", err.Error())
			return nil, fmt.Errorf("%w: line %d: %w", ErrConstruct, number, err)
		}
		services = append(services, service)
	}
	return services, nil
}
