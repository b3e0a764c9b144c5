package config

import (
	"strings"

	"notifyconf/internal/notify"
)

// Format selects the parser applied to source content.
type Format string

const (
	FormatUnset Format = ""
	FormatText  Format = "text"
	FormatYAML  Format = "yaml"
)

// ParseFormat normalizes a format name.
// Returns: the format and false when the name is not text or yaml.
func ParseFormat(raw string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatText:
		return FormatText, true
	case FormatYAML:
		return FormatYAML, true
	default:
		return FormatUnset, false
	}
}

// ParseFunc turns source content into services.
type ParseFunc func(content string, pc ParseContext) ([]notify.Service, error)

// parsers is the static format dispatch table.
var parsers = map[Format]ParseFunc{
	FormatText: ParseText,
	FormatYAML: ParseYAML,
}
