// Package urlutil resolves and parses the scheme-prefixed URLs used for
// config sources and notification services.
package urlutil

import (
	"regexp"
	"strings"
)

var schemaPattern = regexp.MustCompile(`(?i)^\s*([a-z0-9+_-]+)://`)

// Schema extracts the leading scheme token from a raw URL.
// Params: raw URL string, optionally with leading whitespace.
// Returns: lowercase scheme and true, or "" and false when no scheme:// prefix is present.
func Schema(raw string) (string, bool) {
	match := schemaPattern.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return strings.ToLower(match[1]), true
}
