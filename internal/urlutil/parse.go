package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var listSplitPattern = regexp.MustCompile(`[\s,]+`)

// Parsed is the attribute set extracted from one URL.
// It is produced by Parse and consumed immediately by a constructor.
type Parsed struct {
	URL        string
	Schema     string
	Host       string
	Port       int
	User       string
	Password   string
	FullPath   string
	Path       string
	Query      string
	QSD        map[string]string
	VerifyHost bool
}

// HasPort reports whether the URL carried an explicit port.
func (p Parsed) HasPort() bool {
	return p.Port > 0
}

// Clone returns a copy with its own query dictionary.
func (p Parsed) Clone() Parsed {
	out := p
	out.QSD = make(map[string]string, len(p.QSD))
	for key, value := range p.QSD {
		out.QSD[key] = value
	}
	return out
}

// Parse breaks a scheme://[user[:password]@]host[:port]/path[?k=v] URL apart.
// Params: raw URL and default verify-host flag (overridden by ?verify=).
// Returns: parsed attributes or error when the URL has no scheme or is malformed.
func Parse(raw string, verifyHost bool) (Parsed, error) {
	trimmed := strings.TrimSpace(raw)
	schema, ok := Schema(trimmed)
	if !ok {
		return Parsed{}, errors.New("missing schema://")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Parsed{}, fmt.Errorf("parse url: %w", err)
	}

	parsed := Parsed{
		URL:        trimmed,
		Schema:     schema,
		Host:       u.Hostname(),
		FullPath:   u.Path,
		QSD:        make(map[string]string),
		VerifyHost: verifyHost,
	}
	if portValue := u.Port(); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			return Parsed{}, fmt.Errorf("invalid port %q", portValue)
		}
		parsed.Port = port
	}
	if u.User != nil {
		parsed.User = u.User.Username()
		parsed.Password, _ = u.User.Password()
	}

	if idx := strings.LastIndex(parsed.FullPath, "/"); idx >= 0 {
		parsed.Path = parsed.FullPath[:idx+1]
		parsed.Query = parsed.FullPath[idx+1:]
	} else {
		parsed.Query = parsed.FullPath
	}

	for key, value := range parseQuery(u.RawQuery) {
		parsed.QSD[key] = value
	}
	if value, ok := parsed.QSD["verify"]; ok {
		parsed.VerifyHost = ParseBool(value, verifyHost)
	}

	return parsed, nil
}

// parseQuery decodes a raw query keeping literal '+' (it marks header keys).
// Keys are lowercased; the first occurrence of a key wins.
func parseQuery(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = strings.ToLower(Unquote(key))
		if key == "" {
			continue
		}
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = Unquote(value)
	}
	return out
}

// ParseList normalizes comma/whitespace separated values.
// Params: any number of raw strings, each possibly holding several tokens.
// Returns: sorted unique non-empty tokens.
func ParseList(values ...string) []string {
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, token := range listSplitPattern.Split(value, -1) {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			seen[token] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for token := range seen {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// ParseBool reads yes/no style flags used in query strings.
// Params: raw value and fallback for unrecognized input.
// Returns: parsed flag.
func ParseBool(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "y", "yes", "true", "on", "enable", "enabled":
		return true
	case "0", "n", "no", "false", "off", "disable", "disabled":
		return false
	default:
		return fallback
	}
}

// Quote percent-encodes each path segment, keeping slashes.
func Quote(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// Unquote reverses Quote; undecodable input is returned unchanged.
func Unquote(value string) string {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}

// EncodeQuery renders a deterministic query string from key/value pairs.
// Empty values are skipped.
func EncodeQuery(args map[string]string) string {
	values := url.Values{}
	for key, value := range args {
		if value == "" {
			continue
		}
		values.Set(key, value)
	}
	return values.Encode()
}
