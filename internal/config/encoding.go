package config

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeContent converts raw bytes to text, failing on any invalid sequence.
// Params: raw bytes and encoding name.
// Returns: decoded text or an ErrDecode-wrapped error.
func decodeContent(data []byte, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "utf-8", "utf8":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w (utf-8)", ErrDecode)
		}
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	case "ascii", "us-ascii":
		for _, b := range data {
			if b >= utf8.RuneSelf {
				return "", fmt.Errorf("%w (ascii)", ErrDecode)
			}
		}
		return string(data), nil
	}

	enc, err := lookupEncoding(key)
	if err != nil {
		return "", err
	}
	if isUTF16(key) && len(data)%2 != 0 {
		return "", fmt.Errorf("%w (%s: odd length)", ErrDecode, key)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w (%s): %v", ErrDecode, key, err)
	}
	// x/text substitutes U+FFFD for undecodable input instead of failing.
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", fmt.Errorf("%w (%s)", ErrDecode, key)
	}
	return string(decoded), nil
}

func lookupEncoding(key string) (encoding.Encoding, error) {
	switch key {
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16le", "utf-16-le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be", "utf-16-be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	}
	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrDecode, key)
	}
	return enc, nil
}

func isUTF16(key string) bool {
	return strings.HasPrefix(key, "utf-16") || key == "utf16"
}
