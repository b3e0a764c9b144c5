package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"notifyconf/internal/notify"
	"notifyconf/internal/urlutil"
)

var yamlPathPattern = regexp.MustCompile(`(?i)^.*\.ya?ml\s*$`)

// FileSource reads configuration from a local file.
type FileSource struct {
	Base
	path string
}

func fileDescriptor() Descriptor {
	return Descriptor{
		Name:    "Local File",
		Schemas: []string{"file"},
		New:     NewFileSource,
	}
}

// NewFileSource builds a source for file://path.
// Params: args whose host and path form the filesystem path ("~" is expanded).
// Returns: source, or an error when the path is empty or does not exist.
func NewFileSource(args SourceArgs) (Source, error) {
	path := strings.TrimSpace(args.Host + args.FullPath)
	if path == "" {
		return nil, errors.New("file path is required")
	}
	path = ExpandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file %q is not accessible: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("file %q is not a regular file", path)
	}
	return &FileSource{Base: NewBase(args), path: path}, nil
}

// Path returns the expanded filesystem path.
func (s *FileSource) Path() string { return s.path }

// URL renders the source back into its configuration URL.
func (s *FileSource) URL() string {
	query := map[string]string{"encoding": s.encoding}
	if s.format != FormatUnset {
		query["format"] = string(s.format)
	}
	return "file://" + urlutil.Quote(s.path) + "?" + urlutil.EncodeQuery(query)
}

// Read returns the decoded file content.
func (s *FileSource) Read(ctx context.Context) (string, error) {
	content, _, err := s.read(ctx)
	return content, err
}

// Services parses the file with the explicit format, or YAML for *.yml/*.yaml, or text.
func (s *FileSource) Services(ctx context.Context) []notify.Service {
	return s.loadServices(ctx, s.read)
}

// EffectiveFormat returns the format Services would use.
func (s *FileSource) EffectiveFormat() Format {
	if s.format != FormatUnset {
		return s.format
	}
	return s.detectFormat()
}

func (s *FileSource) detectFormat() Format {
	if yamlPathPattern.MatchString(s.path) {
		return FormatYAML
	}
	return s.defaultFormat
}

func (s *FileSource) read(ctx context.Context) (string, Format, error) {
	if err := ctx.Err(); err != nil {
		return "", FormatUnset, err
	}
	info, err := os.Stat(s.path)
	if err != nil {
		s.logger.Error("file is not accessible", "path", s.path)
		return "", FormatUnset, fmt.Errorf("%w: %s: %w", ErrIO, s.path, err)
	}
	if !s.checkSize(info.Size()) {
		s.logger.Error("file size exceeds maximum allowable buffer length", "path", s.path, "max_kb", s.maxKB())
		return "", FormatUnset, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, s.path, info.Size())
	}

	s.throttler.Throttle()

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Debug("file can not be opened for read", "path", s.path)
		return "", FormatUnset, fmt.Errorf("%w: %s: %w", ErrIO, s.path, err)
	}
	content, err := decodeContent(data, s.encoding)
	if err != nil {
		s.logger.Error("file not using expected encoding", "encoding", s.encoding, "path", s.path)
		return "", FormatUnset, err
	}

	s.logger.Debug("read config file", "path", s.path)
	return content, s.detectFormat(), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
