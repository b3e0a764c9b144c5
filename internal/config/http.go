package config

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"notifyconf/internal/notify"
	"notifyconf/internal/urlutil"
)

// HTTPSource fetches configuration with an HTTP GET.
type HTTPSource struct {
	Base
	schema     string
	host       string
	port       int
	user       string
	password   string
	fullPath   string
	query      map[string]string
	verifyHost bool
	client     *http.Client
}

func httpDescriptor() Descriptor {
	return Descriptor{
		Name:    "Web",
		Schemas: []string{"http", "https"},
		New:     NewHTTPSource,
	}
}

// NewHTTPSource builds a source for http(s)://[user:pass@]host[:port]/path.
// Params: args with host required; verify=no disables TLS verification.
// Returns: source or validation error.
func NewHTTPSource(args SourceArgs) (Source, error) {
	if strings.TrimSpace(args.Host) == "" {
		return nil, errors.New("http host is required")
	}
	query := make(map[string]string)
	for key, value := range args.QSD {
		switch key {
		case "format", "encoding", "verify":
		default:
			query[key] = value
		}
	}

	source := &HTTPSource{
		Base:       NewBase(args),
		schema:     args.Schema,
		host:       args.Host,
		port:       args.Port,
		user:       args.User,
		password:   args.Password,
		fullPath:   args.FullPath,
		query:      query,
		verifyHost: args.VerifyHost,
	}
	client := &http.Client{Timeout: args.Defaults.withFallbacks().HTTPTimeout}
	if !source.verifyHost {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in via verify=no
		}
	}
	source.client = client
	return source, nil
}

// URL renders the source back into its configuration URL.
func (s *HTTPSource) URL() string {
	auth := ""
	if s.user != "" {
		auth = urlutil.Quote(s.user)
		if s.password != "" {
			auth += ":" + urlutil.Quote(s.password)
		}
		auth += "@"
	}
	query := map[string]string{"encoding": s.encoding, "verify": "yes"}
	if !s.verifyHost {
		query["verify"] = "no"
	}
	if s.format != FormatUnset {
		query["format"] = string(s.format)
	}
	for key, value := range s.query {
		query[key] = value
	}
	return s.schema + "://" + auth + s.hostPort() + urlutil.Quote(s.fullPath) + "?" + urlutil.EncodeQuery(query)
}

// Read returns the decoded response body.
func (s *HTTPSource) Read(ctx context.Context) (string, error) {
	content, _, err := s.read(ctx)
	return content, err
}

// Services parses the body with the explicit format, or YAML for a yaml content type, or text.
func (s *HTTPSource) Services(ctx context.Context) []notify.Service {
	return s.loadServices(ctx, s.read)
}

func (s *HTTPSource) hostPort() string {
	if s.port > 0 {
		return fmt.Sprintf("%s:%d", s.host, s.port)
	}
	return s.host
}

func (s *HTTPSource) endpoint() string {
	out := s.schema + "://" + s.hostPort() + urlutil.Quote(s.fullPath)
	if encoded := urlutil.EncodeQuery(s.query); encoded != "" {
		out += "?" + encoded
	}
	return out
}

func (s *HTTPSource) read(ctx context.Context) (string, Format, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(), nil)
	if err != nil {
		return "", FormatUnset, fmt.Errorf("%w: build request: %w", ErrIO, err)
	}
	request.Header.Set("User-Agent", s.asset.AppID)
	request.Header.Set("Accept", "text/plain, text/yaml, application/x-yaml, */*")
	if s.user != "" {
		request.SetBasicAuth(s.user, s.password)
	}

	s.throttler.Throttle()

	response, err := s.client.Do(request)
	if err != nil {
		s.logger.Warn("config url is not reachable", "url", s.endpoint(), "error", err.Error())
		return "", FormatUnset, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		s.logger.Error("config url returned unexpected status", "url", s.endpoint(), "status", response.StatusCode)
		return "", FormatUnset, fmt.Errorf("%w: status=%d", ErrIO, response.StatusCode)
	}
	if response.ContentLength > 0 && !s.checkSize(response.ContentLength) {
		s.logger.Error("http response exceeds maximum allowable buffer length", "url", s.endpoint(), "max_kb", s.maxKB())
		return "", FormatUnset, fmt.Errorf("%w: content-length=%d", ErrTooLarge, response.ContentLength)
	}

	body := io.Reader(response.Body)
	if s.maxBufferSize > 0 {
		body = io.LimitReader(response.Body, s.maxBufferSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", FormatUnset, fmt.Errorf("%w: read body: %w", ErrIO, err)
	}
	if !s.checkSize(int64(len(data))) {
		s.logger.Error("http response exceeds maximum allowable buffer length", "url", s.endpoint(), "max_kb", s.maxKB())
		return "", FormatUnset, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, s.maxBufferSize)
	}

	encoding := s.encoding
	mediaType, params, _ := mime.ParseMediaType(response.Header.Get("Content-Type"))
	if charset := params["charset"]; charset != "" && !s.encodingPinned {
		encoding = charset
	}
	content, err := decodeContent(data, encoding)
	if err != nil {
		s.logger.Error("http response not using expected encoding", "encoding", encoding, "url", s.endpoint())
		return "", FormatUnset, err
	}

	detected := s.defaultFormat
	switch strings.ToLower(mediaType) {
	case "text/yaml", "text/x-yaml", "application/yaml", "application/x-yaml":
		detected = FormatYAML
	}
	return content, detected, nil
}
