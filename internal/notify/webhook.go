package notify

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"notifyconf/internal/domain"
	"notifyconf/internal/urlutil"
)

const webhookPayloadVersion = "1.0"

// WebhookService posts a JSON document to an arbitrary endpoint.
// Query keys starting with "+" become request headers.
type WebhookService struct {
	Base
	fullPath string
	headers  map[string]string
	client   *http.Client
}

func webhookDescriptor() Descriptor {
	return Descriptor{
		Name:    "JSON",
		Schemas: []string{"json", "jsons"},
		New:     NewWebhookService,
	}
}

// NewWebhookService builds json://[user:pass@]host[:port]/path[?+Header=value].
// Params: args with host required.
// Returns: service or validation error.
func NewWebhookService(args Args) (Service, error) {
	if strings.TrimSpace(args.Host) == "" {
		return nil, errors.New("json webhook host is required")
	}
	headers := make(map[string]string)
	for key, value := range args.QSD {
		if name, ok := strings.CutPrefix(key, "+"); ok && name != "" {
			headers[name] = value
		}
	}
	service := &WebhookService{
		Base:     NewBase(args, "jsons"),
		fullPath: args.FullPath,
		headers:  headers,
	}
	service.client = service.httpClient(0)
	return service, nil
}

// Name returns the service label.
func (s *WebhookService) Name() string { return "json" }

// Headers returns a copy of the custom request headers.
func (s *WebhookService) Headers() map[string]string {
	out := make(map[string]string, len(s.headers))
	for key, value := range s.headers {
		out[key] = value
	}
	return out
}

// URL renders the service back into its configuration URL.
func (s *WebhookService) URL() string {
	auth := ""
	if s.user != "" {
		auth = urlutil.Quote(s.user)
		if s.password != "" {
			auth += ":" + urlutil.Quote(s.password)
		}
		auth += "@"
	}
	query := map[string]string{"verify": s.verifyArg()}
	for key, value := range s.headers {
		query["+"+key] = value
	}
	return s.schema + "://" + auth + s.hostPort() + urlutil.Quote(s.fullPath) + "?" + urlutil.EncodeQuery(query)
}

// Send posts {version,title,message,type} to the endpoint.
func (s *WebhookService) Send(ctx context.Context, notification domain.Notification) error {
	payload := map[string]string{
		"version": webhookPayloadVersion,
		"title":   notification.Title,
		"message": notification.Body,
		"type":    string(notification.Type),
	}
	headers := map[string]string{"User-Agent": s.asset.AppID}
	keys := make([]string, 0, len(s.headers))
	for key := range s.headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		headers[key] = s.headers[key]
	}

	s.throttle()
	client := s.client
	if s.user != "" {
		client = withBasicAuth(client, s.user, s.password)
	}
	return postJSON(ctx, client, s.endpoint(), payload, headers, "json")
}

func (s *WebhookService) endpoint() string {
	scheme := "http"
	if s.Secure() {
		scheme = "https"
	}
	path := s.fullPath
	if path == "" {
		path = "/"
	}
	return scheme + "://" + s.hostPort() + urlutil.Quote(path)
}

// withBasicAuth returns a client copy that sets basic auth on every request.
func withBasicAuth(client *http.Client, user, password string) *http.Client {
	copied := *client
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	copied.Transport = basicAuthTransport{base: base, user: user, password: password}
	return &copied
}

type basicAuthTransport struct {
	base     http.RoundTripper
	user     string
	password string
}

func (t basicAuthTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	cloned := request.Clone(request.Context())
	cloned.SetBasicAuth(t.user, t.password)
	return t.base.RoundTrip(cloned)
}
