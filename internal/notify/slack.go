package notify

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"notifyconf/internal/domain"
	"notifyconf/internal/urlutil"
)

const slackWebhookBase = "https://hooks.slack.com/services"

var (
	slackTokenAPattern = regexp.MustCompile(`^[A-Z0-9]{9}$`)
	slackTokenBPattern = regexp.MustCompile(`^[A-Z0-9]{9}$`)
	slackTokenCPattern = regexp.MustCompile(`^[A-Za-z0-9]{24}$`)
)

// SlackService posts attachments to a Slack incoming webhook.
type SlackService struct {
	Base
	tokenA   string
	tokenB   string
	tokenC   string
	endpoint string
	client   *http.Client
	now      func() time.Time
}

func slackDescriptor() Descriptor {
	return Descriptor{
		Name:    "Slack",
		Schemas: []string{"slack"},
		New:     NewSlackService,
	}
}

// NewSlackService reads slack://[botname@]TokenA/TokenB/TokenC.
// Params: args with TokenA as host and the other tokens as path segments.
// Returns: service or validation error naming the bad token.
func NewSlackService(args Args) (Service, error) {
	segments := strings.Split(strings.Trim(args.FullPath, "/"), "/")
	if len(segments) < 2 {
		return nil, fmt.Errorf("slack url needs three token segments")
	}
	tokenA := strings.TrimSpace(args.Host)
	tokenB := strings.TrimSpace(segments[0])
	tokenC := strings.TrimSpace(segments[1])
	if !slackTokenAPattern.MatchString(tokenA) {
		return nil, fmt.Errorf("slack token A %q is invalid", tokenA)
	}
	if !slackTokenBPattern.MatchString(tokenB) {
		return nil, fmt.Errorf("slack token B %q is invalid", tokenB)
	}
	if !slackTokenCPattern.MatchString(tokenC) {
		return nil, fmt.Errorf("slack token C %q is invalid", tokenC)
	}

	service := &SlackService{
		Base:     NewBase(args, ""),
		tokenA:   tokenA,
		tokenB:   tokenB,
		tokenC:   tokenC,
		endpoint: slackWebhookBase,
		now:      time.Now,
	}
	service.client = service.httpClient(0)
	return service, nil
}

// Name returns the service label.
func (s *SlackService) Name() string { return "slack" }

// URL renders the service back into its configuration URL.
func (s *SlackService) URL() string {
	auth := ""
	if s.user != "" {
		auth = urlutil.Quote(s.user) + "@"
	}
	return "slack://" + auth + s.tokenA + "/" + s.tokenB + "/" + s.tokenC + "/"
}

// Send posts one attachment message.
func (s *SlackService) Send(ctx context.Context, notification domain.Notification) error {
	username := s.user
	if username == "" {
		username = s.asset.AppID
	}
	payload := map[string]any{
		"username": username,
		"mrkdwn":   true,
		"attachments": []map[string]any{{
			"title":  notification.Title,
			"text":   notification.Body,
			"color":  s.asset.Color(notification.Type),
			"ts":     s.now().Unix(),
			"footer": s.asset.AppID,
		}},
	}

	s.throttle()
	endpoint := strings.TrimRight(s.endpoint, "/") + "/" + s.tokenA + "/" + s.tokenB + "/" + s.tokenC
	return postJSON(ctx, s.client, endpoint, payload, nil, "slack")
}
