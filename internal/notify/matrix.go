package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"notifyconf/internal/domain"
	"notifyconf/internal/urlutil"
)

const (
	MatrixModeMatrix = "matrix"
	MatrixModeSlack  = "slack"

	matrixBodyMaxLen   = 1000
	matrixDefaultUser  = "notifyconf"
	matrixHookBasePath = "/api/v1/matrix/hook"
)

var matrixTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9]{64}$`)

// MatrixService posts to a Matrix webhook bridge in matrix or slack payload mode.
type MatrixService struct {
	Base
	token     string
	mode      string
	notifyURL string
	client    *http.Client
	now       func() time.Time
}

func matrixDescriptor() Descriptor {
	return Descriptor{
		Name:    "Matrix",
		Schemas: []string{"matrix", "matrixs"},
		New:     NewMatrixService,
	}
}

// NewMatrixService validates the webhook token and mode.
// Params: args where Query carries the 64-character token and QSD may set mode.
// Returns: service or validation error.
func NewMatrixService(args Args) (Service, error) {
	token := strings.TrimSpace(urlutil.Unquote(args.Query))
	if !matrixTokenPattern.MatchString(token) {
		return nil, fmt.Errorf("matrix token %q is invalid", token)
	}
	mode := strings.ToLower(strings.TrimSpace(args.QSD["mode"]))
	if mode == "" {
		mode = MatrixModeMatrix
	}
	if mode != MatrixModeMatrix && mode != MatrixModeSlack {
		return nil, fmt.Errorf("matrix mode %q is invalid", mode)
	}
	if strings.TrimSpace(args.Host) == "" {
		return nil, errors.New("matrix host is required")
	}

	service := &MatrixService{
		Base:  NewBase(args, "matrixs"),
		token: token,
		mode:  mode,
		now:   time.Now,
	}
	scheme := "http"
	if service.Secure() {
		scheme = "https"
	}
	service.notifyURL = scheme + "://" + service.hostPort() + matrixHookBasePath
	service.client = service.httpClient(0)
	return service, nil
}

// Name returns the service label.
func (s *MatrixService) Name() string { return "matrix" }

// Mode returns the payload mode.
func (s *MatrixService) Mode() string { return s.mode }

// URL renders the service back into its configuration URL.
func (s *MatrixService) URL() string {
	auth := ""
	if s.user != "" {
		auth = urlutil.Quote(s.user) + "@"
	}
	port := ""
	if s.port > 0 {
		port = ":" + strconv.Itoa(s.port)
	}
	query := urlutil.EncodeQuery(map[string]string{"mode": s.mode, "verify": s.verifyArg()})
	return s.schema + "://" + auth + s.host + port + "/" + s.token + "/?" + query
}

// Send posts the notification to <notify_url>/<token>.
func (s *MatrixService) Send(ctx context.Context, notification domain.Notification) error {
	body := truncateRunes(notification.Body, matrixBodyMaxLen)
	var payload any
	if s.mode == MatrixModeMatrix {
		payload = s.matrixPayload(notification.Title, body)
	} else {
		payload = s.slackPayload(notification.Title, body, notification.Type)
	}

	s.throttle()
	err := postJSON(ctx, s.client, s.notifyURL+"/"+s.token, payload, map[string]string{"User-Agent": s.asset.AppID}, "matrix")
	if statusCode(err) == http.StatusForbidden {
		return Permanent(fmt.Errorf("unauthorized - invalid token: %w", err))
	}
	if err == nil {
		s.logger.Info("sent matrix notification", "mode", s.mode)
	}
	return err
}

func (s *MatrixService) displayName() string {
	if s.user != "" {
		return s.user
	}
	return matrixDefaultUser
}

func (s *MatrixService) matrixPayload(title, body string) map[string]any {
	return map[string]any{
		"displayName": s.displayName(),
		"format":      "html",
		"text":        "<h4>" + html.EscapeString(title) + "</h4>" + html.EscapeString(body) + "<br/>",
	}
}

func (s *MatrixService) slackPayload(title, body string, notifyType domain.NotifyType) map[string]any {
	return map[string]any{
		"username": s.displayName(),
		"mrkdwn":   true,
		"attachments": []map[string]any{{
			"title":  title,
			"text":   body,
			"color":  s.asset.Color(notifyType),
			"ts":     float64(s.now().UnixNano()) / float64(time.Second),
			"footer": s.asset.AppID,
		}},
	}
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
