package notify

import (
	"context"
	"crypto/sha1" //nolint:gosec // dedupe id, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"notifyconf/internal/domain"
	"notifyconf/internal/urlutil"

	"github.com/nats-io/nats.go"
)

const natsDefaultPort = 4222

// NATSService publishes notifications as JSON to a subject, optionally through JetStream.
type NATSService struct {
	Base
	subject   string
	jetStream bool
	connect   func(url string, opts ...nats.Option) (*nats.Conn, error)
	now       func() time.Time
}

type natsPayload struct {
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	AppID     string    `json:"app_id"`
	Timestamp time.Time `json:"timestamp"`
}

func natsDescriptor() Descriptor {
	return Descriptor{
		Name:    "NATS",
		Schemas: []string{"nats"},
		New:     NewNATSService,
	}
}

// NewNATSService builds nats://[user:pass@]host[:port]/subject[?jetstream=yes].
// Params: args whose path names the subject.
// Returns: service or validation error.
func NewNATSService(args Args) (Service, error) {
	if strings.TrimSpace(args.Host) == "" {
		return nil, errors.New("nats host is required")
	}
	subject := strings.Trim(strings.TrimSpace(args.FullPath), "/")
	subject = strings.ReplaceAll(subject, "/", ".")
	if subject == "" {
		return nil, errors.New("nats subject is required")
	}
	if strings.ContainsAny(subject, " \t*>") {
		return nil, fmt.Errorf("nats subject %q must be a literal subject", subject)
	}
	return &NATSService{
		Base:      NewBase(args, ""),
		subject:   subject,
		jetStream: urlutil.ParseBool(args.QSD["jetstream"], false),
		connect:   nats.Connect,
		now:       time.Now,
	}, nil
}

// Name returns the service label.
func (s *NATSService) Name() string { return "nats" }

// Subject returns the publish subject.
func (s *NATSService) Subject() string { return s.subject }

// URL renders the service back into its configuration URL.
func (s *NATSService) URL() string {
	query := ""
	if s.jetStream {
		query = "?jetstream=yes"
	}
	return "nats://" + s.serverAuth() + s.serverHost() + "/" + strings.ReplaceAll(s.subject, ".", "/") + query
}

// Send connects, publishes one message, and drains the connection.
func (s *NATSService) Send(ctx context.Context, notification domain.Notification) error {
	payload := natsPayload{
		Title:     notification.Title,
		Body:      notification.Body,
		Type:      string(notification.Type),
		AppID:     s.asset.AppID,
		Timestamp: notification.Timestamp,
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = s.now().UTC()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Permanent(fmt.Errorf("encode nats payload: %w", err))
	}

	s.throttle()
	conn, err := s.connect("nats://"+s.serverAuth()+s.serverHost(), nats.Name(s.asset.AppID), nats.Timeout(defaultHTTPTimeout))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer conn.Close()

	if !s.jetStream {
		if err := conn.Publish(s.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return conn.FlushWithContext(ctx)
	}

	js, err := conn.JetStream()
	if err != nil {
		return fmt.Errorf("nats jetstream: %w", err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, messageID(data))
	if _, err := js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("nats jetstream publish: %w", err)
	}
	return nil
}

func (s *NATSService) serverHost() string {
	port := s.port
	if port == 0 {
		port = natsDefaultPort
	}
	return s.host + ":" + fmt.Sprint(port)
}

func (s *NATSService) serverAuth() string {
	if s.user == "" {
		return ""
	}
	auth := urlutil.Quote(s.user)
	if s.password != "" {
		auth += ":" + urlutil.Quote(s.password)
	}
	return auth + "@"
}

// messageID derives a stable JetStream dedupe id from the payload.
func messageID(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec // dedupe id only
	return hex.EncodeToString(sum[:])
}
