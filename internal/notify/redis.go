package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"notifyconf/internal/domain"
	"notifyconf/internal/urlutil"

	"github.com/redis/go-redis/v9"
)

const redisDefaultPort = 6379

// RedisService publishes notifications to a Redis pub/sub channel.
type RedisService struct {
	Base
	channel string
	db      int
	client  *redis.Client
	now     func() time.Time
}

func redisDescriptor() Descriptor {
	return Descriptor{
		Name:    "Redis",
		Schemas: []string{"redis", "rediss"},
		New:     NewRedisService,
	}
}

// NewRedisService builds redis://[user:pass@]host[:port]/channel[?db=N].
// Params: args whose path names the channel.
// Returns: service or validation error; no connection is made yet.
func NewRedisService(args Args) (Service, error) {
	if strings.TrimSpace(args.Host) == "" {
		return nil, errors.New("redis host is required")
	}
	channel := strings.Trim(strings.TrimSpace(args.FullPath), "/")
	if channel == "" {
		return nil, errors.New("redis channel is required")
	}
	db := 0
	if raw := strings.TrimSpace(args.QSD["db"]); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("redis db %q must be a non-negative integer", raw)
		}
		db = parsed
	}

	service := &RedisService{
		Base:    NewBase(args, "rediss"),
		channel: channel,
		db:      db,
		now:     time.Now,
	}
	port := service.port
	if port == 0 {
		port = redisDefaultPort
	}
	options := &redis.Options{
		Addr:        service.host + ":" + strconv.Itoa(port),
		Username:    service.user,
		Password:    service.password,
		DB:          db,
		DialTimeout: defaultHTTPTimeout,
	}
	if service.Secure() {
		options.TLSConfig = &tls.Config{ServerName: service.host, InsecureSkipVerify: !service.verifyHost} //nolint:gosec // opt-in via verify=no
	}
	service.client = redis.NewClient(options)
	return service, nil
}

// Name returns the service label.
func (s *RedisService) Name() string { return "redis" }

// Channel returns the pub/sub channel.
func (s *RedisService) Channel() string { return s.channel }

// DB returns the selected database index.
func (s *RedisService) DB() int { return s.db }

// URL renders the service back into its configuration URL.
func (s *RedisService) URL() string {
	auth := ""
	if s.user != "" || s.password != "" {
		auth = urlutil.Quote(s.user)
		if s.password != "" {
			auth += ":" + urlutil.Quote(s.password)
		}
		auth += "@"
	}
	query := map[string]string{}
	if s.db != 0 {
		query["db"] = strconv.Itoa(s.db)
	}
	if s.Secure() {
		query["verify"] = s.verifyArg()
	}
	out := s.schema + "://" + auth + s.hostPort() + "/" + urlutil.Quote(s.channel)
	if encoded := urlutil.EncodeQuery(query); encoded != "" {
		out += "?" + encoded
	}
	return out
}

// Send publishes one JSON message.
func (s *RedisService) Send(ctx context.Context, notification domain.Notification) error {
	timestamp := notification.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now().UTC()
	}
	data, err := json.Marshal(map[string]any{
		"title":     notification.Title,
		"body":      notification.Body,
		"type":      string(notification.Type),
		"app_id":    s.asset.AppID,
		"timestamp": timestamp,
	})
	if err != nil {
		return Permanent(fmt.Errorf("encode redis payload: %w", err))
	}

	s.throttle()
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisService) Close() error {
	return s.client.Close()
}
