package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"notifyconf/internal/domain"
	"notifyconf/internal/urlutil"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

const telegramAPIBase = "https://api.telegram.org"

// Bot tokens look like 123456:ABC-def; the colon breaks generic host:port parsing.
var telegramURLPattern = regexp.MustCompile(`(?i)^\s*(tgram)://(bot)?(\d+:[a-z0-9_-]+)(/[^?]*)?(\?.*)?$`)

// TelegramService sends HTML messages through the Telegram Bot API.
type TelegramService struct {
	Base
	token   string
	chatIDs []string
	client  *tgbot.Bot
}

func telegramDescriptor() Descriptor {
	return Descriptor{
		Name:    "Telegram",
		Schemas: []string{"tgram"},
		Parse:   parseTelegramURL,
		New:     NewTelegramService,
	}
}

// parseTelegramURL splits tgram://[bot]token/chat[/chat...][?to=...].
// Params: raw URL.
// Returns: parsed attributes with the bot token in Host.
func parseTelegramURL(raw string) (urlutil.Parsed, error) {
	match := telegramURLPattern.FindStringSubmatch(raw)
	if match == nil {
		return urlutil.Parsed{}, errors.New("telegram url must look like tgram://bottoken/chatid")
	}
	parsed, err := urlutil.Parse("tgram://telegram"+match[4]+match[5], true)
	if err != nil {
		return urlutil.Parsed{}, err
	}
	parsed.URL = strings.TrimSpace(raw)
	parsed.Host = match[3]
	return parsed, nil
}

// NewTelegramService validates token and chat ids.
// Params: args from parseTelegramURL.
// Returns: service or validation error.
func NewTelegramService(args Args) (Service, error) {
	return newTelegramService(args, telegramAPIBase)
}

func newTelegramService(args Args, apiBase string) (*TelegramService, error) {
	token := strings.TrimSpace(args.Host)
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	var chatIDs []string
	for _, segment := range strings.Split(args.FullPath, "/") {
		if segment = strings.TrimSpace(segment); segment != "" {
			chatIDs = append(chatIDs, segment)
		}
	}
	chatIDs = append(chatIDs, urlutil.ParseList(args.QSD["to"])...)
	if len(chatIDs) == 0 {
		return nil, errors.New("telegram chat_id is required")
	}

	botClient, err := tgbot.New(token,
		tgbot.WithSkipGetMe(),
		tgbot.WithServerURL(strings.TrimRight(apiBase, "/")),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramService{
		Base:    NewBase(args, ""),
		token:   token,
		chatIDs: chatIDs,
		client:  botClient,
	}, nil
}

// Name returns the service label.
func (s *TelegramService) Name() string { return "telegram" }

// URL renders the service back into its configuration URL.
func (s *TelegramService) URL() string {
	return "tgram://" + s.token + "/" + strings.Join(s.chatIDs, "/") + "/"
}

// Send posts the message to every chat; failures are joined.
func (s *TelegramService) Send(ctx context.Context, notification domain.Notification) error {
	text := html.EscapeString(notification.Body)
	if notification.Title != "" {
		text = "<b>" + html.EscapeString(notification.Title) + "</b>\r\n" + text
	}

	var errs []error
	for _, chatID := range s.chatIDs {
		s.throttle()
		sent, err := s.client.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID:    normalizeChatID(chatID),
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("telegram send to %s: %w", chatID, err))
			continue
		}
		if sent == nil || sent.ID <= 0 {
			errs = append(errs, fmt.Errorf("telegram send to %s returned empty message id", chatID))
		}
	}
	return errors.Join(errs...)
}

// normalizeChatID converts numeric chat IDs to int64 and keeps @channel names as string.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
