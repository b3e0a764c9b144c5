package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NotifyType classifies one outbound message.
// Params: info/success/warning/failure constants.
// Returns: type used by services to pick colors and titles.
type NotifyType string

const (
	// NotifyTypeInfo marks an informational message.
	NotifyTypeInfo NotifyType = "info"
	// NotifyTypeSuccess marks a success message.
	NotifyTypeSuccess NotifyType = "success"
	// NotifyTypeWarning marks a warning message.
	NotifyTypeWarning NotifyType = "warning"
	// NotifyTypeFailure marks a failure message.
	NotifyTypeFailure NotifyType = "failure"
)

var notifyTypes = []NotifyType{
	NotifyTypeInfo,
	NotifyTypeSuccess,
	NotifyTypeWarning,
	NotifyTypeFailure,
}

// NotifyTypes returns every supported notify type in declaration order.
// Params: none.
// Returns: fresh slice of notify types.
func NotifyTypes() []NotifyType {
	return append([]NotifyType(nil), notifyTypes...)
}

// ParseNotifyType normalizes user input into a notify type.
// Params: raw type name; empty means info.
// Returns: notify type or error for unknown names.
func ParseNotifyType(raw string) (NotifyType, error) {
	value := NotifyType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return NotifyTypeInfo, nil
	}
	for _, known := range notifyTypes {
		if value == known {
			return value, nil
		}
	}
	return "", fmt.Errorf("unsupported notify type %q", raw)
}

// Notification is one message delivered to every selected service.
// Params: title, body, type, and creation timestamp.
// Returns: payload consumed by service senders.
type Notification struct {
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Type      NotifyType `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
}

// Validate checks mandatory notification fields.
// Params: notification fields from caller.
// Returns: validation error when body is empty or type is unknown.
func (n Notification) Validate() error {
	if strings.TrimSpace(n.Body) == "" {
		return errors.New("body is required")
	}
	if _, err := ParseNotifyType(string(n.Type)); err != nil {
		return err
	}
	return nil
}

// DecodeNotification decodes and validates one notification payload.
// Params: JSON document bytes.
// Returns: validated notification or decode/validation error.
func DecodeNotification(raw []byte) (Notification, error) {
	var notification Notification
	if err := json.Unmarshal(raw, &notification); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if notification.Type == "" {
		notification.Type = NotifyTypeInfo
	}
	if err := notification.Validate(); err != nil {
		return Notification{}, err
	}
	return notification, nil
}
