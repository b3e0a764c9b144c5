package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// postJSON sends payload as JSON and classifies the response.
// Params: context, client, endpoint, payload, extra headers, and error label.
// Returns: nil on 2xx, permanent error on 4xx, retryable error otherwise.
func postJSON(ctx context.Context, client *http.Client, endpoint string, payload any, headers map[string]string, label string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return Permanent(fmt.Errorf("encode %s payload: %w", label, err))
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("build %s request: %w", label, err))
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("%s send: %w", label, err)
	}
	defer response.Body.Close()
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	statusErr := unexpectedHTTPStatusError(label, response)
	if response.StatusCode >= 400 && response.StatusCode < 500 && response.StatusCode != http.StatusTooManyRequests {
		return Permanent(statusErr)
	}
	return statusErr
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Label string
	Code  int
	Body  string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s status=%d", e.Label, e.Code)
	}
	return fmt.Sprintf("%s status=%d body=%s", e.Label, e.Code, e.Body)
}

// unexpectedHTTPStatusError formats non-2xx HTTP response with optional body.
// Params: sender prefix label and HTTP response pointer.
// Returns: status error, or a read error wrapping the status.
func unexpectedHTTPStatusError(prefix string, response *http.Response) error {
	if response == nil {
		return &StatusError{Label: prefix}
	}
	rawBody, readErr := io.ReadAll(io.LimitReader(response.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("%w (read body error: %v)", &StatusError{Label: prefix, Code: response.StatusCode}, readErr)
	}
	return &StatusError{Label: prefix, Code: response.StatusCode, Body: strings.TrimSpace(string(rawBody))}
}

// statusCode extracts the HTTP status from err, or 0.
func statusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
