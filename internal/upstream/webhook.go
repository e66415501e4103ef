package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lingua-chat-backend/internal/normalize"
)

// envelope is the wire body the widget has always sent; the automation
// flow keys on these exact field names.
type envelope struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
}

// Webhook forwards messages to the configured automation webhook with a
// single POST and normalizes whatever comes back.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (w *Webhook) Reply(ctx context.Context, out Outbound) (string, error) {
	body, err := json.Marshal(envelope{
		Message:   out.Message,
		Timestamp: out.Timestamp.UTC().Format(time.RFC3339),
		SessionID: out.SessionID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode}
	}
	return normalize.Extract(respBody, resp.Header.Get("Content-Type")), nil
}

var _ Upstream = (*Webhook)(nil)
