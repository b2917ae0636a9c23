// Package sender talks to the external SMS gateway provider. The provider is
// an opaque HTTP API: it accepts a send request and later reports delivery
// through the webhook endpoint.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
)

// SendRequest is one outbound SMS handed to the provider. Reference is our
// external message id; the provider echoes it in delivery webhooks.
type SendRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Body      string `json:"body"`
	Reference string `json:"reference"`
}

// Sender dispatches a single SMS and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (string, error)
}

// HTTPSender is the production Sender, posting JSON to the provider API.
type HTTPSender struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPSender(baseURL, apiKey string) *HTTPSender {
	return &HTTPSender{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, sendReq SendRequest) (string, error) {
	if s.BaseURL == "" {
		return "", &apperrors.GatewaySendError{Err: fmt.Errorf("gateway base URL not configured")}
	}

	payload, err := json.Marshal(sendReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &apperrors.GatewaySendError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return "", &apperrors.GatewaySendError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &apperrors.GatewaySendError{Err: fmt.Errorf("decode provider response: %w", err)}
	}
	return result.MessageID, nil
}

var _ Sender = (*HTTPSender)(nil)
