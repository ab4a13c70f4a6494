// internal/notification/sms.go
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// SMSGatewaySink posts messages to an HTTP SMS gateway as JSON.
type SMSGatewaySink struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewSMSGatewaySink creates a sink posting to endpoint. A nil client gets a 10 second timeout.
func NewSMSGatewaySink(endpoint, apiKey string, client *http.Client, logger *slog.Logger) *SMSGatewaySink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SMSGatewaySink{endpoint: endpoint, apiKey: apiKey, client: client, logger: logger}
}

func (s *SMSGatewaySink) Send(ctx context.Context, address, message string) bool {
	body, err := json.Marshal(smsRequest{To: address, Message: message})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build sms request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to send sms", "to", address, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WarnContext(ctx, "sms gateway rejected message", "to", address, "status", resp.StatusCode)
		return false
	}
	return true
}
