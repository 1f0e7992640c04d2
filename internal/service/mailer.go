package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ouvidoria-service/internal/config"
)

// OutgoingEmail is one rendered message handed to a Mailer.
type OutgoingEmail struct {
	From     string
	To       string
	Name     *string
	Subject  string
	HTML     string
	Protocol string
	Status   string
}

// Mailer delivers rendered emails.
type Mailer interface {
	Send(ctx context.Context, email OutgoingEmail) error
}

// NewMailer returns the webhook mailer when a URL is configured. Without one
// it returns nil and emails stay in the outbox until an admin handles them.
func NewMailer(cfg config.NotificationConfig, logger *zap.Logger) Mailer {
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		if logger != nil {
			logger.Info("no email webhook configured, emails remain pending for manual delivery")
		}
		return nil
	}
	return &webhookMailer{
		url:    url,
		token:  cfg.WebhookToken,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookMailer struct {
	url    string
	token  string
	client *http.Client
}

type webhookPayload struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Name     *string `json:"name,omitempty"`
	Subject  string  `json:"subject"`
	HTML     string  `json:"html"`
	Protocol string  `json:"protocol"`
	Status   string  `json:"status"`
}

func (m *webhookMailer) Send(ctx context.Context, email OutgoingEmail) error {
	body, err := json.Marshal(webhookPayload{
		From:     email.From,
		To:       email.To,
		Name:     email.Name,
		Subject:  email.Subject,
		HTML:     email.HTML,
		Protocol: email.Protocol,
		Status:   email.Status,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email webhook rejected request: status %d", resp.StatusCode)
	}
	return nil
}
