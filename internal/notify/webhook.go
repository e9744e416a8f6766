package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookChannel posts messages to an external gateway endpoint. One instance
// is configured per delivery channel (SMS gateway, chat gateway).
type WebhookChannel struct {
	name  string
	url   string
	token string
	http  *http.Client
}

func NewWebhookChannel(name, url, token string, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		name:  name,
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *WebhookChannel) Name() string {
	return c.name
}

func (c *WebhookChannel) Send(ctx context.Context, recipient, message string) error {
	if c.url == "" {
		return fmt.Errorf("%s gateway url not configured", c.name)
	}

	payload := map[string]string{
		"to":   recipient,
		"body": message,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(c.name + " gateway returned non-2xx")
	}
	return nil
}
