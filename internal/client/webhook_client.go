package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/LeventeLantos/sms-bridge/internal/model"
)

// WebhookClient notifies an external endpoint about stored inbound
// messages. Best effort: the inbox file is already on disk by the time
// this fires, so a hook failure loses nothing.
type WebhookClient struct {
	url    string
	token  string
	client *http.Client
}

func NewWebhookClient(url, token string) *WebhookClient {
	return &WebhookClient{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type hookPayload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

func (c *WebhookClient) Notify(ctx context.Context, msg model.InboundMessage) error {
	payload, err := json.Marshal(hookPayload{
		ID:        uuid.NewString(),
		From:      msg.From,
		Body:      msg.Body,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
