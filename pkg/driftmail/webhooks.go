package driftmail

import (
	"context"
	"encoding/json"
	"fmt"
)

// RegisterWebhook registers endpointURL to receive the given event types.
func (c *Client) RegisterWebhook(ctx context.Context, endpointURL string, events []string) error {
	doc, err := BuildWebhookDocument(endpointURL, events)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.api.CreateResource(ctx, "/api/webhooks", doc)
	})
	if err != nil {
		c.log.Error("webhook registration failed", "endpoint", endpointURL, "error", err)
		return fmt.Errorf("register webhook: %w", err)
	}
	c.log.Info("registered webhook", "endpoint", endpointURL)
	return nil
}
