package driftmail

import (
	"context"
	"encoding/json"
	"fmt"
)

// Cache keys for the fixed collection reads.
const (
	metricsCacheKey = "metrics"
	listsCacheKey   = "lists"
)

// ListMetrics returns the account's metrics, cached under a fixed key.
func (c *Client) ListMetrics(ctx context.Context) ([]json.RawMessage, error) {
	return c.cachedList(ctx, metricsCacheKey, "/api/metrics", nil)
}

// ListLists returns the account's lists, cached under a fixed key.
func (c *Client) ListLists(ctx context.Context) ([]json.RawMessage, error) {
	return c.cachedList(ctx, listsCacheKey, "/api/lists", nil)
}

// Subscribe adds the profile identified by email to the given list.
func (c *Client) Subscribe(ctx context.Context, email, listID string) error {
	doc, err := BuildSubscriptionDocument(email, listID)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.api.CreateResource(ctx, "/api/subscriptions", doc)
	})
	if err != nil {
		c.log.Error("subscribe failed", "email", email, "list", listID, "error", err)
		return fmt.Errorf("subscribe: %w", err)
	}
	c.log.Info("subscribed", "email", email, "list", listID)
	return nil
}
