package driftmail

import (
	"context"
	"encoding/json"
	"fmt"
)

// TrackEvent records one metric occurrence for a profile.
func (c *Client) TrackEvent(ctx context.Context, event Event) error {
	_, err := c.trackEvent(ctx, event)
	return err
}

// TrackEvents tracks a batch of events, one result per input index. Invalid
// events fail locally without a remote call; the rest proceed regardless of
// earlier failures.
func (c *Client) TrackEvents(ctx context.Context, events []Event) BatchResult {
	return runBatch(ctx, events, Event.validate, c.trackEvent)
}

func (c *Client) trackEvent(ctx context.Context, event Event) (json.RawMessage, error) {
	doc, err := BuildEventDocument(event)
	if err != nil {
		return nil, err
	}
	response, err := c.call(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.api.CreateResource(ctx, "/api/events", doc)
	})
	if err != nil {
		c.log.Error("track event failed", "metric", event.Metric, "error", err)
		return nil, fmt.Errorf("track event: %w", err)
	}
	c.log.Info("tracked event", "metric", event.Metric)
	return response, nil
}
