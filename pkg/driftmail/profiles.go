package driftmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// UpsertProfile creates or updates the profile identified by its email.
func (c *Client) UpsertProfile(ctx context.Context, profile Profile) error {
	_, err := c.upsertProfile(ctx, profile)
	return err
}

// UpsertProfiles upserts a batch of profiles, one result per input index.
func (c *Client) UpsertProfiles(ctx context.Context, profiles []Profile) BatchResult {
	return runBatch(ctx, profiles, Profile.validate, c.upsertProfile)
}

func (c *Client) upsertProfile(ctx context.Context, profile Profile) (json.RawMessage, error) {
	doc, err := BuildProfileDocument(profile)
	if err != nil {
		return nil, err
	}
	response, err := c.call(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.api.CreateResource(ctx, "/api/profiles", doc)
	})
	if err != nil {
		c.log.Error("upsert profile failed", "email", profile.Email, "error", err)
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	c.log.Info("upserted profile", "email", profile.Email)
	return response, nil
}

// QueryProfiles returns the profiles matching the filter clauses combined
// with the join operator. Results are cached under a key derived from the
// built expression, so an identical clause sequence hits the same entry
// while a reordered one does not.
func (c *Client) QueryProfiles(ctx context.Context, clauses []FilterClause, join JoinOperator) ([]json.RawMessage, error) {
	expr, skipped, err := BuildFilter(clauses, join)
	for _, index := range skipped {
		c.log.Warn("skipping invalid filter clause", "index", index)
	}
	if err != nil {
		return nil, err
	}
	query := url.Values{"filter": {expr}}
	return c.cachedList(ctx, FilterCacheKey(expr), "/api/profiles", query)
}
