package driftmail

import (
	"context"
	"encoding/json"
)

// ItemResult is the outcome of one batch item, at its original input index.
type ItemResult struct {
	Index    int
	OK       bool
	Response json.RawMessage
	Err      error
}

// BatchResult holds one ItemResult per input item, in input order. Partial
// success is the normal terminal state; there is no rollback.
type BatchResult []ItemResult

// Succeeded counts successful items.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, item := range r {
		if item.OK {
			n++
		}
	}
	return n
}

// Failed counts failed items.
func (r BatchResult) Failed() int {
	return len(r) - r.Succeeded()
}

// runBatch validates and processes items strictly in input order, one at a
// time so each remote call still pays the rate-limit interval. Invalid items
// fail locally and never reach op; an op failure never aborts the rest.
func runBatch[T any](ctx context.Context, items []T, validate func(T) error, op func(context.Context, T) (json.RawMessage, error)) BatchResult {
	results := make(BatchResult, 0, len(items))
	for i, item := range items {
		if err := validate(item); err != nil {
			results = append(results, ItemResult{Index: i, Err: err})
			continue
		}
		response, err := op(ctx, item)
		if err != nil {
			results = append(results, ItemResult{Index: i, Err: err})
			continue
		}
		results = append(results, ItemResult{Index: i, OK: true, Response: response})
	}
	return results
}
