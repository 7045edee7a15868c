package driftmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/driftmail/driftmail-go/internal/cache"
	"github.com/driftmail/driftmail-go/internal/ratelimit"
)

// fakeAPI records calls and fails on demand.
type fakeAPI struct {
	createPaths []string
	createErrs  map[int]error // by create-call index

	listCalls   int
	listQueries []url.Values
	listItems   []json.RawMessage
	listErr     error
}

func (f *fakeAPI) CreateResource(_ context.Context, path string, _ any) (json.RawMessage, error) {
	index := len(f.createPaths)
	f.createPaths = append(f.createPaths, path)
	if err := f.createErrs[index]; err != nil {
		return nil, err
	}
	return json.RawMessage(`{"data":{"type":"created"}}`), nil
}

func (f *fakeAPI) ListResources(_ context.Context, _ string, query url.Values) ([]json.RawMessage, error) {
	f.listCalls++
	f.listQueries = append(f.listQueries, query)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listItems, nil
}

func newTestClient(t *testing.T, fake *fakeAPI, cacheEnabled bool) *Client {
	t.Helper()
	backend, err := cache.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("cache backend: %v", err)
	}
	return &Client{
		log:     slog.New(slog.DiscardHandler),
		cache:   cache.New(cache.Config{Enabled: cacheEnabled, Backend: backend, DefaultTTL: time.Minute}),
		limiter: ratelimit.New(0),
		api:     fake,
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestTrackEventsBatchAggregation(t *testing.T) {
	fake := &fakeAPI{}
	client := newTestClient(t, fake, false)

	events := []Event{
		{Metric: "Placed Order", Email: "a@example.com"},
		{Metric: "", Email: "b@example.com"}, // invalid: no metric
		{Metric: "Placed Order", Email: ""},  // invalid: no email
		{Metric: "Viewed Product", Email: "d@example.com"},
	}
	results := client.TrackEvents(context.Background(), events)

	if len(results) != len(events) {
		t.Fatalf("result length = %d, want %d", len(results), len(events))
	}
	for i, item := range results {
		if item.Index != i {
			t.Fatalf("result %d carries index %d", i, item.Index)
		}
	}
	if results.Succeeded() != 2 || results.Failed() != 2 {
		t.Fatalf("succeeded=%d failed=%d", results.Succeeded(), results.Failed())
	}
	if results[1].OK || results[2].OK {
		t.Fatal("invalid items must fail")
	}
	// Invalid items never reach the collaborator.
	if len(fake.createPaths) != 2 {
		t.Fatalf("expected 2 remote calls, got %d", len(fake.createPaths))
	}
}

func TestBatchContinuesPastUpstreamFailure(t *testing.T) {
	upstreamErr := errors.New("boom")
	fake := &fakeAPI{createErrs: map[int]error{0: upstreamErr}}
	client := newTestClient(t, fake, false)

	results := client.UpsertProfiles(context.Background(), []Profile{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
	})
	if len(results) != 2 {
		t.Fatalf("result length = %d", len(results))
	}
	if results[0].OK || !errors.Is(results[0].Err, upstreamErr) {
		t.Fatalf("first result = %+v", results[0])
	}
	if !results[1].OK {
		t.Fatalf("second result = %+v", results[1])
	}
	if len(fake.createPaths) != 2 {
		t.Fatalf("expected 2 remote calls, got %d", len(fake.createPaths))
	}
}

func TestQueryProfilesUsesFilterCache(t *testing.T) {
	fake := &fakeAPI{listItems: []json.RawMessage{json.RawMessage(`{"id":"p1"}`)}}
	client := newTestClient(t, fake, true)

	clauses := []FilterClause{
		{Field: "email", Operator: OpContains, Value: "gmail.com"},
		{Field: "orders", Operator: OpGreaterThan, Value: 3},
	}

	first, err := client.QueryProfiles(context.Background(), clauses, JoinAnd)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if fake.listCalls != 1 {
		t.Fatalf("expected 1 remote call, got %d", fake.listCalls)
	}
	wantFilter := `contains(email,"gmail.com") and greater-than(orders,3)`
	if got := fake.listQueries[0].Get("filter"); got != wantFilter {
		t.Fatalf("filter = %q, want %q", got, wantFilter)
	}

	second, err := client.QueryProfiles(context.Background(), clauses, JoinAnd)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if fake.listCalls != 1 {
		t.Fatalf("identical query must be served from cache, got %d calls", fake.listCalls)
	}
	if string(first[0]) != string(second[0]) {
		t.Fatalf("cached value differs: %s vs %s", first[0], second[0])
	}

	// Reordered clauses form a different expression and miss the cache.
	permuted := []FilterClause{clauses[1], clauses[0]}
	if _, err := client.QueryProfiles(context.Background(), permuted, JoinAnd); err != nil {
		t.Fatalf("query: %v", err)
	}
	if fake.listCalls != 2 {
		t.Fatalf("permuted query must hit the API, got %d calls", fake.listCalls)
	}
}

func TestQueryProfilesAllClausesInvalid(t *testing.T) {
	fake := &fakeAPI{}
	client := newTestClient(t, fake, true)

	_, err := client.QueryProfiles(context.Background(), []FilterClause{{Field: ""}}, JoinAnd)
	if !errors.Is(err, ErrEmptyFilter) {
		t.Fatalf("expected ErrEmptyFilter, got %v", err)
	}
	if fake.listCalls != 0 {
		t.Fatal("invalid filter must not reach the API")
	}
}

func TestListMetricsCachedAndClearable(t *testing.T) {
	fake := &fakeAPI{listItems: []json.RawMessage{json.RawMessage(`{"name":"Placed Order"}`)}}
	client := newTestClient(t, fake, true)

	for i := 0; i < 3; i++ {
		if _, err := client.ListMetrics(context.Background()); err != nil {
			t.Fatalf("list metrics: %v", err)
		}
	}
	if fake.listCalls != 1 {
		t.Fatalf("expected 1 remote call, got %d", fake.listCalls)
	}

	if err := client.ClearCache(metricsCacheKey); err != nil {
		t.Fatalf("clear cache: %v", err)
	}
	if _, err := client.ListMetrics(context.Background()); err != nil {
		t.Fatalf("list metrics: %v", err)
	}
	if fake.listCalls != 2 {
		t.Fatalf("expected refill after clear, got %d calls", fake.listCalls)
	}

	// Clearing an already absent key still succeeds.
	if err := client.ClearCache("never-written"); err != nil {
		t.Fatalf("clear absent key: %v", err)
	}
}

func TestDisabledCacheAlwaysCallsAPI(t *testing.T) {
	fake := &fakeAPI{listItems: []json.RawMessage{json.RawMessage(`{}`)}}
	client := newTestClient(t, fake, false)

	for i := 0; i < 3; i++ {
		if _, err := client.ListLists(context.Background()); err != nil {
			t.Fatalf("list lists: %v", err)
		}
	}
	if fake.listCalls != 3 {
		t.Fatalf("expected 3 remote calls, got %d", fake.listCalls)
	}
	if err := client.ClearAllCache(); !errors.Is(err, cache.ErrDisabled) {
		t.Fatalf("clear all on disabled cache: %v", err)
	}
}

func TestUpstreamFailureIsReportedNotRetried(t *testing.T) {
	fake := &fakeAPI{listErr: fmt.Errorf("api down")}
	client := newTestClient(t, fake, false)

	if _, err := client.ListMetrics(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if fake.listCalls != 1 {
		t.Fatalf("this layer must not retry, got %d calls", fake.listCalls)
	}
}
