package driftmail

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBuildEventDocumentShape(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	doc, err := BuildEventDocument(Event{
		Metric:     "Placed Order",
		Email:      "jo@example.com",
		Properties: map[string]any{"order_id": "A-100"},
		Value:      49.90,
		UniqueID:   "evt-1",
		Time:       ts,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Data.Type != "event" {
		t.Fatalf("type = %q", doc.Data.Type)
	}
	if doc.Data.Attributes["time"] != "2026-03-14T09:26:53Z" {
		t.Fatalf("time = %v", doc.Data.Attributes["time"])
	}
	if doc.Data.Attributes["unique_id"] != "evt-1" {
		t.Fatalf("unique_id = %v", doc.Data.Attributes["unique_id"])
	}
	if doc.Data.Attributes["value"] != 49.90 {
		t.Fatalf("value = %v", doc.Data.Attributes["value"])
	}

	metric, ok := doc.Data.Attributes["metric"].(Document)
	if !ok || metric.Data.Type != "metric" || metric.Data.Attributes["name"] != "Placed Order" {
		t.Fatalf("metric = %+v", doc.Data.Attributes["metric"])
	}
	profile, ok := doc.Data.Attributes["profile"].(Document)
	if !ok || profile.Data.Type != "profile" || profile.Data.Attributes["email"] != "jo@example.com" {
		t.Fatalf("profile = %+v", doc.Data.Attributes["profile"])
	}
}

func TestBuildEventDocumentDefaults(t *testing.T) {
	before := time.Now().UTC()
	doc, err := BuildEventDocument(Event{Metric: "Viewed Product", Email: "jo@example.com"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ts, err := time.Parse(time.RFC3339, doc.Data.Attributes["time"].(string))
	if err != nil {
		t.Fatalf("default time not RFC 3339: %v", err)
	}
	if ts.Before(before.Truncate(time.Second)) || ts.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("default time out of range: %v", ts)
	}
	if doc.Data.Attributes["unique_id"] == "" {
		t.Fatal("expected generated unique_id")
	}
	if _, present := doc.Data.Attributes["value"]; present {
		t.Fatal("zero value must be omitted")
	}
	if props := doc.Data.Attributes["properties"].(map[string]any); len(props) != 0 {
		t.Fatalf("expected empty properties, got %v", props)
	}
}

func TestBuildEventDocumentValidation(t *testing.T) {
	if _, err := BuildEventDocument(Event{Email: "jo@example.com"}); err == nil {
		t.Fatal("expected error for missing metric")
	}
	if _, err := BuildEventDocument(Event{Metric: "Placed Order"}); err == nil {
		t.Fatal("expected error for missing email")
	}
}

func TestBuildProfileDocument(t *testing.T) {
	doc, err := BuildProfileDocument(Profile{
		Email:      "jo@example.com",
		FirstName:  "Jo",
		Properties: map[string]any{"tier": "gold"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Data.Type != "profile" {
		t.Fatalf("type = %q", doc.Data.Type)
	}
	if doc.Data.Attributes["email"] != "jo@example.com" || doc.Data.Attributes["first_name"] != "Jo" {
		t.Fatalf("attributes = %v", doc.Data.Attributes)
	}
	if _, present := doc.Data.Attributes["last_name"]; present {
		t.Fatal("empty fields must be omitted")
	}

	if _, err := BuildProfileDocument(Profile{}); err == nil {
		t.Fatal("expected error for missing email")
	}
}

func TestBuildSubscriptionDocumentRelatesList(t *testing.T) {
	doc, err := BuildSubscriptionDocument("jo@example.com", "list-9")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	list, ok := doc.Data.Relationships["list"]
	if !ok || list.Data.Type != "list" || list.Data.ID != "list-9" {
		t.Fatalf("relationships = %+v", doc.Data.Relationships)
	}

	// The relationship resource must serialize without a null attributes key.
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data := decoded["data"].(map[string]any)
	rel := data["relationships"].(map[string]any)["list"].(map[string]any)["data"].(map[string]any)
	if _, present := rel["attributes"]; present {
		t.Fatalf("relationship carries attributes: %v", rel)
	}

	if _, err := BuildSubscriptionDocument("", "list-9"); err == nil {
		t.Fatal("expected error for missing email")
	}
	if _, err := BuildSubscriptionDocument("jo@example.com", ""); err == nil {
		t.Fatal("expected error for missing list id")
	}
}

func TestBuildWebhookDocument(t *testing.T) {
	doc, err := BuildWebhookDocument("https://shop.example.com/hooks", []string{"email_delivered", "unsubscribed"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Data.Type != "webhook" {
		t.Fatalf("type = %q", doc.Data.Type)
	}
	if doc.Data.Attributes["endpoint_url"] != "https://shop.example.com/hooks" {
		t.Fatalf("attributes = %v", doc.Data.Attributes)
	}
	if _, err := BuildWebhookDocument("", nil); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
