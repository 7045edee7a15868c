package driftmail

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Document is the nested resource shape the API expects:
// {"data":{"type":...,"attributes":...,"relationships":...}}.
type Document struct {
	Data Resource `json:"data"`
}

// Resource is the inner resource object of a Document.
type Resource struct {
	Type          string              `json:"type"`
	ID            string              `json:"id,omitempty"`
	Attributes    map[string]any      `json:"attributes,omitempty"`
	Relationships map[string]Document `json:"relationships,omitempty"`
}

// Event is a tracked metric occurrence attributed to a profile.
type Event struct {
	// Metric is the metric name, e.g. "Placed Order".
	Metric string
	// Email identifies the profile the event belongs to.
	Email      string
	Properties map[string]any
	Value      float64
	// UniqueID deduplicates repeated submissions; a fresh UUID is generated
	// when empty.
	UniqueID string
	// Time defaults to the current time when zero.
	Time time.Time
}

// Profile is the caller-facing shape for profile upserts.
type Profile struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Properties map[string]any
}

func (e Event) validate() error {
	if e.Metric == "" {
		return errors.New("missing required field: metric")
	}
	if e.Email == "" {
		return errors.New("missing required field: email")
	}
	return nil
}

func (p Profile) validate() error {
	if p.Email == "" {
		return errors.New("missing required field: email")
	}
	return nil
}

// BuildEventDocument shapes an Event into the API's event resource document.
func BuildEventDocument(e Event) (Document, error) {
	if err := e.validate(); err != nil {
		return Document{}, err
	}
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	uniqueID := e.UniqueID
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}
	properties := e.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	attributes := map[string]any{
		"properties": properties,
		"time":       ts.Format(time.RFC3339),
		"unique_id":  uniqueID,
		"metric": Document{Data: Resource{
			Type:       "metric",
			Attributes: map[string]any{"name": e.Metric},
		}},
		"profile": Document{Data: Resource{
			Type:       "profile",
			Attributes: map[string]any{"email": e.Email},
		}},
	}
	if e.Value != 0 {
		attributes["value"] = e.Value
	}
	return Document{Data: Resource{Type: "event", Attributes: attributes}}, nil
}

// BuildProfileDocument shapes a Profile into a profile resource document.
func BuildProfileDocument(p Profile) (Document, error) {
	if err := p.validate(); err != nil {
		return Document{}, err
	}
	attributes := map[string]any{"email": p.Email}
	if p.FirstName != "" {
		attributes["first_name"] = p.FirstName
	}
	if p.LastName != "" {
		attributes["last_name"] = p.LastName
	}
	if p.Phone != "" {
		attributes["phone_number"] = p.Phone
	}
	if len(p.Properties) > 0 {
		attributes["properties"] = p.Properties
	}
	return Document{Data: Resource{Type: "profile", Attributes: attributes}}, nil
}

// BuildSubscriptionDocument shapes a list subscription for email, related to
// the target list by id.
func BuildSubscriptionDocument(email, listID string) (Document, error) {
	if email == "" {
		return Document{}, errors.New("missing required field: email")
	}
	if listID == "" {
		return Document{}, errors.New("missing required field: list id")
	}
	return Document{Data: Resource{
		Type: "subscription",
		Attributes: map[string]any{
			"profile": Document{Data: Resource{
				Type:       "profile",
				Attributes: map[string]any{"email": email},
			}},
		},
		Relationships: map[string]Document{
			"list": {Data: Resource{Type: "list", ID: listID, Attributes: nil}},
		},
	}}, nil
}

// BuildWebhookDocument shapes a webhook registration for endpointURL
// subscribed to the given event types.
func BuildWebhookDocument(endpointURL string, events []string) (Document, error) {
	if endpointURL == "" {
		return Document{}, errors.New("missing required field: endpoint url")
	}
	if len(events) == 0 {
		return Document{}, errors.New("missing required field: events")
	}
	return Document{Data: Resource{
		Type: "webhook",
		Attributes: map[string]any{
			"endpoint_url": endpointURL,
			"events":       events,
		},
	}}, nil
}
