// Package webhook decodes and normalizes inbound Driftmail webhook payloads
// and dispatches them to a caller-supplied handler. The event taxonomy is
// not hardcoded here; arbitrary type strings ("email_delivered",
// "unsubscribed", ...) pass through the envelope untouched.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrVerifyNotImplemented is returned when signature verification is
// requested. Verification is an extension point that is not implemented;
// failing loudly here beats pretending the payload was verified.
var ErrVerifyNotImplemented = errors.New("webhook: signature verification not implemented")

// ErrDecode marks a payload that was not valid JSON.
var ErrDecode = errors.New("webhook: invalid payload")

// Envelope is the normalized form of an inbound payload. Missing fields
// default rather than fail: Type to "unknown", ID to empty, Attributes to an
// empty map. Raw retains the full decoded document.
type Envelope struct {
	Type       string
	ID         string
	Attributes map[string]any
	Raw        map[string]any
}

// Handler consumes one normalized envelope. A returned error marks the
// processing attempt failed but is never propagated as a fault.
type Handler func(Envelope) error

// Options configures a Processor.
type Options struct {
	Logger *slog.Logger
	// VerifySignatures requests payload signature verification, which is not
	// implemented; processing then fails explicitly instead of silently
	// skipping the check.
	VerifySignatures bool
}

// Processor normalizes and dispatches inbound payloads.
type Processor struct {
	log    *slog.Logger
	verify bool
}

// NewProcessor builds a Processor.
func NewProcessor(opts Options) *Processor {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Processor{log: log, verify: opts.VerifySignatures}
}

// Process decodes raw as JSON, normalizes it, and invokes handler. A decode
// failure is reported without touching the handler; a handler failure is
// caught, logged, and reported as the operation's failure.
func (p *Processor) Process(raw []byte, handler Handler) error {
	if p.verify {
		p.log.Warn("signature verification requested but not implemented, rejecting payload")
		return ErrVerifyNotImplemented
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		p.log.Error("webhook payload decode failed", "error", err)
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	envelope := Normalize(doc)
	p.log.Info("webhook received", "type", envelope.Type, "id", envelope.ID)

	if err := handler(envelope); err != nil {
		p.log.Error("webhook handler failed", "type", envelope.Type, "error", err)
		return fmt.Errorf("handle %s: %w", envelope.Type, err)
	}
	return nil
}

// Normalize extracts the envelope from a decoded payload document with the
// top-level shape {"data":{"type":...,"id":...,"attributes":{...}}}.
func Normalize(doc map[string]any) Envelope {
	envelope := Envelope{
		Type:       "unknown",
		Attributes: map[string]any{},
		Raw:        doc,
	}
	data, ok := doc["data"].(map[string]any)
	if !ok {
		return envelope
	}
	if t, ok := data["type"].(string); ok && t != "" {
		envelope.Type = t
	}
	if id, ok := data["id"].(string); ok {
		envelope.ID = id
	}
	if attrs, ok := data["attributes"].(map[string]any); ok {
		envelope.Attributes = attrs
	}
	return envelope
}
