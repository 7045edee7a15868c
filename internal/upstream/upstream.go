// Package upstream is the thin HTTP collaborator for the Driftmail API. It
// owns transport, authentication headers, and the configured transport-retry
// budget. API-level rejections are surfaced as StatusError and never retried;
// everything above this package performs zero retries of its own.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const baseUserAgent = "driftmail-go/1.0"

// Config configures a Client.
type Config struct {
	BaseURL         string
	APIKey          string
	UserAgentSuffix string
	// NumRetries is the number of additional attempts after a transport
	// failure. API rejections (any HTTP response) are terminal.
	NumRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues resource-oriented requests against the API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	retries    int
	httpClient *http.Client
	log        *slog.Logger
}

// StatusError is an API-level rejection (non-2xx response).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api rejected request: status=%d body=%s", e.StatusCode, e.Body)
}

// New builds a Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := baseUserAgent
	if suffix := strings.TrimSpace(cfg.UserAgentSuffix); suffix != "" {
		userAgent += " " + suffix
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	retries := cfg.NumRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		userAgent:  userAgent,
		retries:    retries,
		httpClient: httpClient,
		log:        log,
	}
}

// CreateResource POSTs a resource document and returns the raw response body
// (empty on 204).
func (c *Client) CreateResource(ctx context.Context, path string, document any) (json.RawMessage, error) {
	body, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// ListResources GETs a collection endpoint and returns the entries of its
// top-level data array.
func (c *Client) ListResources(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var out json.RawMessage
	backoff := retry.WithMaxRetries(uint64(c.retries), retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn("transport failure", "method", method, "path", path, "error", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
		if err != nil {
			c.log.Warn("transport failure", "method", method, "path", path, "error", err)
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
		}
		out = payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
