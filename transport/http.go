package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// HTTP implements Transport over HTTP JSON-RPC.
type HTTP struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	nextID  atomic.Uint64
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) HTTPOption {
	return func(h *HTTP) {
		h.apiKey = key
	}
}

// WithRateLimit allows at most rps requests per second, waiting for a slot
// before each call. rps <= 0 disables limiting.
func WithRateLimit(rps float64) HTTPOption {
	return func(h *HTTP) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// NewHTTP creates an HTTP transport targeting the given JSON-RPC endpoint.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport/http: HTTP %d: %s", e.StatusCode, e.Body)
}

// Call sends an HTTP JSON-RPC request and returns the result bytes.
func (h *HTTP) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("transport/http: rate limit: %w", err)
		}
	}

	if params == nil {
		params = map[string]any{}
	}

	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      h.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("transport/http: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport/http: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("X-API-Key", h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport/http: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport/http: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body := string(respBody)
		if len(body) > 256 {
			body = body[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("transport/http: unmarshal response: %w", err)
	}

	if err := rpcResp.err(); err != nil {
		return nil, fmt.Errorf("transport/http: %s: %w", method, err)
	}

	return rpcResp.Result, nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
