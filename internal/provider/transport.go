package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/mrz1836/testament/internal/metrics"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

const maxResponseBytes = 10 << 20

// Transport is a minimal JSON-RPC 2.0 client over HTTP.
type Transport struct {
	url        string
	label      string
	httpClient *http.Client
	idCounter  atomic.Uint64
	limiter    *RateLimiter
	logger     Logger
	metrics    *metrics.Metrics
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.httpClient = c }
}

// WithRateLimiter paces requests through l.
func WithRateLimiter(l *RateLimiter) TransportOption {
	return func(t *Transport) { t.limiter = l }
}

// WithLogger sets the transport logger.
func WithLogger(l Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics overrides the metrics sink (metrics.Global by default).
func WithMetrics(m *metrics.Metrics) TransportOption {
	return func(t *Transport) { t.metrics = m }
}

// NewTransport creates a JSON-RPC transport for endpoint.
func NewTransport(endpoint string, opts ...TransportOption) *Transport {
	t := &Transport{
		url:        endpoint,
		label:      endpointLabel(endpoint),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     nopLogger{},
		metrics:    metrics.Global,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Endpoint returns the endpoint with any credentials removed.
func (t *Transport) Endpoint() string {
	return t.label
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Call performs a JSON-RPC call. Errors returned by the node come back as
// *Error; transport failures wrap ErrNetworkError.
func (t *Transport) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx, method); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result, err := t.call(ctx, method, params)
	t.metrics.RecordRPCCall(time.Since(start), err)

	if err != nil {
		t.logger.Debug("rpc %s on %s failed after %s: %v", method, t.label, time.Since(start), err)
		return nil, err
	}
	t.logger.Debug("rpc %s on %s took %s", method, t.label, time.Since(start))
	return result, nil
}

func (t *Transport) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      t.idCounter.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, networkError(method, t.label, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(method, t.label, fmt.Errorf("reading response body: %w", err))
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, networkError(method, t.label, fmt.Errorf("HTTP %d", httpResp.StatusCode))
		}
		return nil, networkError(method, t.label, fmt.Errorf("unmarshaling response: %w", err))
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

func networkError(method, endpoint string, cause error) error {
	return tmerr.WithDetails(tmerr.Because(tmerr.ErrNetworkError, cause), map[string]string{
		"method":   method,
		"endpoint": endpoint,
	})
}

// endpointLabel strips userinfo and query strings, which may carry API keys.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
