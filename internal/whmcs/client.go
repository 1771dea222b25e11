package whmcs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	maxRetries   = 2
	retryBackoff = 500 * time.Millisecond
)

// Params are the request parameters for a single API action.
type Params map[string]string

// Client is the hardened transport for the remote billing API. Every call
// carries the configured credentials and a JSON response-format field;
// callers never pass these.
type Client struct {
	endpoint   string
	identifier string
	secret     string
	httpClient *http.Client
	log        *zap.Logger
	metrics    *metrics.Metrics

	defaultTimeout time.Duration
	uploadTimeout  time.Duration
	// slowActions get an extended timeout because the remote side chains
	// a second outbound call before answering.
	slowActions map[string]time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithSlowActions registers per-action timeout overrides.
func WithSlowActions(actions map[string]time.Duration) Option {
	return func(c *Client) {
		c.slowActions = actions
	}
}

// WithMetrics attaches call counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a client for one endpoint.
func NewClient(endpoint, identifier, secret string, defaultTimeout, uploadTimeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	c := &Client{
		endpoint:       strings.TrimSpace(endpoint),
		identifier:     strings.TrimSpace(identifier),
		secret:         strings.TrimSpace(secret),
		httpClient:     &http.Client{},
		log:            log,
		defaultTimeout: defaultTimeout,
		uploadTimeout:  uploadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one API action and returns the decoded response body.
//
// Connection-level failures are retried up to two more times with a fixed
// backoff. HTTP error statuses and well-formed error payloads are
// deterministic and never retried.
func (c *Client) Call(ctx context.Context, action string, params Params) (map[string]any, error) {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("action", action)
	values.Set("identifier", c.identifier)
	values.Set("secret", c.secret)
	values.Set("responsetype", "json")

	log := logger.WithContext(ctx, c.log)
	log.Info("whmcs_call",
		zap.String("action", action),
		zap.Any("params", logger.RedactValues(values)),
	)

	timeout := c.timeoutFor(action, params)
	body := values.Encode()

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, transportError(action, ctx.Err())
			case <-time.After(retryBackoff):
			}
		}

		result, apiErr := c.doAttempt(ctx, action, body, timeout)
		if apiErr == nil {
			c.count(action, "ok")
			return result, nil
		}
		lastErr = apiErr
		if apiErr.Kind != KindTransport || ctx.Err() != nil {
			break
		}
		log.Warn("whmcs_call_retry",
			zap.String("action", action),
			zap.Int("attempt", attempt+1),
			zap.String("error", apiErr.Message),
		)
	}

	c.count(action, string(lastErr.Kind))
	if c.metrics != nil {
		c.metrics.RecordRemoteError(action, string(lastErr.Kind))
	}
	log.Error("whmcs_call_failed",
		zap.String("action", action),
		zap.String("kind", string(lastErr.Kind)),
		zap.String("error", lastErr.Message),
	)
	return nil, lastErr
}

// CallSafe performs a call and converts any failure into an error-shaped
// response map, so read paths degrade to "no data" instead of failing.
func (c *Client) CallSafe(ctx context.Context, action string, params Params) map[string]any {
	result, err := c.Call(ctx, action, params)
	if err != nil {
		message := genericInternalMessage
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Kind == KindDomain {
			message = apiErr.UserMessage()
		}
		return map[string]any{
			"result":  "error",
			"message": message,
		}
	}
	return result
}

func (c *Client) doAttempt(ctx context.Context, action, body string, timeout time.Duration) (map[string]any, *APIError) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, invalidResponseError(action, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(action, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, transportError(action, err)
	}

	return classify(action, resp.StatusCode, payload)
}

// classify sorts a completed HTTP exchange into the error taxonomy.
func classify(action string, status int, payload []byte) (map[string]any, *APIError) {
	var decoded map[string]any
	parseErr := json.Unmarshal(payload, &decoded)

	if status >= http.StatusBadRequest {
		if parseErr == nil {
			if message := responseError(decoded); message != "" {
				return nil, domainError(action, message)
			}
		}
		return nil, invalidResponseError(action, http.StatusText(status))
	}

	if parseErr != nil || decoded == nil {
		return nil, invalidResponseError(action, "response body is not valid JSON")
	}
	if message := responseError(decoded); message != "" {
		return nil, domainError(action, message)
	}
	if !hasResultMarker(decoded) {
		return nil, invalidResponseError(action, "response is missing result marker")
	}
	return decoded, nil
}

func responseError(decoded map[string]any) string {
	result := readString(decoded, "result")
	status := readString(decoded, "status")
	if !strings.EqualFold(result, "error") && !strings.EqualFold(status, "error") {
		return ""
	}
	if message := readString(decoded, "message"); message != "" {
		return message
	}
	return "unknown error"
}

func hasResultMarker(decoded map[string]any) bool {
	return readString(decoded, "result") != "" || readString(decoded, "status") != ""
}

func (c *Client) timeoutFor(action string, params Params) time.Duration {
	if override, ok := c.slowActions[action]; ok && override > 0 {
		return override
	}
	// Calls shipping binary attachments get the longer upload window.
	for key := range params {
		if strings.Contains(strings.ToLower(key), "attachment") {
			return c.uploadTimeout
		}
	}
	return c.defaultTimeout
}

func (c *Client) count(action, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordRemoteCall(action, outcome)
	}
}
