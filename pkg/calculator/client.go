// Package calculator is a client for the formula calculator service.
package calculator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/radreport/internal/resilience"
)

const defaultBaseURL = "http://localhost:8081"

// Client evaluates formulas against the calculator service.
type Client interface {
	Compute(ctx context.Context, reqs []Request) ([]Result, error)
	Health(ctx context.Context) (*HealthStatus, error)
}

// Request is one formula evaluation, addressed by calculator function name.
type Request struct {
	Formula string         `json:"formula"`
	Inputs  map[string]any `json:"inputs"`
	RefID   string         `json:"ref_id"`
}

// Result is one evaluation result. Error is set when the service could not
// evaluate the formula; the batch as a whole still succeeds.
type Result struct {
	RefID   string `json:"ref_id"`
	Formula string `json:"formula"`
	Result  any    `json:"result"`
	Error   string `json:"error,omitempty"`
}

// HealthStatus is the response of GET /health.
type HealthStatus struct {
	Status            string   `json:"status"`
	FormulasAvailable []string `json:"formulas_available"`
}

type batch struct {
	Requests []Request `json:"requests"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second to the service.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a calculator service client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("calculator", "compute")
	}
	return c
}

func (c *httpClient) Compute(ctx context.Context, reqs []Request) ([]Result, error) {
	body, err := json.Marshal(batch{Requests: reqs})
	if err != nil {
		return nil, eris.Wrap(err, "calculator: marshal request")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]Result, error) {
		respBody, err := c.do(ctx, http.MethodPost, "/compute", body)
		if err != nil {
			return nil, err
		}
		var results []Result
		if err := json.Unmarshal(respBody, &results); err != nil {
			return nil, eris.Wrap(err, "calculator: unmarshal response")
		}
		return results, nil
	})
}

func (c *httpClient) Health(ctx context.Context) (*HealthStatus, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var status HealthStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, eris.Wrap(err, "calculator: unmarshal health")
	}
	return &status, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "calculator: rate limit wait")
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrap(err, "calculator: create request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "calculator: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "calculator: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("calculator: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	return respBody, nil
}
