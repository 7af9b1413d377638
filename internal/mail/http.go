package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/imparable/imparable/internal/config"
)

// HTTPClient posts payloads with retries on rate limiting and server errors.
type HTTPClient struct {
	client     *http.Client
	maxRetries int
	retryDelay []time.Duration
}

// NewHTTPClient creates a client from the outbound HTTP configuration.
func NewHTTPClient(cfg config.HTTPConfig) *HTTPClient {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &HTTPClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelays,
	}
}

// SendResult contains the result of a send operation.
type SendResult struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Attempts   int
	Error      error
}

// Post sends body to url, retrying up to maxRetries attempts in total.
// 429 and 5xx responses are retried; other 4xx responses are final.
func (c *HTTPClient) Post(ctx context.Context, url string, header http.Header, body []byte) *SendResult {
	result := &SendResult{}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		result.Attempts = attempt + 1

		if attempt < len(c.retryDelay) && c.retryDelay[attempt] > 0 {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				return result
			case <-time.After(c.retryDelay[attempt]):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			result.Error = fmt.Errorf("creating request: %w", err)
			return result
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("User-Agent", "Imparable/1.0")

		resp, err := c.client.Do(req)
		if err != nil {
			result.Error = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				return result
			}
			continue
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		result.StatusCode = resp.StatusCode
		result.Body = respBody

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result.Error = nil
			return result
		case resp.StatusCode == http.StatusTooManyRequests:
			result.Error = fmt.Errorf("rate limited (HTTP 429)")
		case resp.StatusCode >= 500:
			result.Error = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, respBody)
		default:
			result.Error = fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, respBody)
			return result
		}
	}

	if result.Error == nil {
		result.Error = fmt.Errorf("max retries exceeded")
	}
	return result
}
