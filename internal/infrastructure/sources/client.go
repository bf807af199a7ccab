package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const defaultRequestTimeout = 10 * time.Second

// restClient is the shared request helper behind every adapter: one
// token-bucket limiter per source, queried before each request.
type restClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

func newRESTClient(baseURL string, ratePerSec float64, burst int) *restClient {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &restClient{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// parseFloat tolerates the string-encoded numerics most ticker APIs emit.
// Invalid or empty values map to zero, which the quality score penalizes.
func parseFloat(value string) float64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}
