package royale

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clan_war_bot/internal/config"

	"github.com/rs/zerolog/log"
	"resty.dev/v3"
)

// DefaultBaseURL is the RoyaleAPI proxy in front of the official API
const DefaultBaseURL = "https://proxy.royaleapi.dev/v1"

// Client issues authenticated GET requests against the game API
type Client struct {
	client       *resty.Client
	apiCallCount int64
	apiCallMutex sync.Mutex
}

// NewClient creates a client that sends the bearer token and a JSON accept header on every request
func NewClient(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.APIRequestTimeout
	}
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetAuthToken(token).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) incrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the number of requests that reached the API
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// ResetAPICallCount resets the API call counter to zero
func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

// GetJSON performs a GET and returns the body of a 2xx response.
// Transport failures and non-2xx statuses are returned as errors.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		log.Debug().
			Err(err).
			Str("url", url).
			Msg("API request failed")
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	c.incrementAPICall()

	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, &StatusError{URL: url, StatusCode: status, Body: truncate(resp.String(), 200)}
	}

	return resp.Bytes(), nil
}

// StatusError reports a non-2xx response
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
