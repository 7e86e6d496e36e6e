// Package nba is a minimal client for the stats.nba.com JSON API. The API
// is slow, rate limited, and intermittently unavailable, so every call
// retries with exponential backoff; callers are expected to cache results.
package nba

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://stats.nba.com/stats"

// Season type values accepted by the API.
const (
	SeasonTypeRegular  = "Regular Season"
	SeasonTypePlayoffs = "Playoffs"
)

// Shot type filters.
const (
	ShotTypeAll = "All"
	ShotType3PT = "3PT Field Goal"
	ShotType2PT = "2PT Field Goal"
)

// Client talks to the stats API. Construct with NewClient.
type Client struct {
	httpClient *http.Client
	baseURL    string
	delay      time.Duration
	maxRetries int
	logger     zerolog.Logger
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, for tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithDelay sets the base backoff delay between retries.
func WithDelay(d time.Duration) Option { return func(c *Client) { c.delay = d } }

// WithMaxRetries sets how many attempts each call gets.
func WithMaxRetries(n int) Option { return func(c *Client) { c.maxRetries = n } }

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient returns a client with the stock politeness settings.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		delay:      600 * time.Millisecond,
		maxRetries: 3,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	return c
}

// headers returns the request headers stats.nba.com expects; without them
// the API hangs or rejects the call.
func headers() map[string]string {
	return map[string]string{
		"Host":               "stats.nba.com",
		"User-Agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Accept":             "application/json, text/plain, */*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Connection":         "keep-alive",
		"Referer":            "https://www.nba.com/",
		"x-nba-stats-origin": "stats",
		"x-nba-stats-token":  "true",
	}
}

// resultSet is one table in the API's tabular JSON envelope.
type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

// column returns the index of a header, or -1.
func (rs resultSet) column(name string) int {
	for n, h := range rs.Headers {
		if h == name {
			return n
		}
	}
	return -1
}

type statsResponse struct {
	ResultSets []resultSet `json:"resultSets"`
}

// get performs one API call with retries. Attempts back off exponentially
// from the base delay; HTTP 429 and 5xx responses are retried like
// transport errors.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*statsResponse, error) {
	u := c.baseURL + "/" + endpoint + "?" + params.Encode()

	var lastErr error
	backoff := c.delay
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug().Str("endpoint", endpoint).Int("attempt", attempt+1).
				Dur("backoff", backoff).Msg("retrying stats API call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := c.do(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("stats API %s failed after %d attempts: %w", endpoint, c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, u string) (*statsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return nil, fmt.Errorf("stats API returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats API returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed statsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding stats API response: %w", err)
	}
	return &parsed, nil
}

// firstResultSet returns the envelope's first table.
func firstResultSet(resp *statsResponse) (resultSet, error) {
	if len(resp.ResultSets) == 0 {
		return resultSet{}, fmt.Errorf("stats API response has no result sets")
	}
	return resp.ResultSets[0], nil
}

// Cell coercion helpers: the API encodes numbers as JSON numbers and
// occasionally as strings, and uses null for absent values.

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%v", s)
	default:
		return ""
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var out int
		fmt.Sscanf(n, "%d", &out) //nolint:errcheck // zero on failure is the wanted fallback
		return out
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		var out float64
		fmt.Sscanf(n, "%g", &out) //nolint:errcheck // zero on failure is the wanted fallback
		return out
	default:
		return 0
	}
}
