package raceapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; the view talks to a single host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

const (
	poolsPath       = "race/getPools"
	leaderboardPath = "race/getLeaderboard"

	requestIDHeader = "X-Request-ID"
)

// ErrNotSequence is returned when a payload that must be a JSON array is not.
var ErrNotSequence = errors.New("payload is not a sequence")

// Response holds the raw result of an HTTP request made by [Client].
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// RequestID is the value sent in the X-Request-ID header.
	RequestID string

	// Error contains any transport error that occurred.
	Error error
}

// Client is an HTTP client for the race pool service.
//
// Client uses per-request timeouts via context rather than a global timeout.
// Response bodies are limited to 1MB. The HTTP status code is not used to
// classify responses; the body is always decoded, because the service
// reports failures inside the JSON envelope.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    map[string]string
	timeout    time.Duration
}

// NewClient creates a [Client] for the service rooted at baseURL.
//
// headers are sent with every request. timeout bounds each request; it must
// be positive.
func NewClient(baseURL string, headers map[string]string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("base url must have a host")
	}
	if timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}

	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		baseURL: u,
		headers: headers,
		timeout: timeout,
	}, nil
}

// PoolsURL returns the absolute URL of the pool list endpoint.
func (c *Client) PoolsURL() string {
	return c.baseURL.JoinPath(poolsPath).String()
}

// LeaderboardURL returns the absolute URL of the leaderboard endpoint for poolID.
func (c *Client) LeaderboardURL(poolID int) string {
	u := c.baseURL.JoinPath(leaderboardPath)
	q := u.Query()
	q.Set("pool_id", strconv.Itoa(poolID))
	u.RawQuery = q.Encode()
	return u.String()
}

// GetPools fetches the pool collection.
//
// Returns [ErrNotSequence] (wrapped) if the payload decodes but is not a
// JSON array.
func (c *Client) GetPools(ctx context.Context) ([]Pool, error) {
	resp := c.fetch(ctx, c.PoolsURL())
	if resp.Error != nil {
		return nil, resp.Error
	}

	var raw json.RawMessage
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode pools: %w", err)
	}
	if !isJSONArray(raw) {
		return nil, fmt.Errorf("pools: %w", ErrNotSequence)
	}

	pools := []Pool{}
	if err := json.Unmarshal(raw, &pools); err != nil {
		return nil, fmt.Errorf("failed to decode pools: %w", err)
	}
	return pools, nil
}

// GetLeaderboard fetches the standings envelope for poolID.
//
// A returned error means the request failed or the body could not be
// decoded. A decoded envelope reporting failure is returned without error.
func (c *Client) GetLeaderboard(ctx context.Context, poolID int) (LeaderboardResponse, error) {
	resp := c.fetch(ctx, c.LeaderboardURL(poolID))
	if resp.Error != nil {
		return LeaderboardResponse{}, resp.Error
	}

	var wire leaderboardWire
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return LeaderboardResponse{}, fmt.Errorf("failed to decode leaderboard: %w", err)
	}

	out := LeaderboardResponse{
		Success:   wire.Success,
		UpdatedAt: wire.UpdatedAt,
		Message:   wire.Message,
	}
	if isJSONArray(wire.Standings) {
		standings := []StandingEntry{}
		if err := json.Unmarshal(wire.Standings, &standings); err != nil {
			return LeaderboardResponse{}, fmt.Errorf("failed to decode standings: %w", err)
		}
		out.Standings = standings
		out.HasStandings = true
	}
	return out, nil
}

// fetch performs a GET and returns a structured [Response].
//
// fetch always returns a Response; errors are captured in the Error field.
func (c *Client) fetch(ctx context.Context, target string) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Response{
			Latency:   time.Since(start),
			RequestID: requestID,
			Error:     fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency:   time.Since(start),
			RequestID: requestID,
			Error:     fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			RequestID:  requestID,
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
		RequestID:  requestID,
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
