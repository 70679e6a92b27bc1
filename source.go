package racescreen

import (
	"errors"
	"net/url"
	"time"
)

const defaultSourceTimeout = 10 * time.Second

// Source is the race pool service a [RaceScreen] reads from.
//
// Source is immutable after creation via [NewSource]. All fields are private
// with getter methods that return copies of mutable data (maps).
//
// Sources are configured using [SourceOption] functions such as
// [WithHeaders] and [WithTimeout].
type Source struct {
	baseURL string
	headers map[string]string
	timeout time.Duration
}

// BaseURL returns the service root. Requests go to
// {base}/race/getPools and {base}/race/getLeaderboard.
func (s Source) BaseURL() string {
	return s.baseURL
}

// Headers returns a copy of the custom HTTP headers sent with every request.
// Returns nil if no custom headers are set.
func (s Source) Headers() map[string]string {
	return copyMap(s.headers)
}

// Timeout returns the per-request timeout.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// NewSource creates a [Source] for the service rooted at baseURL.
//
// The baseURL must be an absolute http:// or https:// URL.
//
// Example:
//
//	src, err := racescreen.NewSource("https://pools.example.com",
//	    racescreen.WithHeaders("Authorization", "Bearer token123"),
//	    racescreen.WithTimeout(5 * time.Second),
//	)
func NewSource(baseURL string, opts ...SourceOption) (Source, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return Source{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Source{}, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsedURL.Host == "" {
		return Source{}, errors.New("URL must have a host")
	}

	cfg := &sourceConfig{
		headers: make(map[string]string),
		timeout: defaultSourceTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	return Source{
		baseURL: baseURL,
		headers: cfg.headers,
		timeout: cfg.timeout,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
