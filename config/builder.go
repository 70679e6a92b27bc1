package config

import (
	"sort"

	"github.com/jpalmerr/racescreen"
)

// BuildSource converts the service settings into an SDK Source.
func BuildSource(cfg *Config) (racescreen.Source, error) {
	var opts []racescreen.SourceOption

	if cfg.RequestTimeout != 0 {
		opts = append(opts, racescreen.WithTimeout(cfg.RequestTimeout.Duration()))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, racescreen.WithHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}

	return racescreen.NewSource(cfg.BaseURL, opts...)
}

// BuildOptions converts parsed configuration into SDK options.
//
// Logger, clock and callbacks are not part of the file format; callers
// append their own options to the returned slice.
func BuildOptions(cfg *Config) ([]racescreen.Option, error) {
	src, err := BuildSource(cfg)
	if err != nil {
		return nil, err
	}

	opts := []racescreen.Option{
		racescreen.WithSource(src),
		racescreen.WithPollingInterval(cfg.PollInterval.Duration()),
		racescreen.WithPort(cfg.Port),
	}

	if cfg.Title != "" {
		opts = append(opts, racescreen.WithTitle(cfg.Title))
	}

	if cfg.TimeZone != "" {
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		opts = append(opts, racescreen.WithLocation(loc))
	}

	if cfg.TimeFormat != "" {
		opts = append(opts, racescreen.WithTimeFormat(cfg.TimeFormat))
	}

	if len(cfg.CORSOrigins) > 0 {
		opts = append(opts, racescreen.WithCORSOrigins(cfg.CORSOrigins...))
	}

	return opts, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
