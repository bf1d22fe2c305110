package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent tokentap configuration stored as
// config.toml in the .tokentap/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Client     ClientConfig     `toml:"client"`
	Generation GenerationConfig `toml:"generation"`
	Transport  TransportConfig  `toml:"transport"`
	Events     EventsConfig     `toml:"events"`
	Tracing    TracingConfig    `toml:"tracing"`
}

// ClientConfig holds settings for reaching the streaming endpoint.
// Endpoint is a full URL (scheme + host + port + path).
type ClientConfig struct {
	Endpoint       string `toml:"endpoint,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// GenerationConfig holds the default generation parameters sent with each
// query. Temperature is never omitted since zero is a meaningful value.
type GenerationConfig struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   uint    `toml:"max_tokens,omitempty"`
}

// TransportConfig holds resilience settings for opening streams.
type TransportConfig struct {
	RateLimit             float64 `toml:"rate_limit,omitempty"`
	RateBurst             uint    `toml:"rate_burst,omitempty"`
	BreakerMaxFailures    uint    `toml:"breaker_max_failures,omitempty"`
	BreakerTimeoutSeconds uint    `toml:"breaker_timeout_seconds,omitempty"`
}

// EventsConfig holds session event publishing settings.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled  bool   `toml:"enabled,omitempty"`
	Exporter string `toml:"exporter,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.endpoint": {
		get: func(c *Config) string { return c.Client.Endpoint },
		set: func(c *Config, v string) error { c.Client.Endpoint = v; return nil },
	},
	"client.timeout_seconds": uintKey("client.timeout_seconds",
		func(c *Config) *uint { return &c.Client.TimeoutSeconds }),
	"generation.temperature": floatKey("generation.temperature",
		func(c *Config) *float64 { return &c.Generation.Temperature }),
	"generation.max_tokens": uintKey("generation.max_tokens",
		func(c *Config) *uint { return &c.Generation.MaxTokens }),
	"transport.rate_limit": floatKey("transport.rate_limit",
		func(c *Config) *float64 { return &c.Transport.RateLimit }),
	"transport.rate_burst": uintKey("transport.rate_burst",
		func(c *Config) *uint { return &c.Transport.RateBurst }),
	"transport.breaker_max_failures": uintKey("transport.breaker_max_failures",
		func(c *Config) *uint { return &c.Transport.BreakerMaxFailures }),
	"transport.breaker_timeout_seconds": uintKey("transport.breaker_timeout_seconds",
		func(c *Config) *uint { return &c.Transport.BreakerTimeoutSeconds }),
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error { c.Events.Brokers = splitList(v); return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"tracing.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Tracing.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for tracing.enabled: %w", err)
			}
			c.Tracing.Enabled = b
			return nil
		},
	},
	"tracing.exporter": {
		get: func(c *Config) string { return c.Tracing.Exporter },
		set: func(c *Config, v string) error { c.Tracing.Exporter = v; return nil },
	},
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// splitList splits a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
