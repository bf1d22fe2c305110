package config

const (
	defaultEndpoint       = "http://localhost:8000/stream"
	defaultTimeoutSeconds = 300

	defaultTemperature = 0.7
	defaultMaxTokens   = 2048

	defaultRateBurst             = 1
	defaultBreakerMaxFailures    = 5
	defaultBreakerTimeoutSeconds = 30

	defaultEventsProvider = EventsProviderNop
	defaultEventsTopic    = "tokentap.sessions"

	defaultTraceExporter = "stdout"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Endpoint:       defaultEndpoint,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Generation: GenerationConfig{
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		},
		Transport: TransportConfig{
			RateBurst:             defaultRateBurst,
			BreakerMaxFailures:    defaultBreakerMaxFailures,
			BreakerTimeoutSeconds: defaultBreakerTimeoutSeconds,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Tracing: TracingConfig{
			Exporter: defaultTraceExporter,
		},
	}
}
