package session

import (
	"fmt"
	"math"
)

// Request bounds accepted by the streaming endpoint.
const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 4096

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Options are the generation parameters sent with a query.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions returns the endpoint's default generation parameters.
func DefaultOptions() Options {
	return Options{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Validate checks the options against the endpoint's bounds.
func (o Options) Validate() error {
	if math.IsNaN(o.Temperature) || o.Temperature < MinTemperature || o.Temperature > MaxTemperature {
		return fmt.Errorf("%w: temperature %v must be between %v and %v",
			ErrInvalidOptions, o.Temperature, MinTemperature, MaxTemperature)
	}
	if o.MaxTokens < MinMaxTokens || o.MaxTokens > MaxMaxTokens {
		return fmt.Errorf("%w: max tokens %d must be between %d and %d",
			ErrInvalidOptions, o.MaxTokens, MinMaxTokens, MaxMaxTokens)
	}
	return nil
}
