package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --endpoint
// on both "tokentap ask" and "tokentap tui").
type Flag struct {
	// Name is the long flag name (e.g. "endpoint").
	Name string

	// Shorthand is the one-letter short flag (e.g. "e"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.endpoint").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling the Add*Flag helpers and
// BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagEndpoint       = "endpoint"
	FlagTimeout        = "timeout"
	FlagTemperature    = "temperature"
	FlagMaxTokens      = "max-tokens"
	FlagEventsProvider = "events-provider"
	FlagEventsBrokers  = "events-brokers"
	FlagEventsTopic    = "events-topic"
	FlagTrace          = "trace"
)

// Flags is the registry shared by the streaming commands.
var Flags = FlagSet{
	FlagEndpoint:       {Name: "endpoint", Shorthand: "e", ViperKey: "client.endpoint", Description: "Streaming endpoint URL"},
	FlagTimeout:        {Name: "timeout", ViperKey: "client.timeout_seconds", Description: "Request timeout in seconds, including the whole stream"},
	FlagTemperature:    {Name: "temperature", Shorthand: "t", ViperKey: "generation.temperature", Description: "Sampling temperature (0-1)"},
	FlagMaxTokens:      {Name: "max-tokens", Shorthand: "n", ViperKey: "generation.max_tokens", Description: "Maximum tokens to generate (1-4096)"},
	FlagEventsProvider: {Name: "events-provider", ViperKey: "events.provider", Description: "Session event publisher (nop, kafka)"},
	FlagEventsBrokers:  {Name: "events-brokers", ViperKey: "events.brokers", Description: "Kafka brokers for session events"},
	FlagEventsTopic:    {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for session events"},
	FlagTrace:          {Name: "trace", ViperKey: "tracing.enabled", Description: "Export OpenTelemetry spans for each session"},
}

// StreamFlagKeys are the registry keys bound by the streaming commands.
var StreamFlagKeys = []string{
	FlagEndpoint,
	FlagTimeout,
	FlagTemperature,
	FlagMaxTokens,
	FlagEventsProvider,
	FlagEventsBrokers,
	FlagEventsTopic,
	FlagTrace,
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a comma separated string slice flag on cmd
// from the given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *[]string) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStreamFlags registers every flag in StreamFlagKeys on cmd, writing
// parsed values into a throwaway Config. Commands read the effective values
// back through viper after BindRegisteredFlags.
func AddStreamFlags(cmd *cobra.Command) {
	var sink Config
	AddStringFlag(cmd, Flags, FlagEndpoint, &sink.Client.Endpoint)
	AddUintFlag(cmd, Flags, FlagTimeout, &sink.Client.TimeoutSeconds)
	AddFloatFlag(cmd, Flags, FlagTemperature, &sink.Generation.Temperature)
	AddUintFlag(cmd, Flags, FlagMaxTokens, &sink.Generation.MaxTokens)
	AddStringFlag(cmd, Flags, FlagEventsProvider, &sink.Events.Provider)
	AddStringSliceFlag(cmd, Flags, FlagEventsBrokers, &sink.Events.Brokers)
	AddStringFlag(cmd, Flags, FlagEventsTopic, &sink.Events.Topic)
	AddBoolFlag(cmd, Flags, FlagTrace, &sink.Tracing.Enabled)
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper populated only with NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
