// Package configcmder provides the config command for managing persistent
// tokentap configuration stored in the .tokentap/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tokentap/pkg/cliui"
	"github.com/papercomputeco/tokentap/pkg/config"
)

const configLongDesc string = `Manage persistent tokentap configuration.

Configuration is stored as config.toml in the .tokentap/ directory and
provides default values for command flags. CLI flags and TOKENTAP_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.endpoint, client.timeout_seconds,
  generation.temperature, generation.max_tokens,
  transport.rate_limit, transport.rate_burst,
  transport.breaker_max_failures, transport.breaker_timeout_seconds,
  events.provider, events.brokers, events.topic,
  tracing.enabled, tracing.exporter

Use subcommands to get, set, or list configuration values:
  tokentap config set <key> <value>    Set a configuration value
  tokentap config get <key>            Get a configuration value
  tokentap config list                 List all configuration values

Examples:
  tokentap config set client.endpoint http://localhost:8000/stream
  tokentap config set generation.temperature 0.2
  tokentap config get generation.max_tokens
  tokentap config list`

const configShortDesc string = "Manage persistent tokentap configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// completeKeys completes the first positional argument with config keys.
func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// openConfiger validates key (when given) and resolves the config file,
// printing which file is in use.
func openConfiger(w io.Writer, key, configDir string) (*config.Configer, error) {
	if key != "" && !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	return cfger, nil
}
