// Package tokentapcmder
package tokentapcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/tokentap/cmd/tokentap/ask"
	configcmder "github.com/papercomputeco/tokentap/cmd/tokentap/config"
	initcmder "github.com/papercomputeco/tokentap/cmd/tokentap/init"
	tuicmder "github.com/papercomputeco/tokentap/cmd/tokentap/tui"
	versioncmder "github.com/papercomputeco/tokentap/cmd/version"
)

const tokentapLongDesc string = `tokentap streams answers from a server-sent events endpoint and
measures them as they arrive: time to first token, token count,
duration and tokens per second.

Run it using:
  tokentap ask "why is the sky blue?"   Stream one answer to stdout
  tokentap tui                          Start the interactive terminal UI`

const tokentapShortDesc string = "tokentap - streaming answer client"

func NewTokentapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tokentap",
		Short:        tokentapShortDesc,
		Long:         tokentapLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .tokentap/ config directory")

	// Add subcommands
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(tuicmder.NewTUICmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
