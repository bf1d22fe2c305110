// Package tuicmder provides the tui command, an interactive terminal UI for
// asking questions and watching answers and their metrics stream in.
package tuicmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tokentap/pkg/client"
	"github.com/papercomputeco/tokentap/pkg/config"
	"github.com/papercomputeco/tokentap/pkg/dotdir"
	"github.com/papercomputeco/tokentap/pkg/logger"
)

const (
	logFileName  = "tui.log"
	closeTimeout = 10 * time.Second
)

const tuiLongDesc string = `Start the interactive terminal UI.

Type a question and press enter to stream the answer. Press enter again
while it streams to stop it; the partial answer and metrics are kept.
ctrl+l clears the answer and metrics. Temperature and max tokens can be
adjusted between questions with alt+=/alt+- and alt+]/alt+[.

Logs and trace output go to tui.log in the .tokentap/ directory unless
--log-file is given. Edits to config.toml are picked up while the UI runs.

Examples:
  tokentap tui
  tokentap tui --endpoint http://localhost:8000/stream -t 0.2`

const tuiShortDesc string = "Interactive streaming UI"

type tuiCommander struct {
	configDir string
	logFile   string
	debug     bool

	cfg *config.Config
}

func NewTUICmd() *cobra.Command {
	cmder := &tuiCommander{}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: tuiShortDesc,
		Long:  tuiLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, config.StreamFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStreamFlags(cmd)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Write logs to this file (default: tui.log in the .tokentap/ directory)")

	return cmd
}

func (c *tuiCommander) run(ctx context.Context) error {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)

	logPath, err := c.logPath()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	log := logger.New(logger.WithWriter(logFile), logger.WithJSON(true), logger.WithDebug(c.debug))

	var program *bubbletea.Program
	listener := newProgramListener(func(msg bubbletea.Msg) { program.Send(msg) })

	cl, err := client.New(ctx, client.Options{
		Config:      c.cfg,
		Listener:    listener,
		TraceWriter: logFile,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := cl.Close(closeCtx); err != nil {
			log.Warn("closing client", "error", err)
		}
	}()

	m := newModel(newRunner(ctx, cl.Controller, listener), c.cfg.Client.Endpoint, cl.DefaultOptions())
	program = bubbletea.NewProgram(m,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go c.watchConfig(watchCtx, log, program)

	_, err = program.Run()
	return err
}

// watchConfig feeds config.toml edits to the program until ctx is done.
func (c *tuiCommander) watchConfig(ctx context.Context, log *slog.Logger, program *bubbletea.Program) {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		log.Warn("config reload disabled", "error", err)
		return
	}

	err = cfger.Watch(ctx, log, func(cfg *config.Config) {
		program.Send(configReloadedMsg{cfg: cfg})
	})
	if err != nil {
		log.Warn("config reload disabled", "error", err)
	}
}

func (c *tuiCommander) logPath() (string, error) {
	if c.logFile != "" {
		return c.logFile, nil
	}

	dir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFileName), nil
}
