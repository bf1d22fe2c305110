// Package askcmder provides the ask command, which streams a single answer
// to stdout and reports its metrics.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/tokentap/pkg/client"
	"github.com/papercomputeco/tokentap/pkg/cliui"
	"github.com/papercomputeco/tokentap/pkg/config"
	"github.com/papercomputeco/tokentap/pkg/logger"
	"github.com/papercomputeco/tokentap/pkg/session"
)

const closeTimeout = 10 * time.Second

const askLongDesc string = `Ask a question and stream the answer to stdout.

Tokens are printed as they arrive. When the stream ends, a metrics line
with time to first token, token count, duration and tokens per second is
written to stderr. Ctrl+C stops the stream; the partial answer and its
metrics are kept.

Without arguments the question is read from stdin.

Examples:
  tokentap ask "why is the sky blue?"
  tokentap ask -t 0 -n 256 "summarize RFC 9110 in one line"
  echo "hello" | tokentap ask --endpoint http://localhost:8000/stream
  tokentap ask --markdown "write a haiku about rivers"`

const askShortDesc string = "Stream one answer from the configured endpoint"

type askCommander struct {
	markdown bool
	raw      bool
	logFile  string
	debug    bool

	cfg *config.Config

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger *slog.Logger
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: askShortDesc,
		Long:  askLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, config.StreamFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			query, err := cmder.query(args)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), query)
		},
	}

	config.AddStreamFlags(cmd)
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the finished answer as markdown instead of streaming raw tokens")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Mirror the raw event stream to stderr")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// query joins args, falling back to stdin when it is not a terminal.
func (c *askCommander) query(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return "", session.ErrEmptyQuery
	}

	data, err := io.ReadAll(c.in)
	if err != nil {
		return "", fmt.Errorf("reading question from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *askCommander) run(ctx context.Context, query string) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var answer strings.Builder
	listener := session.ListenerFuncs{
		StatusChange: func(state session.State) {
			c.logger.Debug("status changed", "state", state.String())
		},
		TokenAppended: func(text string) {
			if c.markdown {
				answer.WriteString(text)
				return
			}
			fmt.Fprint(c.out, text)
		},
	}

	opts := client.Options{
		Config:      c.cfg,
		Listener:    listener,
		TraceWriter: c.errOut,
		Logger:      c.logger,
	}
	if c.raw {
		opts.RawSink = c.errOut
	}

	cl, err := client.New(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := cl.Close(closeCtx); err != nil {
			c.logger.Warn("closing client", "error", err)
		}
	}()

	s, err := cl.Controller.Start(ctx, query, cl.DefaultOptions())
	if err != nil {
		return err
	}
	result := s.Wait()

	if c.markdown {
		c.printMarkdown(answer.String())
	} else if result.Text != "" {
		fmt.Fprintln(c.out)
	}

	fmt.Fprintf(c.errOut, "%s %s  %s\n",
		cliui.StateMark(result.State),
		cliui.DimStyle.Render(result.State.Status()),
		cliui.FormatMetrics(result.MetricsUpdate()).Line(),
	)

	if result.State == session.StateErrored {
		return result.Err
	}
	return nil
}

func (c *askCommander) printMarkdown(content string) {
	if content == "" {
		return
	}

	width := 0
	if f, ok := c.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil { //nolint:gosec // fd fits in int
			width = w
		}
	}

	rendered, err := cliui.RenderMarkdown(content, width)
	if err != nil {
		c.logger.Debug("rendering markdown", "error", err)
	}
	fmt.Fprint(c.out, rendered)
}

// setupLogger logs warnings to stderr (everything with --debug) and, with
// --log-file, every record as JSON to the file.
func (c *askCommander) setupLogger() (func(), error) {
	level := slog.LevelWarn
	if c.debug {
		level = slog.LevelDebug
	}
	console := logger.New(logger.WithWriter(c.errOut), logger.WithPretty(true), logger.WithLevel(level))

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(
		console,
		logger.New(logger.WithWriter(f), logger.WithJSON(true), logger.WithDebug(true)),
	)
	return func() { _ = f.Close() }, nil
}
