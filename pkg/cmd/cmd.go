package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/cmd/collapse"
	"github.com/maxgio92/xstack/pkg/cmd/mcp"
	"github.com/maxgio92/xstack/pkg/cmd/options"
	"github.com/maxgio92/xstack/pkg/cmd/report"
	"github.com/maxgio92/xstack/pkg/cmd/serve"
	"github.com/maxgio92/xstack/pkg/cmd/status"
	"github.com/maxgio92/xstack/pkg/cmd/stop"
	"github.com/maxgio92/xstack/pkg/cmd/wait"
)

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   settings.CmdName,
		Short: fmt.Sprintf("%s is a stack trace profile aggregator", settings.CmdName),
		Long: fmt.Sprintf(`
%s aggregates captured stack samples into overall and self frame rankings and a call graph
over every call path, after collapsing recursive cycles, and reports them as text or
serves them for interactive drill-down.
`, settings.CmdName),
		DisableAutoGenTag: true,
	}

	cmd.PersistentFlags().StringVar(&o.LogLevel, options.FlagLogLevel, o.LogLevel, "Set the log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.PersistentFlags().StringVarP(&o.ConfigPath, options.FlagConfig, "c", o.ConfigPath, "Path to a YAML configuration file")

	cmd.AddCommand(report.NewCommand(o.CommonOptions))
	cmd.AddCommand(serve.NewCommand(o.CommonOptions))
	cmd.AddCommand(collapse.NewCommand(o.CommonOptions))
	cmd.AddCommand(mcp.NewCommand(o.CommonOptions))
	cmd.AddCommand(status.NewCommand(o.CommonOptions))
	cmd.AddCommand(stop.NewCommand(o.CommonOptions))
	cmd.AddCommand(wait.NewCommand(wait.NewOptions(wait.WithCommonOptions(o.CommonOptions))))

	return cmd
}

// Execute builds the root command and runs it. It is called by main.main().
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	opts := NewOptions(
		WithContext(ctx),
		WithLogger(logger),
	)

	if err := NewCommand(opts).Execute(); err != nil {
		cancel()
		os.Exit(1)
	}
}
