package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/healthcheck"
)

const (
	CmdName = "wait"

	defaultTimeout = 120 * time.Second
)

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Wait for the %s server to be ready to answer queries", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		RunE:              o.Run,
	}

	if o.socketPath == "" {
		o.socketPath = settings.HealthCheckSockPath
	}
	if o.timeout == 0 {
		o.timeout = defaultTimeout
	}
	cmd.Flags().StringVarP(&o.socketPath, "socket-path", "s", o.socketPath, fmt.Sprintf("Path to the %s socket file", settings.CmdName))
	cmd.Flags().DurationVar(&o.timeout, "timeout", o.timeout, "Timeout")
	cmd.Flags().DurationVar(&o.retryInterval, "retry-interval", healthcheck.DefaultRetryInterval, "Interval between readiness probes")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := o.Init(cmd, CmdName); err != nil {
		return err
	}

	o.Logger.Info().Msg("waiting for the server to be ready")

	ctx, cancel := context.WithTimeout(o.Ctx, o.timeout)
	defer cancel()

	status, err := healthcheck.WaitReady(ctx, o.socketPath, o.retryInterval)
	if err != nil {
		return errors.Wrap(err, "server is not ready")
	}
	o.Logger.Info().Str("addr", status.Addr).Msg("server is ready")
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d samples over %d paths at %s\n", status.Samples, status.Paths, status.URL())

	return nil
}
