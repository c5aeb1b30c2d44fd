package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/cmd/common"
	"github.com/maxgio92/xstack/pkg/cmd/options"
)

const CmdName = "status"

type Options struct {
	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := &Options{CommonOptions: opts}

	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Check the status of the %s server daemon", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		Run:               o.Run,
	}

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	if common.IsDaemonRunning() {
		pid, _ := common.ReadPid()
		fmt.Fprintf(out, "%s is running (PID %d)\n", settings.CmdName, pid)
	} else {
		fmt.Fprintf(out, "%s is not running\n", settings.CmdName)
	}
}
