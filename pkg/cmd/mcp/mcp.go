package mcp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/cmd/common"
	"github.com/maxgio92/xstack/pkg/cmd/options"
	"github.com/maxgio92/xstack/pkg/mcp"
)

const CmdName = "mcp"

// Version is reported to MCP clients.
var Version = "dev"

type Options struct {
	options.InputOptions
	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := new(Options)
	o.CommonOptions = opts

	cmd := &cobra.Command{
		Use:   CmdName + " [input...]",
		Short: "Serve the report of stack samples as MCP tools over stdio",
		Long: fmt.Sprintf(`
%s aggregates the stack samples read from the inputs and serves the %s views as
Model Context Protocol tools on the standard input and output.
`, CmdName, settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.MinimumNArgs(1),
		RunE:              o.Run,
	}

	o.InputOptions.AddFlags(cmd)

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, args []string) error {
	if err := o.Init(cmd, CmdName); err != nil {
		return err
	}
	o.InputOptions.Apply(cmd, o.Config)

	agg, err := common.Ingest(o.CommonOptions, &o.InputOptions, common.IngestOptions{Inputs: args})
	if err != nil {
		return err
	}

	tools, err := mcp.NewTools(agg, mcp.WithLogger(o.Logger))
	if err != nil {
		return err
	}

	return mcp.ServeStdio(tools.NewServer(Version))
}
