package collapse

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/pkg/cmd/common"
	"github.com/maxgio92/xstack/pkg/cmd/options"
	"github.com/maxgio92/xstack/pkg/ingest"
)

const CmdName = "collapse"

type Options struct {
	outputFile string

	options.InputOptions
	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := new(Options)
	o.CommonOptions = opts

	cmd := &cobra.Command{
		Use:   CmdName + " [input...]",
		Short: "Convert stack samples to the folded encoding",
		Long: fmt.Sprintf(`
%s aggregates the stack samples read from the inputs (or the standard input) and writes
one "<count> <frame;frame;...>" line per distinct canonical trace, most frequent first.
The output can be read back by every other command.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}

	o.InputOptions.AddFlags(cmd)
	cmd.Flags().StringVar(&o.outputFile, "output-file", "", "Write to a file instead of the standard output")

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

	return common.WriteOutput(cmd.OutOrStdout(), o.outputFile, func(out io.Writer) error {
		w := bufio.NewWriter(out)
		if err := ingest.WriteFolded(w, agg); err != nil {
			return err
		}

		return errors.Wrap(w.Flush(), "failed to write folded output")
	})
}
