package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/aggregate"
	"github.com/maxgio92/xstack/pkg/cmd/common"
	"github.com/maxgio92/xstack/pkg/cmd/options"
	"github.com/maxgio92/xstack/pkg/report"
)

const (
	CmdName = "report"

	OutputText  = "text"
	OutputTable = "table"
	OutputJSON  = "json"

	flagMinEntries = "min-entries"
	flagMinPercent = "min-percent"
)

var ErrUnknownOutput = errors.New("unknown output format")

type Options struct {
	output     string
	outputFile string
	truncation report.Truncation
	all        bool
	check      bool
	status     bool

	options.InputOptions
	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := new(Options)
	o.CommonOptions = opts

	cmd := &cobra.Command{
		Use:   CmdName + " [input...]",
		Short: "Print the overall, self and call graph summaries of stack samples",
		Long: fmt.Sprintf(`
%s aggregates the stack samples read from the inputs (or the standard input) and prints
the frames ranked by overall and self time, followed by the call graph around every call path.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}

	o.InputOptions.AddFlags(cmd)
	cmd.Flags().StringVarP(&o.output, "output", "o", OutputText, "Output format (text, table, json)")
	cmd.Flags().StringVar(&o.outputFile, "output-file", "", "Write the report to a file instead of the standard output")
	cmd.Flags().IntVar(&o.truncation.MinEntries, flagMinEntries, report.DefaultMinEntries,
		"Number of entries always listed before truncating")
	cmd.Flags().Float64Var(&o.truncation.MinPercent, flagMinPercent, report.DefaultMinPercent,
		"Truncate past the listed entries once their percentage drops below this value")
	cmd.Flags().BoolVar(&o.all, "all", false, "List every entry, without truncation")
	cmd.Flags().BoolVar(&o.check, "check", false, "Verify the consistency of the aggregated tables")
	cmd.Flags().BoolVar(&o.status, "status", false, fmt.Sprintf("Print the ingestion progress of %s", settings.CmdName))

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, args []string) error {
	if err := o.Init(cmd, CmdName); err != nil {
		return err
	}
	o.InputOptions.Apply(cmd, o.Config)
	if !cmd.Flags().Changed(flagMinEntries) {
		o.truncation.MinEntries = o.Config.Truncation.MinEntries
	}
	if !cmd.Flags().Changed(flagMinPercent) {
		o.truncation.MinPercent = o.Config.Truncation.MinPercent
	}
	if o.all {
		o.truncation = report.NoTruncation
	}
	if !slices.Contains([]string{OutputText, OutputTable, OutputJSON}, o.output) {
		return errors.Wrapf(ErrUnknownOutput, "%q", o.output)
	}

	agg, err := common.Ingest(o.CommonOptions, &o.InputOptions, common.IngestOptions{
		Inputs: args,
		Status: o.status,
	})
	if err != nil {
		return err
	}

	if o.check {
		if err := agg.Check(); err != nil {
			return errors.Wrap(err, "consistency check failed")
		}
		o.Logger.Info().Msg("consistency check passed")
	}

	return common.WriteOutput(cmd.OutOrStdout(), o.outputFile, func(w io.Writer) error {
		return o.write(w, agg)
	})
}

func (o *Options) write(w io.Writer, agg *aggregate.Aggregator) error {
	switch o.output {
	case OutputText:
		return report.WriteText(w, agg, o.truncation)
	case OutputTable:
		return report.WriteTable(w, agg, o.truncation)
	case OutputJSON:
		return report.FromAggregator(agg, o.truncation).WriteReport(w)
	default:
		return errors.Wrapf(ErrUnknownOutput, "%q", o.output)
	}
}
