package options

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/pkg/config"
	"github.com/maxgio92/xstack/pkg/frame"
	"github.com/maxgio92/xstack/pkg/ingest"
)

const (
	FlagLogLevel = "log-level"
	FlagConfig   = "config"
	FlagFormat   = "format"
	FlagDemangle = "demangle"

	LogLevelInfo = "info"
)

type CommonOptions struct {
	Ctx      context.Context
	Logger   log.Logger
	LogLevel string

	ConfigPath string
	Config     *config.Config
}

// Init re-levels the logger from the persistent log level flag and loads
// the configuration file, if any.
func (o *CommonOptions) Init(cmd *cobra.Command, component string) error {
	var err error
	o.LogLevel, err = cmd.Flags().GetString(FlagLogLevel)
	if err != nil {
		return errors.Wrap(err, "failed to get log level")
	}

	logLevel, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	o.Logger = o.Logger.Level(logLevel).With().Str("command", component).Logger()

	o.ConfigPath, err = cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return errors.Wrap(err, "failed to get config path")
	}
	o.Config, err = config.LoadFile(o.ConfigPath)
	if err != nil {
		return err
	}

	if o.Ctx == nil {
		o.Ctx = context.Background()
	}

	return nil
}

// InputOptions are the flags of the commands that ingest samples.
type InputOptions struct {
	Format   string
	Demangle bool
}

func (o *InputOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Format, FlagFormat, "f", ingest.FormatAuto.String(),
		"Input format (auto, raw, folded, pprof)")
	cmd.Flags().BoolVar(&o.Demangle, FlagDemangle, false, "Demangle C++ and Rust symbol names")
}

// Apply takes the values of the flags not set on the command line from cfg.
func (o *InputOptions) Apply(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed(FlagFormat) {
		o.Format = cfg.Format
	}
	if !cmd.Flags().Changed(FlagDemangle) {
		o.Demangle = cfg.Demangle
	}
}

func (o *InputOptions) ParseFormat() (ingest.Format, error) {
	return ingest.ParseFormat(o.Format)
}

func (o *InputOptions) Normalizer() *frame.Normalizer {
	return frame.NewNormalizer(frame.WithDemangle(o.Demangle))
}
