package options_test

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/xstack/pkg/cmd/options"
	"github.com/maxgio92/xstack/pkg/ingest"
)

func newCommand(o *options.InputOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String(options.FlagLogLevel, "info", "")
	cmd.Flags().String(options.FlagConfig, "", "")
	if o != nil {
		o.AddFlags(cmd)
	}

	return cmd
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xstack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: pprof\ndemangle: true\n"), 0o600))

	in := &options.InputOptions{}
	cmd := newCommand(in)
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "debug", "--config", path, "--demangle=false"}))

	o := &options.CommonOptions{Logger: log.Nop()}
	require.NoError(t, o.Init(cmd, "test"))
	require.NotNil(t, o.Ctx)
	require.Equal(t, "debug", o.LogLevel)
	require.Equal(t, log.DebugLevel, o.Logger.GetLevel())
	require.Equal(t, path, o.ConfigPath)

	in.Apply(cmd, o.Config)
	require.Equal(t, "pprof", in.Format)
	require.False(t, in.Demangle, "flags set on the command line win over the config file")

	format, err := in.ParseFormat()
	require.NoError(t, err)
	require.Equal(t, ingest.FormatPprof, format)
	require.NotNil(t, in.Normalizer())
}

func TestInitErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"invalid log level", []string{"--log-level", "loud"}},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCommand(nil)
			require.NoError(t, cmd.ParseFlags(tt.args))

			o := &options.CommonOptions{Logger: log.Nop()}
			require.Error(t, o.Init(cmd, "test"))
		})
	}
}
