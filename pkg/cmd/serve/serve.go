package serve

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/cmd/common"
	"github.com/maxgio92/xstack/pkg/cmd/options"
	"github.com/maxgio92/xstack/pkg/healthcheck"
	"github.com/maxgio92/xstack/pkg/server"
)

const (
	CmdName = "serve"

	flagListen    = "listen"
	flagCacheSize = "cache-size"

	shutdownTimeout = 30 * time.Second
)

type Options struct {
	listen     string
	cacheSize  uint32
	socketPath string

	detach bool
	status bool

	options.InputOptions
	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := new(Options)
	o.CommonOptions = opts

	cmd := &cobra.Command{
		Use:   CmdName + " [input...]",
		Short: "Serve the interactive report of stack samples over HTTP",
		Long: fmt.Sprintf(`
%s aggregates the stack samples read from the inputs (or the standard input) and serves
the overview, the rankings and the drill-down call path views until it is interrupted.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}

	o.InputOptions.AddFlags(cmd)
	cmd.Flags().StringVarP(&o.listen, flagListen, "l", settings.DefaultListenAddr, "Address to listen on")
	cmd.Flags().Uint32Var(&o.cacheSize, flagCacheSize, server.DefaultCacheSize, "Number of rendered views to cache (0 disables the cache)")
	cmd.Flags().StringVar(&o.socketPath, "socket-path", settings.HealthCheckSockPath, "Path of the readiness socket")
	cmd.Flags().BoolVarP(&o.detach, "detach", "d", false, fmt.Sprintf("Run %s as daemon", settings.CmdName))
	cmd.Flags().BoolVar(&o.status, "status", false, "Print the ingestion progress")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, args []string) error {
	if err := o.Init(cmd, CmdName); err != nil {
		return err
	}
	o.InputOptions.Apply(cmd, o.Config)
	if !cmd.Flags().Changed(flagListen) {
		o.listen = o.Config.Listen
	}
	if !cmd.Flags().Changed(flagCacheSize) {
		o.cacheSize = o.Config.CacheSize
	}

	if o.detach {
		return o.daemonize(args)
	}

	// Store PID file.
	if err := os.WriteFile(settings.PidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		o.Logger.Warn().Err(err).Msg("failed to write PID file")
	}
	defer os.Remove(settings.PidFile)

	ctx, cancel := context.WithCancel(o.Ctx)
	defer cancel()

	hc := healthcheck.NewServer(o.socketPath, o.Logger)
	if err := hc.Listen(ctx); err != nil {
		return err
	}
	defer hc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	agg, err := common.Ingest(o.CommonOptions, &o.InputOptions, common.IngestOptions{
		Inputs:     args,
		Status:     o.status,
		Registerer: reg,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHandler(agg,
		server.WithCacheSize(o.cacheSize),
		server.WithLogger(o.Logger),
		server.WithRegisterer(reg),
	)
	if err != nil {
		return err
	}
	srv := server.NewServer(o.listen, server.NewRouter(handler, reg), o.Logger)

	ln, err := srv.Listen()
	if err != nil {
		return err
	}
	stats := agg.Stats()
	hc.NotifyReady(healthcheck.Status{
		Addr:    ln.Addr().String(),
		Samples: stats.Samples,
		Paths:   stats.Paths,
	})

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(
		func() error {
			return srv.Serve(ln)
		},
		func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.Logger.Error().Err(err).Msg("error shutting down server")
			}
		},
	)

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		o.Logger.Info().Str("signal", sigErr.Signal.String()).Msg("terminating")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (o *Options) daemonize(inputs []string) error {
	// Check if already running.
	if common.IsDaemonRunning() {
		fmt.Println("Daemon already running")
		return nil
	}

	args := []string{CmdName}
	args = append(args, fmt.Sprintf("--%s=%s", options.FlagLogLevel, o.LogLevel))
	if o.ConfigPath != "" {
		args = append(args, fmt.Sprintf("--%s=%s", options.FlagConfig, o.ConfigPath))
	}
	args = append(args, fmt.Sprintf("--%s=%s", options.FlagFormat, o.Format))
	args = append(args, fmt.Sprintf("--%s=%s", options.FlagDemangle, strconv.FormatBool(o.Demangle)))
	args = append(args, fmt.Sprintf("--%s=%s", flagListen, o.listen))
	args = append(args, fmt.Sprintf("--%s=%d", flagCacheSize, o.cacheSize))
	args = append(args, fmt.Sprintf("--socket-path=%s", o.socketPath))
	args = append(args, "--")
	args = append(args, inputs...)

	cmd := exec.Command(os.Args[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// Redirect output to log file.
	if settings.LogFile != "" {
		f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			o.Logger.Error().Err(err).Msg("failed to open log file")
			return err
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		o.Logger.Error().Err(err).Msgf("failed to start %s", settings.CmdName)
		return err
	}

	// Store PID file.
	if err := os.WriteFile(settings.PidFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0644); err != nil {
		o.Logger.Error().Err(err).Msg("failed to write PID file")
		return err
	}
	o.Logger.Info().Int("pid", cmd.Process.Pid).Msgf("%s started, logging to %s", settings.CmdName, settings.LogFile)

	return nil
}
