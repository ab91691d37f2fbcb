package voiceagent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/paseo/voice-agent/internal/logger"
	"github.com/paseo/voice-agent/internal/tracing"
	"github.com/spf13/cobra"
)

// RunApp runs the worker command line with opts and exits the process with
// status 1 on failure.
func RunApp(opts WorkerOptions) {
	if err := NewCommand(opts).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewCommand builds the worker command line:
//
//	start    serve room connections (JSON logs)
//	dev      serve room connections (debug, human-readable logs)
//	connect  join a single room bridge URL and run one job
func NewCommand(opts WorkerOptions) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "voice-agent",
		Short:         "Voice agent worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	serve := func(cmd *cobra.Command, pretty bool, level string) error {
		addr, _ := cmd.Flags().GetString("addr")
		o := opts
		o.Addr = addr
		o.Logger = logger.New(logger.Config{Level: level, Pretty: pretty})

		worker, err := NewWorker(o)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withTracing(ctx, worker.Serve)
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, false, logLevel)
		},
	}
	start.Flags().String("addr", envOr("VOICE_AGENT_ADDR", DefaultWorkerAddr), "listen address for room connections")

	dev := &cobra.Command{
		Use:   "dev",
		Short: "Start the worker in development mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := logLevel
			if !cmd.Flags().Changed("log-level") {
				level = "debug"
			}
			return serve(cmd, true, level)
		},
	}
	dev.Flags().String("addr", envOr("VOICE_AGENT_ADDR", DefaultWorkerAddr), "listen address for room connections")

	var (
		roomURL  string
		roomName string
	)
	connect := &cobra.Command{
		Use:   "connect",
		Short: "Run a single job against a room bridge URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if roomURL == "" {
				return errors.New("--url is required")
			}
			o := opts
			o.Logger = logger.New(logger.Config{Level: logLevel, Pretty: true})
			worker, err := NewWorker(o)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = withTracing(ctx, func(ctx context.Context) error {
				return worker.RunJob(ctx, NewJobContext(roomName, NewWebsocketConnector(roomURL)))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	connect.Flags().StringVar(&roomURL, "url", "", "room bridge websocket URL")
	connect.Flags().StringVar(&roomName, "room", "", "room name (the peer's name is used when empty)")

	root.AddCommand(start, dev, connect)
	return root
}

// withTracing runs fn with span export enabled when the OTLP endpoint is
// configured, and flushes spans once fn returns.
func withTracing(ctx context.Context, fn func(context.Context) error) error {
	shutdown, err := tracing.Setup(ctx, "voice-agent", os.Getenv)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()
	return fn(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
