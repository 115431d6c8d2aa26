// Command shizu-server opens the shizu pipe and logs every message it
// receives until a client sends the shutdown message.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/idlib/pipe"
	"github.com/idlib/pipe/example/internal/config"
	"github.com/idlib/pipe/example/internal/logging"
)

type serverOptions struct {
	configFile   string
	name         string
	capacity     int
	pollInterval time.Duration
	logLevel     string
}

func main() {
	if err := newServerCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "shizu-server: %v\n", err)
		os.Exit(1)
	}
}

func newServerCommand() *cobra.Command {
	var opts serverOptions

	cmd := &cobra.Command{
		Use:           "shizu-server [OPTIONS]",
		Short:         "Serve the shizu pipe until a shutdown message arrives",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			logger := logging.New("shizu-server", cfg.Log, os.Stderr)
			return runServer(cmd.Context(), cfg, logger, signals())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "TOML configuration file")
	flags.StringVar(&opts.name, "name", "", "pipe name")
	flags.IntVar(&opts.capacity, "capacity", 0, "pipe buffer capacity in bytes")
	flags.DurationVar(&opts.pollInterval, "poll-interval", 0, "delay between idle reads")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off)")

	return cmd
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were set explicitly.
func loadConfig(flags *pflag.FlagSet, opts serverOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	if flags.Changed("name") {
		cfg.Pipe.Name = opts.name
	}
	if flags.Changed("capacity") {
		cfg.Pipe.Capacity = opts.capacity
	}
	if flags.Changed("poll-interval") {
		cfg.Server.PollInterval = opts.pollInterval
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func signals() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

// runServer serves until the shutdown message arrives, a signal is received
// or a pipe operation fails.
func runServer(ctx context.Context, cfg config.Config, logger zerolog.Logger, sig <-chan os.Signal, extra ...pipe.Option) error {
	opts := append(cfg.PipeOptions(logging.Adapter{L: logger}), extra...)
	srv, err := pipe.NewServer(cfg.Pipe.Name, cfg.Pipe.Capacity, opts...)
	if err != nil {
		return errors.WithMessage(err, "pipe.NewServer")
	}
	defer srv.Close()

	served := make(chan struct{})
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(served)
		if err := srv.Serve(gctx, newHandler(logger)); err != nil {
			return errors.WithMessage(err, "pipe.Server.Serve")
		}
		return nil
	})

	group.Go(func() error {
		select {
		case s := <-sig:
			logger.Info().Str("signal", s.String()).Msg("shutting down")
			return srv.Close()
		case <-served:
			return nil
		}
	})

	err = group.Wait()
	if errors.Is(err, pipe.ErrServerClosed) {
		return nil
	}
	return err
}
