// Command shizu-client connects to the shizu pipe, sends one message and
// exits. By default the message is the shutdown request.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idlib/pipe"
	"github.com/idlib/pipe/control"
	"github.com/idlib/pipe/example/internal/config"
	"github.com/idlib/pipe/example/internal/logging"
)

type clientOptions struct {
	configFile string
	name       string
	message    string
	logLevel   string
}

func main() {
	if err := newClientCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "shizu-client: %v\n", err)
		os.Exit(1)
	}
}

func newClientCommand() *cobra.Command {
	var opts clientOptions

	cmd := &cobra.Command{
		Use:           "shizu-client [OPTIONS]",
		Short:         "Send one message to the shizu pipe",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			logger := logging.New("shizu-client", cfg.Log, os.Stderr)

			msg := control.Shutdown()
			if cmd.Flags().Changed("message") {
				msg = pipe.NewMessage([]byte(opts.message))
			}
			return runClient(cfg, msg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "TOML configuration file")
	flags.StringVar(&opts.name, "name", "", "pipe name")
	flags.StringVarP(&opts.message, "message", "m", "", "send this text instead of the shutdown message")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off)")

	return cmd
}

func loadConfig(flags *pflag.FlagSet, opts clientOptions) (config.Config, error) {
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
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

// runClient connects, writes msg once and disconnects.
func runClient(cfg config.Config, msg *pipe.Message, logger zerolog.Logger, extra ...pipe.Option) error {
	opts := append(cfg.PipeOptions(logging.Adapter{L: logger}), extra...)
	p, err := pipe.Dial(cfg.Pipe.Name, opts...)
	if err != nil {
		return errors.WithMessage(err, "pipe.Dial")
	}
	defer p.Close()

	if err := p.Write(msg); err != nil {
		return errors.WithMessage(err, "pipe.Write")
	}
	logger.Info().Int("length", msg.Length()).Str("kind", control.Classify(msg).String()).Msg("message sent")
	return nil
}
