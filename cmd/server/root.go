package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"lionrepo/internal/config"
	"lionrepo/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	configFile string
	configUsed string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "lionrepo",
		Short:         "In-memory LionWeb model repository",
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default: search "+config.ConfigFileName+" and the user config dir)")
	flags.String("addr", config.DefaultAddr, "HTTP listen address")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	flags.String("log-format", logging.FormatText, "log format: text or json")
	flags.String("id-strategy", config.DefaultIDStrategy, "free id strategy: sequential or uuid")
	flags.String("id-prefix", "", "prefix of sequential ids")

	cmd.AddCommand(
		newServeCmd(a),
		newValidateCmd(),
		newConvertCmd(a),
		newInspectCmd(a),
		newInitConfigCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, used, err := config.Load(a.configFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.configUsed, a.logger = cfg, used, logger
	if used != "" {
		logger.Debug("config loaded", "path", used)
	}
	return nil
}
