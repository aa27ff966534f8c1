package cli

import (
	"log/slog"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/mnehpets/rpcenvelope/config"
	"github.com/mnehpets/rpcenvelope/internal/server"
	"github.com/mnehpets/rpcenvelope/logs"
)

type runOptions struct {
	configPath string
	debug      bool
}

func newRunCommand() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"r"},
		Short:   "Start the server",
		Long: `"run" serves JSON-RPC until interrupted. Settings come from the
optional config file, a .env file and RPCENV_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a config file (yaml, toml or json)")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "log at debug level")
	return cmd
}

func run(cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}

	logger, closer, err := logs.Setup(cfg.Log)
	if err != nil {
		return errors.Wrap(err, "set up logging")
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting rpcserver", slog.String("version", Version))
	srv := server.New(cfg, logger)
	if err := srv.Run(cmd.Context()); err != nil {
		logger.Error("server stopped", slog.String("err", err.Error()))
		return err
	}
	logger.Info("server stopped")
	return nil
}
