// Package commands implements the unifi-rules command tree.
package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexfrei/go-unifi-rules/api/controller"
	"github.com/lexfrei/go-unifi-rules/internal/config"
	"github.com/lexfrei/go-unifi-rules/internal/logging"
	"github.com/lexfrei/go-unifi-rules/observability"
)

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	zap    *zap.Logger
	logger observability.Logger
}

// NewRootCommand builds the full command tree. Each call returns independent
// commands, so tests can execute them in parallel.
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "unifi-rules",
		Short: "Inspect and switch UniFi traffic and firewall rules",
		Long: `unifi-rules talks to a UniFi Network controller, either a UniFi OS console
or a classic Network application, and exposes its traffic rules and firewall
rules as on/off switches.

Settings come from the YAML file given with --config. Without it the UNIFI_*
environment variables are used (UNIFI_HOST, UNIFI_USERNAME, UNIFI_PASSWORD, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the YAML config file (default: UNIFI_* environment)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(
		newValidateCommand(a),
		newListCommand(a),
		newSwitchCommand(a, "allow", true),
		newSwitchCommand(a, "block", false),
		newWatchCommand(a),
		newVersionCommand(),
	)

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.Load(a.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	if a.logLevel != "" {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return err
		}
		cfg.Logging.Level = a.logLevel
	}

	var logger *zap.Logger
	if cfg.Logging.Path == "" {
		logger, err = logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr())
	} else {
		logger, err = logging.New(cfg.Logging)
	}
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.zap = logger
	a.logger = observability.NewZapLogger(logger)

	return nil
}

func (a *app) close() {
	if a.zap != nil {
		_ = a.zap.Sync()
	}
}

// newClient builds a controller client from the loaded configuration.
// A nil metrics recorder disables metrics.
func (a *app) newClient(metrics observability.MetricsRecorder) (*controller.Client, error) {
	return controller.NewWithConfig(a.cfg.ClientConfig(a.logger, metrics))
}
