// Package cli implements the pairrank command line.
package cli

import (
	"context"
	"fmt"

	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/config"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "pairrank",
		Short: "Rank a fixed set of items through pairwise comparisons",
		Long: `pairrank presents two items at a time, asks which matters more and
derives a full ranking from the answers. Comparisons implied by earlier
answers are resolved automatically.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Logs go to stderr so command output stays clean on stdout.
			return logger.InitWith(cmd.ErrOrStderr(), logger.FormatText)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file (default $PAIRRANK_CONFIG)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log_level)")

	root.AddCommand(
		newServeCommand(opts),
		newPlayCommand(opts),
		newRankingCommand(opts),
		newExportCommand(opts),
		newResetCommand(opts),
	)
	return root
}

// loadConfig reads the layered configuration and applies the log level.
func (o *rootOptions) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalidConfig, cfg.LogLevel)
	}
	return cfg, nil
}

// startService loads the config and starts a service over it. The caller
// must Stop the returned service.
func (o *rootOptions) startService(ctx context.Context, extra ...service.Option) (*service.Service, *config.Config, error) {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := append([]service.Option{
		service.WithConfig(cfg),
		service.WithLogger(logger.Named("service")),
	}, extra...)
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start service: %w", err)
	}
	return svc, cfg, nil
}
