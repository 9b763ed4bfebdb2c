package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/config"
	"github.com/mamadbah2/wellca/pkg/clients/wellca"
	"github.com/mamadbah2/wellca/pkg/logger"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	envFile string
	baseURL string
	verbose bool
	noColor bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "wellcactl",
		Short: "Operate the Wellca pharmacy dashboard from the terminal",
		Long: `wellcactl submits daily pharmacy metrics to the Wellca management API and
builds reports over a date range, printing totals and writing the chart
and workbook to disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load configuration from this .env file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "management API base URL (overrides WELLCA_BASE_URL)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newSubmitCmd(opts))
	cmd.AddCommand(newCalcCmd())
	cmd.AddCommand(newReportCmd(opts))
	cmd.AddCommand(newWeeklyCmd(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "wellcactl", Version)
		},
	})
	return cmd
}

// load resolves configuration and a logger for a command run.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	if o.baseURL != "" {
		if err := os.Setenv("WELLCA_BASE_URL", o.baseURL); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("wellcactl: %w", err)
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newClient builds the API client, discovering the anti-forgery token when
// none is configured. A failed discovery only warns.
func newClient(ctx context.Context, cmd *cobra.Command, cfg *config.Config, discover bool) *wellca.APIClient {
	client := wellca.NewClient(cfg.Backend)
	if discover && cfg.Backend.CSRFToken == "" && cfg.Backend.DiscoverCSRF {
		if err := client.DiscoverCSRF(ctx); err != nil {
			_, _ = color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "warning: anti-forgery token not discovered: %v\n", err)
		}
	}
	return client
}

// nowFunc is replaced in tests.
var nowFunc = time.Now
