package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manideepv28/delopment-netlify/internal/core/retry"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
)

// newRootCmd builds the command tree. Command output goes to out; logs go
// to stderr.
func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "repohost",
		Short: "Deploy repositories to static hosting platforms in bulk",
		Long: `repohost reads a list of repository URLs and deploys each one to Netlify,
Render and/or GitHub Pages, retrying rate limited and transient failures.

Every finished deployment is recorded, so an interrupted batch continues
where it stopped when the same command is run again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config file (yaml, toml or json)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")
	pf.String("env-file", ".env", "File with platform tokens")
	pf.String("store", store.DriverSQLite, "Result store backend (sqlite, csv)")
	pf.String("db", "", "Result store path")
	pf.StringP("output", "o", "deployment_results.csv", "CSV report path")

	load := func(cmd *cobra.Command) (*Config, error) {
		cfg, err := LoadConfig(configPath, cmd.Flags())
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(
		newDeployCmd(load),
		newCheckCmd(load),
		newExportCmd(load),
		newVersionCmd(),
	)
	return root
}

type configLoader func(cmd *cobra.Command) (*Config, error)

func newDeployCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy <input_file>",
		Short: "Deploy every repository listed in input_file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			logger := SetupLogger(cfg, os.Stderr)
			return runDeploy(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), logger)
		},
	}

	policy := retry.DefaultPolicy()
	f := cmd.Flags()
	f.StringSliceP("platforms", "p", []string{"netlify"}, "Platforms to deploy to (netlify, render, github)")
	f.IntP("max-retries", "r", policy.MaxRetries, "Attempts per repository and platform")
	f.DurationP("delay", "d", 10*time.Second, "Minimum gap between deployments to the same platform")
	f.Duration("base-delay", policy.BaseDelay, "First retry wait, doubled on every retry")
	f.Duration("max-delay", policy.MaxDelay, "Upper bound for a retry wait")
	f.Float64P("max-size", "s", 90, "Maximum site size in MB")
	f.StringP("resume-from", "f", "", "Skip repositories before this URL")
	f.Bool("retry-failures", false, "Re-attempt units whose last record is a failure")
	f.Float64("jitter", 0, "Spread retry waits by up to this fraction")
	f.Duration("attempt-timeout", 10*time.Minute, "Bound for a single deployment attempt")
	f.Bool("sequential", false, "Deploy to one platform after another")
	f.String("summary", "", "Write a YAML run summary to this path")
	f.String("work-dir", "", "Scratch directory for downloads")
	f.String("status-addr", "", "Serve run progress on this address")
	return cmd
}

func newCheckCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate platform credentials without deploying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			logger := SetupLogger(cfg, os.Stderr)
			return runCheck(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().StringSliceP("platforms", "p", []string{"netlify"}, "Platforms to check")
	return cmd
}

func newExportCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the CSV report from the result store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "repohost %s (built %s)\n", Version, BuildTime)
		},
	}
}
