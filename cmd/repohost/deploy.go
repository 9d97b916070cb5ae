package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/clock"
	"github.com/manideepv28/delopment-netlify/internal/shell/credentials"
	"github.com/manideepv28/delopment-netlify/internal/shell/orchestrator"
	"github.com/manideepv28/delopment-netlify/internal/shell/pacing"
	"github.com/manideepv28/delopment-netlify/internal/shell/platform"
	"github.com/manideepv28/delopment-netlify/internal/shell/report"
	"github.com/manideepv28/delopment-netlify/internal/shell/source"
	"github.com/manideepv28/delopment-netlify/internal/shell/status"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
)

const shutdownTimeout = 5 * time.Second

// runDeploy wires the run together and executes it.
func runDeploy(ctx context.Context, cfg *Config, inputPath string, out io.Writer, logger *slog.Logger) error {
	kinds, err := cfg.PlatformKinds()
	if err != nil {
		return &CommandError{Op: "parse platforms", Err: err, ExitCode: ExitConfigError}
	}
	overrides, err := cfg.DelayOverrides()
	if err != nil {
		return &CommandError{Op: "parse platform delays", Err: err, ExitCode: ExitConfigError}
	}

	repos, err := source.ReadRepoList(inputPath)
	if err != nil {
		return &CommandError{Op: "read input", Err: err, ExitCode: ExitInputError}
	}
	logger.Info("loaded repository list", "path", inputPath, "repositories", len(repos))

	creds, adapters, available, err := preflight(ctx, cfg, kinds, logger)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return &CommandError{Op: "open store", Err: err, ExitCode: ExitStoreError}
	}
	defer st.Close()

	fetcher := source.NewGitHubFetcher(cfg.FetcherConfig(creds.GitHubToken), logger)
	pipeline := source.NewPipeline(fetcher, cfg.MaxSizeMB, cfg.WorkDir, logger)
	clk := clock.Real{}

	orch, err := orchestrator.New(orchestrator.Config{
		Platforms:      available,
		Policy:         cfg.RetryPolicy(),
		ResumeFrom:     cfg.ResumeFrom,
		RetryFailures:  cfg.RetryFailures,
		Jitter:         cfg.Jitter,
		AttemptTimeout: cfg.AttemptTimeout,
		Sequential:     cfg.Sequential,
	}, orchestrator.Deps{
		Store:    st,
		Adapters: adapters,
		Preparer: pipeline,
		Pacer:    pacing.New(cfg.Delay, overrides, clk),
		Clock:    clk,
		Logger:   logger,
		OnRecord: func(ctx context.Context, rec domain.DeploymentRecord) error {
			return store.ExportCSV(ctx, st, cfg.Output)
		},
	})
	if err != nil {
		return &CommandError{Op: "create orchestrator", Err: err, ExitCode: ExitConfigError}
	}

	if cfg.Status.Addr != "" {
		srv := status.NewServer(cfg.StatusServerConfig(), orch, st, logger).Start()
		defer shutdownServer(srv, logger)
	}

	summary, runErr := orch.Run(ctx, repos)

	// The report also covers units settled by earlier runs.
	if err := store.ExportCSV(context.WithoutCancel(ctx), st, cfg.Output); err != nil && runErr == nil {
		runErr = &CommandError{Op: "export report", Err: err, ExitCode: ExitStoreError}
	}

	if err := report.Render(out, summary); err != nil {
		logger.Warn("failed to print summary", "error", err)
	}
	if cfg.Summary != "" {
		if err := report.WriteSummary(cfg.Summary, summary); err != nil {
			logger.Warn("failed to write summary", "path", cfg.Summary, "error", err)
		}
	}
	if runErr == nil {
		logger.Info("report written", "path", cfg.Output)
	}
	return runErr
}

// preflight builds and validates adapters for kinds. Platforms that fail are
// dropped with a warning.
func preflight(ctx context.Context, cfg *Config, kinds []domain.PlatformKind, logger *slog.Logger) (credentials.Credentials, map[domain.PlatformKind]platform.Adapter, []domain.PlatformKind, error) {
	creds, err := credentials.Load(cfg.EnvFile)
	if err != nil {
		return creds, nil, nil, &CommandError{Op: "load credentials", Err: err, ExitCode: ExitConfigError}
	}

	result := platform.Preflight(ctx, kinds, creds, cfg.PlatformConfig(), logger)
	if err := ctx.Err(); err != nil {
		return creds, nil, nil, err
	}
	for kind, err := range result.Failures {
		logger.Warn("platform unavailable, skipping", "platform", kind, "error", err)
	}

	available := result.Available(kinds)
	if len(available) == 0 {
		return creds, nil, nil, &CommandError{
			Op:       "preflight",
			Err:      fmt.Errorf("%w: none of %v passed the credential check", ErrNoPlatformAvailable, kinds),
			ExitCode: ExitNoPlatform,
		}
	}
	return creds, result.Ready, available, nil
}

// runCheck runs the preflight and prints the result per platform.
func runCheck(ctx context.Context, cfg *Config, out io.Writer, logger *slog.Logger) error {
	kinds, err := cfg.PlatformKinds()
	if err != nil {
		return &CommandError{Op: "parse platforms", Err: err, ExitCode: ExitConfigError}
	}
	creds, err := credentials.Load(cfg.EnvFile)
	if err != nil {
		return &CommandError{Op: "load credentials", Err: err, ExitCode: ExitConfigError}
	}

	result := platform.Preflight(ctx, kinds, creds, cfg.PlatformConfig(), logger)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := report.RenderPreflight(out, kinds, result.Failures); err != nil {
		return err
	}
	if len(result.Available(kinds)) == 0 {
		return &CommandError{Op: "check", Err: ErrNoPlatformAvailable, ExitCode: ExitNoPlatform}
	}
	return nil
}

// runExport rewrites the CSV report from the result store.
func runExport(ctx context.Context, cfg *Config, out io.Writer) error {
	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return &CommandError{Op: "open store", Err: err, ExitCode: ExitStoreError}
	}
	defer st.Close()

	if err := store.ExportCSV(ctx, st, cfg.Output); err != nil {
		return &CommandError{Op: "export report", Err: err, ExitCode: ExitStoreError}
	}
	fmt.Fprintf(out, "wrote %s\n", cfg.Output)
	return nil
}

func shutdownServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("status server shutdown failed", "error", err)
	}
}
