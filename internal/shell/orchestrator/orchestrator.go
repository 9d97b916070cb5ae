// Package orchestrator drives every (repository, platform) unit of a run
// through its state machine: select, prepare, attempt, retry, record.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/core/resume"
	"github.com/manideepv28/delopment-netlify/internal/core/retry"
	"github.com/manideepv28/delopment-netlify/internal/shell/clock"
	"github.com/manideepv28/delopment-netlify/internal/shell/pacing"
	"github.com/manideepv28/delopment-netlify/internal/shell/platform"
	"github.com/manideepv28/delopment-netlify/internal/shell/source"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
)

var (
	// ErrNoPlatforms is returned when a run has no platform to deploy to.
	ErrNoPlatforms = errors.New("no platforms configured")

	// ErrMissingAdapter is returned when a configured platform has no adapter.
	ErrMissingAdapter = errors.New("no adapter for platform")
)

// StoreWriteError reports that a terminal record could not be persisted.
// It aborts the run.
type StoreWriteError struct {
	Unit domain.DeploymentUnit
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to record %s: %v", e.Unit, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds the run options.
type Config struct {
	Platforms     []domain.PlatformKind
	Policy        retry.Policy
	ResumeFrom    string
	RetryFailures bool

	// Jitter spreads retry waits by up to ±Jitter of their value.
	Jitter float64

	// AttemptTimeout bounds a single adapter call. Zero means no bound.
	AttemptTimeout time.Duration

	// Sequential runs platforms one after another instead of concurrently.
	Sequential bool

	// RunID tags the records of this run. Empty generates one.
	RunID string
}

// Deps are the collaborators of the orchestrator.
type Deps struct {
	Store    store.Store
	Adapters map[domain.PlatformKind]platform.Adapter
	Preparer source.Preparer
	Pacer    *pacing.Controller
	Clock    clock.Clock
	Logger   *slog.Logger
	Rand     *rand.Rand

	// OnRecord runs after every persisted record, e.g. to refresh a report.
	// An error aborts the run like a store write failure.
	OnRecord func(ctx context.Context, rec domain.DeploymentRecord) error
}

// Orchestrator runs deployment units against the configured platforms.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	progress *progress

	mu      sync.Mutex
	rng     *rand.Rand
	records []domain.DeploymentRecord
}

// New validates cfg against deps and creates an orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if len(cfg.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	for _, p := range cfg.Platforms {
		if _, ok := deps.Adapters[p]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingAdapter, p)
		}
	}
	if deps.Store == nil || deps.Preparer == nil {
		return nil, errors.New("orchestrator requires a store and a preparer")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Pacer == nil {
		deps.Pacer = pacing.New(0, nil, deps.Clock)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.With("component", "orchestrator", "run_id", cfg.RunID),
		progress: newProgress(cfg.RunID, cfg.Platforms),
		rng:      deps.Rand,
	}, nil
}

// RunID returns the identifier stored on this run's records.
func (o *Orchestrator) RunID() string {
	return o.cfg.RunID
}

// Progress returns a snapshot of the run so far.
func (o *Orchestrator) Progress() Snapshot {
	return o.progress.snapshot()
}

// Run processes every unit of repos. It returns a Fatal error for an unknown
// resume target or a failed store write, and ctx.Err() when interrupted. The
// summary covers whatever was processed before Run returned.
func (o *Orchestrator) Run(ctx context.Context, repos []domain.RepositoryRef) (Summary, error) {
	start := o.deps.Clock.Now()
	o.progress.start(start, len(repos))
	defer o.progress.stop()

	summary := func(err error) (Summary, error) {
		o.mu.Lock()
		records := append([]domain.DeploymentRecord(nil), o.records...)
		o.mu.Unlock()
		snap := o.progress.snapshot()
		return Summary{
			RunID:       o.cfg.RunID,
			StartedAt:   start,
			Duration:    o.deps.Clock.Now().Sub(start),
			Interrupted: errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded),
			Platforms:   snap.Platforms,
			Records:     records,
		}, err
	}

	cursor, err := resume.ResumePoint(repos, o.cfg.ResumeFrom)
	if err != nil {
		return summary(err)
	}
	if cursor.IsSet() {
		o.logger.Info("resuming", "from", cursor.URL, "skipping", cursor.Index)
	}

	o.logger.Info("run started",
		"repositories", len(repos),
		"platforms", o.cfg.Platforms,
		"max_retries", o.cfg.Policy.MaxRetries,
		"retry_failures", o.cfg.RetryFailures,
	)

	// Concurrent platforms share prepared packages; a sequential run
	// prepares again per platform instead of holding every package.
	g, gctx := errgroup.WithContext(ctx)
	if o.cfg.Sequential {
		g.Go(func() error {
			for _, p := range o.cfg.Platforms {
				cache := newPrepCache(o.deps.Preparer, repos, 1)
				if err := o.runPlatform(gctx, p, repos, cursor, cache); err != nil {
					return err
				}
			}
			return nil
		})
	} else {
		cache := newPrepCache(o.deps.Preparer, repos, len(o.cfg.Platforms))
		for _, p := range o.cfg.Platforms {
			g.Go(func() error {
				return o.runPlatform(gctx, p, repos, cursor, cache)
			})
		}
	}

	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	switch {
	case err == nil:
		o.logger.Info("run finished", "duration", o.deps.Clock.Now().Sub(start))
	case errors.Is(err, context.Canceled):
		o.logger.Warn("run interrupted; unfinished units can be resumed")
	default:
		o.logger.Error("run aborted", "error", err)
	}
	return summary(err)
}

// =============================================================================
// Platform Worker
// =============================================================================

func (o *Orchestrator) runPlatform(ctx context.Context, p domain.PlatformKind, repos []domain.RepositoryRef, cursor resume.Cursor, cache *prepCache) error {
	logger := o.logger.With("platform", p)
	adapter := o.deps.Adapters[p]

	for _, unit := range resume.UnitsForPlatform(repos, p) {
		if err := ctx.Err(); err != nil {
			return err
		}

		latest, err := o.deps.Store.Latest(ctx, unit)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to read record for %s: %w", unit, err)
		}

		switch resume.Classify(unit, cursor, latest, o.cfg.RetryFailures) {
		case resume.SkipBeforeCursor:
			o.progress.update(p, func(pp *PlatformProgress) { pp.Resumed++ })
			cache.release(unit.Repo.URL)
			continue
		case resume.SkipSettled:
			logger.Debug("already recorded", "repo", unit.Repo.URL, "status", latest.Status)
			o.progress.update(p, func(pp *PlatformProgress) { pp.Recorded++ })
			cache.release(unit.Repo.URL)
			continue
		}

		err = o.processUnit(ctx, adapter, cache, unit, logger.With("repo", unit.Repo.URL))
		cache.release(unit.Repo.URL)
		if err != nil {
			return err
		}
	}
	return nil
}

// processUnit runs one unit to a terminal state and records it. A returned
// error is either cancellation (the unit stays unrecorded) or Fatal.
func (o *Orchestrator) processUnit(ctx context.Context, adapter platform.Adapter, cache *prepCache, unit domain.DeploymentUnit, logger *slog.Logger) error {
	run := domain.NewUnitRun(unit)

	if unit.Repo.Invalid {
		logger.Warn("invalid repository URL, recording failure")
		o.transition(run, domain.StateFailed, logger)
		return o.record(ctx, run, domain.FailureRecord(unit, domain.NoteInvalidURL, 0))
	}

	pkg, err := cache.get(ctx, unit.Repo)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("repository could not be prepared", "error", err)
		o.transition(run, domain.StateFailed, logger)
		return o.record(ctx, run, domain.FailureRecord(unit, "fetch failed: "+err.Error(), 0))
	}

	if pkg.TooLarge {
		logger.Warn("package too large, skipping",
			"size_bytes", pkg.SiteBytes,
			"limit_bytes", pkg.LimitBytes,
		)
		o.transition(run, domain.StateSkipped, logger)
		return o.record(ctx, run, domain.FailureRecord(unit, domain.NoteSkippedTooLarge, 0))
	}

	req := platform.DeployRequest{
		Repo:     unit.Repo,
		Package:  pkg,
		SiteName: domain.SiteName(unit.Repo.Name, domain.GenerateRunSuffix()),
	}

	for {
		if err := o.deps.Pacer.AwaitTurn(ctx, unit.Platform); err != nil {
			return err
		}
		o.transition(run, domain.StateAttempting, logger)
		o.progress.update(unit.Platform, func(pp *PlatformProgress) {
			pp.InFlight = unit.Repo.URL
			pp.Attempt = run.Attempt
		})

		logger.Info("deploying", "attempt", run.Attempt, "site", req.SiteName)
		outcome := o.attempt(ctx, adapter, req)
		o.deps.Pacer.Completed(unit.Platform)

		if err := ctx.Err(); err != nil {
			return err
		}

		if outcome.Kind == domain.OutcomeSuccess {
			logger.Info("deployed", "url", outcome.HostedURL, "attempts", run.Attempt)
			o.transition(run, domain.StateSucceeded, logger)
			return o.record(ctx, run, domain.SuccessRecord(unit, outcome.HostedURL, successNote(unit.Platform, outcome), run.Attempt))
		}

		run.LastErr = outcome.Error()
		decision := o.cfg.Policy.Decide(run.Attempt, outcome)
		if !decision.Retry {
			logger.Warn("deployment failed", "outcome", outcome.Kind, "error", run.LastErr, "attempts", run.Attempt)
			o.transition(run, domain.StateFailed, logger)
			return o.record(ctx, run, domain.FailureRecord(unit, failureNote(run.LastErr, run.Attempt), run.Attempt))
		}

		wait := o.jitter(decision.Wait)
		logger.Info("retrying", "outcome", outcome.Kind, "error", run.LastErr, "attempt", run.Attempt, "wait", wait)
		o.transition(run, domain.StateRetrying, logger)
		if err := o.deps.Clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// attempt calls the adapter under the per-attempt timeout.
func (o *Orchestrator) attempt(ctx context.Context, adapter platform.Adapter, req platform.DeployRequest) domain.DeployOutcome {
	if o.cfg.AttemptTimeout <= 0 {
		return adapter.Deploy(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()

	outcome := adapter.Deploy(attemptCtx, req)
	if outcome.Kind != domain.OutcomeSuccess && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return domain.TransientError(fmt.Sprintf("%s: attempt timed out after %s", adapter.Kind(), o.cfg.AttemptTimeout))
	}
	return outcome
}

// record persists the terminal record of run exactly once.
func (o *Orchestrator) record(ctx context.Context, run *domain.UnitRun, rec domain.DeploymentRecord) error {
	rec.RunID = o.cfg.RunID
	rec.RecordedAt = o.deps.Clock.Now().UTC()

	// Terminal records are written even if ctx was canceled meanwhile.
	writeCtx := context.WithoutCancel(ctx)
	if err := o.deps.Store.Record(writeCtx, rec); err != nil {
		return &StoreWriteError{Unit: run.Unit, Err: err}
	}
	if o.deps.OnRecord != nil {
		if err := o.deps.OnRecord(writeCtx, rec); err != nil {
			return &StoreWriteError{Unit: run.Unit, Err: err}
		}
	}

	o.mu.Lock()
	o.records = append(o.records, rec)
	o.mu.Unlock()

	o.progress.update(run.Unit.Platform, func(pp *PlatformProgress) {
		switch run.State {
		case domain.StateSucceeded:
			pp.Succeeded++
		case domain.StateSkipped:
			pp.Skipped++
		default:
			pp.Failed++
		}
		pp.InFlight = ""
		pp.Attempt = 0
	})
	return nil
}

func (o *Orchestrator) transition(run *domain.UnitRun, to domain.UnitState, logger *slog.Logger) {
	if err := run.Transition(to); err != nil {
		logger.Error("illegal unit transition", "from", run.State, "to", to, "error", err)
	}
}

func (o *Orchestrator) jitter(wait time.Duration) time.Duration {
	if o.cfg.Jitter <= 0 {
		return wait
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return retry.Jitter(wait, o.cfg.Jitter, o.rng)
}

func successNote(p domain.PlatformKind, outcome domain.DeployOutcome) string {
	note := "deployed to " + string(p)
	if outcome.Detail != "" {
		note += " (" + outcome.Detail + ")"
	}
	return note
}

func failureNote(lastErr string, attempts int) string {
	if lastErr == "" {
		lastErr = "deployment failed"
	}
	if attempts == 1 {
		return lastErr + " (after 1 attempt)"
	}
	return fmt.Sprintf("%s (after %d attempts)", lastErr, attempts)
}
