// Package storetest provides contract tests for [store.Store] implementations.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory creates a fresh, empty [store.Store] for each test.
type Factory func(t *testing.T) store.Store

// Reopen closes s and opens the same medium again.
type Reopen func(t *testing.T, s store.Store) store.Store

func unit(t *testing.T, url string, platform domain.PlatformKind) domain.DeploymentUnit {
	t.Helper()
	repo, err := domain.NewRepositoryRef(url, 0)
	require.NoError(t, err)
	return domain.NewDeploymentUnit(repo, platform)
}

func withRun(rec domain.DeploymentRecord, runID string) domain.DeploymentRecord {
	rec.RunID = runID
	return rec
}

// Run exercises the [store.Store] contract.
func Run(t *testing.T, factory Factory, reopen Reopen) {
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		s := factory(t)
		u := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)

		ok, err := s.HasTerminal(ctx, u)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Latest(ctx, u)
		assert.ErrorIs(t, err, store.ErrNotFound)

		records, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("RecordAndLatest", func(t *testing.T) {
		s := factory(t)
		u := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)
		rec := withRun(domain.SuccessRecord(u, "https://a.netlify.app", "deployed to netlify", 1), "run-1")

		require.NoError(t, s.Record(ctx, rec))

		ok, err := s.HasTerminal(ctx, u)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Latest(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, domain.RecordSuccess, got.Status)
		assert.Equal(t, "https://a.netlify.app", got.HostedURL)
		assert.Equal(t, "deployed to netlify", got.Notes)
		assert.Equal(t, 1, got.AttemptCount)
		assert.Equal(t, "run-1", got.RunID)
		assert.WithinDuration(t, rec.RecordedAt, got.RecordedAt, time.Second)
	})

	t.Run("PlatformsAreIndependent", func(t *testing.T) {
		s := factory(t)
		netlify := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)
		render := unit(t, "https://github.com/acme/a", domain.PlatformRender)

		require.NoError(t, s.Record(ctx, withRun(domain.FailureRecord(netlify, "boom (after 3 attempts)", 3), "run-1")))

		ok, err := s.HasTerminal(ctx, render)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RejectsInvalidRecord", func(t *testing.T) {
		s := factory(t)
		u := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)

		noURL := withRun(domain.SuccessRecord(u, "", "", 1), "run-1")
		assert.ErrorIs(t, s.Record(ctx, noURL), store.ErrInvalidData)

		failWithURL := withRun(domain.FailureRecord(u, "x", 1), "run-1")
		failWithURL.HostedURL = "https://a.netlify.app"
		assert.ErrorIs(t, s.Record(ctx, failWithURL), store.ErrInvalidData)

		ok, err := s.HasTerminal(ctx, u)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RejectsSecondRecordInSameRun", func(t *testing.T) {
		s := factory(t)
		u := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)

		require.NoError(t, s.Record(ctx, withRun(domain.FailureRecord(u, "first", 1), "run-1")))
		err := s.Record(ctx, withRun(domain.FailureRecord(u, "second", 1), "run-1"))
		assert.ErrorIs(t, err, store.ErrDuplicateRecord)
	})

	t.Run("RejectsRecordAfterSuccess", func(t *testing.T) {
		s := factory(t)
		u := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)

		require.NoError(t, s.Record(ctx, withRun(domain.SuccessRecord(u, "https://a.netlify.app", "", 1), "run-1")))
		err := s.Record(ctx, withRun(domain.FailureRecord(u, "late", 1), "run-2"))
		assert.ErrorIs(t, err, store.ErrDuplicateRecord)
	})

	t.Run("LatestWinsAcrossRuns", func(t *testing.T) {
		s := factory(t)
		u := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)

		require.NoError(t, s.Record(ctx, withRun(domain.FailureRecord(u, "boom", 3), "run-1")))
		require.NoError(t, s.Record(ctx, withRun(domain.SuccessRecord(u, "https://a.netlify.app", "", 1), "run-2")))

		got, err := s.Latest(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, domain.RecordSuccess, got.Status)

		history, err := s.History(ctx, u)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "run-1", history[0].RunID)
		assert.Equal(t, "run-2", history[1].RunID)

		records, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.RecordSuccess, records[0].Status)
	})

	t.Run("ListKeepsFirstRecordedOrder", func(t *testing.T) {
		s := factory(t)
		a := unit(t, "https://github.com/acme/a", domain.PlatformNetlify)
		b := unit(t, "https://github.com/acme/b", domain.PlatformNetlify)

		require.NoError(t, s.Record(ctx, withRun(domain.FailureRecord(a, "boom", 1), "run-1")))
		require.NoError(t, s.Record(ctx, withRun(domain.SuccessRecord(b, "https://b.netlify.app", "", 1), "run-1")))
		require.NoError(t, s.Record(ctx, withRun(domain.SuccessRecord(a, "https://a.netlify.app", "", 1), "run-2")))

		records, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, a.Repo.URL, records[0].RepoURL)
		assert.Equal(t, domain.RecordSuccess, records[0].Status)
		assert.Equal(t, b.Repo.URL, records[1].RepoURL)
	})

	t.Run("ConcurrentWritesAreSerialized", func(t *testing.T) {
		s := factory(t)
		var wg sync.WaitGroup
		for _, p := range domain.AllPlatforms() {
			for _, name := range []string{"a", "b", "c", "d"} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					repo, _ := domain.NewRepositoryRef("https://github.com/acme/"+name, 0)
					u := domain.NewDeploymentUnit(repo, p)
					assert.NoError(t, s.Record(ctx, withRun(domain.FailureRecord(u, "x", 1), "run-1")))
				}()
			}
		}
		wg.Wait()

		records, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 12)
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		if reopen == nil {
			t.Skip("backend is not durable")
		}
		s := factory(t)
		u := unit(t, "https://github.com/acme/a", domain.PlatformRender)
		require.NoError(t, s.Record(ctx, withRun(domain.SuccessRecord(u, "https://a.onrender.com", "deployed to render", 2), "run-1")))

		s = reopen(t, s)

		got, err := s.Latest(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, "https://a.onrender.com", got.HostedURL)
		assert.Equal(t, 2, got.AttemptCount)
	})
}
