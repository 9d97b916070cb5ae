package orchestrator

import (
	"context"
	"sync"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/source"
)

// prepCache prepares each repository at most once per run and drops the
// package after every platform has passed the repository.
type prepCache struct {
	preparer source.Preparer

	mu      sync.Mutex
	entries map[string]*prepEntry
	pending map[string]int // platforms that have not passed the repository yet
}

type prepEntry struct {
	done chan struct{}
	pkg  *source.Package
	err  error
}

func newPrepCache(preparer source.Preparer, repos []domain.RepositoryRef, platforms int) *prepCache {
	c := &prepCache{
		preparer: preparer,
		entries:  make(map[string]*prepEntry),
		pending:  make(map[string]int, len(repos)),
	}
	for _, r := range repos {
		c.pending[r.URL] = platforms
	}
	return c
}

// get returns the package for repo, preparing it on first use. Concurrent
// callers for the same repository wait for the first one.
func (c *prepCache) get(ctx context.Context, repo domain.RepositoryRef) (*source.Package, error) {
	c.mu.Lock()
	e, ok := c.entries[repo.URL]
	if !ok {
		e = &prepEntry{done: make(chan struct{})}
		c.entries[repo.URL] = e
	}
	c.mu.Unlock()

	if ok {
		select {
		case <-e.done:
			return e.pkg, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.pkg, e.err = c.preparer.Prepare(ctx, repo)
	close(e.done)
	return e.pkg, e.err
}

// release marks repo as passed by one platform.
func (c *prepCache) release(repoURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[repoURL]--
	if c.pending[repoURL] <= 0 {
		delete(c.pending, repoURL)
		delete(c.entries, repoURL)
	}
}
