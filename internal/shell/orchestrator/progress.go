package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// PlatformProgress counts units of one platform by how they ended.
type PlatformProgress struct {
	Platform  domain.PlatformKind `json:"platform" yaml:"platform"`
	Total     int                 `json:"total" yaml:"total"`
	Succeeded int                 `json:"succeeded" yaml:"succeeded"`
	Failed    int                 `json:"failed" yaml:"failed"`
	Skipped   int                 `json:"skipped" yaml:"skipped"` // too large
	Resumed   int                 `json:"resumed" yaml:"resumed"` // before the resume cursor
	Recorded  int                 `json:"already_recorded" yaml:"already_recorded"`
	InFlight  string              `json:"in_flight,omitempty" yaml:"in_flight,omitempty"`
	Attempt   int                 `json:"attempt,omitempty" yaml:"attempt,omitempty"`
}

// Done returns the number of units no longer pending.
func (p PlatformProgress) Done() int {
	return p.Succeeded + p.Failed + p.Skipped + p.Resumed + p.Recorded
}

// Snapshot is a point-in-time copy of run progress.
type Snapshot struct {
	RunID     string             `json:"run_id" yaml:"run_id"`
	StartedAt time.Time          `json:"started_at" yaml:"started_at"`
	Running   bool               `json:"running" yaml:"running"`
	Platforms []PlatformProgress `json:"platforms" yaml:"platforms"`
}

// progress is the mutable, lock-protected counterpart of Snapshot.
type progress struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	running   bool
	platforms map[domain.PlatformKind]*PlatformProgress
	order     []domain.PlatformKind
}

func newProgress(runID string, platforms []domain.PlatformKind) *progress {
	p := &progress{
		runID:     runID,
		platforms: make(map[domain.PlatformKind]*PlatformProgress, len(platforms)),
		order:     append([]domain.PlatformKind(nil), platforms...),
	}
	for _, k := range platforms {
		p.platforms[k] = &PlatformProgress{Platform: k}
	}
	return p
}

func (p *progress) start(now time.Time, unitsPerPlatform int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedAt = now
	p.running = true
	for _, pp := range p.platforms {
		pp.Total = unitsPerPlatform
	}
}

func (p *progress) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	for _, pp := range p.platforms {
		pp.InFlight = ""
		pp.Attempt = 0
	}
}

func (p *progress) update(platform domain.PlatformKind, fn func(*PlatformProgress)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pp, ok := p.platforms[platform]; ok {
		fn(pp)
	}
}

func (p *progress) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{RunID: p.runID, StartedAt: p.startedAt, Running: p.running}
	for _, k := range p.order {
		s.Platforms = append(s.Platforms, *p.platforms[k])
	}
	return s
}

// =============================================================================
// Summary
// =============================================================================

// Summary describes a finished (or aborted) run.
type Summary struct {
	RunID       string                    `yaml:"run_id"`
	StartedAt   time.Time                 `yaml:"started_at"`
	Duration    time.Duration             `yaml:"duration"`
	Interrupted bool                      `yaml:"interrupted"`
	Platforms   []PlatformProgress        `yaml:"platforms"`
	Records     []domain.DeploymentRecord `yaml:"records"` // written by this run, in write order
}

// Totals adds up the per-platform counters.
func (s Summary) Totals() PlatformProgress {
	var t PlatformProgress
	for _, p := range s.Platforms {
		t.Total += p.Total
		t.Succeeded += p.Succeeded
		t.Failed += p.Failed
		t.Skipped += p.Skipped
		t.Resumed += p.Resumed
		t.Recorded += p.Recorded
	}
	return t
}

// Failures returns this run's failure records ordered by repository URL.
func (s Summary) Failures() []domain.DeploymentRecord {
	var out []domain.DeploymentRecord
	for _, r := range s.Records {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RepoURL < out[j].RepoURL })
	return out
}
