// Package report renders the outcome of a deployment run for humans (a
// terminal table) and for tooling (a YAML summary file).
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/orchestrator"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
)

// maxListedFailures bounds the failure list printed after the table.
const maxListedFailures = 20

// =============================================================================
// Terminal Summary
// =============================================================================

// Render writes a styled per-platform table of s followed by the failures of
// this run.
func Render(w io.Writer, s orchestrator.Summary) error {
	var b strings.Builder

	title := bannerStyle.Render("repohost") + subtitle.Render(fmt.Sprintf("  run %s, %s", s.RunID, s.Duration.Round(time.Second)))
	b.WriteString(title + "\n\n")

	header := fmt.Sprintf("  %-14s %6s %9s %7s %8s %8s %8s", "PLATFORM", "TOTAL", "SUCCEEDED", "FAILED", "SKIPPED", "RESUMED", "SETTLED")
	b.WriteString(tableHeader.Render(header) + "\n")

	for _, p := range s.Platforms {
		b.WriteString(row(p.Platform.DisplayName(), p) + "\n")
	}
	if len(s.Platforms) > 1 {
		b.WriteString(dimText.Render(row("all", s.Totals())) + "\n")
	}

	failures := s.Failures()
	if len(failures) > 0 {
		b.WriteString("\n" + failText.Render("Failures") + "\n")
		for i, rec := range failures {
			if i == maxListedFailures {
				b.WriteString(dimText.Render(fmt.Sprintf("  ... and %d more", len(failures)-maxListedFailures)) + "\n")
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				warnText.Render(fmt.Sprintf("%-8s", rec.Platform)),
				rec.RepoURL,
				dimText.Render(rec.Notes),
			))
		}
	}

	if s.Interrupted {
		b.WriteString(warningBox.Render("Run interrupted. Rerun the same command to continue where it stopped.") + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func row(name string, p orchestrator.PlatformProgress) string {
	succeeded := fmt.Sprintf("%9d", p.Succeeded)
	if p.Succeeded > 0 {
		succeeded = okText.Render(succeeded)
	}
	failed := fmt.Sprintf("%7d", p.Failed)
	if p.Failed > 0 {
		failed = failText.Render(failed)
	}
	return fmt.Sprintf("  %-14s %6d %s %s %8d %8d %8d", name, p.Total, succeeded, failed, p.Skipped, p.Resumed, p.Recorded)
}

// =============================================================================
// YAML Summary
// =============================================================================

// Document is the YAML form of a run summary.
type Document struct {
	RunID       string           `yaml:"run_id"`
	StartedAt   time.Time        `yaml:"started_at"`
	Duration    time.Duration    `yaml:"duration"`
	Interrupted bool             `yaml:"interrupted"`
	Totals      PlatformCounts   `yaml:"totals"`
	Platforms   []PlatformCounts `yaml:"platforms"`
	Records     []RecordEntry    `yaml:"records,omitempty"`
}

// PlatformCounts mirrors orchestrator.PlatformProgress without in-flight state.
type PlatformCounts struct {
	Platform  string `yaml:"platform,omitempty"`
	Total     int    `yaml:"total"`
	Succeeded int    `yaml:"succeeded"`
	Failed    int    `yaml:"failed"`
	Skipped   int    `yaml:"skipped"`
	Resumed   int    `yaml:"resumed"`
	Recorded  int    `yaml:"already_recorded"`
}

// RecordEntry is one record written during the run.
type RecordEntry struct {
	RepoURL      string `yaml:"repo_url"`
	Platform     string `yaml:"platform"`
	Status       string `yaml:"status"`
	HostedURL    string `yaml:"hosted_url,omitempty"`
	Notes        string `yaml:"notes,omitempty"`
	AttemptCount int    `yaml:"attempt_count"`
}

// NewDocument converts a summary to its YAML form.
func NewDocument(s orchestrator.Summary) Document {
	doc := Document{
		RunID:       s.RunID,
		StartedAt:   s.StartedAt.UTC(),
		Duration:    s.Duration,
		Interrupted: s.Interrupted,
		Totals:      counts(s.Totals()),
	}
	for _, p := range s.Platforms {
		doc.Platforms = append(doc.Platforms, counts(p))
	}
	for _, r := range s.Records {
		doc.Records = append(doc.Records, entry(r))
	}
	return doc
}

func counts(p orchestrator.PlatformProgress) PlatformCounts {
	return PlatformCounts{
		Platform:  string(p.Platform),
		Total:     p.Total,
		Succeeded: p.Succeeded,
		Failed:    p.Failed,
		Skipped:   p.Skipped,
		Resumed:   p.Resumed,
		Recorded:  p.Recorded,
	}
}

func entry(r domain.DeploymentRecord) RecordEntry {
	return RecordEntry{
		RepoURL:      r.RepoURL,
		Platform:     string(r.Platform),
		Status:       string(r.Status),
		HostedURL:    r.HostedURL,
		Notes:        r.Notes,
		AttemptCount: r.AttemptCount,
	}
}

// WriteSummary writes s as YAML to path, replacing the file atomically.
func WriteSummary(path string, s orchestrator.Summary) error {
	return store.WriteFileAtomic(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(s)); err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		return enc.Close()
	})
}

// ReadSummary loads a YAML summary written by WriteSummary.
func ReadSummary(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse summary %s: %w", path, err)
	}
	return doc, nil
}
