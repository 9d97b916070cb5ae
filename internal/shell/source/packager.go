package source

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/core/site"
)

// =============================================================================
// Package
// =============================================================================

// Package is a zipped publish directory ready for upload.
type Package struct {
	Repo      domain.RepositoryRef
	Framework site.Framework
	Zip       []byte
	Files     []string // zip entries in upload order
	Omitted   []string // files left out by the per-file or total limit

	SiteBytes  int64
	LimitBytes int64
	// TooLarge is set when the publish directory exceeds the size limit.
	// Such packages carry no zip and must not be deployed.
	TooLarge bool
}

// Packager zips publish directories under a size limit.
type Packager struct {
	MaxSizeMB float64
}

// Package checks the size of s and zips its publish directory.
func (p Packager) Package(repo domain.RepositoryRef, s *Site) (*Package, error) {
	check := site.CheckSize(s.Files, p.MaxSizeMB)
	pkg := &Package{
		Repo:       repo,
		Framework:  s.Framework,
		SiteBytes:  check.TotalBytes,
		LimitBytes: check.LimitBytes,
		TooLarge:   check.TooLarge,
	}
	if check.TooLarge {
		return pkg, nil
	}

	plan := site.PlanPackage(s.Files, check.LimitBytes)
	for _, f := range plan.Oversized {
		pkg.Omitted = append(pkg.Omitted, f.Path)
	}
	for _, f := range plan.Dropped {
		pkg.Omitted = append(pkg.Omitted, f.Path)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range plan.Include {
		if err := addFile(zw, s.PublishDir, f.Path); err != nil {
			zw.Close()
			return nil, &SourceError{Op: "Package", Repo: repo.URL, Err: err}
		}
		pkg.Files = append(pkg.Files, f.Path)
	}
	if err := zw.Close(); err != nil {
		return nil, &SourceError{Op: "Package", Repo: repo.URL, Err: err}
	}
	pkg.Zip = buf.Bytes()
	return pkg, nil
}

func addFile(zw *zip.Writer, dir, name string) error {
	src, err := os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}

// =============================================================================
// Pipeline
// =============================================================================

// Preparer produces the deployable package for a repository.
type Preparer interface {
	Prepare(ctx context.Context, repo domain.RepositoryRef) (*Package, error)
}

// Pipeline fetches, prepares and packages repositories in a scratch directory
// that is removed once the zip is built.
type Pipeline struct {
	fetcher  Fetcher
	packager Packager
	workDir  string
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline. An empty workDir uses the system temp directory.
func NewPipeline(fetcher Fetcher, maxSizeMB float64, workDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:  fetcher,
		packager: Packager{MaxSizeMB: maxSizeMB},
		workDir:  workDir,
		logger:   logger.With("component", "source"),
	}
}

// Prepare implements Preparer.
func (p *Pipeline) Prepare(ctx context.Context, repo domain.RepositoryRef) (*Package, error) {
	if p.workDir != "" {
		if err := os.MkdirAll(p.workDir, 0o755); err != nil {
			return nil, &SourceError{Op: "Prepare", Repo: repo.URL, Err: err}
		}
	}
	dir, err := os.MkdirTemp(p.workDir, "repohost-*")
	if err != nil {
		return nil, &SourceError{Op: "Prepare", Repo: repo.URL, Err: err}
	}
	defer os.RemoveAll(dir)

	root, err := p.fetcher.Fetch(ctx, repo, dir)
	if errors.Is(err, ErrArchiveTooLarge) {
		p.logger.Warn("archive exceeds download cap", "repo", repo.URL, "error", err)
		return &Package{
			Repo:       repo,
			LimitBytes: int64(p.packager.MaxSizeMB * site.BytesPerMB),
			TooLarge:   true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	s, err := PrepareSite(repo, root)
	if err != nil {
		return nil, err
	}
	p.logger.Info("site prepared",
		"repo", repo.URL,
		"publish_dir", s.Choice.Dir,
		"framework", s.Framework,
		"reason", s.Choice.Reason,
	)

	pkg, err := p.packager.Package(repo, s)
	if err != nil {
		return nil, err
	}
	if len(pkg.Omitted) > 0 {
		p.logger.Warn("files left out of package", "repo", repo.URL, "count", len(pkg.Omitted))
	}
	return pkg, nil
}
