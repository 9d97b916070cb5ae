package source

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/core/site"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// skippedDirs are never walked when listing a checkout.
var skippedDirs = map[string]bool{".git": true, "node_modules": true}

// Site is a checkout with its publish directory selected and prepared.
type Site struct {
	Root       string // checkout root
	PublishDir string // absolute publish directory
	Choice     site.Choice
	Framework  site.Framework
	Files      []site.FileEntry // publish directory contents after preparation
}

// PrepareSite picks the publish directory of the checkout at root and writes
// any generated landing page into it.
func PrepareSite(repo domain.RepositoryRef, root string) (*Site, error) {
	files, err := listFiles(root)
	if err != nil {
		return nil, &SourceError{Op: "PrepareSite", Repo: repo.URL, Err: err}
	}

	rootFiles := make(map[string]bool)
	var names []string
	for _, f := range files {
		names = append(names, f.Path)
		if !strings.Contains(f.Path, "/") {
			rootFiles[f.Path] = true
		}
	}

	var pkgJSON []byte
	if rootFiles["package.json"] {
		pkgJSON, _ = os.ReadFile(filepath.Join(root, "package.json"))
	}

	s := &Site{
		Root:      root,
		Choice:    site.ChoosePublishDir(names),
		Framework: site.DetectFramework(pkgJSON, rootFiles),
	}
	s.PublishDir = filepath.Join(root, filepath.FromSlash(s.Choice.Dir))

	switch {
	case s.Choice.GenerateIndex:
		err = writePage(filepath.Join(s.PublishDir, "index.html"), "index.html.tmpl", indexPage{
			Title: repo.Name,
			Pages: s.Choice.HTMLFiles,
		})
	case s.Choice.Fallback:
		page := previewPage{
			Title:     repo.Name,
			RepoURL:   repo.URL,
			Truncated: s.Choice.Truncated,
		}
		if s.Framework != site.FrameworkStatic {
			page.Framework = string(s.Framework)
		}
		for _, f := range s.Choice.ListedFiles {
			page.Files = append(page.Files, previewFile{Path: f, Kind: site.FileKind(f)})
		}
		err = writePage(filepath.Join(s.PublishDir, "index.html"), "preview.html.tmpl", page)
	}
	if err != nil {
		return nil, &SourceError{Op: "PrepareSite", Repo: repo.URL, Err: err}
	}

	s.Files, err = listFiles(s.PublishDir)
	if err != nil {
		return nil, &SourceError{Op: "PrepareSite", Repo: repo.URL, Err: err}
	}
	return s, nil
}

type indexPage struct {
	Title string
	Pages []string
}

type previewFile struct {
	Path string
	Kind string
}

type previewPage struct {
	Title     string
	RepoURL   string
	Framework string
	Files     []previewFile
	Truncated bool
}

func writePage(dest, name string, data any) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(dest), err)
	}
	if err := pageTemplates.ExecuteTemplate(f, name, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return f.Close()
}

// listFiles returns the regular files under dir as slash separated relative
// paths, skipping VCS metadata and dependency folders.
func listFiles(dir string) ([]site.FileEntry, error) {
	var files []site.FileEntry
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, site.FileEntry{Path: path.Clean(filepath.ToSlash(rel)), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return files, nil
}
