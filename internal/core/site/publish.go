package site

import (
	"path"
	"sort"
	"strings"
)

// BuildDirs are the directories searched for prebuilt output, in order.
var BuildDirs = []string{"build", "dist", "public", "_site", "out", "docs"}

// indexNames are accepted as an existing landing page at the repository root.
var indexNames = []string{"index.html", "index.htm", "default.html", "default.htm"}

// MaxListedFiles bounds the fallback file listing page.
const MaxListedFiles = 100

// Choice describes which directory to publish and what to generate in it.
type Choice struct {
	// Dir is the publish directory relative to the checkout root ("" = root).
	Dir string
	// GenerateIndex asks for an index.html linking HTMLFiles.
	GenerateIndex bool
	HTMLFiles     []string
	// Fallback asks for a repository preview page listing ListedFiles.
	Fallback    bool
	ListedFiles []string
	Truncated   bool
	Reason      string
}

// IsHTML reports whether name has an .html or .htm extension.
func IsHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// ChoosePublishDir picks the publish directory from a listing of slash
// separated file paths relative to the checkout root.
func ChoosePublishDir(files []string) Choice {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}

	for _, dir := range BuildDirs {
		if set[dir+"/index.html"] {
			return Choice{Dir: dir, Reason: "existing build directory with index.html: " + dir}
		}
		if html := htmlFilesIn(files, dir); len(html) > 0 {
			return Choice{Dir: dir, GenerateIndex: true, HTMLFiles: html, Reason: "HTML files in " + dir}
		}
	}

	for _, name := range indexNames {
		if set[name] {
			return Choice{Reason: "found " + name + " in repository root"}
		}
	}

	if html := htmlFilesIn(files, ""); len(html) > 0 {
		return Choice{GenerateIndex: true, HTMLFiles: html, Reason: "HTML files in repository root"}
	}

	if html := htmlFilesIn(files, "src"); len(html) > 0 {
		return Choice{Dir: "src", GenerateIndex: true, HTMLFiles: html, Reason: "HTML files in src"}
	}

	listed, truncated := listableFiles(files)
	return Choice{Fallback: true, ListedFiles: listed, Truncated: truncated, Reason: "no static site found, generating preview page"}
}

// htmlFilesIn returns the HTML files directly inside dir ("" = root), sorted.
func htmlFilesIn(files []string, dir string) []string {
	var out []string
	for _, f := range files {
		parent := path.Dir(f)
		if parent == "." {
			parent = ""
		}
		if parent != dir || !IsHTML(f) {
			continue
		}
		out = append(out, path.Base(f))
	}
	sort.Strings(out)
	return out
}

func listableFiles(files []string) ([]string, bool) {
	var out []string
	for _, f := range files {
		base := path.Base(f)
		if strings.HasPrefix(base, ".") || strings.HasSuffix(strings.ToLower(base), ".zip") || hiddenDir(f) {
			continue
		}
		if len(out) >= MaxListedFiles {
			sort.Strings(out)
			return out, true
		}
		out = append(out, f)
	}
	sort.Strings(out)
	return out, false
}

func hiddenDir(f string) bool {
	for _, part := range strings.Split(path.Dir(f), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// FileKind labels a file for the preview listing.
func FileKind(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return "page"
	case ".css", ".js", ".json":
		return "code"
	case ".jpg", ".jpeg", ".png", ".gif", ".svg":
		return "image"
	}
	return ""
}
