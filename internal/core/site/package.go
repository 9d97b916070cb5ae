package site

import (
	"path"
	"sort"
	"strings"
)

// BytesPerMB converts the configured megabyte limit to bytes.
const BytesPerMB = 1024 * 1024

// oversizedFraction is the share of the size limit a single file may take.
const oversizedFraction = 4 // files larger than limit/4 are left out

// FileEntry is one file of the publish directory.
type FileEntry struct {
	Path string // slash separated, relative to the publish directory
	Size int64
}

// Priority orders files inside a package; lower values are added first.
func Priority(name string) int {
	base := path.Base(name)
	if base == "index.html" {
		return 1
	}
	switch strings.ToLower(path.Ext(base)) {
	case ".html", ".htm":
		return 10
	case ".css", ".js":
		return 20
	case ".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico":
		return 30
	case ".woff", ".woff2", ".ttf", ".eot":
		return 40
	case ".json", ".xml":
		return 50
	}
	return 100
}

// PackagePlan is the ordered selection of files to zip.
type PackagePlan struct {
	Include    []FileEntry
	Oversized  []FileEntry // single files above a quarter of the limit
	Dropped    []FileEntry // files that did not fit after higher priority ones
	TotalBytes int64
}

// PlanPackage orders files by priority (ties keep path order) and applies
// the per-file and total size limits. A non-positive maxBytes disables limits.
func PlanPackage(files []FileEntry, maxBytes int64) PackagePlan {
	ordered := make([]FileEntry, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := Priority(ordered[i].Path), Priority(ordered[j].Path)
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Path < ordered[j].Path
	})

	var plan PackagePlan
	for _, f := range ordered {
		if maxBytes > 0 && f.Size > maxBytes/oversizedFraction {
			plan.Oversized = append(plan.Oversized, f)
			continue
		}
		if maxBytes > 0 && plan.TotalBytes+f.Size > maxBytes {
			plan.Dropped = append(plan.Dropped, f)
			continue
		}
		plan.Include = append(plan.Include, f)
		plan.TotalBytes += f.Size
	}
	return plan
}

// SizeCheck is the result of comparing a site against the size limit.
type SizeCheck struct {
	TotalBytes int64
	LimitBytes int64
	TooLarge   bool
}

// CheckSize reports whether the publish directory exceeds maxMB megabytes.
func CheckSize(files []FileEntry, maxMB float64) SizeCheck {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	limit := int64(maxMB * BytesPerMB)
	return SizeCheck{
		TotalBytes: total,
		LimitBytes: limit,
		TooLarge:   limit > 0 && total > limit,
	}
}
