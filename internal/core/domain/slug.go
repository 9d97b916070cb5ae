package domain

import (
	"fmt"
	"strings"
)

// =============================================================================
// Slug Generation
// =============================================================================

// maxSiteNameLength keeps generated names inside every platform's subdomain limit.
const maxSiteNameLength = 63

// Slugify converts a name to a hostname-safe slug.
//
// The transformation rules are:
//   - Lowercase letters (a-z) and digits (0-9) are kept as-is
//   - Uppercase letters (A-Z) are converted to lowercase
//   - Spaces, underscores, dots and hyphens become a single hyphen
//   - All other characters are removed
//   - Leading and trailing hyphens are trimmed
//
// Example:
//
//	Slugify("My_Site.v2")   // returns "my-site-v2"
//	Slugify("Hello World")  // returns "hello-world"
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
			lastHyphen = false
		case r == ' ' || r == '_' || r == '.' || r == '-':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// SiteName builds a platform site name from a repository name and a unique suffix.
func SiteName(repoName, suffix string) string {
	base := Slugify(repoName)
	if base == "" {
		base = "site"
	}
	if suffix == "" {
		if len(base) > maxSiteNameLength {
			base = strings.TrimRight(base[:maxSiteNameLength], "-")
		}
		return base
	}
	limit := maxSiteNameLength - len(suffix) - 1
	if len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return fmt.Sprintf("%s-%s", base, suffix)
}
