package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Slugify Tests
// =============================================================================

func TestSlugify_Basic(t *testing.T) {
	result := Slugify("Hello World")
	assert.Equal(t, "hello-world", result)
}

func TestSlugify_Uppercase(t *testing.T) {
	result := Slugify("UPPERCASE NAME")
	assert.Equal(t, "uppercase-name", result)
}

func TestSlugify_UnderscoresAndDots(t *testing.T) {
	result := Slugify("My_Site.v2")
	assert.Equal(t, "my-site-v2", result)
}

func TestSlugify_RemovesPunctuation(t *testing.T) {
	result := Slugify("hello, world.")
	assert.Equal(t, "hello-world", result)
}

func TestSlugify_CollapsesSeparators(t *testing.T) {
	result := Slugify("a__b..c  d")
	assert.Equal(t, "a-b-c-d", result)
}

func TestSlugify_TrimsHyphens(t *testing.T) {
	result := Slugify("-._leading and trailing_.-")
	assert.Equal(t, "leading-and-trailing", result)
}

func TestSlugify_Empty(t *testing.T) {
	assert.Equal(t, "", Slugify(""))
	assert.Equal(t, "", Slugify("!!!"))
}

// =============================================================================
// SiteName Tests
// =============================================================================

func TestSiteName_WithSuffix(t *testing.T) {
	assert.Equal(t, "my-repo-abc123", SiteName("My_Repo", "abc123"))
}

func TestSiteName_WithoutSuffix(t *testing.T) {
	assert.Equal(t, "my-repo", SiteName("my.repo", ""))
}

func TestSiteName_EmptyFallsBackToSite(t *testing.T) {
	assert.Equal(t, "site-abc", SiteName("???", "abc"))
}

func TestSiteName_Truncates(t *testing.T) {
	name := SiteName(strings.Repeat("a", 100), "1700000000")
	assert.LessOrEqual(t, len(name), 63)
	assert.True(t, strings.HasSuffix(name, "-1700000000"))
}
