package site

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoosePublishDir_BuildDirWithIndex(t *testing.T) {
	c := ChoosePublishDir([]string{"README.md", "index.html", "dist/index.html", "dist/app.js"})
	assert.Equal(t, "dist", c.Dir)
	assert.False(t, c.GenerateIndex)
	assert.False(t, c.Fallback)
}

func TestChoosePublishDir_BuildDirOrder(t *testing.T) {
	c := ChoosePublishDir([]string{"docs/index.html", "build/index.html"})
	assert.Equal(t, "build", c.Dir)
}

func TestChoosePublishDir_BuildDirWithoutIndex(t *testing.T) {
	c := ChoosePublishDir([]string{"public/about.html", "public/contact.htm", "public/nested/deep.html"})
	assert.Equal(t, "public", c.Dir)
	assert.True(t, c.GenerateIndex)
	assert.Equal(t, []string{"about.html", "contact.htm"}, c.HTMLFiles)
}

func TestChoosePublishDir_RootIndex(t *testing.T) {
	c := ChoosePublishDir([]string{"index.html", "style.css"})
	assert.Equal(t, "", c.Dir)
	assert.False(t, c.GenerateIndex)
	assert.False(t, c.Fallback)
}

func TestChoosePublishDir_RootDefaultPage(t *testing.T) {
	c := ChoosePublishDir([]string{"default.htm"})
	assert.Equal(t, "", c.Dir)
	assert.False(t, c.GenerateIndex)
}

func TestChoosePublishDir_RootHTMLFiles(t *testing.T) {
	c := ChoosePublishDir([]string{"b.html", "a.html", "lib/x.html"})
	assert.Equal(t, "", c.Dir)
	assert.True(t, c.GenerateIndex)
	assert.Equal(t, []string{"a.html", "b.html"}, c.HTMLFiles)
}

func TestChoosePublishDir_SrcHTMLFiles(t *testing.T) {
	c := ChoosePublishDir([]string{"src/page.html", "package.json"})
	assert.Equal(t, "src", c.Dir)
	assert.True(t, c.GenerateIndex)
	assert.Equal(t, []string{"page.html"}, c.HTMLFiles)
}

func TestChoosePublishDir_Fallback(t *testing.T) {
	c := ChoosePublishDir([]string{"main.go", ".gitignore", ".github/workflows/ci.yml", "release.zip", "go.mod"})
	assert.True(t, c.Fallback)
	assert.Equal(t, "", c.Dir)
	assert.Equal(t, []string{"go.mod", "main.go"}, c.ListedFiles)
	assert.False(t, c.Truncated)
}

func TestChoosePublishDir_FallbackTruncated(t *testing.T) {
	var files []string
	for i := 0; i < MaxListedFiles+20; i++ {
		files = append(files, fmt.Sprintf("file%03d.txt", i))
	}
	c := ChoosePublishDir(files)
	require.True(t, c.Fallback)
	assert.Len(t, c.ListedFiles, MaxListedFiles)
	assert.True(t, c.Truncated)
}

func TestFileKind(t *testing.T) {
	assert.Equal(t, "page", FileKind("a.HTML"))
	assert.Equal(t, "code", FileKind("app.js"))
	assert.Equal(t, "image", FileKind("logo.svg"))
	assert.Equal(t, "", FileKind("README.md"))
}
