package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoList(t *testing.T) {
	input := `# repositories to host
https://github.com/acme/alpha

  https://github.com/acme/beta.git  
# https://github.com/acme/skipped
https://github.com/acme/alpha
git@github.com:acme/gamma.git
`
	repos, err := ParseRepoList(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, repos, 3)

	assert.Equal(t, "https://github.com/acme/alpha", repos[0].URL)
	assert.Equal(t, 0, repos[0].Index)
	assert.Equal(t, "beta", repos[1].Name)
	assert.Equal(t, 1, repos[1].Index)
	assert.Equal(t, "gamma", repos[2].Name)
	assert.Equal(t, "acme", repos[2].Owner)
	assert.Equal(t, 2, repos[2].Index)
}

func TestParseRepoList_Empty(t *testing.T) {
	repos, err := ParseRepoList(strings.NewReader("\n# nothing\n"))
	require.NoError(t, err)
	assert.Empty(t, repos)
}

func TestParseRepoList_InvalidURLKeepsPosition(t *testing.T) {
	input := "https://github.com/acme/alpha\nhttps://github.com/\nhttps://github.com/acme/beta\n"

	repos, err := ParseRepoList(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, repos, 3)

	assert.False(t, repos[0].Invalid)
	assert.True(t, repos[1].Invalid)
	assert.Equal(t, "https://github.com/", repos[1].URL)
	assert.Equal(t, 1, repos[1].Index)
	assert.Equal(t, "beta", repos[2].Name)
	assert.Equal(t, 2, repos[2].Index)
}

func TestReadRepoList_MissingFile(t *testing.T) {
	_, err := ReadRepoList(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrInputUnreadable)

	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestReadRepoList_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repos.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://gitlab.com/acme/site\n"), 0o644))

	repos, err := ReadRepoList(path)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, domain.RepositoryRef{URL: "https://gitlab.com/acme/site", Name: "site", Index: 0}, repos[0])
}
