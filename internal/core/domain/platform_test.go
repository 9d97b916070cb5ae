package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatformKind(t *testing.T) {
	tests := []struct {
		input string
		want  PlatformKind
	}{
		{"netlify", PlatformNetlify},
		{"Netlify", PlatformNetlify},
		{" render ", PlatformRender},
		{"github", PlatformGitHubPages},
		{"github-pages", PlatformGitHubPages},
		{"ghpages", PlatformGitHubPages},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlatformKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePlatformKind_Unknown(t *testing.T) {
	_, err := ParsePlatformKind("heroku")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestParsePlatformKinds_CommaAndDedup(t *testing.T) {
	kinds, err := ParsePlatformKinds([]string{"render,netlify", "render", "github"})
	require.NoError(t, err)
	assert.Equal(t, []PlatformKind{PlatformRender, PlatformNetlify, PlatformGitHubPages}, kinds)
}

func TestParsePlatformKinds_Empty(t *testing.T) {
	kinds, err := ParsePlatformKinds([]string{"", " , "})
	require.NoError(t, err)
	assert.Empty(t, kinds)
}

func TestPlatformKind_Valid(t *testing.T) {
	for _, p := range AllPlatforms() {
		assert.True(t, p.Valid())
		assert.NotEmpty(t, p.DisplayName())
	}
	assert.False(t, PlatformKind("vercel").Valid())
}
