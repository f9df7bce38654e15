package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanHandle(t *testing.T) {
	p := NewGitHubProvider("")

	assert.True(t, p.CanHandle("https://github.com/owner/repo/pull/123"))
	assert.True(t, p.CanHandle("https://github.example.com/owner/repo/pull/9"))
	assert.False(t, p.CanHandle("https://gitlab.com/group/project/-/merge_requests/5"))
	assert.False(t, p.CanHandle("https://github.com/owner/repo/issues/123"))
}

func TestPullURLPattern(t *testing.T) {
	m := pullURLPattern.FindStringSubmatch("https://github.com/octo/hello-world/pull/42/files")
	require.NotNil(t, m)
	assert.Equal(t, "octo", m[1])
	assert.Equal(t, "hello-world", m[2])
	assert.Equal(t, "42", m[3])
}

func TestGetCachedMRUnknownID(t *testing.T) {
	p := NewGitHubProvider("")
	_, ok := p.GetCachedMR("missing")
	assert.False(t, ok)
}
