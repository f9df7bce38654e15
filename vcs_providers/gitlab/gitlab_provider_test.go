package gitlab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanHandle(t *testing.T) {
	p := NewGitLabProvider("")

	assert.True(t, p.CanHandle("https://gitlab.com/group/project/-/merge_requests/17"))
	assert.True(t, p.CanHandle("https://gitlab.example.org/team/sub/project/-/merge_requests/3"))
	assert.False(t, p.CanHandle("https://github.com/owner/repo/pull/123"))
}

func TestMRURLPattern(t *testing.T) {
	m := mrURLPattern.FindStringSubmatch("https://gitlab.com/group/sub/project/-/merge_requests/8/diffs")
	require.NotNil(t, m)
	assert.Equal(t, "gitlab.com", m[1])
	assert.Equal(t, "group/sub/project", m[2])
	assert.Equal(t, "8", m[3])
}

func TestCountDiffLines(t *testing.T) {
	diff := "--- a/x.go\n+++ b/x.go\n@@ -1,2 +1,3 @@\n context\n-old line\n+new line\n+another new\n"

	adds, dels := countDiffLines(diff)
	assert.Equal(t, 2, adds)
	assert.Equal(t, 1, dels)
}
