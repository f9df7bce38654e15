package sandbox

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunsCommandWithCodeFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}

	sb := NewCommandSandbox([]string{"cat"}, 0)

	out, err := sb.Execute(context.Background(), "hello from the snippet", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "hello from the snippet", out)
}

func TestExecuteExposesVarsFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}

	sb := NewCommandSandbox([]string{"sh"}, 0)

	out, err := sb.Execute(context.Background(), `cat "$`+VarsEnvKey+`"`, map[string]any{"question": "why"})
	require.NoError(t, err)
	assert.Contains(t, out, `"question":"why"`)
}

func TestExecuteFailureReturnsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}

	sb := NewCommandSandbox([]string{"sh"}, 0)

	out, err := sb.Execute(context.Background(), "echo some output; exit 3", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution failed")
	assert.Contains(t, out, "some output")
}

func TestExecuteTruncatesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}

	sb := NewCommandSandbox([]string{"sh"}, 10)

	out, err := sb.Execute(context.Background(), `printf 'aaaaaaaaaaaaaaaaaaaa'`, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "aaaaaaaaaa"))
	assert.Contains(t, out, "output truncated")
}

func TestExecuteMissingCommand(t *testing.T) {
	sb := NewCommandSandbox(nil, 0)

	_, err := sb.Execute(context.Background(), "code", nil)
	assert.Error(t, err)
}
