package review_engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crev/code_snapshot"
)

func newCodebaseFixture(t *testing.T, model IActionModel, sb *fakeSandbox, traceDir string) *CodebaseRunner {
	t.Helper()
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "main.py"), []byte("def main():\n    pass\n"), 0o644))

	builder := code_snapshot.NewBuilder(200000, 5000000, nil, nil, nil)
	engine := NewEngine(model, sb, 0, 0)
	return NewCodebaseRunner(engine, builder, repo, traceDir)
}

func TestCodebaseRunnerAsk(t *testing.T) {
	model := &fakeModel{actions: []Action{
		action("read the entrypoint", "print(codebase['main.py'])"),
		finalAction(`{"answer": "It defines main.", "sources": ["main.py"]}`),
	}}
	sb := &fakeSandbox{outputs: []string{"def main(): ..."}}
	runner := newCodebaseFixture(t, model, sb, "")

	answer, sources, err := runner.Ask(context.Background(), "what does this do?", nil)
	require.NoError(t, err)

	assert.Equal(t, "It defines main.", answer)
	assert.Equal(t, []string{"main.py"}, sources)

	// The snapshot content reaches the sandbox.
	require.Len(t, sb.vars, 1)
	codebase, ok := sb.vars[0]["codebase"].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, codebase["main.py"], "def main()")
	assert.Equal(t, "what does this do?", sb.vars[0]["question"])

	require.Len(t, runner.History(), 1)
	runner.ResetHistory()
	assert.Empty(t, runner.History())
}

func TestCodebaseRunnerSavesTrace(t *testing.T) {
	traceDir := t.TempDir()
	model := &fakeModel{actions: []Action{
		finalAction(`{"answer": "quick", "sources": []}`),
	}}
	runner := newCodebaseFixture(t, model, &fakeSandbox{}, traceDir)

	_, _, err := runner.Ask(context.Background(), "q", nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(traceDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseSources(t *testing.T) {
	assert.Equal(t, []string{"a.go", "b.go"}, parseSources(`["a.go", "b.go"]`))
	assert.Equal(t, []string{"a.go", "b.go"}, parseSources("a.go, b.go"))
	assert.Nil(t, parseSources(""))
}
