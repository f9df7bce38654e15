package review_engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crev/vcs_providers"
)

func TestAutoReviewerParsesAndGroundsIssues(t *testing.T) {
	manager := vcs_providers.NewManager(vcs_providers.NewRegistry(newStubProvider()))
	info, err := manager.LoadMR(context.Background(), "https://stub/demo/7")
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{
		"```json\n" +
			`{"summary": "A variable rename with one leftover.", "issues": [` +
			`{"title": "Dead assignment", "severity": "HIGH", "category": "bug", "explanationMarkdown": "extra is unused.", ` +
			`"citations": [{"path": "main.go", "side": "additions", "startLine": 3, "endLine": 3}, {"path": "main.go", "side": "additions", "startLine": 99, "endLine": 99}], ` +
			`"fixSuggestions": ["Drop var extra"], "testsToAdd": []}]}` +
			"\n```",
	}}

	reviewer := NewAutoReviewer(provider, manager)
	report, err := reviewer.Review(context.Background(), info.ReviewID)
	require.NoError(t, err)

	assert.Equal(t, "A variable rename with one leftover.", report.Summary)
	require.Len(t, report.Issues, 1)
	issue := report.Issues[0]
	assert.Equal(t, "high", issue.Severity)
	assert.Equal(t, "bug", issue.Category)
	// The citation outside the hunk is dropped.
	require.Len(t, issue.Citations, 1)
	assert.Equal(t, 3, issue.Citations[0].StartLine)
}

func TestAutoReviewerRejectsNonJSON(t *testing.T) {
	manager := vcs_providers.NewManager(vcs_providers.NewRegistry(newStubProvider()))
	info, err := manager.LoadMR(context.Background(), "https://stub/demo/7")
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{"I could not review this."}}
	reviewer := NewAutoReviewer(provider, manager)

	_, err = reviewer.Review(context.Background(), info.ReviewID)
	assert.Error(t, err)
}

func TestSuggestionGeneratorFallsBack(t *testing.T) {
	manager := vcs_providers.NewManager(vcs_providers.NewRegistry(newStubProvider()))
	info, err := manager.LoadMR(context.Background(), "https://stub/demo/7")
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{"no list here"}}
	gen := NewSuggestionGenerator(provider, manager)

	suggestions := gen.Suggest(context.Background(), info.ReviewID)
	assert.Equal(t, defaultSuggestions, suggestions)
}

func TestSuggestionGeneratorParsesList(t *testing.T) {
	manager := vcs_providers.NewManager(vcs_providers.NewRegistry(newStubProvider()))
	info, err := manager.LoadMR(context.Background(), "https://stub/demo/7")
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{`["Why was old removed?", "Is extra needed?"]`}}
	gen := NewSuggestionGenerator(provider, manager)

	suggestions := gen.Suggest(context.Background(), info.ReviewID)
	assert.Equal(t, []string{"Why was old removed?", "Is extra needed?"}, suggestions)
}
