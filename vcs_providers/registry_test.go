package vcs_providers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crev/diff_review"
	"crev/vcs_providers/contracts"
)

type fakeProvider struct {
	name   string
	prefix string
	loaded map[string]*diff_review.PRInfo
}

func newFakeProvider(name, prefix string) *fakeProvider {
	return &fakeProvider{name: name, prefix: prefix, loaded: map[string]*diff_review.PRInfo{}}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CanHandle(url string) bool { return strings.HasPrefix(url, p.prefix) }

func (p *fakeProvider) LoadMR(ctx context.Context, url string) (*diff_review.PRInfo, error) {
	info := &diff_review.PRInfo{ReviewID: p.name + "-1", Title: "change"}
	p.loaded[info.ReviewID] = info
	return info, nil
}

func (p *fakeProvider) GetFileContents(ctx context.Context, reviewID, path, status string) (string, string, error) {
	return "old:" + path, "new:" + path, nil
}

func (p *fakeProvider) GetCachedMR(reviewID string) (*diff_review.PRInfo, bool) {
	info, ok := p.loaded[reviewID]
	return info, ok
}

func TestRegistryFirstMatchWins(t *testing.T) {
	first := newFakeProvider("first", "https://host/")
	second := newFakeProvider("second", "https://host/")
	registry := NewRegistry(first, second)

	resolved, err := registry.Resolve("https://host/x/pull/1")
	require.NoError(t, err)
	assert.Equal(t, "first", resolved.Name())
}

func TestRegistryNoProvider(t *testing.T) {
	registry := NewRegistry(newFakeProvider("only", "https://known/"))

	_, err := registry.Resolve("https://unknown/thing")
	require.Error(t, err)
	assert.True(t, IsNoProvider(err))
}

func TestManagerRoutesFollowUpsToLoadingProvider(t *testing.T) {
	gh := newFakeProvider("gh", "https://github.com/")
	gl := newFakeProvider("gl", "https://gitlab.com/")
	manager := NewManager(NewRegistry(gl, gh))

	info, err := manager.LoadMR(context.Background(), "https://github.com/o/r/pull/7")
	require.NoError(t, err)
	assert.Equal(t, "gh-1", info.ReviewID)

	cached, err := manager.GetMR(info.ReviewID)
	require.NoError(t, err)
	assert.Equal(t, "change", cached.Title)

	oldContents, newContents, err := manager.GetFileContents(context.Background(), info.ReviewID, "a.go", diff_review.StatusModified)
	require.NoError(t, err)
	assert.Equal(t, "old:a.go", oldContents)
	assert.Equal(t, "new:a.go", newContents)
}

func TestManagerUnknownReviewID(t *testing.T) {
	manager := NewManager(NewRegistry())

	_, err := manager.GetMR("nope")
	assert.Error(t, err)

	_, _, err = manager.GetFileContents(context.Background(), "nope", "a.go", diff_review.StatusModified)
	assert.Error(t, err)
}

var _ contracts.IMergeRequestProvider = (*fakeProvider)(nil)
