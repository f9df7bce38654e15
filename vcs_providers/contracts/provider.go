package contracts

import (
	"context"

	"crev/diff_review"
)

// IMergeRequestProvider loads merge/pull request data from one hosting
// provider. Implementations cache loaded requests under their review ID.
type IMergeRequestProvider interface {
	Name() string
	CanHandle(url string) bool
	LoadMR(ctx context.Context, url string) (*diff_review.PRInfo, error)
	GetFileContents(ctx context.Context, reviewID string, path string, status string) (oldContents string, newContents string, err error)
	GetCachedMR(reviewID string) (*diff_review.PRInfo, bool)
}
