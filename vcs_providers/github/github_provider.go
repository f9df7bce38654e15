package github

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"

	"crev/diff_review"
	"crev/vcs_providers"
	"crev/vcs_providers/contracts"
)

var pullURLPattern = regexp.MustCompile(`github[^/]*/([^/]+)/([^/]+)/pull/(\d+)`)

type cachedMR struct {
	info    *diff_review.PRInfo
	owner   string
	repo    string
	baseSHA string
	headSHA string
}

// GitHubProvider loads pull requests through the GitHub REST API. Loaded
// requests are cached in memory under a short review ID.
type GitHubProvider struct {
	client *github.Client

	mu      sync.RWMutex
	mrCache map[string]*cachedMR
}

// NewGitHubProvider creates a provider; token may be empty for public repos.
func NewGitHubProvider(token string) contracts.IMergeRequestProvider {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubProvider{
		client:  client,
		mrCache: map[string]*cachedMR{},
	}
}

func (p *GitHubProvider) Name() string {
	return "github"
}

func (p *GitHubProvider) CanHandle(url string) bool {
	return pullURLPattern.MatchString(url)
}

// LoadMR fetches the pull request metadata, its full file list, and its
// commits and comments. Commit and comment failures are logged and tolerated;
// the PR and file list are required.
func (p *GitHubProvider) LoadMR(ctx context.Context, url string) (*diff_review.PRInfo, error) {
	m := pullURLPattern.FindStringSubmatch(url)
	if m == nil {
		return nil, fmt.Errorf("not a recognizable pull request URL: %s", url)
	}
	owner, repo := m[1], m[2]
	number, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("invalid pull request number in URL: %s", url)
	}

	pr, _, err := p.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to load pull request %s/%s#%d: %v", owner, repo, number, err)
	}

	var files []diff_review.ChangedFile
	opt := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := p.client.PullRequests.ListFiles(ctx, owner, repo, number, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list changed files: %v", err)
		}
		for _, f := range page {
			files = append(files, diff_review.ChangedFile{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	info := &diff_review.PRInfo{
		ReviewID:     uuid.NewString()[:8],
		Owner:        owner,
		Repo:         repo,
		Number:       number,
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		BaseSHA:      pr.GetBase().GetSHA(),
		HeadSHA:      pr.GetHead().GetSHA(),
		Files:        files,
		CreatedAt:    pr.GetCreatedAt().Time,
		State:        pr.GetState(),
		Draft:        pr.GetDraft(),
		HeadRef:      pr.GetHead().GetRef(),
		BaseRef:      pr.GetBase().GetRef(),
		Commits:      pr.GetCommits(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
	}
	if u := pr.GetUser(); u != nil {
		info.User = &diff_review.Actor{Login: u.GetLogin(), AvatarURL: u.GetAvatarURL()}
	}

	if commits, _, err := p.client.PullRequests.ListCommits(ctx, owner, repo, number, &github.ListOptions{PerPage: 100}); err != nil {
		log.Printf("Warning: failed to list commits for %s/%s#%d: %v", owner, repo, number, err)
	} else {
		for _, c := range commits {
			commit := diff_review.Commit{
				SHA:     c.GetSHA(),
				Message: c.GetCommit().GetMessage(),
				HTMLURL: c.GetHTMLURL(),
			}
			if ca := c.GetCommit().GetAuthor(); ca != nil {
				commit.Author.Name = ca.GetName()
				commit.Author.Date = ca.GetDate().Format("2006-01-02T15:04:05Z07:00")
			}
			if a := c.GetAuthor(); a != nil {
				commit.Author.Login = a.GetLogin()
				commit.Author.AvatarURL = a.GetAvatarURL()
			}
			info.CommitsList = append(info.CommitsList, commit)
		}
	}

	if comments, _, err := p.client.Issues.ListComments(ctx, owner, repo, number, &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}); err != nil {
		log.Printf("Warning: failed to list comments for %s/%s#%d: %v", owner, repo, number, err)
	} else {
		for _, c := range comments {
			info.Comments = append(info.Comments, diff_review.Comment{
				ID:        c.GetID(),
				User:      diff_review.Actor{Login: c.GetUser().GetLogin(), AvatarURL: c.GetUser().GetAvatarURL()},
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Format("2006-01-02T15:04:05Z07:00"),
				HTMLURL:   c.GetHTMLURL(),
			})
		}
	}

	p.mu.Lock()
	p.mrCache[info.ReviewID] = &cachedMR{
		info:    info,
		owner:   owner,
		repo:    repo,
		baseSHA: info.BaseSHA,
		headSHA: info.HeadSHA,
	}
	p.mu.Unlock()

	return info, nil
}

// GetFileContents fetches both sides of a changed file: the base-SHA version
// for the old side and the head-SHA version for the new side. Added files
// skip the old side, removed files skip the new side.
func (p *GitHubProvider) GetFileContents(ctx context.Context, reviewID string, path string, status string) (string, string, error) {
	p.mu.RLock()
	cached, ok := p.mrCache[reviewID]
	p.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("%w: %s", vcs_providers.ErrSessionNotFound, reviewID)
	}

	oldContents, newContents := "", ""
	if status != diff_review.StatusAdded {
		contents, err := p.fetchAtRef(ctx, cached.owner, cached.repo, path, cached.baseSHA)
		if err != nil {
			log.Printf("Warning: failed to fetch %s at base: %v", path, err)
		} else {
			oldContents = contents
		}
	}
	if status != diff_review.StatusRemoved {
		contents, err := p.fetchAtRef(ctx, cached.owner, cached.repo, path, cached.headSHA)
		if err != nil {
			log.Printf("Warning: failed to fetch %s at head: %v", path, err)
		} else {
			newContents = contents
		}
	}
	return oldContents, newContents, nil
}

func (p *GitHubProvider) GetCachedMR(reviewID string) (*diff_review.PRInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cached, ok := p.mrCache[reviewID]
	if !ok {
		return nil, false
	}
	return cached.info, true
}

func (p *GitHubProvider) fetchAtRef(ctx context.Context, owner, repo, path, ref string) (string, error) {
	fileContent, _, _, err := p.client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", err
	}
	if fileContent == nil {
		return "", fmt.Errorf("%s is not a file at %s", path, ref)
	}
	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %v", path, err)
	}
	if strings.ContainsRune(content, '\x00') {
		return "", fmt.Errorf("%s appears to be binary", path)
	}
	return content, nil
}
