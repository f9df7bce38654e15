package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"crev/diff_review"
	"crev/vcs_providers"
	"crev/vcs_providers/contracts"
)

var mrURLPattern = regexp.MustCompile(`([^/]+\.[^/]+)/(.+?)/-/merge_requests/(\d+)`)

type mrResponse struct {
	IID          int     `json:"iid"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	State        string  `json:"state"`
	Draft        bool    `json:"draft"`
	SourceBranch string  `json:"source_branch"`
	TargetBranch string  `json:"target_branch"`
	CreatedAt    string  `json:"created_at"`
	Author       *struct {
		Username  string `json:"username"`
		AvatarURL string `json:"avatar_url"`
	} `json:"author"`
	DiffRefs struct {
		BaseSHA string `json:"base_sha"`
		HeadSHA string `json:"head_sha"`
	} `json:"diff_refs"`
	Changes []struct {
		OldPath     string `json:"old_path"`
		NewPath     string `json:"new_path"`
		NewFile     bool   `json:"new_file"`
		DeletedFile bool   `json:"deleted_file"`
		RenamedFile bool   `json:"renamed_file"`
		Diff        string `json:"diff"`
	} `json:"changes"`
}

type cachedMR struct {
	info    *diff_review.PRInfo
	host    string
	project string
	baseSHA string
	headSHA string
}

// GitLabProvider loads merge requests through the GitLab REST API using a
// plain HTTP client with PRIVATE-TOKEN auth.
type GitLabProvider struct {
	token  string
	client *http.Client

	mu      sync.RWMutex
	mrCache map[string]*cachedMR
}

// NewGitLabProvider creates a provider; token may be empty for public
// projects.
func NewGitLabProvider(token string) contracts.IMergeRequestProvider {
	return &GitLabProvider{
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		mrCache: map[string]*cachedMR{},
	}
}

func (p *GitLabProvider) Name() string {
	return "gitlab"
}

// CanHandle matches on GitLab's distinctive /-/merge_requests/ path segment,
// which also covers self-hosted instances on arbitrary hosts.
func (p *GitLabProvider) CanHandle(url string) bool {
	return strings.Contains(url, "/-/merge_requests/") && mrURLPattern.MatchString(url)
}

func (p *GitLabProvider) LoadMR(ctx context.Context, rawURL string) (*diff_review.PRInfo, error) {
	m := mrURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("not a recognizable merge request URL: %s", rawURL)
	}
	host, project := m[1], m[2]
	iid, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("invalid merge request number in URL: %s", rawURL)
	}

	base := fmt.Sprintf("https://%s/api/v4/projects/%s/merge_requests/%d", host, url.PathEscape(project), iid)

	var mr mrResponse
	if err := p.getJSON(ctx, base+"/changes", &mr); err != nil {
		return nil, fmt.Errorf("failed to load merge request %s!%d: %v", project, iid, err)
	}

	var files []diff_review.ChangedFile
	totalAdd, totalDel := 0, 0
	for _, c := range mr.Changes {
		status := diff_review.StatusModified
		switch {
		case c.NewFile:
			status = diff_review.StatusAdded
		case c.DeletedFile:
			status = diff_review.StatusRemoved
		case c.RenamedFile:
			status = diff_review.StatusRenamed
		}
		adds, dels := countDiffLines(c.Diff)
		totalAdd += adds
		totalDel += dels
		files = append(files, diff_review.ChangedFile{
			Path:      c.NewPath,
			Status:    status,
			Additions: adds,
			Deletions: dels,
			Patch:     c.Diff,
		})
	}

	info := &diff_review.PRInfo{
		ReviewID:     uuid.NewString()[:8],
		Owner:        host,
		Repo:         project,
		Number:       iid,
		Title:        mr.Title,
		Body:         mr.Description,
		BaseSHA:      mr.DiffRefs.BaseSHA,
		HeadSHA:      mr.DiffRefs.HeadSHA,
		Files:        files,
		State:        mr.State,
		Draft:        mr.Draft,
		HeadRef:      mr.SourceBranch,
		BaseRef:      mr.TargetBranch,
		Additions:    totalAdd,
		Deletions:    totalDel,
		ChangedFiles: len(files),
	}
	if t, err := time.Parse(time.RFC3339, mr.CreatedAt); err == nil {
		info.CreatedAt = t
	}
	if mr.Author != nil {
		info.User = &diff_review.Actor{Login: mr.Author.Username, AvatarURL: mr.Author.AvatarURL}
	}

	p.mu.Lock()
	p.mrCache[info.ReviewID] = &cachedMR{
		info:    info,
		host:    host,
		project: project,
		baseSHA: info.BaseSHA,
		headSHA: info.HeadSHA,
	}
	p.mu.Unlock()

	return info, nil
}

func (p *GitLabProvider) GetFileContents(ctx context.Context, reviewID string, path string, status string) (string, string, error) {
	p.mu.RLock()
	cached, ok := p.mrCache[reviewID]
	p.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("%w: %s", vcs_providers.ErrSessionNotFound, reviewID)
	}

	oldContents, newContents := "", ""
	if status != diff_review.StatusAdded {
		contents, err := p.fetchRaw(ctx, cached.host, cached.project, path, cached.baseSHA)
		if err != nil {
			log.Printf("Warning: failed to fetch %s at base: %v", path, err)
		} else {
			oldContents = contents
		}
	}
	if status != diff_review.StatusRemoved {
		contents, err := p.fetchRaw(ctx, cached.host, cached.project, path, cached.headSHA)
		if err != nil {
			log.Printf("Warning: failed to fetch %s at head: %v", path, err)
		} else {
			newContents = contents
		}
	}
	return oldContents, newContents, nil
}

func (p *GitLabProvider) GetCachedMR(reviewID string) (*diff_review.PRInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cached, ok := p.mrCache[reviewID]
	if !ok {
		return nil, false
	}
	return cached.info, true
}

func (p *GitLabProvider) fetchRaw(ctx context.Context, host, project, path, ref string) (string, error) {
	endpoint := fmt.Sprintf("https://%s/api/v4/projects/%s/repository/files/%s/raw?ref=%s",
		host, url.PathEscape(project), url.PathEscape(path), url.QueryEscape(ref))

	body, err := p.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(body, '\x00') {
		return "", fmt.Errorf("%s appears to be binary", path)
	}
	return body, nil
}

func (p *GitLabProvider) getJSON(ctx context.Context, endpoint string, out any) error {
	body, err := p.get(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("failed to parse API response: %v", err)
	}
	return nil
}

func (p *GitLabProvider) get(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	if p.token != "" {
		req.Header.Set("PRIVATE-TOKEN", p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return string(data), nil
}

// countDiffLines tallies added and removed lines of a unified diff body.
func countDiffLines(diff string) (additions int, deletions int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}
