package diff_review

import "time"

// Diff sides a selection or citation can refer to.
const (
	SideAdditions = "additions"
	SideDeletions = "deletions"
	SideUnified   = "unified"
)

// Selection modes in the diff viewer.
const (
	ModeRange      = "range"
	ModeSingleLine = "single-line"
	ModeHunk       = "hunk"
	ModeFile       = "file"
	ModeChangeset  = "changeset"
)

// File change statuses.
const (
	StatusAdded    = "added"
	StatusRemoved  = "removed"
	StatusModified = "modified"
	StatusRenamed  = "renamed"
)

// FileContents is one side of a changed file.
type FileContents struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
	CacheKey string `json:"cacheKey,omitempty"`
}

// DiffFileContext is the assembled context for a single changed file.
// Either content based (old/new populated) or patch based.
type DiffFileContext struct {
	Path         string        `json:"path"`
	OldFile      *FileContents `json:"oldFile,omitempty"`
	NewFile      *FileContents `json:"newFile,omitempty"`
	Patch        string        `json:"patch,omitempty"`
	LanguageHint string        `json:"languageHint,omitempty"`
	Additions    int           `json:"additions"`
	Deletions    int           `json:"deletions"`
	Status       string        `json:"status"`
}

// Selection is a transient user selection in the diff viewer, supplied per
// question and never persisted.
type Selection struct {
	Path      string `json:"path"`
	Side      string `json:"side"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Mode      string `json:"mode"`
}

// Citation points at specific diff lines backing part of an answer.
// Invariant: StartLine <= EndLine.
type Citation struct {
	Path      string `json:"path"`
	Side      string `json:"side"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Label     string `json:"label,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// AnswerBlock is one segment of a parsed answer: prose or fenced code.
type AnswerBlock struct {
	Type     string `json:"type"` // markdown or code
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// ReviewIssue is a finding from the single-pass automatic review.
type ReviewIssue struct {
	Title               string     `json:"title"`
	Severity            string     `json:"severity"` // low, medium, high, critical
	Category            string     `json:"category"` // bug, investigation, informational
	ExplanationMarkdown string     `json:"explanationMarkdown"`
	Citations           []Citation `json:"citations"`
	FixSuggestions      []string   `json:"fixSuggestions,omitempty"`
	TestsToAdd          []string   `json:"testsToAdd,omitempty"`
}

// ChangedFile is one entry of a merge request's file list.
type ChangedFile struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// Actor identifies a user on the hosting provider.
type Actor struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// CommitAuthor is commit authorship metadata.
type CommitAuthor struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Login     string `json:"login,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Commit is one commit of a merge request.
type Commit struct {
	SHA     string       `json:"sha"`
	Message string       `json:"message"`
	Author  CommitAuthor `json:"author"`
	HTMLURL string       `json:"html_url,omitempty"`
}

// Comment is a conversation comment on a merge request.
type Comment struct {
	ID        int64  `json:"id"`
	User      Actor  `json:"user"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	HTMLURL   string `json:"html_url,omitempty"`
}

// PRInfo is the loaded metadata of a merge/pull request, cached per session.
type PRInfo struct {
	ReviewID     string        `json:"reviewId"`
	Owner        string        `json:"owner"`
	Repo         string        `json:"repo"`
	Number       int           `json:"number"`
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	BaseSHA      string        `json:"baseSha"`
	HeadSHA      string        `json:"headSha"`
	Files        []ChangedFile `json:"files"`
	CreatedAt    time.Time     `json:"createdAt"`
	User         *Actor        `json:"user,omitempty"`
	State        string        `json:"state"`
	Draft        bool          `json:"draft"`
	HeadRef      string        `json:"headRef"`
	BaseRef      string        `json:"baseRef"`
	Commits      int           `json:"commits"`
	Additions    int           `json:"additions"`
	Deletions    int           `json:"deletions"`
	ChangedFiles int           `json:"changedFiles"`
	CommitsList  []Commit      `json:"commitsList"`
	Comments     []Comment     `json:"comments"`
}

// Message is one turn of a question/answer conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
