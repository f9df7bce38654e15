package review_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crev/diff_review"
	contracts "crev/providers/contracts"
	"crev/vcs_providers"
)

const maxReviewFiles = 100

const autoReviewSystemPrompt = `You are a precise code reviewer. You receive the metadata and patches of a code change and report genuine issues: bugs, regressions, risky behavior changes, and missing tests. Do not report style nits.

Respond with a single JSON object:
{"summary": "<one paragraph>", "issues": [{"title": "...", "severity": "low|medium|high|critical", "category": "bug|investigation|informational", "explanationMarkdown": "...", "citations": [{"path": "...", "side": "additions|deletions", "startLine": 1, "endLine": 1}], "fixSuggestions": ["..."], "testsToAdd": ["..."]}]}

Cite only line numbers that literally appear in the provided patches.`

// ReviewReport is the result of a single-pass automatic review.
type ReviewReport struct {
	Summary string                   `json:"summary"`
	Issues  []diff_review.ReviewIssue `json:"issues"`
}

// AutoReviewer runs a fast single-call review over a loaded merge request's
// patches. Unlike the iterative runner it never executes code.
type AutoReviewer struct {
	provider contracts.IChatAIProvider
	manager  *vcs_providers.Manager
}

func NewAutoReviewer(provider contracts.IChatAIProvider, manager *vcs_providers.Manager) *AutoReviewer {
	return &AutoReviewer{provider: provider, manager: manager}
}

// Review produces a report for the given review ID. Citations that point
// outside the rendered hunks are dropped from each issue.
func (a *AutoReviewer) Review(ctx context.Context, reviewID string) (*ReviewReport, error) {
	info, err := a.manager.GetMR(reviewID)
	if err != nil {
		return nil, err
	}

	files := info.Files
	if len(files) > maxReviewFiles {
		files = files[:maxReviewFiles]
	}

	userInput := fmt.Sprintf("Title: %s\n\nDescription:\n%s\n\n%s",
		info.Title, info.Body, diff_review.BuildPatchContext(files))

	var sb strings.Builder
	for resp := range a.provider.ChatCompletionRequest(ctx, userInput, autoReviewSystemPrompt) {
		if resp.Err != nil {
			return nil, fmt.Errorf("review model call failed: %v", resp.Err)
		}
		if resp.Done {
			break
		}
		sb.WriteString(resp.Content)
	}

	report, err := parseReviewReport(sb.String())
	if err != nil {
		return nil, err
	}

	index := diff_review.BuildHunkIndex(info.Files)
	for i := range report.Issues {
		report.Issues[i].Citations = diff_review.GroundCitations(report.Issues[i].Citations, index)
	}
	return report, nil
}

// parseReviewReport decodes the model response, tolerating fences and
// surrounding prose around the JSON object.
func parseReviewReport(raw string) (*ReviewReport, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("review response contained no JSON object")
	}

	var decoded struct {
		Summary string `json:"summary"`
		Issues  []struct {
			Title               string   `json:"title"`
			Severity            string   `json:"severity"`
			Category            string   `json:"category"`
			ExplanationMarkdown string   `json:"explanationMarkdown"`
			Citations           any      `json:"citations"`
			FixSuggestions      []string `json:"fixSuggestions"`
			TestsToAdd          []string `json:"testsToAdd"`
		} `json:"issues"`
	}
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse review response: %v", err)
	}

	report := &ReviewReport{Summary: decoded.Summary}
	for _, issue := range decoded.Issues {
		report.Issues = append(report.Issues, diff_review.ReviewIssue{
			Title:               issue.Title,
			Severity:            normalizeSeverity(issue.Severity),
			Category:            normalizeCategory(issue.Category),
			ExplanationMarkdown: issue.ExplanationMarkdown,
			Citations:           diff_review.ParseCitations(issue.Citations),
			FixSuggestions:      issue.FixSuggestions,
			TestsToAdd:          issue.TestsToAdd,
		})
	}
	return report, nil
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "medium", "high", "critical":
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return "medium"
	}
}

func normalizeCategory(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bug", "investigation", "informational":
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return "informational"
	}
}
