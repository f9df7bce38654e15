package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"crev/constants/lipgloss"
	"crev/utils"
)

// reviewCmd: crev review
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a merge request, or ask a one-shot question about it.",
	Long: `The 'review' subcommand loads a GitHub pull request or GitLab merge request
by URL. Without a question it runs a single-pass automatic review and prints
the findings. With -q it answers that one question against the change,
grounding citations in the diff.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		url, _ := cmd.Flags().GetString("request")
		question, _ := cmd.Flags().GetString("question")
		handleReviewCommand(rootDependencies, url, question)
	},
}

func init() {
	reviewCmd.Flags().StringP("request", "r", "", "Merge/pull request URL")
	reviewCmd.Flags().StringP("question", "q", "", "One-shot question about the change")
	_ = reviewCmd.MarkFlagRequired("request")
	rootCmd.AddCommand(reviewCmd)
}

func handleReviewCommand(rootDependencies *RootDependencies, url string, question string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	spinnerLoad, _ := spinner.Start("Loading merge request...")
	info, err := rootDependencies.Manager.LoadMR(ctx, url)
	spinnerLoad.Stop()
	fmt.Print("\r")
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return
	}

	header := fmt.Sprintf("%s (#%d)\n%d files changed, +%d -%d",
		info.Title, info.Number, info.ChangedFiles, info.Additions, info.Deletions)
	fmt.Println(lipgloss.BoxStyle.Render(header))

	if question != "" {
		askDiffQuestion(ctx, rootDependencies, info.ReviewID, question)
	} else {
		runAutoReview(ctx, rootDependencies, info.ReviewID)
	}

	rootDependencies.TokenManagement.DisplayTokens(rootDependencies.Config.ChatProviderConfig.Model)
}

func askDiffQuestion(ctx context.Context, rootDependencies *RootDependencies, reviewID string, question string) {
	result, err := rootDependencies.DiffRunner.Ask(ctx, reviewID, question, nil)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return
	}

	fmt.Print("\n")
	if err := utils.RenderAndPrintMarkdownWithContext(ctx, result.Answer, "markdown", rootDependencies.Config.Theme); err != nil {
		fmt.Println(result.Answer)
	}

	if len(result.Citations) > 0 {
		fmt.Println(lipgloss.BlueSky.Render("\nCitations:"))
		for _, c := range result.Citations {
			fmt.Printf("  - %s:%d-%d (%s)\n", c.Path, c.StartLine, c.EndLine, c.Side)
		}
	}
}

func runAutoReview(ctx context.Context, rootDependencies *RootDependencies, reviewID string) {
	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)
	spinnerReview, _ := spinner.Start("Reviewing changes...")
	report, err := rootDependencies.Reviewer.Review(ctx, reviewID)
	spinnerReview.Stop()
	fmt.Print("\r")
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return
	}

	fmt.Println(report.Summary)
	if len(report.Issues) == 0 {
		fmt.Println(lipgloss.Green.Render("\n✓ No issues found."))
		return
	}

	for i, issue := range report.Issues {
		title := fmt.Sprintf("%d. [%s/%s] %s", i+1, strings.ToUpper(issue.Severity), issue.Category, issue.Title)
		fmt.Println(lipgloss.Yellow.Render("\n" + title))
		fmt.Println(issue.ExplanationMarkdown)
		for _, c := range issue.Citations {
			fmt.Printf("    %s:%d-%d (%s)\n", c.Path, c.StartLine, c.EndLine, c.Side)
		}
		for _, fix := range issue.FixSuggestions {
			fmt.Println(lipgloss.Green.Render("    fix: " + fix))
		}
		for _, test := range issue.TestsToAdd {
			fmt.Println(lipgloss.Gray.Render("    test: " + test))
		}
	}
}
