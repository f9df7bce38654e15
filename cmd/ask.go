package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"crev/constants/lipgloss"
	"crev/review_engine"
	"crev/utils"
)

// askCmd: crev ask
var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask questions about a repository in an interactive session.",
	Long: `The 'ask' subcommand starts an interactive session over a repository. A
bounded snapshot of the repository is loaded once, and each question runs the
iterative reasoning loop against it. Answers within one session share a
conversation history. With -q the question is answered once and the command
exits.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		repoPath, _ := cmd.Flags().GetString("path")
		question, _ := cmd.Flags().GetString("question")
		handleAskCommand(rootDependencies, repoPath, question)
	},
}

func init() {
	askCmd.Flags().StringP("path", "p", "", "Repository path (defaults to the working directory)")
	askCmd.Flags().StringP("question", "q", "", "Answer a single question and exit")
	rootCmd.AddCommand(askCmd)
}

func handleAskCommand(rootDependencies *RootDependencies, repoPath string, question string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if repoPath == "" {
		repoPath = rootDependencies.Cwd
	}

	runner := review_engine.NewCodebaseRunner(
		rootDependencies.Engine,
		rootDependencies.SnapshotBuilder,
		repoPath,
		rootDependencies.Config.TraceDir,
	)

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	reader := bufio.NewReader(os.Stdin)

	if question == "" {
		askOptionsBox := lipgloss.BoxStyle.Render("/help  Help for ask subcommand")
		fmt.Println(askOptionsBox)
	}

	spinnerLoadContext, _ := spinner.Start("Loading repository snapshot...")
	snap, err := runner.Snapshot()
	spinnerLoadContext.Stop()
	fmt.Print("\r")
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return
	}
	fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("Loaded %d of %d files (%d bytes)",
		len(snap.Files), len(snap.FileTree), snap.RepoInfo.TotalBytes)))

	if question != "" {
		if err := askRepoQuestion(ctx, rootDependencies, runner, question); err != nil && ctx.Err() == nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		}
		return
	}

startLoop:
	for {
		select {
		case <-ctx.Done():
			return

		default:
			userInput, err := utils.InputPromptWithContext(ctx, reader)
			if err != nil {
				if err == context.Canceled {
					fmt.Println(lipgloss.Yellow.Render("\n🔄 Exiting..."))
					return
				}
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
				continue
			}

			if userInput == "" {
				fmt.Print("\r")
				continue
			}

			isSubcommand, exit := findAskSubCommand(userInput, rootDependencies, runner)
			if isSubcommand {
				continue
			}
			if exit {
				return
			}

			if err := askRepoQuestion(ctx, rootDependencies, runner, userInput); err != nil {
				if ctx.Err() != nil {
					fmt.Println(lipgloss.Yellow.Render("\n🔄 Exiting..."))
					return
				}
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
				rootDependencies.TokenManagement.DisplayTokens(rootDependencies.Config.ChatProviderConfig.Model)
				continue startLoop
			}
		}
	}
}

func askRepoQuestion(ctx context.Context, rootDependencies *RootDependencies, runner *review_engine.CodebaseRunner, question string) error {
	events := make(chan review_engine.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if it, ok := ev.Data.(review_engine.IterationEvent); ok {
				fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("⏳ Iteration %d/%d: %s",
					it.Iteration, it.MaxIterations, firstLine(it.Reasoning))))
			}
		}
	}()

	answer, sources, err := runner.Ask(ctx, question, events)
	close(events)
	<-done

	if err != nil {
		return err
	}

	fmt.Print("\n")
	if err := utils.RenderAndPrintMarkdownWithContext(ctx, answer, "markdown", rootDependencies.Config.Theme); err != nil {
		if err == context.Canceled {
			return nil
		}
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error rendering markdown: %v", err)))
	}

	if len(sources) > 0 {
		fmt.Println(lipgloss.BlueSky.Render("\nSources:"))
		for _, s := range sources {
			fmt.Println("  - " + s)
		}
	}

	rootDependencies.TokenManagement.DisplayTokens(rootDependencies.Config.ChatProviderConfig.Model)
	return nil
}

func findAskSubCommand(command string, rootDependencies *RootDependencies, runner *review_engine.CodebaseRunner) (bool, bool) {
	switch command {
	case "/help":
		helps := "/clear  Clear screen\n/exit  Exit from crev\n/files  List files in the snapshot\n/info  Snapshot summary\n/history  Show questions asked in this session\n/reset  Clear conversation history\n/token  Token information"
		fmt.Println(lipgloss.BoxStyle.Render(helps))
		return true, false
	case "/clear":
		fmt.Print("\033[2J\033[H")
		return true, false
	case "/exit":
		return false, true
	case "/files":
		snap, err := runner.Snapshot()
		if err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
			return true, false
		}
		for _, path := range snap.FileTree {
			marker := " "
			if _, included := snap.Files[path]; included {
				marker = "✓"
			}
			fmt.Printf("%s %s\n", marker, path)
		}
		return true, false
	case "/info":
		snap, err := runner.Snapshot()
		if err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
			return true, false
		}
		var langs []string
		for lang, count := range snap.RepoInfo.Languages {
			langs = append(langs, fmt.Sprintf("%s (%d)", lang, count))
		}
		sort.Strings(langs)
		info := fmt.Sprintf("Root: %s\nLanguages: %s\nFiles included: %d of %d\nBytes included: %d",
			snap.RepoInfo.Root, strings.Join(langs, ", "), len(snap.Files),
			len(snap.FileTree), snap.RepoInfo.TotalBytes)
		fmt.Println(lipgloss.BoxStyle.Render(info))
		return true, false
	case "/history":
		history := runner.History()
		if len(history) == 0 {
			fmt.Println(lipgloss.Gray.Render("No questions asked yet."))
			return true, false
		}
		for i, qa := range history {
			fmt.Printf("Q%d: %s\n", i+1, qa.Question)
		}
		return true, false
	case "/reset":
		runner.ResetHistory()
		fmt.Println(lipgloss.Green.Render("✓ Conversation history cleared."))
		return true, false
	case "/token":
		rootDependencies.TokenManagement.DisplayTokens(rootDependencies.Config.ChatProviderConfig.Model)
		return true, false
	}
	return false, false
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[:i]
	}
	if len(s) > 100 {
		s = s[:100] + "..."
	}
	return s
}
