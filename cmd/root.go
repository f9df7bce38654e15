package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crev/code_snapshot"
	"crev/config"
	"crev/constants/lipgloss"
	contracts_provider "crev/providers/contracts"
	"crev/providers/openai"
	"crev/review_engine"
	"crev/sandbox"
	contracts_sandbox "crev/sandbox/contracts"
	"crev/token_management"
	contracts_token "crev/token_management/contracts"
	"crev/vcs_providers"
	"crev/vcs_providers/github"
	"crev/vcs_providers/gitlab"
)

// RootDependencies is everything a subcommand needs, assembled once per
// invocation from the loaded configuration.
type RootDependencies struct {
	Config              *config.Config
	Cwd                 string
	TokenManagement     contracts_token.ITokenManagement
	CurrentChatProvider contracts_provider.IChatAIProvider
	Sandbox             contracts_sandbox.IExecutionSandbox
	Engine              *review_engine.Engine
	SnapshotBuilder     *code_snapshot.Builder
	Manager             *vcs_providers.Manager
	DiffRunner          *review_engine.DiffRunner
	Reviewer            *review_engine.AutoReviewer
	Suggestions         *review_engine.SuggestionGenerator
}

// rootCmd: crev
var rootCmd = &cobra.Command{
	Use:   "crev",
	Short: "AI-assisted review of repositories and merge requests.",
	Long: `crev answers questions about a codebase or a merge request by letting a
chat model iteratively run small code snippets against the repository snapshot
or the change's file contents, then grounding its citations in the diff.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	rootDependencies := &RootDependencies{}

	var err error
	rootDependencies.Cwd, err = os.Getwd()
	if err != nil || rootDependencies.Cwd == "" {
		fmt.Println(lipgloss.Red.Render("❌ Error getting current directory"))
		return nil
	}

	rootDependencies.Config = config.LoadConfigs(rootCmd, rootDependencies.Cwd)

	rootDependencies.TokenManagement = token_management.NewTokenManager()

	providerConfig := rootDependencies.Config.ChatProviderConfig
	providerConfig.TokenManagement = rootDependencies.TokenManagement
	rootDependencies.CurrentChatProvider = openai.NewOpenAIChatProvider(providerConfig)

	subProviderConfig := rootDependencies.Config.SubChatProviderConfig
	subProviderConfig.TokenManagement = rootDependencies.TokenManagement
	subChatProvider := openai.NewOpenAIChatProvider(subProviderConfig)

	rootDependencies.Sandbox = sandbox.NewCommandSandbox(
		rootDependencies.Config.Sandbox.Command,
		rootDependencies.Config.Sandbox.OutputLimit,
	)

	rootDependencies.Engine = review_engine.NewEngine(
		review_engine.NewChatActionModel(rootDependencies.CurrentChatProvider),
		rootDependencies.Sandbox,
		rootDependencies.Config.Engine.MaxIterations,
		rootDependencies.Config.Engine.MaxLLMCalls,
	)
	if limit := rootDependencies.Config.Engine.OutputLimit; limit > 0 {
		rootDependencies.Engine.OutputLimit = limit
	}

	rootDependencies.SnapshotBuilder = code_snapshot.NewBuilder(
		int64(rootDependencies.Config.Snapshot.MaxFileBytes),
		int64(rootDependencies.Config.Snapshot.MaxTotalBytes),
		rootDependencies.Config.Snapshot.IncludeGlobs,
		rootDependencies.Config.Snapshot.ExcludeGlobs,
		code_snapshot.NewScanCache(),
	)

	// GitLab first: its URL shape is the more specific of the two.
	registry := vcs_providers.NewRegistry(
		gitlab.NewGitLabProvider(rootDependencies.Config.GitLabToken),
		github.NewGitHubProvider(rootDependencies.Config.GitHubToken),
	)
	rootDependencies.Manager = vcs_providers.NewManager(registry)

	rootDependencies.DiffRunner = review_engine.NewDiffRunner(
		rootDependencies.Engine,
		rootDependencies.Manager,
		rootDependencies.Config.TraceDir,
	)
	rootDependencies.Reviewer = review_engine.NewAutoReviewer(subChatProvider, rootDependencies.Manager)
	rootDependencies.Suggestions = review_engine.NewSuggestionGenerator(subChatProvider, rootDependencies.Manager)

	return rootDependencies
}

// Execute runs the root command.
func Execute() {
	config.InitFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}
