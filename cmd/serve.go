package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"crev/constants/lipgloss"
	"crev/server"
)

// serveCmd: crev serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review API over HTTP.",
	Long: `The 'serve' subcommand starts an HTTP server exposing merge request
loading, diff questions (blocking and streaming), automatic reviews, and
question suggestions, for use by a review UI.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleServeCommand(rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func handleServeCommand(rootDependencies *RootDependencies) {
	srv := server.NewServer(
		rootDependencies.Manager,
		rootDependencies.DiffRunner,
		rootDependencies.Reviewer,
		rootDependencies.Suggestions,
	)

	host := rootDependencies.Config.Server.Host
	port := rootDependencies.Config.Server.Port
	fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("Listening on http://%s:%d", host, port)))

	if err := srv.Start(host, port); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
	}
}
