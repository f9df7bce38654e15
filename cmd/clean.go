package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"crev/constants/lipgloss"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove saved traces and cached state for crev",
	Long: `The 'clean' command removes saved question traces and cached state under
the configured trace and cache directories. Use it to reclaim space or to
discard recorded sessions.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		handleCleanCommand(force, cmd)
	},
}

func init() {
	cleanCmd.Flags().BoolP("force", "f", false, "Clean without confirmation")
	rootCmd.AddCommand(cleanCmd)
}

func handleCleanCommand(force bool, cmd *cobra.Command) {
	rootDependencies := handleRootCommand(cmd)
	if rootDependencies == nil {
		return
	}

	if !force {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Are you sure you want to remove all saved traces and cached state? (y/N): ")
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println(lipgloss.Yellow.Render("Clean cancelled."))
			return
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start("Cleaning traces and cache...")

	for _, dir := range []string{rootDependencies.Config.TraceDir, rootDependencies.Config.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			spinnerInstance.Stop()
			fmt.Print("\r")
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error cleaning %s: %v", dir, err)))
			return
		}
	}

	spinnerInstance.Stop()
	fmt.Print("\r")
	fmt.Println(lipgloss.Green.Render("✓ Traces and cache have been removed!"))
}
