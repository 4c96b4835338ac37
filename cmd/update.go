package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/suh3art/Recon-toolkit/pkg/update"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var updateVerbose bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update recon-toolkit to the latest version",
	Long: `Update recon-toolkit to the latest version from GitHub releases.
The release binary for this platform replaces the running executable.`,
	Example: `  recon-toolkit update
  recon-toolkit update -v`,
	Run: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVarP(&updateVerbose, "verbose", "v", false, "enable verbose output during update")
}

func runUpdate(cmd *cobra.Command, args []string) {
	fmt.Println()

	execPath, err := os.Executable()
	if err != nil {
		color.Red("Update failed: %v", err)
		os.Exit(1)
	}

	updated, err := update.NewUpdater(updateVerbose).Apply(context.Background(), "v"+Version, execPath)
	if err != nil {
		color.Red("Update failed: %v", err)
		os.Exit(1)
	}

	if updated {
		fmt.Println("Please restart recon-toolkit to use the new version")
	}
}
