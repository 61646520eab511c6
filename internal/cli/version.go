package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/shadow-ui/internal/storage"
)

var (
	// Version information - typically set via ldflags at build time
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of shadowui",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shadowui %s\n", Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build date: %s\n", BuildDate)
		fmt.Printf("Store schema: %s\n", storage.SchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
