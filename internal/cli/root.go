package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rootFlag string
	dbFlag   string
	jsonFlag bool
	verbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shadowui",
	Short: "Static UI structure and selector extraction for Textual apps",
	Long: `shadowui reads Python sources and stylesheets of a Textual application
without running it, and records which widgets are built where, how they nest,
and which ids and classes the stylesheets reference.

Run 'shadowui extract' first, then inspect the stored artifacts with
'list', 'show' and 'tree', or serve them to assistants with 'mcp'.

Configuration is read from .shadowui/config.yml under the project root, with
SHADOWUI_* environment variables taking precedence.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "project root to extract from")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "artifact database (default <root>/.shadowui/shadowui.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}
