package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/shadow-ui/internal/query"
)

var treeRootIDFlag string

// treeCmd represents the tree command
var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Print the containment trees of a file",
	Long: `Tree prints every root of a file (or one --root-id) as an indented tree in
child order. Each child is annotated with the construct that attached it:
nesting (constructor argument), scoped-block (with body) or attach-call
(mount and friends).`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringVar(&treeRootIDFlag, "root-id", "", "root id to print, e.g. r000001 (default all roots)")
}

func runTree(cmd *cobra.Command, args []string) error {
	svc, db, err := openQueryService()
	if err != nil {
		return err
	}
	defer db.Close()

	return renderTree(cmd.OutOrStdout(), svc, args[0], treeRootIDFlag, jsonFlag)
}

func renderTree(out io.Writer, svc *query.Service, file, rootID string, asJSON bool) error {
	trees, err := svc.Tree(file, rootID)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, trees)
	}

	for i, root := range trees {
		if i > 0 {
			fmt.Fprintln(out)
		}
		nodes, depths := query.Flatten(root)
		for j, n := range nodes {
			line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", depths[j]), n.Type, identityLabel(n.Identity))
			if n.Feature != "" {
				line += " " + dimColor.Sprintf("[%s]", n.Feature)
			}
			fmt.Fprintf(out, "%s %s\n", line, dimColor.Sprintf("line %d", n.Provenance.StartLine))
		}
	}
	return nil
}
