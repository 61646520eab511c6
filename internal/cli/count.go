package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/shadow-ui/internal/query"
)

var (
	countFileFlag     string
	countTypeFlag     string
	countContainsFlag string
	countBucketFlag   string
)

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count {ids|types|edge-cases}",
	Short: "Print totals over stored artifacts",
	Long: `Count prints a single summary line for the last extraction run.

  ids          unique literal ids and their occurrences (--file, --type, --contains)
  types        distinct constructor types and total nodes (--file)
  edge-cases   total edge cases, or the count of one --bucket (--file)`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"ids", "types", "edge-cases"},
	RunE:      runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
	countCmd.Flags().StringVar(&countFileFlag, "file", "", "restrict to one file (relative path)")
	countCmd.Flags().StringVar(&countTypeFlag, "type", "", "constructor type for 'ids'")
	countCmd.Flags().StringVar(&countContainsFlag, "contains", "", "case-insensitive id substring for 'ids'")
	countCmd.Flags().StringVar(&countBucketFlag, "bucket", "", "bucket for 'edge-cases'")
}

func runCount(cmd *cobra.Command, args []string) error {
	svc, db, err := openQueryService()
	if err != nil {
		return err
	}
	defer db.Close()

	return renderCount(cmd.OutOrStdout(), svc, args[0], countOptions{
		File:     countFileFlag,
		Type:     countTypeFlag,
		Contains: countContainsFlag,
		Bucket:   countBucketFlag,
		JSON:     jsonFlag,
	})
}

type countOptions struct {
	File     string
	Type     string
	Contains string
	Bucket   string
	JSON     bool
}

// Totals is the JSON form of a count. Unused fields are omitted.
type Totals struct {
	UniqueIDs   *int   `json:"unique_ids,omitempty"`
	Occurrences *int   `json:"occurrences,omitempty"`
	Types       *int   `json:"types,omitempty"`
	TotalNodes  *int   `json:"total_nodes,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	EdgeCases   *int   `json:"edge_cases,omitempty"`
}

func renderCount(out io.Writer, svc *query.Service, target string, opts countOptions) error {
	var totals Totals
	var line string

	switch target {
	case "ids":
		counts, err := svc.IDCounts(query.NodeFilter{File: opts.File, Type: opts.Type, Contains: opts.Contains})
		if err != nil {
			return err
		}
		unique, occurrences := len(counts), sumCounts(counts)
		totals.UniqueIDs, totals.Occurrences = &unique, &occurrences
		line = fmt.Sprintf("unique_ids=%d occurrences=%d", unique, occurrences)

	case "types":
		counts, err := svc.TypesIn(opts.File)
		if err != nil {
			return err
		}
		types, nodes := len(counts), sumCounts(counts)
		totals.Types, totals.TotalNodes = &types, &nodes
		line = fmt.Sprintf("types=%d total_nodes=%d", types, nodes)

	case "edge-cases":
		cases, err := svc.EdgeCases(opts.Bucket, opts.File, 0)
		if err != nil {
			return err
		}
		total := len(cases)
		totals.Bucket, totals.EdgeCases = opts.Bucket, &total
		if opts.Bucket != "" {
			line = fmt.Sprintf("bucket=%s count=%d", opts.Bucket, total)
		} else {
			line = fmt.Sprintf("total_edge_cases=%d", total)
		}

	default:
		return fmt.Errorf("unknown count target %q", target)
	}

	if opts.JSON {
		return writeJSON(out, totals)
	}
	fmt.Fprintln(out, line)
	return nil
}

func sumCounts(counts []query.Count) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}
