package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/query"
)

var (
	listFileFlag   string
	listKindFlag   string
	listBucketFlag   string
	listTypeFlag     string
	listContainsFlag string
	listSortFlag     string
	listLimitFlag    uint64
)

// sortKeys lists the accepted --sort values per target; the first is the default.
var sortKeys = map[string][]string{
	"ids":         {"position", "id", "count"},
	"types":       {"count", "name"},
	"files":       {"name", "nodes"},
	"hashes":      {"count", "hash"},
	"css-ids":     {"name", "count"},
	"css-classes": {"name", "count"},
}

var listTargets = []string{"ids", "types", "files", "hashes", "edge-cases", "css-ids", "css-classes", "css-issues"}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list {ids|types|files|hashes|edge-cases|css-ids|css-classes|css-issues}",
	Short: "List stored artifacts",
	Long: `List reads the artifacts of the last extraction run.

  ids          widget identities (--file, --type, --contains,
               --kind literal|pattern|nonliteral|none, --sort position|id|count)
  types        constructor types (--sort count|name)
  files        extracted files with record counts (--sort name|nodes)
  hashes       structure hashes shared by roots (--sort count|hash)
  edge-cases   counts per bucket, or the records of one --bucket
  css-ids      id selectors referenced by stylesheets (--contains, --sort name|count)
  css-classes  class selectors referenced by stylesheets (--contains, --sort name|count)
  css-issues   stylesheet regions that could not be indexed (--bucket)

--contains matches case-insensitively. 'ids --sort count' prints each literal
id once with its number of occurrences.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: listTargets,
	RunE:      runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listFileFlag, "file", "", "restrict to one file (relative path)")
	listCmd.Flags().StringVar(&listKindFlag, "kind", "", "identity kind for 'ids'")
	listCmd.Flags().StringVar(&listBucketFlag, "bucket", "", "bucket for 'edge-cases' and 'css-issues'")
	listCmd.Flags().StringVar(&listTypeFlag, "type", "", "constructor type for 'ids'")
	listCmd.Flags().StringVar(&listContainsFlag, "contains", "", "substring filter for 'ids', 'css-ids' and 'css-classes'")
	listCmd.Flags().StringVar(&listSortFlag, "sort", "", "sort key (default depends on the target)")
	listCmd.Flags().Uint64Var(&listLimitFlag, "limit", 0, "maximum number of records (0 for all)")
}

func runList(cmd *cobra.Command, args []string) error {
	svc, db, err := openQueryService()
	if err != nil {
		return err
	}
	defer db.Close()

	return renderList(cmd.OutOrStdout(), svc, args[0], listOptions{
		File:     listFileFlag,
		Kind:     listKindFlag,
		Bucket:   listBucketFlag,
		Type:     listTypeFlag,
		Contains: listContainsFlag,
		Sort:     listSortFlag,
		Limit:    listLimitFlag,
		JSON:     jsonFlag,
	})
}

type listOptions struct {
	File     string
	Kind     string
	Bucket   string
	Type     string
	Contains string
	Sort     string
	Limit    uint64
	JSON     bool
}

// sortKey resolves opts.Sort against the keys target accepts.
func (opts listOptions) sortKey(target string) (string, error) {
	keys, ok := sortKeys[target]
	if !ok {
		if opts.Sort != "" {
			return "", fmt.Errorf("list %s does not support --sort", target)
		}
		return "", nil
	}
	if opts.Sort == "" {
		return keys[0], nil
	}
	for _, k := range keys {
		if k == opts.Sort {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q for list %s (want %s)", opts.Sort, target, strings.Join(keys, "|"))
}

func renderList(out io.Writer, svc *query.Service, target string, opts listOptions) error {
	key, err := opts.sortKey(target)
	if err != nil {
		return err
	}

	switch target {
	case "ids":
		filter := query.NodeFilter{
			File:         opts.File,
			Type:         opts.Type,
			IdentityKind: extraction.IdentityKind(opts.Kind),
			Contains:     opts.Contains,
		}
		if key == "count" {
			return renderCounts(out, func() ([]query.Count, error) {
				counts, err := svc.IDCounts(filter)
				if err == nil && opts.Limit > 0 && uint64(len(counts)) > opts.Limit {
					counts = counts[:opts.Limit]
				}
				return counts, err
			}, opts.JSON)
		}
		if key == "position" {
			filter.Limit = opts.Limit
		}
		nodes, err := svc.Nodes(filter)
		if err != nil {
			return err
		}
		if key == "id" {
			sort.SliceStable(nodes, func(i, j int) bool {
				return nodes[i].Identity.Value < nodes[j].Identity.Value
			})
			if opts.Limit > 0 && uint64(len(nodes)) > opts.Limit {
				nodes = nodes[:opts.Limit]
			}
		}
		if opts.JSON {
			return writeJSON(out, nodes)
		}
		for _, n := range nodes {
			fmt.Fprintf(out, "%-28s %-20s %s\n", identityLabel(n.Identity), n.Type,
				dimColor.Sprint(location(n.Provenance.File, n.Provenance.StartLine, n.Provenance.EndLine)))
		}
		return nil

	case "types":
		return renderCounts(out, func() ([]query.Count, error) {
			counts, err := svc.TypesIn(opts.File)
			return sortCounts(counts, key), err
		}, opts.JSON)

	case "files":
		files, err := svc.Files()
		if err != nil {
			return err
		}
		if key == "nodes" {
			sort.SliceStable(files, func(i, j int) bool { return files[i].Nodes > files[j].Nodes })
		}
		if opts.JSON {
			return writeJSON(out, files)
		}
		headingColor.Fprintf(out, "%-48s %-10s %6s %6s %6s %6s\n", "FILE", "LANGUAGE", "NODES", "CASES", "REFS", "ISSUES")
		for _, f := range files {
			fmt.Fprintf(out, "%-48s %-10s %6d %6d %6d %6d\n", f.Path, f.Language, f.Nodes, f.EdgeCases, f.Tokens, f.Uncertainties)
		}
		return nil

	case "hashes":
		groups, err := svc.Hashes()
		if err != nil {
			return err
		}
		if key == "hash" {
			sort.SliceStable(groups, func(i, j int) bool { return groups[i].Hash < groups[j].Hash })
		}
		if opts.JSON {
			return writeJSON(out, groups)
		}
		for _, g := range groups {
			fmt.Fprintf(out, "%s %s %s\n", labelColor.Sprintf("%3d", len(g.Roots)), shortHash(g.Hash), g.Shape)
		}
		return nil

	case "edge-cases":
		if opts.Bucket == "" && opts.File == "" {
			return renderCounts(out, svc.EdgeCaseCounts, opts.JSON)
		}
		cases, err := svc.EdgeCases(opts.Bucket, opts.File, opts.Limit)
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(out, cases)
		}
		for _, ec := range cases {
			p := ec.Provenance
			fmt.Fprintf(out, "%s %s %s\n", warnColor.Sprint(ec.Bucket), location(p.File, p.StartLine, p.EndLine), dimColor.Sprint(ec.Detail))
		}
		return nil

	case "css-ids", "css-classes":
		kind := extraction.SelectorID
		if target == "css-classes" {
			kind = extraction.SelectorClass
		}
		return renderCounts(out, func() ([]query.Count, error) {
			counts, err := svc.SelectorValues(kind)
			return sortCounts(filterCounts(counts, opts.Contains), key), err
		}, opts.JSON)

	case "css-issues":
		issues, err := svc.CSSUncertainties(opts.Bucket)
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(out, issues)
		}
		for _, u := range issues {
			p := u.Provenance
			fmt.Fprintf(out, "%s %s %s\n", warnColor.Sprint(u.Bucket), location(p.File, p.StartLine, p.EndLine), dimColor.Sprint(u.Detail))
		}
		return nil
	}
	return fmt.Errorf("unknown list target %q", target)
}

func renderCounts(out io.Writer, fetch func() ([]query.Count, error), asJSON bool) error {
	counts, err := fetch()
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, counts)
	}
	for _, c := range counts {
		fmt.Fprintf(out, "%s %s\n", labelColor.Sprintf("%6s", formatNumber(c.Count)), c.Name)
	}
	return nil
}

// sortCounts orders counts by name, or by descending count then name when
// key is "count".
func sortCounts(counts []query.Count, key string) []query.Count {
	sort.SliceStable(counts, func(i, j int) bool {
		if key == "count" && counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	return counts
}

// filterCounts keeps counts whose name holds substr, ignoring case.
func filterCounts(counts []query.Count, substr string) []query.Count {
	if substr == "" {
		return counts
	}
	substr = strings.ToLower(substr)
	kept := counts[:0]
	for _, c := range counts {
		if strings.Contains(strings.ToLower(c.Name), substr) {
			kept = append(kept, c)
		}
	}
	return kept
}

// identityLabel renders an identity the way it reads in a stylesheet.
func identityLabel(id extraction.Identity) string {
	switch id.Kind {
	case extraction.IdentityLiteral:
		return "#" + id.Value
	case extraction.IdentityPattern:
		return "#" + id.Value + " (pattern)"
	case extraction.IdentityNonLiteral:
		return "(computed)"
	}
	return "-"
}

// shortHash trims the digest prefix and keeps 12 hex characters.
func shortHash(hash string) string {
	h := strings.TrimPrefix(hash, extraction.HashPrefix)
	if len(h) > 12 {
		h = h[:12]
	}
	return h
}
