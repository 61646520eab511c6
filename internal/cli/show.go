package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/query"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show {file|css-id|css-class|hash} <arg>",
	Short: "Show the stored records for one file, selector or structure hash",
	Long: `Show prints everything the last run stored about one subject.

  file <path>       nodes, roots, edge cases and selector references of a file
  css-id <name>     rules referencing #name, and the widgets declaring that id
  css-class <name>  rules referencing .name
  hash <hash>       roots sharing a structure hash (a unique prefix is enough)`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, db, err := openQueryService()
	if err != nil {
		return err
	}
	defer db.Close()

	return renderShow(cmd.OutOrStdout(), svc, args[0], args[1], jsonFlag)
}

func renderShow(out io.Writer, svc *query.Service, subject, arg string, asJSON bool) error {
	switch subject {
	case "file":
		detail, err := svc.FileSummary(arg)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, detail)
		}
		printFileDetail(out, detail)
		return nil

	case "css-id", "css-class":
		kind := extraction.SelectorID
		if subject == "css-class" {
			kind = extraction.SelectorClass
		}
		name := strings.TrimLeft(arg, "#.")
		tokens, err := svc.SelectorTokens(kind, name)
		if err != nil {
			return err
		}

		var widgets []extraction.Node
		if kind == extraction.SelectorID {
			widgets, err = svc.Nodes(query.NodeFilter{IdentityKind: extraction.IdentityLiteral, IdentityValue: name})
			if err != nil {
				return err
			}
		}

		if asJSON {
			return writeJSON(out, map[string]interface{}{
				"kind":    kind,
				"value":   name,
				"rules":   tokens,
				"widgets": widgets,
			})
		}

		headingColor.Fprintf(out, "Rules (%d)\n", len(tokens))
		for _, tok := range tokens {
			loc := tok.Location
			fmt.Fprintf(out, "  %s  %s\n", location(loc.File, loc.StartLine, loc.EndLine), tok.SelectorText)
		}
		if kind == extraction.SelectorID {
			headingColor.Fprintf(out, "Widgets (%d)\n", len(widgets))
			for _, n := range widgets {
				p := n.Provenance
				fmt.Fprintf(out, "  %s  %s\n", location(p.File, p.StartLine, p.EndLine), n.Type)
			}
		}
		return nil

	case "hash":
		group, err := findHash(svc, arg)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, group)
		}
		headingColor.Fprintf(out, "%s\n", group.Hash)
		fmt.Fprintf(out, "Shape: %s\n", group.Shape)
		headingColor.Fprintf(out, "Roots (%d)\n", len(group.Roots))
		for _, r := range group.Roots {
			fmt.Fprintf(out, "  %s %s %s\n", r.File, r.ID, dimColor.Sprint(r.Container))
		}
		return nil
	}
	return fmt.Errorf("unknown subject %q, expected file, css-id, css-class or hash", subject)
}

// findHash looks up a full hash, falling back to a unique prefix match.
func findHash(svc *query.Service, hash string) (*query.HashGroup, error) {
	group, err := svc.FindHash(hash)
	if err == nil || !errors.Is(err, query.ErrNotFound) {
		return group, err
	}

	groups, err := svc.Hashes()
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimPrefix(hash, extraction.HashPrefix)
	var matches []query.HashGroup
	for _, g := range groups {
		if strings.HasPrefix(strings.TrimPrefix(g.Hash, extraction.HashPrefix), prefix) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("hash %s: %w", hash, query.ErrNotFound)
	case 1:
		return &matches[0], nil
	}
	return nil, fmt.Errorf("hash prefix %s is ambiguous (%d matches)", hash, len(matches))
}

func printFileDetail(out io.Writer, d *query.FileDetail) {
	headingColor.Fprintf(out, "%s (%s)\n", d.File, d.Language)

	if len(d.Roots) > 0 {
		headingColor.Fprintf(out, "Roots (%d)\n", len(d.Roots))
		for _, r := range d.Roots {
			fmt.Fprintf(out, "  %s %s %s %s\n", r.ID, r.Kind, r.Container, dimColor.Sprint(shortHash(r.StructureHash)))
			fmt.Fprintf(out, "    %s\n", r.Shape)
		}
	}
	if len(d.Nodes) > 0 {
		headingColor.Fprintf(out, "Nodes (%d)\n", len(d.Nodes))
		for _, n := range d.Nodes {
			fmt.Fprintf(out, "  %s %-20s %-24s line %d\n", n.ID, n.Type, identityLabel(n.Identity), n.Provenance.StartLine)
		}
	}
	if len(d.Tokens) > 0 {
		headingColor.Fprintf(out, "Selector references (%d)\n", len(d.Tokens))
		for _, tok := range d.Tokens {
			fmt.Fprintf(out, "  %-6s %-24s line %d  %s\n", tok.Kind, tok.Value, tok.Location.StartLine, dimColor.Sprint(tok.SelectorText))
		}
	}
	if len(d.EdgeCases) > 0 {
		headingColor.Fprintf(out, "Edge cases (%d)\n", len(d.EdgeCases))
		for _, ec := range d.EdgeCases {
			fmt.Fprintf(out, "  %s line %d  %s\n", warnColor.Sprint(ec.Bucket), ec.Provenance.StartLine, dimColor.Sprint(ec.Provenance.Snippet))
		}
	}
	if len(d.Uncertainties) > 0 {
		headingColor.Fprintf(out, "CSS issues (%d)\n", len(d.Uncertainties))
		for _, u := range d.Uncertainties {
			fmt.Fprintf(out, "  %s line %d  %s\n", warnColor.Sprint(u.Bucket), u.Provenance.StartLine, dimColor.Sprint(u.Detail))
		}
	}
	for _, f := range d.Failures {
		warnColor.Fprintf(out, "Failed at %s: %s\n", f.Stage, f.Reason)
	}
}
