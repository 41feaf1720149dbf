package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wanmail/locate"
)

func newCandidatesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "candidates FIELD",
		Short: "Print the ranked locators tried for a field name",
		Long: `Candidates prints the locator waterfall generated for FIELD, in the
order resolution would try it. No page is opened.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := strings.TrimSpace(args[0])
			if field == "" {
				return locate.ErrInvalidField
			}
			gen, err := a.cfg.Generator()
			if err != nil {
				return err
			}
			cands := gen.Generate(field)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cands)
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tORIGIN\tRULE\tKIND\tEXPRESSION")
			for _, c := range cands {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Rank, c.Origin, c.Rule, c.Kind, c.Expr)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print candidates as JSON")
	return cmd
}
