package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"uac-triage/rules"
)

type classification struct {
	Path       string           `json:"path"`
	Categories []rules.Category `json:"categories"`
}

func NewClassifyCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <path>...",
		Short: "Show which categories the rules assign to artifact paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			rs, err := cfg.RuleSet()
			if err != nil {
				return err
			}
			c := rules.NewClassifier(rs)

			out := make([]classification, 0, len(args))
			for _, p := range args {
				cats := c.Classify(p)
				if cats == nil {
					cats = []rules.Category{}
				}
				out = append(out, classification{Path: p, Categories: cats})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, r := range out {
				names := make([]string, 0, len(r.Categories))
				for _, cat := range r.Categories {
					names = append(names, cat.String())
				}
				if len(names) == 0 {
					names = append(names, "-")
				}
				fmt.Fprintf(tw, "%s\t%s\n", r.Path, strings.Join(names, ","))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
