package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuestionsCommand(root *rootOptions) *cobra.Command {
	var chartPath string

	cmd := &cobra.Command{
		Use:   "questions [jurisdiction]",
		Short: "List the questions of a flow chart",
		Long: `List every question of a flow chart in definition order. Questions marked
"auto" are answered from item metadata; "manual" questions need an --answer
or an interactive reply when calculating.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var j string
			if len(args) == 1 {
				j = args[0]
			}

			tc, err := newToolchain()
			if err != nil {
				return err
			}
			def, chart, err := tc.loadChart(chartPath, root.chartsDir, j)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := newPalette(out, root.noColor)
			fmt.Fprintf(out, "%s %s (%s)\n", p.bold.Sprint(def.ID), def.Name, def.Jurisdiction)
			for _, q := range chart.Questions() {
				kind := "manual"
				if _, automatic := q.Answerer(); automatic {
					kind = "auto"
				}
				fmt.Fprintf(out, "  %-6s %-28s %s\n", p.faint.Sprint(kind), q.ID(), q.Text())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&chartPath, "chart", "", "Flow chart file (instead of a jurisdiction)")
	return cmd
}
