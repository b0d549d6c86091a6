package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liamcoop/pdc/calculator"
	"github.com/liamcoop/pdc/pdc"
)

type calculateOptions struct {
	chartPath   string
	itemPaths   []string
	answers     []string
	interactive bool
	format      string
	maxSteps    int
	assumption  string
}

func newCalculateCommand(root *rootOptions) *cobra.Command {
	opts := &calculateOptions{}

	cmd := &cobra.Command{
		Use:   "calculate [jurisdiction] --item <file>...",
		Short: "Calculate the public domain status of items",
		Long: `Walk a jurisdiction's flow chart for each item. Questions the metadata can
answer are answered automatically and recorded as assumptions. Manual questions
are answered from --answer question=ANSWER flags, then from the terminal when
--interactive is set. Anything left unanswered is UNKNOWN and makes the verdict
indeterminate.

Examples:
  pdc calculate de --item faust.yaml
  pdc calculate us --item novel.json --answer renewed=NO
  pdc calculate --chart my-chart.yaml --item faust.yaml --interactive`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var j string
			if len(args) == 1 {
				j = args[0]
			}
			return runCalculate(cmd, root, opts, j)
		},
	}

	cmd.Flags().StringVar(&opts.chartPath, "chart", "", "Flow chart file (instead of a jurisdiction)")
	cmd.Flags().StringArrayVar(&opts.itemPaths, "item", nil, "Item metadata file, YAML or JSON (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.answers, "answer", "a", nil, "Answer a manual question: question=ANSWER (repeatable)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for manual questions without an --answer")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text or json")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", calculator.DefaultMaxSteps, "Maximum questions per item")
	cmd.Flags().StringVar(&opts.assumption, "assumption", "", "Assumption recorded for automatic answers without their own")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

func runCalculate(cmd *cobra.Command, root *rootOptions, opts *calculateOptions, j string) error {
	if err := validFormat(opts.format); err != nil {
		return err
	}

	static, err := calculator.ParseStaticAnswers(opts.answers)
	if err != nil {
		return err
	}
	var src calculator.AnswerSource = static
	if opts.interactive {
		src = firstKnown{static, NewPromptSource(cmd.InOrStdin(), cmd.ErrOrStderr())}
	}

	tc, err := newToolchain()
	if err != nil {
		return err
	}
	_, chart, err := tc.loadChart(opts.chartPath, root.chartsDir, j)
	if err != nil {
		return err
	}

	calc := calculator.New(calculator.Options{
		MaxSteps:          opts.maxSteps,
		Concurrency:       1,
		DefaultAssumption: opts.assumption,
	})

	out := cmd.OutOrStdout()
	p := newPalette(out, root.noColor)
	results := make([]*pdc.Result, 0, len(opts.itemPaths))

	for i, path := range opts.itemPaths {
		item, err := LoadItem(path)
		if err != nil {
			return err
		}

		result, err := calc.Run(cmd.Context(), chart, item, src)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if opts.format == formatJSON {
			results = append(results, result)
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := writeResult(out, result, opts.format, p); err != nil {
			return err
		}
	}

	if opts.format == formatJSON {
		if len(results) == 1 {
			return writeResult(out, results[0], formatJSON, p)
		}
		return writeJSON(out, results)
	}
	return nil
}
