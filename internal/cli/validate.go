package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/pdc/flowchart"
)

func newValidateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <chart-file-or-directory>...",
		Short: "Validate flow chart definitions",
		Long: `Parse and compile flow chart definitions, checking for:
  - Edges labelled with unknown answers or UNKNOWN
  - Edges pointing to missing nodes
  - Nodes unreachable from the start node
  - Cycles
  - Unknown answerers and invalid expressions

Without arguments the --charts directory is validated.
Exit code: 0 if every chart is valid, 1 otherwise`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{root.chartsDir}
			}
			return validateCharts(args, cmd.OutOrStdout(), newPalette(cmd.OutOrStdout(), root.noColor))
		},
	}
}

// validateCharts checks every chart file in paths and reports each one to out
func validateCharts(paths []string, out io.Writer, p *palette) error {
	tc, err := newToolchain()
	if err != nil {
		return err
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to access path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := flowchart.ChartFiles(path)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no flow chart files found")
	}

	invalid := 0
	jurisdictions := make(map[string]string)
	for _, file := range files {
		def, err := flowchart.LoadFile(file)
		if err == nil {
			_, err = tc.compile(def)
		}
		if err == nil {
			if other, dup := jurisdictions[def.Jurisdiction]; dup {
				err = fmt.Errorf("jurisdiction %s is also defined in %s", def.Jurisdiction, other)
			} else {
				jurisdictions[def.Jurisdiction] = file
			}
		}

		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s %s\n", p.no.Sprint("✗"), file)
			var verr *flowchart.ValidationError
			if errors.As(err, &verr) {
				for _, problem := range verr.Problems {
					fmt.Fprintf(out, "    - %s\n", problem)
				}
			} else {
				fmt.Fprintf(out, "    - %v\n", err)
			}
			continue
		}

		fmt.Fprintf(out, "%s %s %s\n", p.yes.Sprint("✓"), file,
			p.faint.Sprintf("(%s, jurisdiction %s, %d nodes)", def.ID, def.Jurisdiction, len(def.Nodes)))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d flow charts invalid", invalid, len(files))
	}
	fmt.Fprintf(out, "All %d flow charts valid\n", len(files))
	return nil
}
