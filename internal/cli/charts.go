package cli

import (
	"fmt"

	"github.com/liamcoop/pdc/answerers"
	"github.com/liamcoop/pdc/flowchart"
	"github.com/liamcoop/pdc/jurisdiction"
	"github.com/liamcoop/pdc/pdc"
)

// toolchain resolves answerer names and inline expressions while compiling charts
type toolchain struct {
	compiler *answerers.Compiler
	registry *answerers.Registry
}

func newToolchain() (*toolchain, error) {
	compiler, err := answerers.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("failed to create expression compiler: %w", err)
	}
	registry, err := answerers.Builtins(compiler)
	if err != nil {
		return nil, fmt.Errorf("failed to register answerers: %w", err)
	}
	return &toolchain{compiler: compiler, registry: registry}, nil
}

func (tc *toolchain) compile(def *flowchart.Definition) (*pdc.FlowChart, error) {
	return flowchart.Compile(def, tc.registry, tc.compiler)
}

// loadChart compiles the chart at path, or the chart of jurisdiction found in chartsDir
func (tc *toolchain) loadChart(path, chartsDir, j string) (*flowchart.Definition, *pdc.FlowChart, error) {
	var def *flowchart.Definition
	switch {
	case path != "":
		d, err := flowchart.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		def = d
	case j != "":
		defs, err := flowchart.LoadDir(chartsDir)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range defs {
			if d.Jurisdiction == j {
				def = d
				break
			}
		}
		if def == nil {
			return nil, nil, fmt.Errorf("%w: %s (no chart in %s)", jurisdiction.ErrUnknownJurisdiction, j, chartsDir)
		}
	default:
		return nil, nil, fmt.Errorf("either --chart or --jurisdiction is required")
	}

	chart, err := tc.compile(def)
	if err != nil {
		return nil, nil, err
	}
	return def, chart, nil
}
