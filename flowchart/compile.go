package flowchart

import (
	"fmt"
	"sort"

	"github.com/liamcoop/pdc/answerers"
	"github.com/liamcoop/pdc/pdc"
)

// assumed overrides the assumption text of a registered answerer for one node
type assumed struct {
	pdc.Answerer
	assumption string
}

func (a assumed) Assumption() string {
	return a.assumption
}

// Compile validates def and turns it into an immutable pdc.FlowChart.
// Named answerers are resolved through registry, inline expressions through compiler.
func Compile(def *Definition, registry *answerers.Registry, compiler *answerers.Compiler) (*pdc.FlowChart, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	b := pdc.NewBuilder()
	states := make(map[string]pdc.StateID, len(def.Nodes))

	for _, n := range def.Nodes {
		switch {
		case n.Question != "":
			answerer, err := resolveAnswerer(n, registry, compiler)
			if err != nil {
				verr.add("node %q: %v", n.ID, err)
			}
			states[n.ID] = b.Branch(pdc.NewQuestion(n.ID, n.Question, answerer))
		case n.Result == OutcomeCannotCalculate:
			states[n.ID] = b.CannotCalculate()
		default:
			states[n.ID] = b.Result(n.Result == OutcomePublicDomain)
		}
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}

	for _, n := range def.Nodes {
		keys := make([]string, 0, len(n.Edges))
		for key := range n.Edges {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			answer, err := pdc.ParseAnswer(key)
			if err != nil {
				verr.add("node %q: %v", n.ID, err)
				continue
			}
			if err := b.Edge(states[n.ID], answer, states[n.Edges[key]]); err != nil {
				verr.add("node %q: %v", n.ID, err)
			}
		}
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}

	chart, err := b.Build(states[def.Start])
	if err != nil {
		return nil, fmt.Errorf("failed to build flow chart %s: %w", def.ID, err)
	}
	return chart, nil
}

func resolveAnswerer(n Node, registry *answerers.Registry, compiler *answerers.Compiler) (pdc.Answerer, error) {
	switch {
	case n.Expression != "":
		if compiler == nil {
			return nil, fmt.Errorf("expression answerers need a compiler")
		}
		a, err := compiler.NewCEL(n.Expression, n.Assumption)
		if err != nil {
			return nil, fmt.Errorf("invalid expression: %w", err)
		}
		return a, nil
	case n.Answerer != "":
		if registry == nil {
			return nil, fmt.Errorf("unknown answerer %q", n.Answerer)
		}
		a, ok := registry.Lookup(n.Answerer)
		if !ok {
			return nil, fmt.Errorf("unknown answerer %q (known: %v)", n.Answerer, registry.Names())
		}
		if n.Assumption != "" {
			return assumed{Answerer: a, assumption: n.Assumption}, nil
		}
		return a, nil
	default:
		return nil, nil
	}
}
