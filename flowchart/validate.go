package flowchart

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/liamcoop/pdc/pdc"
)

const (
	maxNodes         = 1000
	maxIdentifierLen = 100
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.-]*$`)

// ValidationError lists every problem found in a definition
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid flow chart: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks that a definition describes a well-formed, finite rule graph:
// every edge is labelled with a valid non-UNKNOWN answer and points to an existing node,
// every node is reachable from the start node and the graph has no cycles.
func Validate(def *Definition) error {
	verr := &ValidationError{}

	if err := validateIdentifier(def.ID); err != nil {
		verr.add("invalid id %q: %v", def.ID, err)
	}
	if err := validateIdentifier(def.Jurisdiction); err != nil {
		verr.add("invalid jurisdiction %q: %v", def.Jurisdiction, err)
	}

	if len(def.Nodes) == 0 {
		verr.add("flow chart must contain at least one node")
		return verr
	}
	if len(def.Nodes) > maxNodes {
		verr.add("flow chart contains %d nodes, maximum allowed is %d", len(def.Nodes), maxNodes)
		return verr
	}

	ids := make(map[string]bool, len(def.Nodes))
	for _, n := range def.Nodes {
		if err := validateIdentifier(n.ID); err != nil {
			verr.add("invalid node id %q: %v", n.ID, err)
			continue
		}
		if ids[n.ID] {
			verr.add("duplicate node id %q", n.ID)
		}
		ids[n.ID] = true
	}

	for _, n := range def.Nodes {
		validateNode(verr, n, ids)
	}

	if !ids[def.Start] {
		verr.add("start node %q does not exist", def.Start)
	}

	if len(verr.Problems) > 0 {
		return verr
	}

	graph := edgeGraph(def)
	reachable := reachableFrom(def.Start, graph)
	for _, n := range def.Nodes {
		if !reachable[n.ID] {
			verr.add("node %q is not reachable from start node %q", n.ID, def.Start)
		}
	}
	if cycle := findCycle(def, graph); cycle != nil {
		verr.add("cycle detected: %s", strings.Join(cycle, " -> "))
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func validateNode(verr *ValidationError, n Node, ids map[string]bool) {
	isBranch := n.Question != ""
	isTerminal := n.Result != ""

	switch {
	case isBranch && isTerminal:
		verr.add("node %q has both a question and a result", n.ID)
		return
	case !isBranch && !isTerminal:
		verr.add("node %q has neither a question nor a result", n.ID)
		return
	}

	if isTerminal {
		if !n.Result.Valid() {
			verr.add("node %q has invalid result %q (must be true, false or %s)", n.ID, n.Result, OutcomeCannotCalculate)
		}
		if len(n.Edges) > 0 {
			verr.add("terminal node %q cannot have edges", n.ID)
		}
		if n.Automatic() || n.Assumption != "" {
			verr.add("terminal node %q cannot have an answerer, expression or assumption", n.ID)
		}
		return
	}

	if n.Answerer != "" && n.Expression != "" {
		verr.add("node %q cannot have both an answerer and an expression", n.ID)
	}
	if n.Assumption != "" && !n.Automatic() {
		verr.add("node %q has an assumption but no answerer or expression", n.ID)
	}
	if len(n.Edges) == 0 {
		verr.add("branch node %q has no edges", n.ID)
	}

	for key, target := range n.Edges {
		answer, err := pdc.ParseAnswer(key)
		if err != nil {
			verr.add("node %q: %v", n.ID, err)
		} else if answer == pdc.Unknown {
			verr.add("node %q: %s cannot label an edge", n.ID, pdc.Unknown)
		}
		if !ids[target] {
			verr.add("node %q: edge %s points to unknown node %q", n.ID, key, target)
		}
	}
}

// validateIdentifier checks ids used for charts, jurisdictions and nodes
func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(name), maxIdentifierLen)
	}
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("must match pattern %s", validIdentifier.String())
	}
	return nil
}

// edgeGraph maps node id -> successor ids in a stable order
func edgeGraph(def *Definition) map[string][]string {
	graph := make(map[string][]string, len(def.Nodes))
	for _, n := range def.Nodes {
		graph[n.ID] = []string{}
		for _, a := range pdc.Answers() {
			for key, target := range n.Edges {
				if parsed, err := pdc.ParseAnswer(key); err == nil && parsed == a {
					graph[n.ID] = append(graph[n.ID], target)
				}
			}
		}
	}
	return graph
}

func reachableFrom(start string, graph map[string][]string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range graph[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// findCycle returns the first cycle found as a path that starts and ends on the same node
func findCycle(def *Definition, graph map[string][]string) []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(graph))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range graph[id] {
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						return append(append([]string{}, stack[i:]...), next)
					}
				}
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, n := range def.Nodes {
		if color[n.ID] == white {
			if cycle := visit(n.ID); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
