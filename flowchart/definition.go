package flowchart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Outcome is the verdict of a terminal node
type Outcome string

const (
	OutcomePublicDomain    Outcome = "true"
	OutcomeProtected       Outcome = "false"
	OutcomeCannotCalculate Outcome = "cannot-calculate"
)

// Valid reports whether o is a known outcome
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePublicDomain, OutcomeProtected, OutcomeCannotCalculate:
		return true
	}
	return false
}

// UnmarshalJSON accepts true, false or a string outcome
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*o = outcomeOf(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid result %s: must be true, false or %q", data, OutcomeCannotCalculate)
	}
	*o = Outcome(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// UnmarshalYAML accepts true, false or a string outcome
func (o *Outcome) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: result must be a scalar", n.Line)
	}
	*o = Outcome(strings.ToLower(strings.TrimSpace(n.Value)))
	return nil
}

func outcomeOf(publicDomain bool) Outcome {
	if publicDomain {
		return OutcomePublicDomain
	}
	return OutcomeProtected
}

// Node is one state of a flow chart definition. A node with a question is a branch,
// a node with a result is terminal.
type Node struct {
	ID         string            `json:"id" yaml:"id"`
	Question   string            `json:"question,omitempty" yaml:"question,omitempty"`
	Answerer   string            `json:"answerer,omitempty" yaml:"answerer,omitempty"`
	Expression string            `json:"expression,omitempty" yaml:"expression,omitempty"`
	Assumption string            `json:"assumption,omitempty" yaml:"assumption,omitempty"`
	Edges      map[string]string `json:"edges,omitempty" yaml:"edges,omitempty"`
	Result     Outcome           `json:"result,omitempty" yaml:"result,omitempty"`
}

// Automatic reports whether the node's question can be answered from metadata
func (n Node) Automatic() bool {
	return n.Answerer != "" || n.Expression != ""
}

// Definition is the serializable form of a rule graph
type Definition struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Jurisdiction string `json:"jurisdiction" yaml:"jurisdiction"`
	Version      int    `json:"version,omitempty" yaml:"version,omitempty"`
	Start        string `json:"start" yaml:"start"`
	Nodes        []Node `json:"nodes" yaml:"nodes"`
}

// Node returns the node with the given id
func (d *Definition) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// ParseYAML decodes a YAML definition. Unknown fields are rejected.
func ParseYAML(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse flow chart YAML: %w", err)
	}
	return &def, nil
}

// ParseJSON decodes a JSON definition. Unknown fields are rejected.
func ParseJSON(data []byte) (*Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse flow chart JSON: %w", err)
	}
	return &def, nil
}

// LoadFile reads a definition, choosing the format by file extension
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow chart: %w", err)
	}

	var def *Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err = ParseYAML(data)
	case ".json":
		def, err = ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported flow chart format %q (use .yaml, .yml or .json)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ChartFiles lists the definition files in dir, ordered by file name
func ChartFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow chart directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir reads every definition in dir, ordered by file name
func LoadDir(dir string) ([]*Definition, error) {
	paths, err := ChartFiles(dir)
	if err != nil {
		return nil, err
	}

	defs := make([]*Definition, 0, len(paths))
	for _, p := range paths {
		def, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
