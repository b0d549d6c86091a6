package flowchart

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/pdc/answerers"
	"github.com/liamcoop/pdc/pdc"
)

const lifeYAML = `
id: life
name: Author alive
jurisdiction: xx
start: alive
nodes:
  - id: alive
    question: Is the author still alive?
    edges:
      YES: protected
      no: free
  - id: protected
    result: false
  - id: free
    result: true
`

func lifeDefinition() *Definition {
	return &Definition{
		ID:           "life",
		Name:         "Author alive",
		Jurisdiction: "xx",
		Start:        "alive",
		Nodes: []Node{
			{ID: "alive", Question: "Is the author still alive?", Edges: map[string]string{"YES": "protected", "no": "free"}},
			{ID: "protected", Result: OutcomeProtected},
			{ID: "free", Result: OutcomePublicDomain},
		},
	}
}

func builtins(t *testing.T) (*answerers.Registry, *answerers.Compiler) {
	t.Helper()
	c, err := answerers.NewCompiler()
	require.NoError(t, err)
	r, err := answerers.Builtins(c)
	require.NoError(t, err)
	return r, c
}

// TestParseYAML verifies a YAML definition decodes into the expected structure
func TestParseYAML(t *testing.T) {
	def, err := ParseYAML([]byte(lifeYAML))
	require.NoError(t, err)

	if diff := cmp.Diff(lifeDefinition(), def); diff != "" {
		t.Errorf("ParseYAML() mismatch (-want +got):\n%s", diff)
	}
}

// TestParseYAML_UnknownField verifies typos in definitions are reported
func TestParseYAML_UnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("id: x\njurisdiction: xx\nstart: a\nnodez: []\n"))
	assert.Error(t, err)
}

// TestParseJSON verifies boolean and string results are both accepted
func TestParseJSON(t *testing.T) {
	def, err := ParseJSON([]byte(`{
		"id": "life",
		"name": "Author alive",
		"jurisdiction": "xx",
		"start": "alive",
		"nodes": [
			{"id": "alive", "question": "Is the author still alive?", "edges": {"YES": "protected", "no": "free"}},
			{"id": "protected", "result": false},
			{"id": "free", "result": "TRUE"}
		]
	}`))
	require.NoError(t, err)

	if diff := cmp.Diff(lifeDefinition(), def); diff != "" {
		t.Errorf("ParseJSON() mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseJSON([]byte(`{"id": "x", "extra": 1}`))
	assert.Error(t, err, "unknown fields should be rejected")

	_, err = ParseJSON([]byte(`{"id": "x", "nodes": [{"id": "a", "result": 3}]}`))
	assert.Error(t, err, "numeric results should be rejected")
}

// TestLoadFile verifies the format is picked by extension
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "life.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(lifeYAML), 0o644))
	def, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "life", def.ID)

	txtPath := filepath.Join(dir, "life.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(lifeYAML), 0o644))
	_, err = LoadFile(txtPath)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// TestLoadDir_ShippedCharts verifies every chart in the repository loads, validates and compiles
func TestLoadDir_ShippedCharts(t *testing.T) {
	defs, err := LoadDir(filepath.Join("..", "charts"))
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	registry, compiler := builtins(t)
	seen := map[string]bool{}
	for _, def := range defs {
		t.Run(def.ID, func(t *testing.T) {
			assert.False(t, seen[def.Jurisdiction], "duplicate jurisdiction %s", def.Jurisdiction)
			seen[def.Jurisdiction] = true

			require.NoError(t, Validate(def))
			chart, err := Compile(def, registry, compiler)
			require.NoError(t, err)
			assert.Equal(t, len(def.Nodes), chart.Len())

			// Humans and answerers may give any definite answer, assumed or not
			for id := 0; id < chart.Len(); id++ {
				state, err := chart.State(pdc.StateID(id))
				require.NoError(t, err)
				if !state.HasQuestion() {
					continue
				}
				q, _ := state.Question()
				assert.ElementsMatch(t,
					[]pdc.Answer{pdc.Yes, pdc.No, pdc.AssumedYes, pdc.AssumedNo},
					state.Answers(), "question %s", q.ID())
			}
		})
	}
}

// TestValidate_Valid verifies a well-formed definition passes
func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(lifeDefinition()))
}

// TestValidate_Invalid covers the structural problems definitions are checked for
func TestValidate_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(d *Definition)
		want   string
	}{
		{"Empty id", func(d *Definition) { d.ID = "" }, "invalid id"},
		{"Bad jurisdiction", func(d *Definition) { d.Jurisdiction = "x y" }, "invalid jurisdiction"},
		{"No nodes", func(d *Definition) { d.Nodes = nil }, "at least one node"},
		{"Duplicate node", func(d *Definition) { d.Nodes[2].ID = "protected" }, "duplicate node id"},
		{"Missing start", func(d *Definition) { d.Start = "nowhere" }, `start node "nowhere" does not exist`},
		{"Question and result", func(d *Definition) { d.Nodes[0].Result = OutcomeProtected }, "both a question and a result"},
		{"Neither", func(d *Definition) { d.Nodes[1].Result = "" }, "neither a question nor a result"},
		{"Bad result", func(d *Definition) { d.Nodes[1].Result = "maybe" }, "invalid result"},
		{"Terminal with edges", func(d *Definition) { d.Nodes[1].Edges = map[string]string{"YES": "free"} }, "cannot have edges"},
		{"Branch without edges", func(d *Definition) { d.Nodes[0].Edges = nil }, "has no edges"},
		{"Unknown edge", func(d *Definition) { d.Nodes[0].Edges["UNKNOWN"] = "free" }, "UNKNOWN cannot label an edge"},
		{"Invalid edge key", func(d *Definition) { d.Nodes[0].Edges["MAYBE"] = "free" }, "MAYBE"},
		{"Dangling edge", func(d *Definition) { d.Nodes[0].Edges["YES"] = "ghost" }, `unknown node "ghost"`},
		{"Answerer and expression", func(d *Definition) {
			d.Nodes[0].Answerer = "anonymous-work"
			d.Nodes[0].Expression = "true"
		}, "both an answerer and an expression"},
		{"Assumption without answerer", func(d *Definition) { d.Nodes[0].Assumption = "guess" }, "assumption but no answerer"},
		{"Unreachable node", func(d *Definition) {
			d.Nodes = append(d.Nodes, Node{ID: "island", Result: OutcomeCannotCalculate})
		}, `node "island" is not reachable`},
		{"Cycle", func(d *Definition) {
			d.Nodes = append(d.Nodes, Node{ID: "again", Question: "Again?", Edges: map[string]string{"YES": "alive"}})
			d.Nodes[0].Edges["ASSUMED_NO"] = "again"
		}, "cycle detected: alive -> again -> alive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := lifeDefinition()
			tc.mutate(def)

			err := Validate(def)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

// TestValidate_ReportsAllProblems verifies problems are collected rather than returned one at a time
func TestValidate_ReportsAllProblems(t *testing.T) {
	def := lifeDefinition()
	def.ID = ""
	def.Nodes[0].Edges["UNKNOWN"] = "ghost"

	var verr *ValidationError
	require.True(t, errors.As(Validate(def), &verr))
	assert.GreaterOrEqual(t, len(verr.Problems), 3)
}

// TestCompile verifies a compiled chart mirrors its definition
func TestCompile(t *testing.T) {
	registry, compiler := builtins(t)

	def := lifeDefinition()
	def.Nodes = append(def.Nodes,
		Node{ID: "anon", Question: "Is the work anonymous?", Answerer: "anonymous-work", Assumption: "custom",
			Edges: map[string]string{"YES": "free", "NO": "alive"}},
		Node{ID: "old", Question: "Published before 1900?", Expression: `item.published < 1900`,
			Edges: map[string]string{"YES": "free", "NO": "anon"}},
		Node{ID: "unsure", Result: OutcomeCannotCalculate},
	)
	def.Nodes[0].Edges["ASSUMED_NO"] = "unsure"
	def.Start = "old"

	chart, err := Compile(def, registry, compiler)
	require.NoError(t, err)
	assert.Equal(t, 6, chart.Len())

	start := chart.Initial()
	q, err := start.Question()
	require.NoError(t, err)
	assert.Equal(t, "old", q.ID())
	_, automatic := q.Answerer()
	assert.True(t, automatic)

	next, err := start.Next(pdc.No)
	require.NoError(t, err)
	anon, err := next.Question()
	require.NoError(t, err)
	assert.Equal(t, "anon", anon.ID())

	a, ok := anon.Answerer()
	require.True(t, ok)
	assumer, ok := a.(pdc.Assumer)
	require.True(t, ok)
	assert.Equal(t, "custom", assumer.Assumption())

	alive, err := next.Next(pdc.No)
	require.NoError(t, err)
	q, err = alive.Question()
	require.NoError(t, err)
	_, automatic = q.Answerer()
	assert.False(t, automatic)

	unsure, err := alive.Next(pdc.AssumedNo)
	require.NoError(t, err)
	_, err = unsure.Result()
	assert.ErrorIs(t, err, pdc.ErrCannotCalculate)

	_, err = alive.Next(pdc.AssumedYes)
	assert.ErrorIs(t, err, pdc.ErrNoTransition)
}

// TestCompile_Errors verifies answerer problems surface at compile time
func TestCompile_Errors(t *testing.T) {
	registry, compiler := builtins(t)

	testCases := []struct {
		name   string
		mutate func(n *Node)
		want   string
	}{
		{"Unknown answerer", func(n *Node) { n.Answerer = "crystal-ball" }, `unknown answerer "crystal-ball"`},
		{"Bad expression", func(n *Node) { n.Expression = "item.published >" }, "invalid expression"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := lifeDefinition()
			tc.mutate(&def.Nodes[0])
			_, err := Compile(def, registry, compiler)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	def := lifeDefinition()
	def.Start = "ghost"
	_, err := Compile(def, registry, compiler)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr), "invalid definitions should not compile")

	def = lifeDefinition()
	def.Nodes[0].Edges["PERHAPS"] = "free"
	_, err = Compile(def, registry, compiler)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Error(), `unknown answer "PERHAPS"`)
}

// TestInMemoryStore verifies versioning and activation
func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.Active(ctx, "xx")
	assert.ErrorIs(t, err, ErrNotFound)

	v1, err := store.Put(ctx, lifeDefinition())
	require.NoError(t, err)
	assert.Equal(t, 1, v1)

	second := lifeDefinition()
	second.Name = "Author alive, revised"
	v2, err := store.Put(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, v2)

	active, err := store.Active(ctx, "xx")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
	assert.Equal(t, "Author alive, revised", active.Name)

	// Stored definitions are isolated from callers
	active.Nodes[0].Edges["YES"] = "free"
	again, err := store.Active(ctx, "xx")
	require.NoError(t, err)
	assert.Equal(t, "protected", again.Nodes[0].Edges["YES"])

	other := lifeDefinition()
	other.Jurisdiction = "aa"
	_, err = store.Put(ctx, other)
	require.NoError(t, err)

	all, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "aa", all[0].Jurisdiction)
	assert.Equal(t, "xx", all[1].Jurisdiction)

	require.NoError(t, store.Deactivate(ctx, "xx"))
	assert.ErrorIs(t, store.Deactivate(ctx, "xx"), ErrNotFound)
	_, err = store.Active(ctx, "xx")
	assert.ErrorIs(t, err, ErrNotFound)

	noJurisdiction := lifeDefinition()
	noJurisdiction.Jurisdiction = ""
	_, err = store.Put(ctx, noJurisdiction)
	assert.Error(t, err)
}
