package pdc

import (
	"fmt"
	"slices"
)

// StateID addresses a node inside a FlowChart
type StateID int

type stateKind uint8

const (
	branchState stateKind = iota + 1
	terminalState
)

// node is a single arena entry. Exactly one of question (branch) or verdict (terminal) is meaningful.
type node struct {
	kind     stateKind
	question *Question
	edges    map[Answer]StateID
	verdict  Verdict
}

// FlowChart is an immutable rule graph stored as an arena of nodes.
// A built chart may be shared by any number of concurrent questionnaires.
type FlowChart struct {
	nodes   []node
	initial StateID
}

// Initial returns the state questionnaires start from
func (c *FlowChart) Initial() State {
	return State{chart: c, id: c.initial}
}

// State returns the state with the given id
func (c *FlowChart) State(id StateID) (State, error) {
	if !c.contains(id) {
		return State{}, fmt.Errorf("state %d does not exist", id)
	}
	return State{chart: c, id: id}, nil
}

// Len returns the number of states in the chart
func (c *FlowChart) Len() int {
	return len(c.nodes)
}

// Questions returns the questions of all branch states in arena order
func (c *FlowChart) Questions() []*Question {
	var questions []*Question
	for _, n := range c.nodes {
		if n.kind == branchState {
			questions = append(questions, n.question)
		}
	}
	return questions
}

func (c *FlowChart) contains(id StateID) bool {
	return id >= 0 && int(id) < len(c.nodes)
}

// State is a handle on one node of a FlowChart. The zero State belongs to no chart:
// it has neither a question nor a result, and Next and Result fail on it.
type State struct {
	chart *FlowChart
	id    StateID
}

// ID returns the arena id of the state
func (s State) ID() StateID {
	return s.id
}

func (s State) node() (node, bool) {
	if s.chart == nil || !s.chart.contains(s.id) {
		return node{}, false
	}
	return s.chart.nodes[s.id], true
}

// HasQuestion reports whether this is a branch state
func (s State) HasQuestion() bool {
	n, ok := s.node()
	return ok && n.kind == branchState
}

// Question returns the question of a branch state
func (s State) Question() (*Question, error) {
	n, ok := s.node()
	if !ok || n.kind != branchState {
		return nil, ErrNoCurrentElement
	}
	return n.question, nil
}

// Next returns the successor selected by answer
func (s State) Next(answer Answer) (State, error) {
	n, ok := s.node()
	if !ok || n.kind != branchState {
		return State{}, fmt.Errorf("%w: state %d is not a branch state", ErrNoTransition, s.id)
	}
	next, ok := n.edges[answer]
	if !ok {
		return State{}, fmt.Errorf("%w: state %d has no edge for %s", ErrNoTransition, s.id, answer)
	}
	return State{chart: s.chart, id: next}, nil
}

// Answers returns the answers this state has edges for, in declaration order
func (s State) Answers() []Answer {
	n, ok := s.node()
	if !ok || n.kind != branchState {
		return nil
	}
	var answers []Answer
	for _, a := range Answers() {
		if _, ok := n.edges[a]; ok {
			answers = append(answers, a)
		}
	}
	return answers
}

// HasResult reports whether this is a terminal state
func (s State) HasResult() bool {
	n, ok := s.node()
	return ok && n.kind == terminalState
}

// Result returns the definite verdict of a terminal state.
// It fails with ErrCannotCalculate when the rule intentionally cannot decide.
func (s State) Result() (bool, error) {
	n, ok := s.node()
	if !ok || n.kind != terminalState {
		return false, fmt.Errorf("%w: state %d has no result", ErrIllegalState, s.id)
	}
	v, definite := n.verdict.Bool()
	if !definite {
		return false, ErrCannotCalculate
	}
	return v, nil
}

// Builder assembles a FlowChart. It is not safe for concurrent use.
type Builder struct {
	nodes []node
	built bool
}

// NewBuilder creates an empty chart builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Branch adds a state asking q and returns its id
func (b *Builder) Branch(q *Question) StateID {
	b.nodes = append(b.nodes, node{
		kind:     branchState,
		question: q,
		edges:    make(map[Answer]StateID),
	})
	return StateID(len(b.nodes) - 1)
}

// Result adds a terminal state with a definite verdict
func (b *Builder) Result(publicDomain bool) StateID {
	return b.terminal(VerdictOf(publicDomain))
}

// CannotCalculate adds a terminal state for rules that cannot decide
func (b *Builder) CannotCalculate() StateID {
	return b.terminal(VerdictIndeterminate)
}

func (b *Builder) terminal(v Verdict) StateID {
	b.nodes = append(b.nodes, node{kind: terminalState, verdict: v})
	return StateID(len(b.nodes) - 1)
}

// Edge connects from to to for the given answer
func (b *Builder) Edge(from StateID, answer Answer, to StateID) error {
	if b.built {
		return fmt.Errorf("%w: builder already built", ErrIllegalState)
	}
	if !answer.Valid() {
		return fmt.Errorf("invalid answer %s", answer)
	}
	if answer == Unknown {
		return fmt.Errorf("%s cannot label an edge", Unknown)
	}
	if !b.contains(from) {
		return fmt.Errorf("source state %d does not exist", from)
	}
	if !b.contains(to) {
		return fmt.Errorf("target state %d does not exist", to)
	}
	n := b.nodes[from]
	if n.kind != branchState {
		return fmt.Errorf("source state %d is terminal", from)
	}
	if existing, ok := n.edges[answer]; ok {
		return fmt.Errorf("state %d already has an edge for %s (to %d)", from, answer, existing)
	}
	n.edges[answer] = to
	return nil
}

// Build freezes the builder into a chart starting at initial
func (b *Builder) Build(initial StateID) (*FlowChart, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder already built", ErrIllegalState)
	}
	if !b.contains(initial) {
		return nil, fmt.Errorf("initial state %d does not exist", initial)
	}
	for id, n := range b.nodes {
		if n.kind == branchState && n.question == nil {
			return nil, fmt.Errorf("branch state %d has no question", id)
		}
	}
	b.built = true
	return &FlowChart{nodes: slices.Clone(b.nodes), initial: initial}, nil
}

func (b *Builder) contains(id StateID) bool {
	return id >= 0 && int(id) < len(b.nodes)
}
