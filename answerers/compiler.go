package answerers

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

const (
	// VarItem names the expression variable holding the item facts
	VarItem = "item"
	// VarCurrentYear names the expression variable holding the current year
	VarCurrentYear = "currentYear"

	// costLimit prevents resource exhaustion from malicious or runaway expressions
	costLimit = 1000000
)

// Compiler owns the CEL environment shared by all expression answerers and caches
// compiled programs by expression text. Safe for concurrent use.
type Compiler struct {
	env      *cel.Env
	programs map[string]cel.Program
	mu       sync.RWMutex
}

// NewCompiler creates a compiler whose expressions see the item facts as `item`
// and the current year as `currentYear`
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarItem, cel.DynType),
		cel.Variable(VarCurrentYear, cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Compiler{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile compiles and type-checks an expression, reusing a cached program when possible.
// Expressions must evaluate to a bool or to the name of an answer.
func (c *Compiler) Compile(expression string) (cel.Program, error) {
	c.mu.RLock()
	prog, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	switch out := ast.OutputType().String(); out {
	case cel.BoolType.String(), cel.StringType.String(), cel.DynType.String():
	default:
		return nil, fmt.Errorf("expression must evaluate to bool or string, got %s", out)
	}

	prog, err := c.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	c.mu.Lock()
	c.programs[expression] = prog
	c.mu.Unlock()

	return prog, nil
}

// Len returns the number of cached programs
func (c *Compiler) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.programs)
}
