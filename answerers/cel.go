package answerers

import (
	"time"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/pdc/internal/logger"
	"github.com/liamcoop/pdc/pdc"
)

// FactSource is implemented by metadata that can be exposed to expressions
type FactSource interface {
	Facts() map[string]any
}

// CEL answers a question by evaluating an expression against the item facts.
//
// A bool result maps to YES or NO, a string result is parsed as an answer name.
// Anything else, including evaluation errors caused by missing metadata, yields UNKNOWN.
type CEL struct {
	expression string
	assumption string
	program    cel.Program
	now        func() time.Time
}

// NewCEL compiles expression into an answerer. assumption describes the caveat under
// which its answers are given.
func (c *Compiler) NewCEL(expression, assumption string) (*CEL, error) {
	prog, err := c.Compile(expression)
	if err != nil {
		return nil, err
	}
	return &CEL{
		expression: expression,
		assumption: assumption,
		program:    prog,
		now:        time.Now,
	}, nil
}

// AnswerFor evaluates the expression for md
func (a *CEL) AnswerFor(md pdc.Metadata) pdc.Answer {
	source, ok := md.(FactSource)
	if !ok {
		return pdc.Unknown
	}

	out, _, err := a.program.Eval(map[string]any{
		VarItem:        source.Facts(),
		VarCurrentYear: int64(a.now().Year()),
	})
	if err != nil {
		logger.Debug("expression could not be evaluated",
			"item", md.ItemID(), "expression", a.expression, "error", err)
		return pdc.Unknown
	}

	switch v := out.Value().(type) {
	case bool:
		if v {
			return pdc.Yes
		}
		return pdc.No
	case string:
		answer, err := pdc.ParseAnswer(v)
		if err != nil {
			logger.Debug("expression returned an invalid answer",
				"item", md.ItemID(), "expression", a.expression, "value", v)
			return pdc.Unknown
		}
		return answer
	default:
		return pdc.Unknown
	}
}

// Assumption describes the caveat behind the answers
func (a *CEL) Assumption() string {
	return a.assumption
}

// Expression returns the source expression
func (a *CEL) Expression() string {
	return a.expression
}
