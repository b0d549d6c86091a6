package pdc

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCurrentElement is returned when a question is requested or answered but none is pending
	ErrNoCurrentElement = errors.New("no current question")

	// ErrIllegalState is returned when an operation is invalid for the current state,
	// e.g. asking for a verdict before the questionnaire is complete
	ErrIllegalState = errors.New("illegal state")

	// ErrCannotCalculate marks a terminal state whose rule intentionally cannot decide.
	// It is an expected outcome, not a bug: callers translate it to an indeterminate verdict.
	ErrCannotCalculate = errors.New("public domain status cannot be calculated")

	// ErrNoTransition is returned when a state has no edge for the given answer
	ErrNoTransition = fmt.Errorf("%w: no such transition", ErrIllegalState)
)
