package pdc

import (
	"errors"
	"fmt"
	"slices"
)

// Questionnaire walks a flow chart for one cultural artifact.
//
// It behaves like an iterator: while HasQuestionsLeft reports true, fetch the question with
// CurrentQuestion and answer it with AnswerCurrentQuestion. Once no questions are left,
// IsPublicDomain and Result report the outcome and Trace lists every answer given.
//
// A Questionnaire is stateful and single-use. It must not be shared between goroutines
// or reused for a different artifact; build a new one per artifact instead.
type Questionnaire struct {
	state    State
	trace    []AnsweredQuestion
	aborted  bool
	metadata Metadata
}

// NewQuestionnaire starts a questionnaire at the initial state of chart.
// A nil chart yields a questionnaire with no questions whose verdict fails with ErrIllegalState.
func NewQuestionnaire(chart *FlowChart, md Metadata) *Questionnaire {
	var state State
	if chart != nil {
		state = chart.Initial()
	}
	return &Questionnaire{
		state:    state,
		trace:    []AnsweredQuestion{},
		metadata: md,
	}
}

// HasQuestionsLeft reports whether another question needs to be answered
func (q *Questionnaire) HasQuestionsLeft() bool {
	if q.aborted {
		return false
	}
	return q.state.HasQuestion()
}

// CurrentQuestion returns the question to answer next.
// Use HasQuestionsLeft to avoid ErrNoCurrentElement.
func (q *Questionnaire) CurrentQuestion() (*Question, error) {
	if q.aborted {
		return nil, ErrNoCurrentElement
	}
	return q.state.Question()
}

// AnswerCurrentQuestion answers the current question and moves on to the next state.
// The answer is recorded before anything else happens, so an Unknown answer that aborts
// the questionnaire still shows up in the trace. An empty assumption means none was made.
func (q *Questionnaire) AnswerCurrentQuestion(answer Answer, assumption string) error {
	question, err := q.CurrentQuestion()
	if err != nil {
		return err
	}

	q.trace = append(q.trace, NewAnsweredQuestion(question, answer, assumption))

	if answer == Unknown {
		q.aborted = true
		return nil
	}

	next, err := q.state.Next(answer)
	if err != nil {
		return &transitionError{err: err}
	}
	q.state = next
	return nil
}

// IsPublicDomain decides the public domain problem once all questions are answered.
// An aborted questionnaire or a rule that cannot decide yields VerdictIndeterminate.
// Asking before the questionnaire is finished fails with ErrIllegalState.
func (q *Questionnaire) IsPublicDomain() (Verdict, error) {
	if q.aborted {
		return VerdictIndeterminate, nil
	}
	if q.state.chart == nil {
		return VerdictIndeterminate, fmt.Errorf("%w: questionnaire has no flow chart", ErrIllegalState)
	}
	if !q.state.HasResult() {
		return VerdictIndeterminate, fmt.Errorf("%w: questions left to answer", ErrIllegalState)
	}
	publicDomain, err := q.state.Result()
	if errors.Is(err, ErrCannotCalculate) {
		return VerdictIndeterminate, nil
	}
	if err != nil {
		return VerdictIndeterminate, err
	}
	return VerdictOf(publicDomain), nil
}

// Trace returns the answers given so far, in order.
// The returned slice is shared with the questionnaire and must be treated as read-only.
func (q *Questionnaire) Trace() []AnsweredQuestion {
	return slices.Clip(q.trace)
}

// Result bundles verdict, trace and metadata. It fails like IsPublicDomain.
func (q *Questionnaire) Result() (*Result, error) {
	verdict, err := q.IsPublicDomain()
	if err != nil {
		return nil, err
	}
	return NewResult(verdict, q.Trace(), q.metadata), nil
}

// Metadata returns the artifact the questionnaire is answered for
func (q *Questionnaire) Metadata() Metadata {
	return q.metadata
}

// Aborted reports whether an Unknown answer ended the questionnaire
func (q *Questionnaire) Aborted() bool {
	return q.aborted
}

// transitionError reports an answer without an edge. The question stays current,
// so it matches ErrNoCurrentElement as well as the underlying ErrNoTransition.
type transitionError struct {
	err error
}

func (e *transitionError) Error() string {
	return e.err.Error()
}

func (e *transitionError) Unwrap() []error {
	return []error{ErrNoCurrentElement, e.err}
}
