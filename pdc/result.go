package pdc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Verdict is the tri-state public domain determination
type Verdict int8

const (
	// VerdictIndeterminate means the status could not be determined
	VerdictIndeterminate Verdict = iota
	// VerdictPublicDomain means the artifact is in the public domain
	VerdictPublicDomain
	// VerdictProtected means the artifact is not in the public domain
	VerdictProtected
)

// VerdictOf converts a definite boolean to a Verdict
func VerdictOf(publicDomain bool) Verdict {
	if publicDomain {
		return VerdictPublicDomain
	}
	return VerdictProtected
}

// Bool returns the verdict as a boolean and whether it is definite
func (v Verdict) Bool() (publicDomain bool, definite bool) {
	switch v {
	case VerdictPublicDomain:
		return true, true
	case VerdictProtected:
		return false, true
	default:
		return false, false
	}
}

// Definite reports whether the verdict is true or false
func (v Verdict) Definite() bool {
	_, ok := v.Bool()
	return ok
}

func (v Verdict) String() string {
	switch v {
	case VerdictPublicDomain:
		return "public domain"
	case VerdictProtected:
		return "not public domain"
	default:
		return "indeterminate"
	}
}

// MarshalJSON encodes the verdict as true, false or null
func (v Verdict) MarshalJSON() ([]byte, error) {
	b, ok := v.Bool()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(b)
}

// UnmarshalJSON decodes true, false or null
func (v *Verdict) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = VerdictIndeterminate
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("invalid verdict %s: %w", data, err)
	}
	*v = VerdictOf(b)
	return nil
}

// AnsweredQuestion records one answer given during a questionnaire. It is never modified.
type AnsweredQuestion struct {
	question   *Question
	answer     Answer
	assumption string
}

// NewAnsweredQuestion creates a trace record. An empty assumption means none was made.
func NewAnsweredQuestion(q *Question, answer Answer, assumption string) AnsweredQuestion {
	return AnsweredQuestion{question: q, answer: answer, assumption: assumption}
}

// Question returns the question that was asked
func (aq AnsweredQuestion) Question() *Question {
	return aq.question
}

// Answer returns the answer that was given
func (aq AnsweredQuestion) Answer() Answer {
	return aq.answer
}

// Assumption returns the assumption text and whether one was recorded
func (aq AnsweredQuestion) Assumption() (string, bool) {
	return aq.assumption, aq.assumption != ""
}

// MarshalJSON renders the record for API responses
func (aq AnsweredQuestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Question   *Question `json:"question"`
		Answer     Answer    `json:"answer"`
		Assumption string    `json:"assumption,omitempty"`
	}{
		Question:   aq.question,
		Answer:     aq.answer,
		Assumption: aq.assumption,
	})
}

// Result bundles the outcome of a finished questionnaire
type Result struct {
	Verdict  Verdict            `json:"publicDomain"`
	Trace    []AnsweredQuestion `json:"trace"`
	Metadata Metadata           `json:"metadata"`
}

// NewResult creates a result. The trace is shared, not copied.
func NewResult(verdict Verdict, trace []AnsweredQuestion, md Metadata) *Result {
	return &Result{
		Verdict:  verdict,
		Trace:    trace,
		Metadata: md,
	}
}

// Assumptions returns the trace entries that were answered under an assumption
func (r *Result) Assumptions() []AnsweredQuestion {
	var out []AnsweredQuestion
	for _, aq := range r.Trace {
		if _, ok := aq.Assumption(); ok {
			out = append(out, aq)
		}
	}
	return out
}
