package pdc

import "encoding/json"

// Metadata describes the cultural artifact a questionnaire is answered for.
// The engine never looks inside it; it is handed unchanged to answerers and results.
type Metadata interface {
	ItemID() string
}

// Answerer inspects artifact metadata and answers a question without asking a human.
// Implementations must be free of side effects and safe for concurrent use.
// Unknown signals that the answerer cannot decide.
type Answerer interface {
	AnswerFor(md Metadata) Answer
}

// Assumer is implemented by answerers that can describe the caveat behind their answers
type Assumer interface {
	Assumption() string
}

// AnswererFunc adapts an ordinary function to the Answerer interface
type AnswererFunc func(md Metadata) Answer

// AnswerFor calls f(md)
func (f AnswererFunc) AnswerFor(md Metadata) Answer {
	return f(md)
}

// Question is a single decision point of a flow chart. It is immutable once created and
// compared by identity: two questions with the same text are still different questions.
type Question struct {
	id       string
	text     string
	answerer Answerer
}

// NewQuestion creates a question. answerer may be nil for questions only a human can answer.
func NewQuestion(id, text string, answerer Answerer) *Question {
	return &Question{
		id:       id,
		text:     text,
		answerer: answerer,
	}
}

// ID returns the question identifier
func (q *Question) ID() string {
	return q.id
}

// Text returns the prompt text
func (q *Question) Text() string {
	return q.text
}

// Answerer returns the attached answerer and whether there is one
func (q *Question) Answerer() (Answerer, bool) {
	return q.answerer, q.answerer != nil
}

// MarshalJSON renders the question for API responses
func (q *Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Automatic bool   `json:"automatic"`
	}{
		ID:        q.id,
		Text:      q.text,
		Automatic: q.answerer != nil,
	})
}
