package calculator

import (
	"context"
	"fmt"
	"strings"

	"github.com/liamcoop/pdc/pdc"
)

// AnswerSource answers the questions a chart cannot answer from metadata.
// Implementations used with RunBatch must be safe for concurrent use.
type AnswerSource interface {
	Answer(ctx context.Context, q *pdc.Question, md pdc.Metadata) (pdc.Answer, string, error)
}

// StaticAnswers answers by question id. Questions without an entry are Unknown.
type StaticAnswers map[string]pdc.Answer

// Answer looks up the answer for q
func (s StaticAnswers) Answer(_ context.Context, q *pdc.Question, _ pdc.Metadata) (pdc.Answer, string, error) {
	if a, ok := s[q.ID()]; ok {
		return a, "", nil
	}
	return pdc.Unknown, "", nil
}

// ParseStaticAnswers builds StaticAnswers from "question=ANSWER" pairs
func ParseStaticAnswers(pairs []string) (StaticAnswers, error) {
	answers := make(StaticAnswers, len(pairs))
	for _, pair := range pairs {
		id, value, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid answer %q: expected question=ANSWER", pair)
		}
		a, err := pdc.ParseAnswer(value)
		if err != nil {
			return nil, fmt.Errorf("invalid answer for %s: %w", id, err)
		}
		answers[id] = a
	}
	return answers, nil
}

// NoAnswers answers every question with Unknown
type NoAnswers struct{}

// Answer returns Unknown
func (NoAnswers) Answer(context.Context, *pdc.Question, pdc.Metadata) (pdc.Answer, string, error) {
	return pdc.Unknown, "", nil
}
