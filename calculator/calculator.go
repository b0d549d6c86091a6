// Package calculator drives questionnaires to a verdict, answering questions from
// metadata where the chart allows it and from an AnswerSource otherwise.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/pdc/internal/logger"
	"github.com/liamcoop/pdc/pdc"
)

// ErrStepLimit is returned when a questionnaire asks more questions than allowed
var ErrStepLimit = errors.New("step limit exceeded")

const (
	// DefaultMaxSteps bounds the questions answered per item
	DefaultMaxSteps = 256
	// DefaultConcurrency is the number of items RunBatch calculates at once
	DefaultConcurrency = 8
	// DefaultAssumption is recorded for automatic answers whose answerer describes none
	DefaultAssumption = "answered automatically from the item metadata"
)

// Options configures a Calculator. Zero values fall back to the defaults.
type Options struct {
	MaxSteps    int
	Concurrency int

	// DefaultAssumption is recorded for automatic answers whose answerer does not describe one
	DefaultAssumption string
}

// Calculator runs questionnaires. It holds no per-run state and is safe for concurrent use.
type Calculator struct {
	opts Options
}

// New creates a calculator
func New(opts Options) *Calculator {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.DefaultAssumption == "" {
		opts.DefaultAssumption = DefaultAssumption
	}
	return &Calculator{opts: opts}
}

// Options returns the effective options
func (c *Calculator) Options() Options {
	return c.opts
}

// Run answers the questionnaire for md until no questions are left and returns the result.
// A nil src answers every manual question with Unknown.
func (c *Calculator) Run(ctx context.Context, chart *pdc.FlowChart, md pdc.Metadata, src AnswerSource) (*pdc.Result, error) {
	if chart == nil {
		return nil, fmt.Errorf("no flow chart given")
	}
	if src == nil {
		src = NoAnswers{}
	}

	start := time.Now()
	id := itemID(md)
	q := pdc.NewQuestionnaire(chart, md)

	for steps := 0; q.HasQuestionsLeft(); steps++ {
		if steps >= c.opts.MaxSteps {
			return nil, fmt.Errorf("%w: %d questions answered for item %s", ErrStepLimit, steps, id)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		question, err := q.CurrentQuestion()
		if err != nil {
			return nil, err
		}

		answer, assumption, err := c.answer(ctx, question, md, src)
		if err != nil {
			return nil, fmt.Errorf("failed to answer question %s: %w", question.ID(), err)
		}

		logger.Debug("Answered question",
			"item", id,
			"question", question.ID(),
			"answer", answer.String(),
			"assumption", assumption,
		)

		if err := q.AnswerCurrentQuestion(answer, assumption); err != nil {
			return nil, fmt.Errorf("question %s: %w", question.ID(), err)
		}
	}

	result, err := q.Result()
	if err != nil {
		return nil, err
	}

	logger.CountCalculation(result.Verdict.Definite())
	logger.Info("Calculated public domain status",
		"item", id,
		"verdict", result.Verdict.String(),
		"questions", len(result.Trace),
		"aborted", q.Aborted(),
		"duration", time.Since(start),
	)
	return result, nil
}

// answer asks the question's answerer if it has one and src otherwise.
// Definite automatic answers are only ever assumptions about the metadata.
func (c *Calculator) answer(ctx context.Context, q *pdc.Question, md pdc.Metadata, src AnswerSource) (pdc.Answer, string, error) {
	a, automatic := q.Answerer()
	if !automatic {
		answer, assumption, err := src.Answer(ctx, q, md)
		if err != nil {
			return 0, "", err
		}
		if !answer.Valid() {
			return 0, "", fmt.Errorf("invalid answer %s", answer)
		}
		return answer, assumption, nil
	}

	logger.TotalAutoAnswers.Add(1)
	answer := a.AnswerFor(md)
	switch answer {
	case pdc.Yes, pdc.No, pdc.AssumedYes, pdc.AssumedNo:
		return answer.Assumed(), c.assumptionOf(a), nil
	case pdc.Unknown:
		return pdc.Unknown, "", nil
	default:
		logger.Warn("Answerer returned an invalid answer", "question", q.ID(), "answer", uint8(answer))
		return pdc.Unknown, "", nil
	}
}

func (c *Calculator) assumptionOf(a pdc.Answerer) string {
	if assumer, ok := a.(pdc.Assumer); ok && assumer.Assumption() != "" {
		return assumer.Assumption()
	}
	return c.opts.DefaultAssumption
}

// RunBatch runs one questionnaire per item concurrently. Results are returned in input order.
// The first error cancels the remaining runs.
func (c *Calculator) RunBatch(ctx context.Context, chart *pdc.FlowChart, items []pdc.Metadata, src AnswerSource) ([]*pdc.Result, error) {
	results := make([]*pdc.Result, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, md := range items {
		i, md := i, md
		g.Go(func() error {
			result, err := c.Run(ctx, chart, md, src)
			if err != nil {
				return fmt.Errorf("item %s: %w", itemID(md), err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func itemID(md pdc.Metadata) string {
	if md == nil {
		return ""
	}
	return md.ItemID()
}
