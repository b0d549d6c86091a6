package calculator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/liamcoop/pdc/pdc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testItem string

func (i testItem) ItemID() string { return string(i) }

// lifeChart asks whether the author is alive (manual) and, if not, whether the author died
// more than 70 years ago (automatic).
func lifeChart(t *testing.T, dead70 pdc.Answerer) *pdc.FlowChart {
	t.Helper()
	b := pdc.NewBuilder()
	alive := b.Branch(pdc.NewQuestion("alive", "Is the author still alive?", nil))
	old := b.Branch(pdc.NewQuestion("dead-70", "Did the author die more than 70 years ago?", dead70))
	protected := b.Result(false)
	free := b.Result(true)
	unsure := b.CannotCalculate()

	require.NoError(t, b.Edge(alive, pdc.Yes, protected))
	require.NoError(t, b.Edge(alive, pdc.No, old))
	for _, a := range []pdc.Answer{pdc.Yes, pdc.AssumedYes} {
		require.NoError(t, b.Edge(old, a, free))
	}
	require.NoError(t, b.Edge(old, pdc.AssumedNo, unsure))

	chart, err := b.Build(alive)
	require.NoError(t, err)
	return chart
}

type assumingAnswerer struct {
	answer     pdc.Answer
	assumption string
}

func (a assumingAnswerer) AnswerFor(pdc.Metadata) pdc.Answer { return a.answer }
func (a assumingAnswerer) Assumption() string               { return a.assumption }

type errSource struct{}

func (errSource) Answer(context.Context, *pdc.Question, pdc.Metadata) (pdc.Answer, string, error) {
	return 0, "", errors.New("terminal closed")
}

type invalidSource struct{}

func (invalidSource) Answer(context.Context, *pdc.Question, pdc.Metadata) (pdc.Answer, string, error) {
	return pdc.Answer(42), "", nil
}

// TestRun covers the verdicts reachable through manual and automatic answers
func TestRun(t *testing.T) {
	testCases := []struct {
		name       string
		answerer   pdc.Answerer
		src        AnswerSource
		want       pdc.Verdict
		wantTrace  []pdc.Answer
		assumption string
	}{
		{
			name:      "Manual yes ends protected",
			answerer:  assumingAnswerer{pdc.Yes, "death year from metadata"},
			src:       StaticAnswers{"alive": pdc.Yes},
			want:      pdc.VerdictProtected,
			wantTrace: []pdc.Answer{pdc.Yes},
		},
		{
			name:       "Automatic yes becomes assumed yes",
			answerer:   assumingAnswerer{pdc.Yes, "death year from metadata"},
			src:        StaticAnswers{"alive": pdc.No},
			want:       pdc.VerdictPublicDomain,
			wantTrace:  []pdc.Answer{pdc.No, pdc.AssumedYes},
			assumption: "death year from metadata",
		},
		{
			name:       "Automatic no reaches a cannot-calculate leaf",
			answerer:   pdc.AnswererFunc(func(pdc.Metadata) pdc.Answer { return pdc.No }),
			src:        StaticAnswers{"alive": pdc.No},
			want:       pdc.VerdictIndeterminate,
			wantTrace:  []pdc.Answer{pdc.No, pdc.AssumedNo},
			assumption: DefaultAssumption,
		},
		{
			name:      "Automatic unknown aborts",
			answerer:  pdc.AnswererFunc(func(pdc.Metadata) pdc.Answer { return pdc.Unknown }),
			src:       StaticAnswers{"alive": pdc.No},
			want:      pdc.VerdictIndeterminate,
			wantTrace: []pdc.Answer{pdc.No, pdc.Unknown},
		},
		{
			name:      "Missing manual answer aborts",
			answerer:  assumingAnswerer{pdc.Yes, "x"},
			src:       StaticAnswers{},
			want:      pdc.VerdictIndeterminate,
			wantTrace: []pdc.Answer{pdc.Unknown},
		},
		{
			name:      "Nil source aborts",
			answerer:  assumingAnswerer{pdc.Yes, "x"},
			src:       nil,
			want:      pdc.VerdictIndeterminate,
			wantTrace: []pdc.Answer{pdc.Unknown},
		},
	}

	calc := New(Options{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := calc.Run(context.Background(), lifeChart(t, tc.answerer), testItem("item-1"), tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Verdict)
			assert.Equal(t, testItem("item-1"), result.Metadata)

			got := make([]pdc.Answer, len(result.Trace))
			for i, aq := range result.Trace {
				got[i] = aq.Answer()
			}
			assert.Equal(t, tc.wantTrace, got)

			if tc.assumption != "" {
				assumptions := result.Assumptions()
				require.Len(t, assumptions, 1)
				text, _ := assumptions[0].Assumption()
				assert.Equal(t, tc.assumption, text)
			} else {
				assert.Empty(t, result.Assumptions())
			}
		})
	}
}

// TestRun_CustomDefaultAssumption verifies the configured assumption text is used
func TestRun_CustomDefaultAssumption(t *testing.T) {
	calc := New(Options{DefaultAssumption: "metadata is complete"})
	yes := pdc.AnswererFunc(func(pdc.Metadata) pdc.Answer { return pdc.Yes })

	result, err := calc.Run(context.Background(), lifeChart(t, yes), testItem("x"), StaticAnswers{"alive": pdc.No})
	require.NoError(t, err)

	text, ok := result.Trace[1].Assumption()
	require.True(t, ok)
	assert.Equal(t, "metadata is complete", text)
}

// TestRun_Errors covers failures that leave no result
func TestRun_Errors(t *testing.T) {
	calc := New(Options{})
	yes := pdc.AnswererFunc(func(pdc.Metadata) pdc.Answer { return pdc.Yes })

	_, err := calc.Run(context.Background(), nil, testItem("x"), nil)
	assert.Error(t, err, "nil chart")

	_, err = calc.Run(context.Background(), lifeChart(t, yes), testItem("x"), errSource{})
	assert.ErrorContains(t, err, "terminal closed")

	_, err = calc.Run(context.Background(), lifeChart(t, yes), testItem("x"), invalidSource{})
	assert.ErrorContains(t, err, "invalid answer")

	// AssumedYes has no edge from the manual question
	_, err = calc.Run(context.Background(), lifeChart(t, yes), testItem("x"), StaticAnswers{"alive": pdc.AssumedYes})
	assert.ErrorIs(t, err, pdc.ErrNoTransition)
	assert.ErrorIs(t, err, pdc.ErrNoCurrentElement)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = calc.Run(ctx, lifeChart(t, yes), testItem("x"), StaticAnswers{"alive": pdc.No})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_StepLimit verifies long walks are cut off
func TestRun_StepLimit(t *testing.T) {
	b := pdc.NewBuilder()
	const depth = 10
	ids := make([]pdc.StateID, depth)
	for i := range ids {
		ids[i] = b.Branch(pdc.NewQuestion(fmt.Sprintf("q%d", i), "Continue?", nil))
	}
	end := b.Result(true)
	for i := 0; i < depth-1; i++ {
		require.NoError(t, b.Edge(ids[i], pdc.Yes, ids[i+1]))
	}
	require.NoError(t, b.Edge(ids[depth-1], pdc.Yes, end))
	chart, err := b.Build(ids[0])
	require.NoError(t, err)

	src := StaticAnswers{}
	for i := 0; i < depth; i++ {
		src[fmt.Sprintf("q%d", i)] = pdc.Yes
	}

	_, err = New(Options{MaxSteps: 5}).Run(context.Background(), chart, testItem("x"), src)
	assert.ErrorIs(t, err, ErrStepLimit)

	result, err := New(Options{MaxSteps: depth}).Run(context.Background(), chart, testItem("x"), src)
	require.NoError(t, err)
	assert.Equal(t, pdc.VerdictPublicDomain, result.Verdict)
}

// TestRunBatch verifies results keep input order and concurrency is bounded
func TestRunBatch(t *testing.T) {
	var inFlight, peak atomic.Int64
	answerer := pdc.AnswererFunc(func(md pdc.Metadata) pdc.Answer {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if md.ItemID() == "old" {
			return pdc.Yes
		}
		return pdc.No
	})
	chart := lifeChart(t, answerer)

	items := make([]pdc.Metadata, 0, 20)
	for i := 0; i < 10; i++ {
		items = append(items, testItem("old"), testItem("new"))
	}

	calc := New(Options{Concurrency: 3})
	results, err := calc.RunBatch(context.Background(), chart, items, StaticAnswers{"alive": pdc.No})
	require.NoError(t, err)
	require.Len(t, results, len(items))

	for i, r := range results {
		assert.Equal(t, items[i], r.Metadata)
		if i%2 == 0 {
			assert.Equal(t, pdc.VerdictPublicDomain, r.Verdict)
		} else {
			assert.Equal(t, pdc.VerdictIndeterminate, r.Verdict)
		}
	}
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

// TestRunBatch_Error verifies the first failure is reported with its item
func TestRunBatch_Error(t *testing.T) {
	yes := pdc.AnswererFunc(func(pdc.Metadata) pdc.Answer { return pdc.Yes })
	items := []pdc.Metadata{testItem("a"), testItem("b")}

	_, err := New(Options{}).RunBatch(context.Background(), lifeChart(t, yes), items, errSource{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item ")

	results, err := New(Options{}).RunBatch(context.Background(), lifeChart(t, yes), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestParseStaticAnswers covers the question=ANSWER syntax
func TestParseStaticAnswers(t *testing.T) {
	got, err := ParseStaticAnswers([]string{"alive=no", " renewed = ASSUMED_YES"})
	require.NoError(t, err)
	assert.Equal(t, StaticAnswers{"alive": pdc.No, "renewed": pdc.AssumedYes}, got)

	for _, bad := range []string{"alive", "=YES", "alive=maybe"} {
		_, err := ParseStaticAnswers([]string{bad})
		assert.Error(t, err, bad)
	}
}
