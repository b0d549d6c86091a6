package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/liamcoop/pdc/calculator"
	"github.com/liamcoop/pdc/pdc"
)

var shortAnswers = map[string]pdc.Answer{
	"y":  pdc.Yes,
	"n":  pdc.No,
	"u":  pdc.Unknown,
	"?":  pdc.Unknown,
	"ay": pdc.AssumedYes,
	"an": pdc.AssumedNo,
}

// PromptSource asks the user for every manual question on a terminal.
// Assumed answers are followed by a prompt for the assumption. End of input answers Unknown.
type PromptSource struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex
}

// NewPromptSource creates a source reading answers from in and writing prompts to out
func NewPromptSource(in io.Reader, out io.Writer) *PromptSource {
	return &PromptSource{in: bufio.NewReader(in), out: out}
}

// Answer prompts until a valid answer is entered
func (p *PromptSource) Answer(ctx context.Context, q *pdc.Question, md pdc.Metadata) (pdc.Answer, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return 0, "", err
		}

		fmt.Fprintf(p.out, "[%s] %s [y/n/ay/an/u]: ", q.ID(), q.Text())
		line, err := p.readLine()
		if errors.Is(err, io.EOF) && line == "" {
			fmt.Fprintln(p.out)
			return pdc.Unknown, "", nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, "", fmt.Errorf("failed to read answer: %w", err)
		}

		answer, ok := parsePromptAnswer(line)
		if !ok {
			fmt.Fprintf(p.out, "Unrecognized answer %q\n", line)
			continue
		}
		if !answer.IsAssumed() {
			return answer, "", nil
		}

		fmt.Fprint(p.out, "Assumption: ")
		assumption, err := p.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, "", fmt.Errorf("failed to read assumption: %w", err)
		}
		return answer, assumption, nil
	}
}

func (p *PromptSource) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	return strings.TrimSpace(line), err
}

func parsePromptAnswer(s string) (pdc.Answer, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if a, ok := shortAnswers[s]; ok {
		return a, true
	}
	if a, err := pdc.ParseAnswer(s); err == nil {
		return a, true
	}
	return 0, false
}

// firstKnown asks each source in turn and returns the first answer that is not Unknown
type firstKnown []calculator.AnswerSource

func (f firstKnown) Answer(ctx context.Context, q *pdc.Question, md pdc.Metadata) (pdc.Answer, string, error) {
	for _, src := range f {
		answer, assumption, err := src.Answer(ctx, q, md)
		if err != nil {
			return 0, "", err
		}
		if answer != pdc.Unknown {
			return answer, assumption, nil
		}
	}
	return pdc.Unknown, "", nil
}
