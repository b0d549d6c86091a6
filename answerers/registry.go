package answerers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/liamcoop/pdc/pdc"
)

// Constant always gives the same answer. Useful for rules where no metadata exists yet
// and a conservative default has to be assumed.
type Constant struct {
	answer     pdc.Answer
	assumption string
}

// NewConstant creates an answerer that always returns answer
func NewConstant(answer pdc.Answer, assumption string) *Constant {
	return &Constant{answer: answer, assumption: assumption}
}

// AnswerFor returns the fixed answer
func (c *Constant) AnswerFor(pdc.Metadata) pdc.Answer {
	return c.answer
}

// Assumption describes the caveat behind the answer
func (c *Constant) Assumption() string {
	return c.assumption
}

// Registry maps names used in flow chart definitions to answerers
type Registry struct {
	answerers map[string]pdc.Answerer
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{answerers: make(map[string]pdc.Answerer)}
}

// Register adds an answerer under name
func (r *Registry) Register(name string, a pdc.Answerer) error {
	if name == "" {
		return fmt.Errorf("answerer name cannot be empty")
	}
	if a == nil {
		return fmt.Errorf("answerer %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.answerers[name]; exists {
		return fmt.Errorf("answerer %q already registered", name)
	}
	r.answerers[name] = a
	return nil
}

// Lookup returns the answerer registered under name
func (r *Registry) Lookup(name string) (pdc.Answerer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.answerers[name]
	return a, ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.answerers))
	for name := range r.answerers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtinExpressions = []struct {
	name       string
	expression string
	assumption string
}{
	{
		name: "author-dead-70-years",
		expression: `item.authors.size() == 0 || item.authors.exists(a, !has(a.deathYear))
			? "UNKNOWN"
			: (item.authors.all(a, currentYear - a.deathYear > 70) ? "YES" : "NO")`,
		assumption: "death years of all authors are taken from the item metadata",
	},
	{
		name:       "published-more-than-70-years-ago",
		expression: `has(item.published) ? (currentYear - item.published > 70 ? "YES" : "NO") : "UNKNOWN"`,
		assumption: "the publication year recorded in the item metadata is the first publication",
	},
	{
		name:       "anonymous-work",
		expression: `item.authors.size() == 0`,
		assumption: "an item without recorded authors is an anonymous work",
	},
	{
		name:       "official-author",
		expression: `item.authors.exists(a, a.official)`,
		assumption: "authors flagged as official acted on behalf of a public authority",
	},
}

// Builtins returns a registry holding the answerers shipped with the calculator
func Builtins(c *Compiler) (*Registry, error) {
	r := NewRegistry()

	// Whether an official work is meant to be generally received cannot be read from
	// the metadata, so it is never presumed.
	if err := r.Register("official-work", NewConstant(pdc.No,
		"official works are not presumed to be published for general information")); err != nil {
		return nil, err
	}

	for _, b := range builtinExpressions {
		a, err := c.NewCEL(b.expression, b.assumption)
		if err != nil {
			return nil, fmt.Errorf("failed to compile builtin answerer %s: %w", b.name, err)
		}
		if err := r.Register(b.name, a); err != nil {
			return nil, err
		}
	}

	return r, nil
}
