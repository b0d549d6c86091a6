package pdc

import (
	"fmt"
	"strings"
)

// Answer is the closed set of values a question can be answered with
type Answer uint8

const (
	// Yes is a definite yes given by a human
	Yes Answer = iota + 1
	// No is a definite no given by a human
	No
	// Unknown means the answer cannot be determined, not even automatically.
	// It is never an edge key and always aborts a questionnaire.
	Unknown
	// AssumedYes is a yes given under an explicit assumption
	AssumedYes
	// AssumedNo is a no given under an explicit assumption
	AssumedNo
)

var answerNames = map[Answer]string{
	Yes:        "YES",
	No:         "NO",
	Unknown:    "UNKNOWN",
	AssumedYes: "ASSUMED_YES",
	AssumedNo:  "ASSUMED_NO",
}

// Answers lists every valid answer in declaration order
func Answers() []Answer {
	return []Answer{Yes, No, Unknown, AssumedYes, AssumedNo}
}

// ParseAnswer converts the textual form of an answer (case-insensitive) to an Answer
func ParseAnswer(s string) (Answer, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for a, n := range answerNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown answer %q (must be one of: YES, NO, UNKNOWN, ASSUMED_YES, ASSUMED_NO)", s)
}

// Valid reports whether a is one of the declared answers
func (a Answer) Valid() bool {
	_, ok := answerNames[a]
	return ok
}

// Assumed maps Yes and No to their assumed counterparts and returns every other answer unchanged
func (a Answer) Assumed() Answer {
	switch a {
	case Yes:
		return AssumedYes
	case No:
		return AssumedNo
	default:
		return a
	}
}

// IsAssumed reports whether the answer was given under an assumption
func (a Answer) IsAssumed() bool {
	return a == AssumedYes || a == AssumedNo
}

func (a Answer) String() string {
	if n, ok := answerNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Answer(%d)", uint8(a))
}

// MarshalText implements encoding.TextMarshaler so answers work as JSON and YAML map keys
func (a Answer) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid answer %d", uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Answer) UnmarshalText(text []byte) error {
	parsed, err := ParseAnswer(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
