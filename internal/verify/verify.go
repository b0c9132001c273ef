// Package verify holds the pure comparisons asserted against observed UI state.
package verify

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Result is the outcome of one comparison on a named surface.
type Result struct {
	Surface  string
	Expected any
	Actual   any
	Pass     bool
	Message  string
}

// Err returns a *Mismatch for a failed result and nil otherwise.
func (r Result) Err() error {
	if r.Pass {
		return nil
	}
	return &Mismatch{Result: r}
}

// Mismatch is the assertion failure carried up to the step that made it.
type Mismatch struct {
	Result Result
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("%s: %s", m.Result.Surface, m.Result.Message)
}

// Equal passes when actual equals expected exactly.
func Equal[T comparable](surface string, expected, actual T) Result {
	r := Result{Surface: surface, Expected: expected, Actual: actual, Pass: expected == actual}
	if r.Pass {
		r.Message = fmt.Sprintf("got %v", actual)
	} else {
		r.Message = fmt.Sprintf("expected %#v, got %#v (-want +got):\n%s", expected, actual, cmp.Diff(expected, actual))
	}
	return r
}

// Contains passes when actual contains the expected substring.
func Contains(surface, expected, actual string) Result {
	r := Result{Surface: surface, Expected: expected, Actual: actual, Pass: strings.Contains(actual, expected)}
	if r.Pass {
		r.Message = fmt.Sprintf("%q found", expected)
	} else {
		r.Message = fmt.Sprintf("expected to contain %q, got %q", expected, actual)
	}
	return r
}

// True passes when actual is true.
func True(surface string, actual bool) Result {
	return Equal(surface, true, actual)
}

// Greater passes when actual is strictly greater than bound.
func Greater(surface string, bound, actual int) Result {
	r := Result{Surface: surface, Expected: fmt.Sprintf("> %d", bound), Actual: actual, Pass: actual > bound}
	if r.Pass {
		r.Message = fmt.Sprintf("got %d", actual)
	} else {
		r.Message = fmt.Sprintf("expected more than %d, got %d", bound, actual)
	}
	return r
}
