package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/fixture"
	"github.com/xkilldash9x/crosscheck-cli/internal/results"
	"github.com/xkilldash9x/crosscheck-cli/internal/session"
	"github.com/xkilldash9x/crosscheck-cli/internal/verify"
)

// StepTimeoutError reports a step whose browser action never completed.
type StepTimeoutError struct {
	StepID  string
	Timeout time.Duration
	Err     error
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step %s did not complete within %s: %v", e.StepID, e.Timeout, e.Err)
}

func (e *StepTimeoutError) Unwrap() error { return e.Err }

// Classify maps an error to the error kind recorded in the report.
func Classify(err error) string {
	var (
		mismatch   *verify.Mismatch
		timeoutErr *StepTimeoutError
		sessErr    *session.SessionError
		notFound   *session.PageNotFoundError
		createErr  *fixture.CreationError
		deleteErr  *fixture.DeletionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &mismatch):
		return results.KindAssertion
	case errors.As(err, &timeoutErr), browser.IsTimeout(err):
		return results.KindTimeout
	case errors.As(err, &notFound):
		return results.KindPageNotFound
	case errors.As(err, &sessErr):
		return results.KindSession
	case errors.As(err, &createErr):
		return results.KindFixtureCreation
	case errors.As(err, &deleteErr):
		return results.KindFixtureDeletion
	case errors.Is(err, context.Canceled):
		return results.KindCanceled
	}
	return results.KindError
}

// IsFatal reports whether err leaves the browser in a state no later scenario can recover from.
func IsFatal(err error) bool {
	switch Classify(err) {
	case results.KindTimeout, results.KindSession, results.KindPageNotFound, results.KindCanceled:
		return true
	}
	return false
}
