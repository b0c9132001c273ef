package browser

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTimeout     = errors.New("browser action timed out")
	ErrClosed      = errors.New("page or context already closed")
	ErrNotFound    = errors.New("no element matches selector")
	ErrUnavailable = errors.New("browser driver unavailable")
)

// ActionError wraps a failed driver action with the page and selector it targeted.
type ActionError struct {
	Action   string
	PageID   string
	Selector string
	Err      error
}

func (e *ActionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("%s %q on page %s: %v", e.Action, e.Selector, e.PageID, e.Err)
	}
	return fmt.Sprintf("%s on page %s: %v", e.Action, e.PageID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// WrapAction builds an ActionError, folding context deadline expiry into ErrTimeout.
func WrapAction(action, pageID, selector string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &ActionError{Action: action, PageID: pageID, Selector: selector, Err: err}
}

// IsTimeout reports whether err means a driver action never completed.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
