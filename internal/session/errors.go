package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when an operation needs a session that was never created or was destroyed.
	ErrNoSession = errors.New("no browser session")
	// ErrSessionExists is returned by CreateSession while a session is still open.
	ErrSessionExists = errors.New("browser session already created")
	// ErrNoActivePage is returned when no page is active.
	ErrNoActivePage = errors.New("no active page")
)

// SessionError reports a failure of the browser driver while managing the session.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// PageNotFoundError reports an activation target that does not exist.
type PageNotFoundError struct {
	Index int
	Open  int
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf("page index %d out of range (%d pages would remain open)", e.Index, e.Open)
}
