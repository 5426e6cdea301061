package dbsession

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned when a closed session is used
var ErrSessionClosed = errors.New("dbsession: session is closed")

// ConnectionError reports a failure to establish a session.
// No session is memoized when it is returned.
type ConnectionError struct {
	Op     string // "configure", "open" or "ping"
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("dbsession: %s %s: %v", e.Op, e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
