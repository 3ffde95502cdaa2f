package attendance

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/presensia/presensia-client/internal/api"
)

// Local preconditions, raised before any network call.
var (
	ErrLocationUnavailable = errors.New("device location unavailable")
	ErrMissingIdentifier   = errors.New("session and student identifiers are required")
)

// GeofenceError means the server judged the student outside the session
// radius. Message is the server's text, verbatim.
type GeofenceError struct {
	Message string
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("outside geofence: %s", e.Message)
}

// ClosedError means the session window had already ended server-side.
type ClosedError struct {
	Message string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("session closed: %s", e.Message)
}

// TransitionError is a server-rejected ordering violation, such as checking
// out without ever checking in.
type TransitionError struct {
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s", e.Message)
}

// classify maps a server rejection onto the protocol's error kinds by HTTP
// status. Unmatched statuses pass through as the raw server error.
//
//	403 → geofence violation
//	409 → invalid transition
//	410 → session closed
func classify(err error) error {
	var srvErr *api.ServerError
	if !errors.As(err, &srvErr) {
		return err
	}
	switch srvErr.StatusCode {
	case http.StatusForbidden:
		return &GeofenceError{Message: srvErr.Message}
	case http.StatusConflict:
		return &TransitionError{Message: srvErr.Message}
	case http.StatusGone:
		return &ClosedError{Message: srvErr.Message}
	}
	return err
}
