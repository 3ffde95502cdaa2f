package api

import "fmt"

// ServerError is any non-2xx response. Message is passed through verbatim
// from the server's JSON body; an empty body yields the HTTP status text.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure (timeout, DNS, connection
// reset). The wrapped error never contains a server-supplied message.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
