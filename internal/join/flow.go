package join

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/api"
	"github.com/presensia/presensia-client/internal/model"
)

var (
	// ErrEmptyCode is the local validation failure for an empty invite
	// code. It never reaches the network.
	ErrEmptyCode = errors.New("invite code is empty")

	// ErrSubmissionInFlight is returned while a previous join request has
	// not resolved yet. It is what keeps a camera session from firing the
	// same scanned code repeatedly.
	ErrSubmissionInFlight = errors.New("a join request is already in flight")
)

// RejectedError carries the server's rejection verbatim. The flow does not
// try to tell invalid, expired, and already-a-member apart; the message is
// the server's to word.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("join rejected: %s", e.Message)
}

// Result is the outcome of an accepted join. ClassID may be empty on server
// builds that only return a message.
type Result struct {
	ClassID string
	Message string
}

// Flow submits class-join requests keyed by an invite code. Typed codes and
// scanned QR payloads share the same entry point: the scanner only supplies
// the string value.
type Flow struct {
	api *api.Client
	log zerolog.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewFlow creates a join flow.
func NewFlow(apiClient *api.Client, log zerolog.Logger) *Flow {
	return &Flow{
		api: apiClient,
		log: log.With().Str("component", "join_flow").Logger(),
	}
}

// JoinByCode redeems an invite code for the student. An empty code fails
// locally with ErrEmptyCode and issues no network call. While one submission
// is in flight, further submissions fail with ErrSubmissionInFlight until
// the first resolves.
func (f *Flow) JoinByCode(ctx context.Context, code, studentID string) (*Result, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	f.inFlight = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	payload := model.JoinByCodeRequest{Code: code, UserID: studentID}

	var resp model.JoinByCodeResponse
	if err := f.api.Post(ctx, "/class/invite-by-code", payload, &resp, true); err != nil {
		var srvErr *api.ServerError
		if errors.As(err, &srvErr) {
			return nil, &RejectedError{Message: srvErr.Message}
		}
		return nil, err
	}

	f.log.Info().Str("student_id", studentID).Str("class_id", resp.ClassID).Msg("Joined class by code")

	return &Result{ClassID: resp.ClassID, Message: resp.Message}, nil
}
