package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/api"
	"github.com/presensia/presensia-client/internal/model"
)

// CooldownSeconds is the resend cooldown, restarted only by a resend. The
// countdown is purely advisory to the user: it is not synchronized with
// server-side code expiry and is not an enforced rate limit.
const CooldownSeconds = 120

// State is the flow's observable state.
type State string

const (
	StateIdle           State = "idle"
	StateSubmitting     State = "submitting"
	StateCooldownActive State = "cooldown_active"
	StateReadyToResend  State = "ready_to_resend"
)

var (
	// ErrIncompleteCode is the local failure for a code that is not
	// exactly 6 digits. It never reaches the network.
	ErrIncompleteCode = errors.New("code must be exactly 6 digits")

	// ErrSubmitInFlight rejects a submit while another is outstanding.
	ErrSubmitInFlight = errors.New("a submission is already in flight")

	// ErrResendUnavailable rejects a resend outside ReadyToResend.
	ErrResendUnavailable = errors.New("resend is not available until the cooldown ends")
)

// RejectedError carries the server's verbatim rejection of a code or a
// resend request.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("verification rejected: %s", e.Message)
}

// Flow manages one-time-code entry and the resend cooldown for a single
// password-reset attempt, independent of any rendering. A Flow is created
// when a reset request succeeds and discarded when the hosting surface is
// dismissed; it has no terminal state of its own.
type Flow struct {
	api   *api.Client
	email string
	log   zerolog.Logger

	mu         sync.Mutex
	cooldown   int
	submitting bool
}

// Begin requests a one-time code for the email and, on success, returns a
// flow already in CooldownActive(CooldownSeconds).
func Begin(ctx context.Context, apiClient *api.Client, email string, log zerolog.Logger) (*Flow, error) {
	if err := requestCode(ctx, apiClient, email); err != nil {
		return nil, err
	}
	return NewFlow(apiClient, email, log), nil
}

// NewFlow builds a flow for an already-dispatched reset request. The
// initial state is CooldownActive(CooldownSeconds).
func NewFlow(apiClient *api.Client, email string, log zerolog.Logger) *Flow {
	return &Flow{
		api:      apiClient,
		email:    email,
		log:      log.With().Str("component", "otp_flow").Logger(),
		cooldown: CooldownSeconds,
	}
}

// State returns the current state and, for CooldownActive, the seconds
// remaining.
func (f *Flow) State() (State, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.submitting:
		return StateSubmitting, f.cooldown
	case f.cooldown > 0:
		return StateCooldownActive, f.cooldown
	default:
		return StateReadyToResend, 0
	}
}

// Tick advances the cooldown by one second. The counter is monotonically
// decreasing; only Resend sets it back to CooldownSeconds.
func (f *Flow) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cooldown > 0 {
		f.cooldown--
	}
}

// Run ticks the cooldown once per second until ctx is done. Call in a
// goroutine; the countdown runs independently of any network call.
func (f *Flow) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Tick()
		}
	}
}

// Submit verifies the entered code. A code that is not exactly 6 digits
// fails locally with ErrIncompleteCode and issues no network call. A server
// rejection is surfaced verbatim and leaves the flow in place for retry; a
// nil return signals completion to the caller.
func (f *Flow) Submit(ctx context.Context, code string) error {
	if !isSixDigits(code) {
		return ErrIncompleteCode
	}

	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.submitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	payload := model.VerifyOTPRequest{Email: f.email, OTP: code}

	var resp model.MessageResponse
	if err := f.api.Post(ctx, "/auth/verify-pass-reset-otp", payload, &resp, false); err != nil {
		var srvErr *api.ServerError
		if errors.As(err, &srvErr) {
			return &RejectedError{Message: srvErr.Message}
		}
		return err
	}

	f.log.Info().Str("email", f.email).Msg("Reset code verified")
	return nil
}

// Resend re-requests a code. Only valid in ReadyToResend. The cooldown
// restart is optimistic: it happens when the request is dispatched, not
// after the server acknowledges, so a failed resend still restarts the
// visible countdown while the error is reported to the caller.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	if f.submitting || f.cooldown > 0 {
		f.mu.Unlock()
		return ErrResendUnavailable
	}
	f.cooldown = CooldownSeconds
	f.mu.Unlock()

	if err := requestCode(ctx, f.api, f.email); err != nil {
		f.log.Warn().Err(err).Str("email", f.email).Msg("Resend failed, cooldown already restarted")
		return err
	}
	return nil
}

func requestCode(ctx context.Context, apiClient *api.Client, email string) error {
	payload := model.RequestOTPRequest{Email: email}
	if err := apiClient.Post(ctx, "/auth/pass-reset-req-otp", payload, nil, false); err != nil {
		var srvErr *api.ServerError
		if errors.As(err, &srvErr) {
			return &RejectedError{Message: srvErr.Message}
		}
		return err
	}
	return nil
}

// isSixDigits reports whether code is exactly six ASCII digits.
func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
