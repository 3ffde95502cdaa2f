package status

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/model"
)

// DisplayState is the derived session state shown to the user. It layers the
// local clock on top of the server-reported record: a session whose window
// has closed is Ended no matter what the record says.
type DisplayState string

const (
	StateEnded            DisplayState = "ended"
	StatePresent          DisplayState = "present"
	StateAwaitingCheckIn  DisplayState = "awaiting_check_in"
	StateAwaitingCheckOut DisplayState = "awaiting_check_out"
	StateUnknown          DisplayState = "unknown"
)

// Resolver derives display states. It holds a logger only so the Unknown
// fallback is never silent; Resolve itself mutates nothing.
type Resolver struct {
	log zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{log: log.With().Str("component", "status_resolver").Logger()}
}

// Resolve maps (session, record, now) to a display state. Precedence order,
// first match wins:
//
//  1. window has ended            → Ended
//  2. status "present"            → Present
//  3. status "absent", not in     → AwaitingCheckIn
//  4. status "absent", checked in → AwaitingCheckOut
//  5. anything else               → Unknown (logged)
//
// Callers must re-evaluate on every render and after every acknowledged
// check-in/check-out; the result must never be cached across window
// boundaries, since Ended can arrive purely from wall-clock advancement.
func (r *Resolver) Resolve(session *model.AttendanceSession, record *model.AttendanceRecord, now time.Time) DisplayState {
	if session.Ended(now) {
		return StateEnded
	}

	if record != nil {
		switch {
		case record.Status == model.RecordStatusPresent:
			return StatePresent
		case record.Status == model.RecordStatusAbsent && !record.CheckedIn:
			return StateAwaitingCheckIn
		case record.Status == model.RecordStatusAbsent && record.CheckedIn:
			return StateAwaitingCheckOut
		}
	}

	event := r.log.Warn().
		Str("session_id", session.ID).
		Time("window_end", session.WindowEnd)
	if record != nil {
		event = event.
			Str("student_id", record.StudentID).
			Str("record_status", string(record.Status)).
			Bool("checked_in", record.CheckedIn)
	}
	event.Msg("Unresolvable attendance state, falling back to unknown")

	return StateUnknown
}
