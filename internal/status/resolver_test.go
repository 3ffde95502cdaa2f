package status

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/presensia/presensia-client/internal/model"
)

func testSession(start, end time.Time) *model.AttendanceSession {
	return &model.AttendanceSession{
		ID:          "sess-1",
		Description: "Morning lecture",
		WindowStart: start,
		WindowEnd:   end,
	}
}

func TestResolvePrecedence(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	open := testSession(now.Add(-time.Hour), now.Add(time.Hour))
	ended := testSession(now.Add(-2*time.Hour), now.Add(-time.Second))

	r := NewResolver(zerolog.Nop())

	tests := []struct {
		name    string
		session *model.AttendanceSession
		record  *model.AttendanceRecord
		want    DisplayState
	}{
		{
			name:    "absent not checked in",
			session: open,
			record:  &model.AttendanceRecord{Status: model.RecordStatusAbsent, CheckedIn: false},
			want:    StateAwaitingCheckIn,
		},
		{
			name:    "absent checked in",
			session: open,
			record:  &model.AttendanceRecord{Status: model.RecordStatusAbsent, CheckedIn: true},
			want:    StateAwaitingCheckOut,
		},
		{
			name:    "present",
			session: open,
			record:  &model.AttendanceRecord{Status: model.RecordStatusPresent, CheckedIn: true, CheckedOut: true},
			want:    StatePresent,
		},
		{
			name:    "pending falls back to unknown",
			session: open,
			record:  &model.AttendanceRecord{Status: model.RecordStatusPending},
			want:    StateUnknown,
		},
		{
			name:    "no record falls back to unknown",
			session: open,
			record:  nil,
			want:    StateUnknown,
		},
		{
			name:    "window end beats present",
			session: ended,
			record:  &model.AttendanceRecord{Status: model.RecordStatusPresent, CheckedIn: true},
			want:    StateEnded,
		},
		{
			name:    "window end beats absent",
			session: ended,
			record:  &model.AttendanceRecord{Status: model.RecordStatusAbsent},
			want:    StateEnded,
		},
		{
			name:    "window end beats missing record",
			session: ended,
			record:  nil,
			want:    StateEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.session, tt.record, now))
		})
	}
}

func TestResolveEndedFromClockAlone(t *testing.T) {
	// The same session and record resolve differently as the wall clock
	// crosses the window end, with no new server data.
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	session := testSession(start, start.Add(time.Hour))
	record := &model.AttendanceRecord{Status: model.RecordStatusAbsent, CheckedIn: true}

	r := NewResolver(zerolog.Nop())

	assert.Equal(t, StateAwaitingCheckOut, r.Resolve(session, record, session.WindowEnd.Add(-time.Second)))
	assert.Equal(t, StateAwaitingCheckOut, r.Resolve(session, record, session.WindowEnd))
	assert.Equal(t, StateEnded, r.Resolve(session, record, session.WindowEnd.Add(time.Second)))
}
