package attendance

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/api"
	"github.com/presensia/presensia-client/internal/geo"
	"github.com/presensia/presensia-client/internal/model"
)

// Ack acknowledges an accepted check-in or check-out. It deliberately does
// not carry the updated record: callers re-fetch via Refresh so the resolver
// always works from server state, never from a locally guessed transition.
type Ack struct {
	SessionID   string
	StudentID   string
	Position    model.Coordinates
	RequestedAt time.Time
}

// Client performs check-in and check-out actions against the attendance
// backend and normalizes outcomes. Both operations are at-most-once from the
// client's perspective: no automatic retry, a failed call changes nothing.
type Client struct {
	api *api.Client
	geo geo.Provider
	log zerolog.Logger
}

// NewClient creates an attendance client. The geolocation provider is
// consulted fresh on every check-in/check-out attempt.
func NewClient(apiClient *api.Client, provider geo.Provider, log zerolog.Logger) *Client {
	return &Client{
		api: apiClient,
		geo: provider,
		log: log.With().Str("component", "attendance_client").Logger(),
	}
}

// CheckIn records the student as present inside the session geofence.
func (c *Client) CheckIn(ctx context.Context, sessionID, studentID string) (*Ack, error) {
	return c.check(ctx, "/attendance/checked-in/", sessionID, studentID)
}

// CheckOut mirrors CheckIn for the checkout transition. Checking out without
// having checked in is a server-decided error, surfaced as a TransitionError.
func (c *Client) CheckOut(ctx context.Context, sessionID, studentID string) (*Ack, error) {
	return c.check(ctx, "/attendance/checked-out/", sessionID, studentID)
}

func (c *Client) check(ctx context.Context, pathPrefix, sessionID, studentID string) (*Ack, error) {
	if sessionID == "" || studentID == "" {
		return nil, ErrMissingIdentifier
	}

	// Resolve the position first: a denied or failed resolution fails the
	// whole operation before any network call.
	position, err := c.geo.Current(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("session_id", sessionID).Msg("Geolocation resolution failed")
		return nil, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	payload := model.CheckRequest{
		StudentID: studentID,
		Latitude:  position.Latitude,
		Longitude: position.Longitude,
	}

	// 2xx body is ignored for state; the caller re-derives via Refresh.
	if err := c.api.Post(ctx, pathPrefix+url.PathEscape(sessionID), payload, nil, true); err != nil {
		return nil, classify(err)
	}

	return &Ack{
		SessionID:   sessionID,
		StudentID:   studentID,
		Position:    position,
		RequestedAt: time.Now(),
	}, nil
}

// Refresh fetches the session together with the student's own record. The
// hosting surface calls this on visibility change and after every Ack.
func (c *Client) Refresh(ctx context.Context, sessionID, studentID string) (*model.SessionSnapshot, error) {
	if sessionID == "" || studentID == "" {
		return nil, ErrMissingIdentifier
	}

	var snapshot model.SessionSnapshot
	path := fmt.Sprintf("/attendance/sub-class/%s?studentId=%s",
		url.PathEscape(sessionID), url.QueryEscape(studentID))
	if err := c.api.Get(ctx, path, &snapshot, true); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListSessions returns all sub-classes under a class (teacher view).
func (c *Client) ListSessions(ctx context.Context, classID string) ([]model.AttendanceSession, error) {
	if classID == "" {
		return nil, ErrMissingIdentifier
	}

	var out struct {
		Sessions []model.AttendanceSession `json:"sessions"`
	}
	if err := c.api.Get(ctx, "/attendance/sub-classes/"+url.PathEscape(classID), &out, true); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// CreateSession creates a new time-boxed, geofenced sub-class. The radius
// must be one of the enumerated values; anything else is rejected locally.
func (c *Client) CreateSession(ctx context.Context, req model.CreateSessionRequest) (*model.AttendanceSession, error) {
	if !req.GeofenceRadius.Valid() {
		return nil, fmt.Errorf("geofence radius %d is not one of the allowed values %v",
			req.GeofenceRadius, model.AllowedRadii)
	}

	var out struct {
		Session model.AttendanceSession `json:"session"`
	}
	if err := c.api.Post(ctx, "/attendance/sub-class", req, &out, true); err != nil {
		return nil, err
	}
	return &out.Session, nil
}
