package model

import (
	"time"
)

// RecordStatus enumerates the server-computed attendance states.
// The client never recomputes this value, only displays it.
type RecordStatus string

const (
	RecordStatusPresent RecordStatus = "present"
	RecordStatusAbsent  RecordStatus = "absent"
	RecordStatusPending RecordStatus = "pending"
)

// Coordinates is a resolved device position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeofenceRadius is the session geofence radius in meters.
type GeofenceRadius int

// AllowedRadii is the enumerated set of valid geofence radii. It is the
// union of the value sets the product exposes (5–30m in 5m steps plus the
// larger 40m and 50m options); the unit is always meters from center.
var AllowedRadii = []GeofenceRadius{5, 10, 15, 20, 25, 30, 40, 50}

// Valid reports whether r is one of the allowed radius values.
func (r GeofenceRadius) Valid() bool {
	for _, allowed := range AllowedRadii {
		if r == allowed {
			return true
		}
	}
	return false
}

// AttendanceSession is one scheduled attendance window (a "sub-class")
// under a class. GeofenceCenter is authoritative and set at creation.
type AttendanceSession struct {
	ID             string         `json:"id"`
	ClassID        string         `json:"classId"`
	Description    string         `json:"description"`
	WindowStart    time.Time      `json:"windowStart"`
	WindowEnd      time.Time      `json:"windowEnd"`
	GeofenceCenter Coordinates    `json:"geofenceCenter"`
	GeofenceRadius GeofenceRadius `json:"geofenceRadius"`
}

// Ended reports whether the session window has closed at the given time.
// A closed window is a client-side derived fact: it holds regardless of
// whatever status the server last reported.
func (s *AttendanceSession) Ended(now time.Time) bool {
	return now.After(s.WindowEnd)
}

// AttendanceRecord is one student's state within a session.
type AttendanceRecord struct {
	StudentID           string       `json:"studentId"`
	StudentName         string       `json:"studentName"`
	StudentProfileImage string       `json:"studentProfileImage,omitempty"`
	CheckedIn           bool         `json:"checkedIn"`
	CheckedInTime       *time.Time   `json:"checkedInTime,omitempty"`
	CheckedOut          bool         `json:"checkedOut"`
	CheckedOutTime      *time.Time   `json:"checkedOutTime,omitempty"`
	Status              RecordStatus `json:"status"`
}

// SessionSnapshot pairs a session with the caller's own record, as returned
// by a refresh. Record is nil when the caller has no record yet.
type SessionSnapshot struct {
	Session AttendanceSession `json:"session"`
	Record  *AttendanceRecord `json:"record,omitempty"`
}
