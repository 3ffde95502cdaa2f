package model

import "time"

// Wire payloads for the attendance backend. Field names are part of the
// protocol and must stay exactly as the server expects them.

// CheckRequest is the body for both check-in and check-out.
type CheckRequest struct {
	StudentID string  `json:"studentId" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

// JoinByCodeRequest is the body for redeeming an invite code, whether the
// code was typed or scanned from a QR payload.
type JoinByCodeRequest struct {
	Code   string `json:"code" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// JoinByCodeResponse is the server's answer to a join request. ClassID is
// optional; older server builds return only the message.
type JoinByCodeResponse struct {
	Message string `json:"message"`
	ClassID string `json:"classId,omitempty"`
}

// RequestOTPRequest asks the server to send a password-reset OTP.
type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest submits the 6-digit code for verification.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// LoginRequest is the body for credential login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginUser is the identity block inside a login response.
type LoginUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse carries the auth token and the authenticated identity.
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// CreateSessionRequest is the teacher-side body for creating a sub-class.
type CreateSessionRequest struct {
	ClassID        string         `json:"classId" validate:"required"`
	Description    string         `json:"description" validate:"required"`
	WindowStart    time.Time      `json:"windowStart" validate:"required"`
	WindowEnd      time.Time      `json:"windowEnd" validate:"required,gtfield=WindowStart"`
	GeofenceCenter Coordinates    `json:"geofenceCenter"`
	GeofenceRadius GeofenceRadius `json:"geofenceRadius"`
}

// MessageResponse is the flat body the server uses for plain acknowledgments
// and for every non-2xx error.
type MessageResponse struct {
	Message string `json:"message"`
}
