package devserver

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/presensia/presensia-client/internal/model"
	"github.com/presensia/presensia-client/internal/validator"
)

// fail writes the protocol's flat error body. Clients read the message
// verbatim, so it must be phrased for end users.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// bind decodes and validates a JSON body in one step.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	if fields := validator.Struct(dst); fields != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Validation failed: %v", fields))
		return false
	}
	return true
}

// ─── Auth ──────────────────────────────────────────────────────────────────

func (s *Server) handleLogin(c *gin.Context) {
	var req model.LoginRequest
	if !bind(c, &req) {
		return
	}

	s.state.mu.Lock()
	acc := s.state.accounts[strings.ToLower(req.Email)]
	s.state.mu.Unlock()

	if acc == nil || !checkPassword(acc.PasswordHash, req.Password) {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.mintToken(acc)
	if err != nil {
		s.log.Error().Err(err).Msg("Token mint failed")
		fail(c, http.StatusInternalServerError, "Could not create session")
		return
	}

	c.JSON(http.StatusOK, model.LoginResponse{
		Token: token,
		User: model.LoginUser{
			ID:    acc.ID,
			Name:  acc.Name,
			Email: acc.Email,
			Role:  acc.Role,
		},
	})
}

func (s *Server) handleRequestOTP(c *gin.Context) {
	var req model.RequestOTPRequest
	if !bind(c, &req) {
		return
	}

	s.state.mu.Lock()
	acc := s.state.accounts[strings.ToLower(req.Email)]
	s.state.mu.Unlock()

	if acc == nil {
		fail(c, http.StatusNotFound, "No account exists with that email")
		return
	}

	code := generateOTP()
	s.state.mu.Lock()
	s.state.otps[req.Email] = code
	s.state.mu.Unlock()

	// The real backend mails the code; here it goes to the log.
	s.log.Info().Str("email", req.Email).Str("otp", code).Msg("Reset code issued")
	c.JSON(http.StatusOK, gin.H{"message": "A reset code has been sent to your email"})
}

func (s *Server) handleVerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if !bind(c, &req) {
		return
	}

	s.state.mu.Lock()
	pending, ok := s.state.otps[req.Email]
	if ok && pending == req.OTP {
		delete(s.state.otps, req.Email)
	}
	s.state.mu.Unlock()

	if !ok || pending != req.OTP {
		fail(c, http.StatusBadRequest, "Incorrect or expired code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code verified"})
}

func generateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		n = big.NewInt(0)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// ─── Attendance ────────────────────────────────────────────────────────────

func (s *Server) handleCheckIn(c *gin.Context) {
	s.handleCheck(c, false)
}

func (s *Server) handleCheckOut(c *gin.Context) {
	s.handleCheck(c, true)
}

func (s *Server) handleCheck(c *gin.Context, checkout bool) {
	sessionID := c.Param("sessionId")

	var req model.CheckRequest
	if !bind(c, &req) {
		return
	}

	now := time.Now()
	position := model.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	sess, ok := s.state.sessions[sessionID]
	if !ok {
		fail(c, http.StatusNotFound, "Attendance session not found")
		return
	}

	if now.After(sess.WindowEnd) {
		fail(c, http.StatusGone, "The attendance window for this session has ended")
		return
	}
	if now.Before(sess.WindowStart) {
		fail(c, http.StatusGone, "The attendance window for this session has not started yet")
		return
	}

	distance := haversineMeters(sess.GeofenceCenter, position)
	if distance > float64(sess.GeofenceRadius) {
		fail(c, http.StatusForbidden,
			fmt.Sprintf("You are %.0f m from the class location, outside the %d m radius",
				distance, sess.GeofenceRadius))
		return
	}

	record := sess.Records[req.StudentID]
	if record == nil {
		record = &model.AttendanceRecord{
			StudentID: req.StudentID,
			Status:    model.RecordStatusAbsent,
		}
		sess.Records[req.StudentID] = record
	}

	if checkout {
		if !record.CheckedIn {
			fail(c, http.StatusConflict, "Cannot check out before checking in")
			return
		}
		if record.CheckedOut {
			fail(c, http.StatusConflict, "Already checked out of this session")
			return
		}
		record.CheckedOut = true
		record.CheckedOutTime = &now
		record.Status = model.RecordStatusPresent
	} else {
		if record.CheckedIn {
			fail(c, http.StatusConflict, "Already checked in to this session")
			return
		}
		record.CheckedIn = true
		record.CheckedInTime = &now
		record.Status = model.RecordStatusAbsent
	}

	s.hub.broadcast(sessionID, feedUpdate{Session: sess.AttendanceSession, Record: *record})

	c.JSON(http.StatusOK, gin.H{"message": "Attendance recorded"})
}

func (s *Server) handleGetSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	studentID := c.Query("studentId")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	sess, ok := s.state.sessions[sessionID]
	if !ok {
		fail(c, http.StatusNotFound, "Attendance session not found")
		return
	}

	snapshot := model.SessionSnapshot{Session: sess.AttendanceSession}
	if record, ok := sess.Records[studentID]; ok {
		copied := *record
		snapshot.Record = &copied
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleListSessions(c *gin.Context) {
	classID := c.Param("classId")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	sessions := make([]model.AttendanceSession, 0)
	for _, sess := range s.state.sessions {
		if sess.ClassID == classID {
			sessions = append(sessions, sess.AttendanceSession)
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if !bind(c, &req) {
		return
	}
	if !req.GeofenceRadius.Valid() {
		fail(c, http.StatusBadRequest,
			fmt.Sprintf("Geofence radius must be one of %v meters", model.AllowedRadii))
		return
	}

	sess := model.AttendanceSession{
		ID:             uuid.New().String(),
		ClassID:        req.ClassID,
		Description:    req.Description,
		WindowStart:    req.WindowStart,
		WindowEnd:      req.WindowEnd,
		GeofenceCenter: req.GeofenceCenter,
		GeofenceRadius: req.GeofenceRadius,
	}

	s.state.mu.Lock()
	s.state.sessions[sess.ID] = &storedSession{
		AttendanceSession: sess,
		Records:           make(map[string]*model.AttendanceRecord),
	}
	s.state.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

// ─── Class membership ──────────────────────────────────────────────────────

func (s *Server) handleJoinByCode(c *gin.Context) {
	var req model.JoinByCodeRequest
	if !bind(c, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	invite, ok := s.state.inviteCodes[req.Code]
	if !ok {
		fail(c, http.StatusNotFound, "Invalid invite code")
		return
	}
	if time.Now().After(invite.ExpiresAt) {
		fail(c, http.StatusGone, "This invite code has expired")
		return
	}

	cls, ok := s.state.classes[invite.ClassID]
	if !ok {
		fail(c, http.StatusNotFound, "The class for this code no longer exists")
		return
	}
	if cls.Members[req.UserID] {
		fail(c, http.StatusConflict, "You are already a member of this class")
		return
	}

	cls.Members[req.UserID] = true
	c.JSON(http.StatusOK, model.JoinByCodeResponse{
		Message: fmt.Sprintf("Joined %s", cls.Name),
		ClassID: cls.ID,
	})
}

// ─── Live feed ─────────────────────────────────────────────────────────────

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

func (s *Server) handleLiveFeed(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		fail(c, http.StatusUnauthorized, "Authentication token required")
		return
	}
	if _, err := s.validateToken(tokenStr); err != nil {
		fail(c, http.StatusUnauthorized, "Authentication token invalid or expired")
		return
	}

	sessionID := c.Param("sessionId")
	s.state.mu.Lock()
	_, ok := s.state.sessions[sessionID]
	s.state.mu.Unlock()
	if !ok {
		fail(c, http.StatusNotFound, "Attendance session not found")
		return
	}

	upgrader := buildUpgrader(s.cfg.AllowedOrigins)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s.hub.subscribe(sessionID, conn)
	defer s.hub.unsubscribe(sessionID, conn)

	s.log.Info().Str("session_id", sessionID).Msg("Feed subscriber connected")

	// Reads only to detect the peer going away; the feed is one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
