package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/config"
	"github.com/presensia/presensia-client/internal/model"
)

// Server is the in-memory development stand-in for the attendance backend.
// It speaks the same wire protocol — flat {message} error bodies, the
// auth-token header, the exact paths — so the client can be exercised end
// to end without the real service. It is not that service: state lives in
// process memory and dies with it.
type Server struct {
	cfg    *config.Config
	log    zerolog.Logger
	state  *state
	hub    *hub
	engine *gin.Engine
}

// New builds a server with an empty state. Seed accounts, classes, and
// sessions before serving.
func New(cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		log:   log.With().Str("component", "devserver").Logger(),
		state: newState(),
		hub:   newHub(log),
	}
	s.engine = s.buildRouter()
	return s
}

// Handler returns the HTTP handler, for mounting under httptest or an
// http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(s.cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = s.cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "auth-token", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.POST("/auth/login", s.handleLogin)
	router.POST("/auth/pass-reset-req-otp", s.handleRequestOTP)
	router.POST("/auth/verify-pass-reset-otp", s.handleVerifyOTP)

	router.GET("/attendance/live/:sessionId", s.handleLiveFeed)

	authed := router.Group("/")
	authed.Use(s.requireToken())
	{
		authed.POST("/attendance/checked-in/:sessionId", s.handleCheckIn)
		authed.POST("/attendance/checked-out/:sessionId", s.handleCheckOut)
		authed.GET("/attendance/sub-class/:sessionId", s.handleGetSession)
		authed.GET("/attendance/sub-classes/:classId", s.handleListSessions)
		authed.POST("/attendance/sub-class", s.handleCreateSession)
		authed.POST("/class/invite-by-code", s.handleJoinByCode)
	}

	return router
}

// requireToken validates the auth-token header. Rejections use the same
// flat {message} body as every other error.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.GetHeader("auth-token")
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication token required"})
			return
		}
		claims, err := s.validateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication token invalid or expired"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// ─── Seeding ───────────────────────────────────────────────────────────────

// SeedAccount registers a login account and returns it.
func (s *Server) SeedAccount(name, email, password, role string) (*Account, error) {
	hash, err := hashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &Account{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}

	s.state.mu.Lock()
	s.state.accounts[strings.ToLower(email)] = acc
	s.state.mu.Unlock()
	return acc, nil
}

// SeedClass registers a class with the given members.
func (s *Server) SeedClass(id, name string, memberIDs ...string) {
	members := make(map[string]bool, len(memberIDs))
	for _, m := range memberIDs {
		members[m] = true
	}

	s.state.mu.Lock()
	s.state.classes[id] = &class{ID: id, Name: name, Members: members}
	s.state.mu.Unlock()
}

// SeedInviteCode binds a code to a class until expiry.
func (s *Server) SeedInviteCode(code, classID string, expiresAt time.Time) {
	s.state.mu.Lock()
	s.state.inviteCodes[code] = inviteCode{ClassID: classID, ExpiresAt: expiresAt}
	s.state.mu.Unlock()
}

// SeedSession registers an attendance session.
func (s *Server) SeedSession(sess model.AttendanceSession) {
	s.state.mu.Lock()
	s.state.sessions[sess.ID] = &storedSession{
		AttendanceSession: sess,
		Records:           make(map[string]*model.AttendanceRecord),
	}
	s.state.mu.Unlock()
}

// SeedRecord places a record for a student inside a session.
func (s *Server) SeedRecord(sessionID string, record model.AttendanceRecord) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if sess, ok := s.state.sessions[sessionID]; ok {
		sess.Records[record.StudentID] = &record
	}
}

// PendingOTP returns the last reset code generated for an email. Test and
// dev helper; the real backend delivers codes by mail.
func (s *Server) PendingOTP(email string) string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.otps[email]
}
