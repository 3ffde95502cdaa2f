//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/presensia/presensia-client/internal/api"
	"github.com/presensia/presensia-client/internal/attendance"
	"github.com/presensia/presensia-client/internal/config"
	"github.com/presensia/presensia-client/internal/devserver"
	"github.com/presensia/presensia-client/internal/geo"
	"github.com/presensia/presensia-client/internal/join"
	"github.com/presensia/presensia-client/internal/live"
	"github.com/presensia/presensia-client/internal/model"
	"github.com/presensia/presensia-client/internal/otp"
	"github.com/presensia/presensia-client/internal/session"
	"github.com/presensia/presensia-client/internal/status"
	"github.com/presensia/presensia-client/internal/validator"
)

const (
	studentEmail = "e2e_student@example.com"
	studentPass  = "password123"
	teacherEmail = "e2e_teacher@example.com"
	teacherPass  = "password123"
	classID      = "e2e-class"
	inviteCode   = "E2E42"
)

var (
	server  *devserver.Server
	baseURL string

	classCenter = model.Coordinates{Latitude: -8.65, Longitude: 115.21}

	apiClient *api.Client
	sess      *session.Context
	att       *attendance.Client
	resolver  *status.Resolver

	student   session.User
	sessionID string
)

func TestMain(m *testing.M) {
	validator.Setup()

	cfg := &config.Config{
		GinMode:    gin.TestMode,
		JWTSecret:  "e2e-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}

	log := zerolog.Nop()
	server = devserver.New(cfg, log)

	if _, err := server.SeedAccount("E2E Student", studentEmail, studentPass, "student"); err != nil {
		fmt.Printf("Seed failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := server.SeedAccount("E2E Teacher", teacherEmail, teacherPass, "teacher"); err != nil {
		fmt.Printf("Seed failed: %v\n", err)
		os.Exit(1)
	}
	server.SeedClass(classID, "E2E Class")
	server.SeedInviteCode(inviteCode, classID, time.Now().Add(time.Hour))

	ts := httptest.NewServer(server.Handler())
	baseURL = ts.URL

	sess = session.NewContext(session.NewMemoryStore(), log)
	apiClient = api.New(baseURL, 10*time.Second, sess, log)
	att = attendance.NewClient(apiClient, geo.Fixed{Position: classCenter}, log)
	resolver = status.NewResolver(log)

	code := m.Run()
	ts.Close()
	os.Exit(code)
}

func TestLogin(t *testing.T) {
	auth := session.NewAuthenticator(apiClient, sess, zerolog.Nop())

	if _, err := auth.Login(context.Background(), studentEmail, "wrong-pass"); err == nil {
		t.Fatal("expected login with a bad password to fail")
	}

	user, err := auth.Login(context.Background(), studentEmail, studentPass)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.Role != "student" {
		t.Fatalf("unexpected role %q", user.Role)
	}
	if !sess.Authenticated() || sess.Expired(time.Now()) {
		t.Fatal("session not established after login")
	}
	student = user
}

func TestJoinClassByCode(t *testing.T) {
	flow := join.NewFlow(apiClient, zerolog.Nop())

	if _, err := flow.JoinByCode(context.Background(), "WRONG", student.ID); err == nil {
		t.Fatal("expected an invalid code to be rejected")
	}

	result, err := flow.JoinByCode(context.Background(), inviteCode, student.ID)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if result.ClassID != classID {
		t.Fatalf("joined wrong class %q", result.ClassID)
	}

	if _, err := flow.JoinByCode(context.Background(), inviteCode, student.ID); err == nil {
		t.Fatal("expected re-join to be rejected")
	}
}

func TestCreateSession(t *testing.T) {
	created, err := att.CreateSession(context.Background(), model.CreateSessionRequest{
		ClassID:        classID,
		Description:    "E2E lecture",
		WindowStart:    time.Now().Add(-time.Minute),
		WindowEnd:      time.Now().Add(time.Hour),
		GeofenceCenter: classCenter,
		GeofenceRadius: 30,
	})
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	sessionID = created.ID

	listed, err := att.ListSessions(context.Background(), classID)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != sessionID {
		t.Fatalf("created session not listed: %+v", listed)
	}
}

func TestAttendanceCycle(t *testing.T) {
	ctx := context.Background()

	// Enrollment gives the student a roster record before any check-in.
	server.SeedRecord(sessionID, model.AttendanceRecord{
		StudentID:   student.ID,
		StudentName: student.Name,
		Status:      model.RecordStatusAbsent,
	})

	feed, err := live.Subscribe(ctx, baseURL, sessionID, sess.Token(), resolver, zerolog.Nop())
	if err != nil {
		t.Fatalf("feed subscribe failed: %v", err)
	}
	defer feed.Close()

	snapshot, err := att.Refresh(ctx, sessionID, student.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if state := resolver.Resolve(&snapshot.Session, snapshot.Record, time.Now()); state != status.StateAwaitingCheckIn {
		t.Fatalf("expected awaiting check-in, got %q", state)
	}

	if _, err := att.CheckOut(ctx, sessionID, student.ID); err == nil {
		t.Fatal("expected check-out before check-in to fail")
	}

	if _, err := att.CheckIn(ctx, sessionID, student.ID); err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	expectFeedState(t, feed, status.StateAwaitingCheckOut)

	snapshot, err = att.Refresh(ctx, sessionID, student.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if state := resolver.Resolve(&snapshot.Session, snapshot.Record, time.Now()); state != status.StateAwaitingCheckOut {
		t.Fatalf("expected awaiting check-out, got %q", state)
	}

	if _, err := att.CheckIn(ctx, sessionID, student.ID); err == nil {
		t.Fatal("expected a second check-in to fail")
	}

	if _, err := att.CheckOut(ctx, sessionID, student.ID); err != nil {
		t.Fatalf("check-out failed: %v", err)
	}
	expectFeedState(t, feed, status.StatePresent)

	snapshot, err = att.Refresh(ctx, sessionID, student.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if state := resolver.Resolve(&snapshot.Session, snapshot.Record, time.Now()); state != status.StatePresent {
		t.Fatalf("expected present, got %q", state)
	}
}

func expectFeedState(t *testing.T, feed *live.Feed, want status.DisplayState) {
	t.Helper()
	select {
	case snap, ok := <-feed.Snapshots():
		if !ok {
			t.Fatal("feed closed before the expected update")
		}
		if snap.State != want {
			t.Fatalf("feed state = %q, want %q", snap.State, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no feed update, wanted %q", want)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()

	flow, err := otp.Begin(ctx, apiClient, studentEmail, zerolog.Nop())
	if err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}
	if state, remaining := flow.State(); state != otp.StateCooldownActive || remaining != otp.CooldownSeconds {
		t.Fatalf("expected fresh cooldown, got %q/%d", state, remaining)
	}

	code := server.PendingOTP(studentEmail)
	if len(code) != 6 {
		t.Fatalf("no pending reset code, got %q", code)
	}

	if err := flow.Submit(ctx, "12345"); err == nil {
		t.Fatal("expected an incomplete code to be rejected locally")
	}

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	if err := flow.Submit(ctx, wrong); err == nil {
		t.Fatal("expected a wrong code to be rejected")
	}

	if err := flow.Submit(ctx, code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestLogout(t *testing.T) {
	auth := session.NewAuthenticator(apiClient, sess, zerolog.Nop())
	if err := auth.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if sess.Authenticated() {
		t.Fatal("session still authenticated after logout")
	}

	// Authenticated endpoints now reject us.
	if _, err := att.Refresh(context.Background(), sessionID, student.ID); err == nil {
		t.Fatal("expected unauthenticated refresh to fail")
	}
}
