package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/config"
	"github.com/presensia/presensia-client/internal/devserver"
	"github.com/presensia/presensia-client/internal/logger"
	"github.com/presensia/presensia-client/internal/model"
	"github.com/presensia/presensia-client/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Msg("Starting Presensia development server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Build Server & Seed Demo Data ─────────────────────────────────
	srv := devserver.New(cfg, log)
	seedDemoData(srv, log)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: srv.Handler(),
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// seedDemoData loads a small world so the CLI works out of the box:
// one teacher, one student, a class with an open invite code, and a
// session whose window is live for the next two hours.
func seedDemoData(srv *devserver.Server, log zerolog.Logger) {
	teacher, err := srv.SeedAccount("Demo Teacher", "teacher@example.com", "password123", "teacher")
	if err != nil {
		log.Fatal().Err(err).Msg("Seed teacher failed")
	}
	student, err := srv.SeedAccount("Demo Student", "student@example.com", "password123", "student")
	if err != nil {
		log.Fatal().Err(err).Msg("Seed student failed")
	}

	srv.SeedClass("class-demo", "Demo Class", teacher.ID)
	srv.SeedInviteCode("DEMO42", "class-demo", time.Now().Add(24*time.Hour))

	now := time.Now()
	srv.SeedSession(model.AttendanceSession{
		ID:             "session-demo",
		ClassID:        "class-demo",
		Description:    "Demo lecture",
		WindowStart:    now.Add(-time.Hour),
		WindowEnd:      now.Add(2 * time.Hour),
		GeofenceCenter: model.Coordinates{Latitude: -8.65, Longitude: 115.21},
		GeofenceRadius: 30,
	})
	srv.SeedRecord("session-demo", model.AttendanceRecord{
		StudentID:   student.ID,
		StudentName: student.Name,
		Status:      model.RecordStatusAbsent,
	})

	log.Info().
		Str("teacher_id", teacher.ID).
		Str("student_id", student.ID).
		Msg("Demo data seeded (accounts use password123, invite code DEMO42)")
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
