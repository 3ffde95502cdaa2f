package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/presensia/presensia-client/internal/api"
	"github.com/presensia/presensia-client/internal/attendance"
	"github.com/presensia/presensia-client/internal/config"
	"github.com/presensia/presensia-client/internal/database"
	"github.com/presensia/presensia-client/internal/geo"
	"github.com/presensia/presensia-client/internal/join"
	"github.com/presensia/presensia-client/internal/live"
	"github.com/presensia/presensia-client/internal/logger"
	"github.com/presensia/presensia-client/internal/model"
	"github.com/presensia/presensia-client/internal/otp"
	"github.com/presensia/presensia-client/internal/session"
	"github.com/presensia/presensia-client/internal/status"
	"github.com/presensia/presensia-client/internal/validator"
)

const usageText = `attendctl — Presensia attendance client

Usage: attendctl <command> [flags]

Commands:
  login           Sign in and store the session
  logout          Discard the stored session
  whoami          Show the signed-in identity
  checkin         Check in to a session (-session)
  checkout        Check out of a session (-session)
  status          Show the derived state of a session (-session)
  sessions        List sessions under a class (-class)
  create-session  Create a geofenced session (teacher)
  join            Redeem a class invite code (-code)
  watch           Follow a session's live attendance feed (-session)
  reset           Run the password-reset OTP flow (-email)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx := context.Background()
	a := newApp(ctx, cfg, log)

	var err error
	switch os.Args[1] {
	case "login":
		err = a.cmdLogin(ctx, os.Args[2:])
	case "logout":
		err = a.cmdLogout(ctx)
	case "whoami":
		err = a.cmdWhoami()
	case "checkin":
		err = a.cmdCheck(ctx, os.Args[2:], false)
	case "checkout":
		err = a.cmdCheck(ctx, os.Args[2:], true)
	case "status":
		err = a.cmdStatus(ctx, os.Args[2:])
	case "sessions":
		err = a.cmdSessions(ctx, os.Args[2:])
	case "create-session":
		err = a.cmdCreateSession(ctx, os.Args[2:])
	case "join":
		err = a.cmdJoin(ctx, os.Args[2:])
	case "watch":
		err = a.cmdWatch(ctx, os.Args[2:])
	case "reset":
		err = a.cmdReset(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	sess     *session.Context
	api      *api.Client
	client   *attendance.Client
	joinFlow *join.Flow
	resolver *status.Resolver
}

// newApp wires the session context, API client, and flows. Credentials live
// in Redis when it is reachable; otherwise a process-local store is used and
// the session will not survive the command.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) *app {
	var store session.Store
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err == nil {
		store = session.NewRedisStore(rdb, "default")
	} else {
		log.Warn().Err(err).Msg("Redis unreachable, session will not persist")
		store = session.NewMemoryStore()
	}

	sess := session.NewContext(store, log)
	if err := sess.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not restore session")
	}

	apiClient := api.New(cfg.APIBaseURL, cfg.HTTPTimeout, sess, log)
	provider := geo.FromEnv(cfg.GeoLat, cfg.GeoLng)

	return &app{
		cfg:      cfg,
		log:      log,
		sess:     sess,
		api:      apiClient,
		client:   attendance.NewClient(apiClient, provider, log),
		joinFlow: join.NewFlow(apiClient, log),
		resolver: status.NewResolver(log),
	}
}

// requireSession enforces the session lifecycle: expiry detection clears the
// stored credentials and sends the user back to login.
func (a *app) requireSession(ctx context.Context) error {
	if !a.sess.Authenticated() {
		return fmt.Errorf("not logged in; run 'attendctl login'")
	}
	if a.sess.Expired(time.Now()) {
		_ = a.sess.Clear(ctx)
		return fmt.Errorf("session expired; run 'attendctl login' again")
	}
	return nil
}

// ─── Commands ──────────────────────────────────────────────────────────────

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	reader := bufio.NewReader(os.Stdin)
	if *email == "" {
		fmt.Print("Email: ")
		line, _ := reader.ReadString('\n')
		*email = strings.TrimSpace(line)
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	fmt.Println()

	auth := session.NewAuthenticator(a.api, a.sess, a.log)
	user, err := auth.Login(ctx, *email, string(bytePassword))
	if err != nil {
		return err
	}

	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.Role)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	auth := session.NewAuthenticator(a.api, a.sess, a.log)
	if err := auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func (a *app) cmdWhoami() error {
	if !a.sess.Authenticated() {
		fmt.Println("Not signed in")
		return nil
	}
	user := a.sess.User()
	fmt.Printf("%s <%s> (%s)\n", user.Name, user.Email, user.Role)
	if a.sess.Expired(time.Now()) {
		fmt.Println("Session token has expired")
	}
	return nil
}

func (a *app) cmdCheck(ctx context.Context, args []string, checkout bool) error {
	name := "checkin"
	if checkout {
		name = "checkout"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	sessionID := fs.String("session", "", "attendance session id")
	fs.Parse(args)

	if err := a.requireSession(ctx); err != nil {
		return err
	}

	studentID := a.sess.User().ID
	var err error
	if checkout {
		_, err = a.client.CheckOut(ctx, *sessionID, studentID)
	} else {
		_, err = a.client.CheckIn(ctx, *sessionID, studentID)
	}
	if err != nil {
		return err
	}

	fmt.Println("Attendance recorded")

	// Re-derive the display state from fresh server data.
	return a.printStatus(ctx, *sessionID, studentID)
}

func (a *app) cmdStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	sessionID := fs.String("session", "", "attendance session id")
	fs.Parse(args)

	if err := a.requireSession(ctx); err != nil {
		return err
	}
	return a.printStatus(ctx, *sessionID, a.sess.User().ID)
}

func (a *app) printStatus(ctx context.Context, sessionID, studentID string) error {
	snapshot, err := a.client.Refresh(ctx, sessionID, studentID)
	if err != nil {
		return err
	}

	state := a.resolver.Resolve(&snapshot.Session, snapshot.Record, time.Now())
	fmt.Printf("Session:  %s (%s)\n", snapshot.Session.Description, snapshot.Session.ID)
	fmt.Printf("Window:   %s — %s\n",
		snapshot.Session.WindowStart.Local().Format(time.RFC822),
		snapshot.Session.WindowEnd.Local().Format(time.RFC822))
	fmt.Printf("State:    %s\n", state)
	return nil
}

func (a *app) cmdSessions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	classID := fs.String("class", "", "class id")
	fs.Parse(args)

	if err := a.requireSession(ctx); err != nil {
		return err
	}

	sessions, err := a.client.ListSessions(ctx, *classID)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions")
		return nil
	}
	for _, sess := range sessions {
		fmt.Printf("%s  %s  %s — %s  (radius %dm)\n",
			sess.ID, sess.Description,
			sess.WindowStart.Local().Format(time.RFC822),
			sess.WindowEnd.Local().Format(time.RFC822),
			sess.GeofenceRadius)
	}
	return nil
}

func (a *app) cmdCreateSession(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-session", flag.ExitOnError)
	classID := fs.String("class", "", "class id")
	desc := fs.String("desc", "", "session description")
	start := fs.String("start", "", "window start (RFC3339, default now)")
	durationMin := fs.Int("duration", 60, "window length in minutes")
	lat := fs.Float64("lat", 0, "geofence center latitude")
	lng := fs.Float64("lng", 0, "geofence center longitude")
	radius := fs.Int("radius", 20, "geofence radius in meters")
	fs.Parse(args)

	if err := a.requireSession(ctx); err != nil {
		return err
	}

	windowStart := time.Now()
	if *start != "" {
		parsed, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			return fmt.Errorf("parse -start: %w", err)
		}
		windowStart = parsed
	}

	sess, err := a.client.CreateSession(ctx, model.CreateSessionRequest{
		ClassID:        *classID,
		Description:    *desc,
		WindowStart:    windowStart,
		WindowEnd:      windowStart.Add(time.Duration(*durationMin) * time.Minute),
		GeofenceCenter: model.Coordinates{Latitude: *lat, Longitude: *lng},
		GeofenceRadius: model.GeofenceRadius(*radius),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created session %s\n", sess.ID)
	return nil
}

func (a *app) cmdJoin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	code := fs.String("code", "", "invite code (typed or from a QR scan)")
	fs.Parse(args)

	if err := a.requireSession(ctx); err != nil {
		return err
	}

	result, err := a.joinFlow.JoinByCode(ctx, *code, a.sess.User().ID)
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func (a *app) cmdWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	sessionID := fs.String("session", "", "attendance session id")
	fs.Parse(args)

	if err := a.requireSession(ctx); err != nil {
		return err
	}

	feed, err := live.Subscribe(ctx, a.cfg.APIBaseURL, *sessionID, a.sess.Token(), a.resolver, a.log)
	if err != nil {
		return err
	}
	defer feed.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Watching (Ctrl-C to stop)...")
	for {
		select {
		case snap, ok := <-feed.Snapshots():
			if !ok {
				fmt.Println("Feed ended")
				return nil
			}
			fmt.Printf("%s  %s → %s\n",
				time.Now().Format(time.TimeOnly), snap.Record.StudentName, snap.State)
		case <-quit:
			return nil
		}
	}
}

func (a *app) cmdReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	reader := bufio.NewReader(os.Stdin)
	if *email == "" {
		fmt.Print("Email: ")
		line, _ := reader.ReadString('\n')
		*email = strings.TrimSpace(line)
	}

	flow, err := otp.Begin(ctx, a.api, *email, a.log)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go flow.Run(runCtx)

	fmt.Println("A reset code was sent. Enter it below, or 'resend' once the cooldown ends.")
	for {
		state, remaining := flow.State()
		if state == otp.StateCooldownActive {
			fmt.Printf("Code (resend available in %ds): ", remaining)
		} else {
			fmt.Print("Code (or 'resend'): ")
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		input := strings.TrimSpace(line)

		if input == "resend" {
			if err := flow.Resend(ctx); err != nil {
				fmt.Printf("Resend failed: %v\n", err)
			} else {
				fmt.Println("A new code was sent.")
			}
			continue
		}

		if err := flow.Submit(ctx, input); err != nil {
			fmt.Printf("Verification failed: %v\n", err)
			continue
		}

		fmt.Println("Code verified. You can now set a new password.")
		return nil
	}
}
