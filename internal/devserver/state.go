package devserver

import (
	"math"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/presensia/presensia-client/internal/model"
)

// Account is a seeded login account.
type Account struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash []byte
}

type inviteCode struct {
	ClassID   string
	ExpiresAt time.Time
}

type class struct {
	ID      string
	Name    string
	Members map[string]bool
}

type storedSession struct {
	model.AttendanceSession
	Records map[string]*model.AttendanceRecord
}

// state is the in-memory world of the development server. It only needs to
// be self-consistent enough to drive the client; it is not the production
// backend and keeps nothing across restarts.
type state struct {
	mu          sync.Mutex
	accounts    map[string]*Account // keyed by email
	classes     map[string]*class
	inviteCodes map[string]inviteCode
	sessions    map[string]*storedSession
	otps        map[string]string // email → pending reset code
}

func newState() *state {
	return &state{
		accounts:    make(map[string]*Account),
		classes:     make(map[string]*class),
		inviteCodes: make(map[string]inviteCode),
		sessions:    make(map[string]*storedSession),
		otps:        make(map[string]string),
	}
}

// haversineMeters returns the great-circle distance between two coordinates
// in meters. The geofence check compares it against the session radius.
func haversineMeters(a, b model.Coordinates) float64 {
	const earthRadiusM = 6371000.0

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

func hashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
