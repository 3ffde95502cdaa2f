package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrNotAuthenticated means no session is established.
var ErrNotAuthenticated = errors.New("not authenticated")

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Context holds the auth token and user identity for the running app. It is
// constructed once and injected into every flow, replacing ambient global
// lookup. Lifecycle: Load on app start, Establish on login, Clear on logout
// or expiry detection.
type Context struct {
	store Store
	log   zerolog.Logger

	mu    sync.RWMutex
	token string
	user  User
}

// NewContext creates an empty session context backed by the given store.
func NewContext(store Store, log zerolog.Logger) *Context {
	return &Context{
		store: store,
		log:   log.With().Str("component", "session_context").Logger(),
	}
}

// Load restores credentials from the store. A missing entry is not an
// error; the context simply stays unauthenticated.
func (c *Context) Load(ctx context.Context) error {
	cred, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = cred.Token
	c.user = cred.User
	c.mu.Unlock()

	c.log.Debug().Str("user_id", cred.User.ID).Msg("Session restored")
	return nil
}

// Establish sets and persists a fresh session.
func (c *Context) Establish(ctx context.Context, token string, user User) error {
	c.mu.Lock()
	c.token = token
	c.user = user
	c.mu.Unlock()

	return c.store.Save(ctx, Credentials{Token: token, User: user})
}

// Clear drops the session locally and from the store.
func (c *Context) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.user = User{}
	c.mu.Unlock()

	return c.store.Delete(ctx)
}

// Token implements api.TokenSource.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User returns the authenticated identity. Zero value when unauthenticated.
func (c *Context) User() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Authenticated reports whether a token is held.
func (c *Context) Authenticated() bool {
	return c.Token() != ""
}

// Expired inspects the token's exp claim without verifying the signature —
// the client does not hold the signing key, and expiry detection only picks
// when to redirect to login, never grants anything. No token, a malformed
// token, or a missing exp claim all count as expired.
func (c *Context) Expired(now time.Time) bool {
	token := c.Token()
	if token == "" {
		return true
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		c.log.Debug().Err(err).Msg("Token unparsable, treating as expired")
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.After(exp.Time)
}
