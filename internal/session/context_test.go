package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestContextLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := NewContext(store, zerolog.Nop())
	assert.False(t, sess.Authenticated())

	user := User{ID: "user-1", Name: "Test User", Email: "user@example.com", Role: "student"}
	require.NoError(t, sess.Establish(ctx, "token-abc", user))
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "token-abc", sess.Token())
	assert.Equal(t, user, sess.User())

	// A fresh context over the same store restores the session.
	restored := NewContext(store, zerolog.Nop())
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, "token-abc", restored.Token())
	assert.Equal(t, user, restored.User())

	require.NoError(t, sess.Clear(ctx))
	assert.False(t, sess.Authenticated())

	// After Clear, restoring finds nothing but is not an error.
	cleared := NewContext(store, zerolog.Nop())
	require.NoError(t, cleared.Load(ctx))
	assert.False(t, cleared.Authenticated())
}

func TestExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"no token", "", true},
		{"malformed token", "not-a-jwt", true},
		{"future expiry", signedToken(t, now.Add(time.Hour)), false},
		{"past expiry", signedToken(t, now.Add(-time.Minute)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := NewContext(NewMemoryStore(), zerolog.Nop())
			if tt.token != "" {
				require.NoError(t, sess.Establish(ctx, tt.token, User{ID: "user-1"}))
			}
			assert.Equal(t, tt.want, sess.Expired(now))
		})
	}
}

func TestMemoryStoreMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}
