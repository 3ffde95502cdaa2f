package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/api"
	"github.com/presensia/presensia-client/internal/model"
	"github.com/presensia/presensia-client/internal/validator"
)

// Authenticator performs credential login and logout against the backend,
// establishing or clearing the session context.
type Authenticator struct {
	api  *api.Client
	sess *Context
	log  zerolog.Logger
}

// NewAuthenticator creates an Authenticator bound to a session context.
func NewAuthenticator(apiClient *api.Client, sess *Context, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		api:  apiClient,
		sess: sess,
		log:  log.With().Str("component", "authenticator").Logger(),
	}
}

// Login exchanges credentials for a token and establishes the session.
func (a *Authenticator) Login(ctx context.Context, email, password string) (User, error) {
	payload := model.LoginRequest{Email: email, Password: password}
	if fields := validator.Struct(payload); fields != nil {
		return User{}, fmt.Errorf("invalid login input: %v", fields)
	}

	var resp model.LoginResponse
	if err := a.api.Post(ctx, "/auth/login", payload, &resp, false); err != nil {
		return User{}, err
	}

	user := User{
		ID:    resp.User.ID,
		Name:  resp.User.Name,
		Email: resp.User.Email,
		Role:  resp.User.Role,
	}
	if err := a.sess.Establish(ctx, resp.Token, user); err != nil {
		return User{}, fmt.Errorf("persist session: %w", err)
	}

	a.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("Logged in")
	return user, nil
}

// Logout clears the session. The token is simply discarded; the backend
// keeps no revocation list for client tokens.
func (a *Authenticator) Logout(ctx context.Context) error {
	return a.sess.Clear(ctx)
}
