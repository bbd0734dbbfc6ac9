// Package auth authenticates portal users.
//
// Credentials are tried against a chain of authenticators: the local
// break-glass admin table first, then the backend API. An authenticator
// that does not know the user returns ErrUnknownUser and the next one is
// tried; any other error ends the chain.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/nanacaring/cmsportal/internal/api"
)

var (
	// ErrUnknownUser means the authenticator has no record of the user.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidCredentials is returned for a known user with a bad password.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrAccountDeactivated is returned for a known but inactive user.
	ErrAccountDeactivated = errors.New("Account deactivated")
)

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Authenticate(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
}

// Func adapts a function to Authenticator.
type Func func(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)

func (f Func) Authenticate(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error) {
	return f(ctx, creds)
}

// Chain tries authenticators in order.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error) {
	for _, a := range c {
		if a == nil {
			continue
		}
		resp, err := a.Authenticate(ctx, creds)
		if errors.Is(err, ErrUnknownUser) {
			continue
		}
		return resp, err
	}
	return nil, ErrInvalidCredentials
}

// Remote authenticates against the backend API.
type Remote struct {
	Client *api.Client
}

func (r Remote) Authenticate(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error) {
	resp, err := r.Client.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login response without token")
	}
	if resp.ExpiresAt.IsZero() {
		if claims, err := ParseClaims(resp.Token); err == nil {
			resp.ExpiresAt = claims.Expiry()
		}
	}
	return resp, nil
}
