// Package auth is the authentication slice: who is signed in and with
// which token.
package auth

import (
	"context"
	"time"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state/slice"
	"github.com/nanacaring/cmsportal/pkg/store"
)

// Name is the slice's key in the root state.
const Name = "auth"

type State struct {
	IsAuthenticated bool
	User            *api.User
	Token           string
	ExpiresAt       time.Time
	IsLoading       bool
	Error           string
}

func Initial() *State { return &State{} }

// From returns the auth slice of t, or the initial state.
func From(t *store.Tree) *State {
	if s := store.Select[*State](t, Name); s != nil {
		return s
	}
	return Initial()
}

// Action is implemented by every auth action.
type Action interface {
	store.Action
	authAction()
}

type (
	LoginStart   struct{}
	LoginSuccess struct {
		User      api.User
		Token     string
		ExpiresAt time.Time
	}
	LoginFailure struct{ Error string }
	LogoutDone   struct{}
	ClearError   struct{}
)

func (LoginStart) ActionType() string   { return "AUTH_LOGIN_START" }
func (LoginSuccess) ActionType() string { return "AUTH_LOGIN_SUCCESS" }
func (LoginFailure) ActionType() string { return "AUTH_LOGIN_FAILURE" }
func (LogoutDone) ActionType() string   { return "AUTH_LOGOUT" }
func (ClearError) ActionType() string   { return "AUTH_CLEAR_ERROR" }

func (LoginStart) authAction()   {}
func (LoginSuccess) authAction() {}
func (LoginFailure) authAction() {}
func (LogoutDone) authAction()   {}
func (ClearError) authAction()   {}

// Reduce returns s for every action it does not handle.
func Reduce(s *State, a store.Action) *State {
	if s == nil {
		s = Initial()
	}
	act, ok := a.(Action)
	if !ok {
		return s
	}

	switch act := act.(type) {
	case LoginStart:
		next := *s
		next.IsLoading = true
		next.Error = ""
		return &next
	case LoginSuccess:
		user := act.User
		return &State{
			IsAuthenticated: true,
			User:            &user,
			Token:           act.Token,
			ExpiresAt:       act.ExpiresAt,
		}
	case LoginFailure:
		return &State{Error: act.Error}
	case LogoutDone:
		return slice.Reset(s, Initial)
	case ClearError:
		if s.Error == "" {
			return s
		}
		next := *s
		next.Error = ""
		return &next
	}
	return s
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Authenticate(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
}

// Thunks creates the auth slice's async actions.
type Thunks struct {
	Auth Authenticator
}

// Login authenticates creds. Its Result carries the *api.LoginResponse.
func (t Thunks) Login(creds api.Credentials) slice.Thunk {
	return slice.Request(LoginStart{},
		func(ctx context.Context, _ slice.State) (*api.LoginResponse, error) {
			return t.Auth.Authenticate(ctx, creds)
		},
		func(resp *api.LoginResponse) store.Action {
			return LoginSuccess{User: resp.User, Token: resp.Token, ExpiresAt: resp.ExpiresAt}
		},
		func(err error) store.Action {
			return LoginFailure{Error: slice.ErrorMessage(err)}
		},
	)
}

// Logout ends the session. Data slices reset themselves on LogoutDone.
func (Thunks) Logout() store.Action {
	return LogoutDone{}
}

// Expired reports whether s holds a session whose token has expired.
func (s *State) Expired(now time.Time) bool {
	return s.IsAuthenticated && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Role returns the signed-in user's role, or "" when signed out.
func (s *State) Role() api.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
