// Package accounts is the care account slice.
package accounts

import (
	"context"
	"slices"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state/auth"
	"github.com/nanacaring/cmsportal/internal/state/slice"
	"github.com/nanacaring/cmsportal/pkg/store"
)

const Name = "accounts"

type State struct {
	Items     []api.Account
	IsLoading bool
	Error     string
}

func Initial() *State { return &State{} }

func From(t *store.Tree) *State {
	if s := store.Select[*State](t, Name); s != nil {
		return s
	}
	return Initial()
}

type Action interface {
	store.Action
	accountsAction()
}

type (
	FetchStart          struct{}
	FetchSuccess        struct{ Items []api.Account }
	FetchFailure        struct{ Error string }
	CreateStart         struct{}
	CreateSuccess       struct{ Account api.Account }
	CreateFailure       struct{ Error string }
	UpdateStatusStart   struct{ AccountID int64 }
	UpdateStatusSuccess struct{ Account api.Account }
	UpdateStatusFailure struct {
		AccountID int64
		Error     string
	}
	ClearError struct{}
)

func (FetchStart) ActionType() string          { return "ACCOUNTS_FETCH_START" }
func (FetchSuccess) ActionType() string        { return "ACCOUNTS_FETCH_SUCCESS" }
func (FetchFailure) ActionType() string        { return "ACCOUNTS_FETCH_FAILURE" }
func (CreateStart) ActionType() string         { return "ACCOUNTS_CREATE_START" }
func (CreateSuccess) ActionType() string       { return "ACCOUNTS_CREATE_SUCCESS" }
func (CreateFailure) ActionType() string       { return "ACCOUNTS_CREATE_FAILURE" }
func (UpdateStatusStart) ActionType() string   { return "ACCOUNTS_UPDATE_STATUS_START" }
func (UpdateStatusSuccess) ActionType() string { return "ACCOUNTS_UPDATE_STATUS_SUCCESS" }
func (UpdateStatusFailure) ActionType() string { return "ACCOUNTS_UPDATE_STATUS_FAILURE" }
func (ClearError) ActionType() string          { return "ACCOUNTS_CLEAR_ERROR" }

func (FetchStart) accountsAction()          {}
func (FetchSuccess) accountsAction()        {}
func (FetchFailure) accountsAction()        {}
func (CreateStart) accountsAction()         {}
func (CreateSuccess) accountsAction()       {}
func (CreateFailure) accountsAction()       {}
func (UpdateStatusStart) accountsAction()   {}
func (UpdateStatusSuccess) accountsAction() {}
func (UpdateStatusFailure) accountsAction() {}
func (ClearError) accountsAction()          {}

func Reduce(s *State, a store.Action) *State {
	if s == nil {
		s = Initial()
	}
	if _, ok := a.(auth.LogoutDone); ok {
		return slice.Reset(s, Initial)
	}
	act, ok := a.(Action)
	if !ok {
		return s
	}

	next := *s
	switch act := act.(type) {
	case FetchStart, CreateStart, UpdateStatusStart:
		next.IsLoading = true
		next.Error = ""
	case FetchSuccess:
		next.Items = act.Items
		next.IsLoading = false
	case CreateSuccess:
		next.Items = append(slices.Clip(s.Items), act.Account)
		next.IsLoading = false
	case UpdateStatusSuccess:
		next.Items = slices.Clone(s.Items)
		if i := slices.IndexFunc(next.Items, func(x api.Account) bool { return x.ID == act.Account.ID }); i >= 0 {
			next.Items[i] = act.Account
		}
		next.IsLoading = false
	case FetchFailure:
		next.IsLoading, next.Error = false, act.Error
	case CreateFailure:
		next.IsLoading, next.Error = false, act.Error
	case UpdateStatusFailure:
		next.IsLoading, next.Error = false, act.Error
	case ClearError:
		if s.Error == "" {
			return s
		}
		next.Error = ""
	default:
		return s
	}
	return &next
}

// VisibleTo returns the accounts viewer may see. Superadmins and admins see
// every account, caregivers the accounts they care for, members their own.
func (s *State) VisibleTo(viewer api.User) []api.Account {
	return Visible(viewer, s.Items)
}

// Visible filters items for viewer.
func Visible(viewer api.User, items []api.Account) []api.Account {
	out := make([]api.Account, 0, len(items))
	for _, a := range items {
		if CanSee(viewer, a) {
			out = append(out, a)
		}
	}
	return out
}

func CanSee(viewer api.User, a api.Account) bool {
	switch viewer.Role {
	case api.RoleSuperadmin, api.RoleAdmin:
		return true
	case api.RoleCaregiver:
		return a.CaregiverID == viewer.ID
	case api.RoleMember:
		return a.OwnerID == viewer.ID
	}
	return false
}

type API interface {
	ListAccounts(ctx context.Context, token string) ([]api.Account, error)
	CreateAccount(ctx context.Context, token string, a api.Account) (*api.Account, error)
	UpdateAccountStatus(ctx context.Context, token string, id int64, status api.AccountStatus) (*api.Account, error)
}

type Thunks struct {
	API API
}

func (t Thunks) Fetch() slice.Thunk {
	return slice.Request(FetchStart{},
		func(ctx context.Context, st slice.State) ([]api.Account, error) {
			return t.API.ListAccounts(ctx, auth.From(st).Token)
		},
		func(items []api.Account) store.Action { return FetchSuccess{Items: items} },
		func(err error) store.Action { return FetchFailure{Error: slice.ErrorMessage(err)} },
	)
}

func (t Thunks) Create(a api.Account) slice.Thunk {
	return slice.Request(CreateStart{},
		func(ctx context.Context, st slice.State) (api.Account, error) {
			return slice.Required(t.API.CreateAccount(ctx, auth.From(st).Token, a))
		},
		func(created api.Account) store.Action { return CreateSuccess{Account: created} },
		func(err error) store.Action { return CreateFailure{Error: slice.ErrorMessage(err)} },
	)
}

func (t Thunks) UpdateStatus(id int64, status api.AccountStatus) slice.Thunk {
	return slice.Request(UpdateStatusStart{AccountID: id},
		func(ctx context.Context, st slice.State) (api.Account, error) {
			return slice.Required(t.API.UpdateAccountStatus(ctx, auth.From(st).Token, id, status))
		},
		func(updated api.Account) store.Action { return UpdateStatusSuccess{Account: updated} },
		func(err error) store.Action {
			return UpdateStatusFailure{AccountID: id, Error: slice.ErrorMessage(err)}
		},
	)
}
