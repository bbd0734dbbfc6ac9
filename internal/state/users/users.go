// Package users is the portal user management slice.
package users

import (
	"context"
	"slices"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state/auth"
	"github.com/nanacaring/cmsportal/internal/state/slice"
	"github.com/nanacaring/cmsportal/pkg/store"
)

const Name = "users"

type State struct {
	Items      []api.User
	RoleFilter api.Role
	IsLoading  bool
	Error      string
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
	usersAction()
}

type (
	FetchStart    struct{}
	FetchSuccess  struct{ Items []api.User }
	FetchFailure  struct{ Error string }
	CreateStart   struct{}
	CreateSuccess struct{ User api.User }
	CreateFailure struct{ Error string }
	UpdateStart   struct{}
	UpdateSuccess struct{ User api.User }
	UpdateFailure struct{ Error string }
	DeleteStart   struct{ UserID int64 }
	DeleteSuccess struct{ UserID int64 }
	DeleteFailure struct {
		UserID int64
		Error  string
	}
	SetRoleFilter struct{ Role api.Role }
	ClearError    struct{}
)

func (FetchStart) ActionType() string    { return "USERS_FETCH_START" }
func (FetchSuccess) ActionType() string  { return "USERS_FETCH_SUCCESS" }
func (FetchFailure) ActionType() string  { return "USERS_FETCH_FAILURE" }
func (CreateStart) ActionType() string   { return "USERS_CREATE_START" }
func (CreateSuccess) ActionType() string { return "USERS_CREATE_SUCCESS" }
func (CreateFailure) ActionType() string { return "USERS_CREATE_FAILURE" }
func (UpdateStart) ActionType() string   { return "USERS_UPDATE_START" }
func (UpdateSuccess) ActionType() string { return "USERS_UPDATE_SUCCESS" }
func (UpdateFailure) ActionType() string { return "USERS_UPDATE_FAILURE" }
func (DeleteStart) ActionType() string   { return "USERS_DELETE_START" }
func (DeleteSuccess) ActionType() string { return "USERS_DELETE_SUCCESS" }
func (DeleteFailure) ActionType() string { return "USERS_DELETE_FAILURE" }
func (SetRoleFilter) ActionType() string { return "USERS_SET_ROLE_FILTER" }
func (ClearError) ActionType() string    { return "USERS_CLEAR_ERROR" }

func (FetchStart) usersAction()    {}
func (FetchSuccess) usersAction()  {}
func (FetchFailure) usersAction()  {}
func (CreateStart) usersAction()   {}
func (CreateSuccess) usersAction() {}
func (CreateFailure) usersAction() {}
func (UpdateStart) usersAction()   {}
func (UpdateSuccess) usersAction() {}
func (UpdateFailure) usersAction() {}
func (DeleteStart) usersAction()   {}
func (DeleteSuccess) usersAction() {}
func (DeleteFailure) usersAction() {}
func (SetRoleFilter) usersAction() {}
func (ClearError) usersAction()    {}

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
	case FetchStart, CreateStart, UpdateStart, DeleteStart:
		next.IsLoading = true
		next.Error = ""
	case FetchSuccess:
		next.Items = act.Items
		next.IsLoading = false
	case CreateSuccess:
		next.Items = append(slices.Clip(s.Items), act.User)
		next.IsLoading = false
	case UpdateSuccess:
		next.Items = slices.Clone(s.Items)
		if i := slices.IndexFunc(next.Items, func(u api.User) bool { return u.ID == act.User.ID }); i >= 0 {
			next.Items[i] = act.User
		}
		next.IsLoading = false
	case DeleteSuccess:
		next.Items = slices.DeleteFunc(slices.Clone(s.Items), func(u api.User) bool { return u.ID == act.UserID })
		next.IsLoading = false
	case FetchFailure:
		next.IsLoading, next.Error = false, act.Error
	case CreateFailure:
		next.IsLoading, next.Error = false, act.Error
	case UpdateFailure:
		next.IsLoading, next.Error = false, act.Error
	case DeleteFailure:
		next.IsLoading, next.Error = false, act.Error
	case SetRoleFilter:
		if s.RoleFilter == act.Role {
			return s
		}
		next.RoleFilter = act.Role
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

// VisibleTo returns the users viewer may see, narrowed by the role filter.
// Superadmins see everyone, admins everyone but superadmins, and anyone
// else only themselves.
func (s *State) VisibleTo(viewer api.User) []api.User {
	out := make([]api.User, 0, len(s.Items))
	for _, u := range s.Items {
		if !canSee(viewer, u) {
			continue
		}
		if s.RoleFilter != "" && u.Role != s.RoleFilter {
			continue
		}
		out = append(out, u)
	}
	return out
}

func canSee(viewer, u api.User) bool {
	switch viewer.Role {
	case api.RoleSuperadmin:
		return true
	case api.RoleAdmin:
		return u.Role != api.RoleSuperadmin
	default:
		return u.ID == viewer.ID
	}
}

// CanManage reports whether viewer may create, edit or delete users.
func CanManage(viewer api.User) bool {
	return viewer.Role == api.RoleSuperadmin || viewer.Role == api.RoleAdmin
}

type API interface {
	ListUsers(ctx context.Context, token string) ([]api.User, error)
	CreateUser(ctx context.Context, token string, u api.NewUser) (*api.User, error)
	UpdateUser(ctx context.Context, token string, u api.User) (*api.User, error)
	DeleteUser(ctx context.Context, token string, id int64) error
}

type Thunks struct {
	API API
}

func fail(wrap func(string) store.Action) func(error) store.Action {
	return func(err error) store.Action { return wrap(slice.ErrorMessage(err)) }
}

func (t Thunks) Fetch() slice.Thunk {
	return slice.Request(FetchStart{},
		func(ctx context.Context, st slice.State) ([]api.User, error) {
			return t.API.ListUsers(ctx, auth.From(st).Token)
		},
		func(items []api.User) store.Action { return FetchSuccess{Items: items} },
		fail(func(msg string) store.Action { return FetchFailure{Error: msg} }),
	)
}

func (t Thunks) Create(u api.NewUser) slice.Thunk {
	return slice.Request(CreateStart{},
		func(ctx context.Context, st slice.State) (api.User, error) {
			return slice.Required(t.API.CreateUser(ctx, auth.From(st).Token, u))
		},
		func(created api.User) store.Action { return CreateSuccess{User: created} },
		fail(func(msg string) store.Action { return CreateFailure{Error: msg} }),
	)
}

func (t Thunks) Update(u api.User) slice.Thunk {
	return slice.Request(UpdateStart{},
		func(ctx context.Context, st slice.State) (api.User, error) {
			return slice.Required(t.API.UpdateUser(ctx, auth.From(st).Token, u))
		},
		func(updated api.User) store.Action { return UpdateSuccess{User: updated} },
		fail(func(msg string) store.Action { return UpdateFailure{Error: msg} }),
	)
}

func (t Thunks) Delete(id int64) slice.Thunk {
	return slice.Request(DeleteStart{UserID: id},
		func(ctx context.Context, st slice.State) (struct{}, error) {
			return struct{}{}, t.API.DeleteUser(ctx, auth.From(st).Token, id)
		},
		func(struct{}) store.Action { return DeleteSuccess{UserID: id} },
		fail(func(msg string) store.Action { return DeleteFailure{UserID: id, Error: msg} }),
	)
}
