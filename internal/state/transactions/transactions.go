// Package transactions is the account transaction ledger slice.
package transactions

import (
	"context"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state/accounts"
	"github.com/nanacaring/cmsportal/internal/state/auth"
	"github.com/nanacaring/cmsportal/internal/state/slice"
	"github.com/nanacaring/cmsportal/pkg/store"
)

const Name = "transactions"

// Filter narrows the ledger. Zero fields match everything.
type Filter struct {
	AccountID int64
	Type      string
}

type State struct {
	Items     []api.Transaction
	Filter    Filter
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
	transactionsAction()
}

type (
	FetchStart   struct{}
	FetchSuccess struct{ Items []api.Transaction }
	FetchFailure struct{ Error string }
	SetFilter    struct{ Filter Filter }
	ClearError   struct{}
)

func (FetchStart) ActionType() string   { return "TRANSACTIONS_FETCH_START" }
func (FetchSuccess) ActionType() string { return "TRANSACTIONS_FETCH_SUCCESS" }
func (FetchFailure) ActionType() string { return "TRANSACTIONS_FETCH_FAILURE" }
func (SetFilter) ActionType() string    { return "TRANSACTIONS_SET_FILTER" }
func (ClearError) ActionType() string   { return "TRANSACTIONS_CLEAR_ERROR" }

func (FetchStart) transactionsAction()   {}
func (FetchSuccess) transactionsAction() {}
func (FetchFailure) transactionsAction() {}
func (SetFilter) transactionsAction()    {}
func (ClearError) transactionsAction()   {}

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
	case FetchStart:
		next.IsLoading = true
		next.Error = ""
	case FetchSuccess:
		next.Items = act.Items
		next.IsLoading = false
	case FetchFailure:
		next.IsLoading, next.Error = false, act.Error
	case SetFilter:
		if s.Filter == act.Filter {
			return s
		}
		next.Filter = act.Filter
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

// Filtered returns the items matching the filter.
func (s *State) Filtered() []api.Transaction {
	if s.Filter == (Filter{}) {
		return s.Items
	}
	out := make([]api.Transaction, 0, len(s.Items))
	for _, tx := range s.Items {
		if s.Filter.AccountID != 0 && tx.AccountID != s.Filter.AccountID {
			continue
		}
		if s.Filter.Type != "" && tx.Type != s.Filter.Type {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// VisibleTo returns the filtered transactions viewer may see: all of them
// for superadmins and admins, otherwise those on accounts viewer can see.
func (s *State) VisibleTo(viewer api.User, accts []api.Account) []api.Transaction {
	items := s.Filtered()
	if viewer.Role == api.RoleSuperadmin || viewer.Role == api.RoleAdmin {
		return items
	}
	visible := make(map[int64]bool, len(accts))
	for _, a := range accounts.Visible(viewer, accts) {
		visible[a.ID] = true
	}
	out := make([]api.Transaction, 0, len(items))
	for _, tx := range items {
		if visible[tx.AccountID] {
			out = append(out, tx)
		}
	}
	return out
}

type API interface {
	ListTransactions(ctx context.Context, token string, q api.TransactionQuery) ([]api.Transaction, error)
}

type Thunks struct {
	API API
}

// Fetch loads the ledger for the current filter.
func (t Thunks) Fetch() slice.Thunk {
	return slice.Request(FetchStart{},
		func(ctx context.Context, st slice.State) ([]api.Transaction, error) {
			f := From(st).Filter
			return t.API.ListTransactions(ctx, auth.From(st).Token, api.TransactionQuery{AccountID: f.AccountID, Type: f.Type})
		},
		func(items []api.Transaction) store.Action { return FetchSuccess{Items: items} },
		func(err error) store.Action { return FetchFailure{Error: slice.ErrorMessage(err)} },
	)
}
