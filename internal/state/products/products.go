// Package products is the product catalogue slice.
package products

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state/auth"
	"github.com/nanacaring/cmsportal/internal/state/slice"
	"github.com/nanacaring/cmsportal/pkg/store"
)

const Name = "products"

type Filter struct {
	Query    string
	Category string
}

type State struct {
	Items       []api.Product
	SelectedID  int64
	Filter      Filter
	IsLoading   bool
	Error       string
	LastFetched time.Time
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
	productsAction()
}

type (
	FetchStart   struct{}
	FetchSuccess struct {
		Items []api.Product
		At    time.Time
	}
	FetchFailure struct{ Error string }

	CreateStart   struct{}
	CreateSuccess struct{ Product api.Product }
	CreateFailure struct{ Error string }

	UpdateStart   struct{}
	UpdateSuccess struct{ Product api.Product }
	UpdateFailure struct{ Error string }

	DeleteStart   struct{ ProductID int64 }
	DeleteSuccess struct{ ProductID int64 }
	DeleteFailure struct {
		ProductID int64
		Error     string
	}

	Select     struct{ ProductID int64 }
	SetFilter  struct{ Filter Filter }
	ClearError struct{}
)

func (FetchStart) ActionType() string    { return "PRODUCTS_FETCH_START" }
func (FetchSuccess) ActionType() string  { return "PRODUCTS_FETCH_SUCCESS" }
func (FetchFailure) ActionType() string  { return "PRODUCTS_FETCH_FAILURE" }
func (CreateStart) ActionType() string   { return "PRODUCTS_CREATE_START" }
func (CreateSuccess) ActionType() string { return "PRODUCTS_CREATE_SUCCESS" }
func (CreateFailure) ActionType() string { return "PRODUCTS_CREATE_FAILURE" }
func (UpdateStart) ActionType() string   { return "PRODUCTS_UPDATE_START" }
func (UpdateSuccess) ActionType() string { return "PRODUCTS_UPDATE_SUCCESS" }
func (UpdateFailure) ActionType() string { return "PRODUCTS_UPDATE_FAILURE" }
func (DeleteStart) ActionType() string   { return "PRODUCTS_DELETE_START" }
func (DeleteSuccess) ActionType() string { return "PRODUCTS_DELETE_SUCCESS" }
func (DeleteFailure) ActionType() string { return "PRODUCTS_DELETE_FAILURE" }
func (Select) ActionType() string        { return "PRODUCTS_SELECT" }
func (SetFilter) ActionType() string     { return "PRODUCTS_SET_FILTER" }
func (ClearError) ActionType() string    { return "PRODUCTS_CLEAR_ERROR" }

func (FetchStart) productsAction()    {}
func (FetchSuccess) productsAction()  {}
func (FetchFailure) productsAction()  {}
func (CreateStart) productsAction()   {}
func (CreateSuccess) productsAction() {}
func (CreateFailure) productsAction() {}
func (UpdateStart) productsAction()   {}
func (UpdateSuccess) productsAction() {}
func (UpdateFailure) productsAction() {}
func (DeleteStart) productsAction()   {}
func (DeleteSuccess) productsAction() {}
func (DeleteFailure) productsAction() {}
func (Select) productsAction()        {}
func (SetFilter) productsAction()     {}
func (ClearError) productsAction()    {}

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
		next.LastFetched = act.At
		next.IsLoading = false
		if !slices.ContainsFunc(act.Items, func(p api.Product) bool { return p.ID == s.SelectedID }) {
			next.SelectedID = 0
		}
	case CreateSuccess:
		next.Items = append(slices.Clip(s.Items), act.Product)
		next.IsLoading = false
	case UpdateSuccess:
		next.Items = slices.Clone(s.Items)
		if i := indexOf(next.Items, act.Product.ID); i >= 0 {
			next.Items[i] = act.Product
		}
		next.IsLoading = false
	case DeleteSuccess:
		next.Items = slices.DeleteFunc(slices.Clone(s.Items), func(p api.Product) bool {
			return p.ID == act.ProductID
		})
		if s.SelectedID == act.ProductID {
			next.SelectedID = 0
		}
		next.IsLoading = false
	case FetchFailure:
		next.IsLoading = false
		next.Error = act.Error
	case CreateFailure:
		next.IsLoading = false
		next.Error = act.Error
	case UpdateFailure:
		next.IsLoading = false
		next.Error = act.Error
	case DeleteFailure:
		next.IsLoading = false
		next.Error = act.Error
	case Select:
		if s.SelectedID == act.ProductID {
			return s
		}
		next.SelectedID = act.ProductID
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

func indexOf(items []api.Product, id int64) int {
	return slices.IndexFunc(items, func(p api.Product) bool { return p.ID == id })
}

// Selected returns the selected product.
func (s *State) Selected() (api.Product, bool) {
	if i := indexOf(s.Items, s.SelectedID); i >= 0 && s.SelectedID != 0 {
		return s.Items[i], true
	}
	return api.Product{}, false
}

// Filtered returns the items matching the filter: the query matches name
// or description case-insensitively, the category matches exactly.
func (s *State) Filtered() []api.Product {
	q := strings.ToLower(strings.TrimSpace(s.Filter.Query))
	if q == "" && s.Filter.Category == "" {
		return s.Items
	}
	out := make([]api.Product, 0, len(s.Items))
	for _, p := range s.Items {
		if s.Filter.Category != "" && p.Category != s.Filter.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// API is the part of the backend client the slice uses.
type API interface {
	ListProducts(ctx context.Context, token string) ([]api.Product, error)
	CreateProduct(ctx context.Context, token string, p api.Product) (*api.Product, error)
	UpdateProduct(ctx context.Context, token string, p api.Product) (*api.Product, error)
	DeleteProduct(ctx context.Context, token string, id int64) error
}

type Thunks struct {
	API API
	Now func() time.Time
}

func (t Thunks) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func failure[F store.Action](wrap func(string) F) func(error) store.Action {
	return func(err error) store.Action { return wrap(slice.ErrorMessage(err)) }
}

func (t Thunks) Fetch() slice.Thunk {
	return slice.Request(FetchStart{},
		func(ctx context.Context, st slice.State) ([]api.Product, error) {
			return t.API.ListProducts(ctx, auth.From(st).Token)
		},
		func(items []api.Product) store.Action { return FetchSuccess{Items: items, At: t.now()} },
		failure(func(msg string) FetchFailure { return FetchFailure{Error: msg} }),
	)
}

func (t Thunks) Create(p api.Product) slice.Thunk {
	return slice.Request(CreateStart{},
		func(ctx context.Context, st slice.State) (api.Product, error) {
			return slice.Required(t.API.CreateProduct(ctx, auth.From(st).Token, p))
		},
		func(created api.Product) store.Action { return CreateSuccess{Product: created} },
		failure(func(msg string) CreateFailure { return CreateFailure{Error: msg} }),
	)
}

func (t Thunks) Update(p api.Product) slice.Thunk {
	return slice.Request(UpdateStart{},
		func(ctx context.Context, st slice.State) (api.Product, error) {
			return slice.Required(t.API.UpdateProduct(ctx, auth.From(st).Token, p))
		},
		func(updated api.Product) store.Action { return UpdateSuccess{Product: updated} },
		failure(func(msg string) UpdateFailure { return UpdateFailure{Error: msg} }),
	)
}

func (t Thunks) Delete(id int64) slice.Thunk {
	return slice.Request(DeleteStart{ProductID: id},
		func(ctx context.Context, st slice.State) (struct{}, error) {
			return struct{}{}, t.API.DeleteProduct(ctx, auth.From(st).Token, id)
		},
		func(struct{}) store.Action { return DeleteSuccess{ProductID: id} },
		failure(func(msg string) DeleteFailure { return DeleteFailure{ProductID: id, Error: msg} }),
	)
}
