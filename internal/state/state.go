// Package state assembles the portal's root state from its slices and
// builds the per-session store.
package state

import (
	"log/slog"
	"time"

	"github.com/nanacaring/cmsportal/internal/state/accounts"
	"github.com/nanacaring/cmsportal/internal/state/auth"
	"github.com/nanacaring/cmsportal/internal/state/products"
	"github.com/nanacaring/cmsportal/internal/state/transactions"
	"github.com/nanacaring/cmsportal/internal/state/ui"
	"github.com/nanacaring/cmsportal/internal/state/users"
	"github.com/nanacaring/cmsportal/pkg/middleware"
	"github.com/nanacaring/cmsportal/pkg/store"
)

// Store is a portal store.
type Store = store.Store[*store.Tree]

// Reducers returns the slice reducers keyed by slice name.
func Reducers() map[string]store.Reducer[any] {
	return map[string]store.Reducer[any]{
		auth.Name:         store.Slice(auth.Reduce),
		products.Name:     store.Slice(products.Reduce),
		users.Name:        store.Slice(users.Reduce),
		accounts.Name:     store.Slice(accounts.Reduce),
		transactions.Name: store.Slice(transactions.Reduce),
		ui.Name:           store.Slice(ui.Reduce),
	}
}

// Initial returns the root state with every slice at its initial value.
func Initial() *store.Tree {
	return store.NewTree(map[string]any{
		auth.Name:         auth.Initial(),
		products.Name:     products.Initial(),
		users.Name:        users.Initial(),
		accounts.Name:     accounts.Initial(),
		transactions.Name: transactions.Initial(),
		ui.Name:           ui.Initial(),
	})
}

// Options configures NewStore.
type Options struct {
	Logger *slog.Logger
	// Debug enables the action logger.
	Debug bool
	// Metrics is shared by every session; nil disables store metrics.
	Metrics *middleware.Collector
	// Tracing enables one span per action.
	Tracing      bool
	TraceOptions []middleware.TraceOption
	// Schedule runs right after thunks are unwrapped, so it decides where
	// every plain action is reduced.
	Schedule store.Middleware[*store.Tree]
}

// NewStore builds a store with the portal's middleware chain. Thunks are
// unwrapped first, so the logger, metrics and tracing only see the plain
// actions thunks dispatch.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var tracing store.Middleware[*store.Tree]
	if opts.Tracing {
		tracing = middleware.Tracing[*store.Tree](opts.TraceOptions...)
	}

	return store.New(
		store.CombineReducers(Reducers()),
		Initial(),
		store.ThunkMiddleware[*store.Tree](),
		opts.Schedule,
		store.LoggerMiddleware[*store.Tree](logger, opts.Debug),
		middleware.Observe[*store.Tree](opts.Metrics),
		tracing,
	)
}

// API is the backend surface the slices use.
type API interface {
	products.API
	users.API
	accounts.API
	transactions.API
}

// Deps are the collaborators of the slices' thunks.
type Deps struct {
	Auth  auth.Authenticator
	API   API
	Clock ui.Clock
	Now   func() time.Time
}

// Actions groups the action creators of every slice.
type Actions struct {
	Auth         auth.Thunks
	Products     products.Thunks
	Users        users.Thunks
	Accounts     accounts.Thunks
	Transactions transactions.Thunks
	UI           ui.Notifier
}

func NewActions(d Deps) Actions {
	return Actions{
		Auth:         auth.Thunks{Auth: d.Auth},
		Products:     products.Thunks{API: d.API, Now: d.Now},
		Users:        users.Thunks{API: d.API},
		Accounts:     accounts.Thunks{API: d.API},
		Transactions: transactions.Thunks{API: d.API},
		UI:           ui.Notifier{Clock: d.Clock},
	}
}

// Selectors.

func Auth(t *store.Tree) *auth.State                 { return auth.From(t) }
func Products(t *store.Tree) *products.State         { return products.From(t) }
func Users(t *store.Tree) *users.State               { return users.From(t) }
func Accounts(t *store.Tree) *accounts.State         { return accounts.From(t) }
func Transactions(t *store.Tree) *transactions.State { return transactions.From(t) }
func UI(t *store.Tree) *ui.State                     { return ui.From(t) }
