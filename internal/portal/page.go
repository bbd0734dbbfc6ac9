package portal

import (
	"context"
	"errors"
	"strconv"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/live"
	"github.com/nanacaring/cmsportal/internal/report"
	"github.com/nanacaring/cmsportal/internal/state"
	"github.com/nanacaring/cmsportal/internal/state/products"
	"github.com/nanacaring/cmsportal/internal/state/transactions"
	"github.com/nanacaring/cmsportal/internal/state/ui"
	"github.com/nanacaring/cmsportal/internal/state/users"
	"github.com/nanacaring/cmsportal/pkg/connect"
	"github.com/nanacaring/cmsportal/pkg/pref"
	"github.com/nanacaring/cmsportal/pkg/store"
	"github.com/nanacaring/cmsportal/pkg/toast"
	"github.com/nanacaring/cmsportal/pkg/vdom"
)

// Element ids shared with the shell page.
const (
	idNotifications     = "notifications"
	idLayout            = "layout"
	idUserBadge         = "user-badge"
	idLoginForm         = "login-form"
	idLoginError        = "login-error"
	idLogout            = "logout"
	idThemeToggle       = "theme-toggle"
	idSidebarToggle     = "sidebar-toggle"
	idProductsBody      = "products-body"
	idProductCreate     = "product-create"
	idProductDelete     = "product-delete"
	idProductFilter     = "product-filter"
	idUsersBody         = "users-body"
	idUserCreate        = "user-create"
	idAccountsBody      = "accounts-body"
	idAccountStatus     = "account-status"
	idTransactionsBody  = "transactions-body"
	idTransactionFilter = "transaction-filter"
)

// ExpiredMessage is shown when a session token runs out.
const ExpiredMessage = "Your session has expired. Please sign in again."

// page is the store and bindings of one open browser page.
type page struct {
	srv     *Server
	live    *live.Session
	store   *state.Store
	actions state.Actions
	conn    *connect.Connector[*store.Tree]
	notify  toast.Notifier

	prefs      *pref.Persister[*store.Tree, ui.Prefs]
	stopPrefs  func()
	stopExpiry func() bool
	unsubs     []func()
}

func (s *Server) newPage(ls *live.Session) *page {
	st := state.NewStore(state.Options{
		Logger:  ls.Logger(),
		Debug:   s.cfg.Debug,
		Metrics: s.metrics,
		Tracing: s.cfg.Tracing.Enabled,
		// Thunks started with a live.Background context reduce on the loop.
		Schedule: live.OnLoop[*store.Tree](ls),
	})
	actions := state.NewActions(state.Deps{
		Auth:  s.auth,
		API:   s.api,
		Clock: ls.Clock(),
		Now:   s.now,
	})
	notify := actions.UI.For(st.Dispatch)

	p := &page{
		srv:     s,
		live:    ls,
		store:   st,
		actions: actions,
		notify:  notify,
		conn: connect.New(st,
			connect.WithContext(ls.Context()),
			connect.WithNotifier(notify),
			connect.WithLogger(ls.Logger()),
			connect.WithRunner(ls),
		),
	}
	if s.prefs != nil {
		p.prefs = &pref.Persister[*store.Tree, ui.Prefs]{
			KV:     s.prefs,
			Select: func(t *store.Tree) ui.Prefs { return state.UI(t).Prefs() },
			Prefix: s.cfg.Prefs.Prefix,
			Logger: ls.Logger(),
		}
	}

	st.OnUnhandled(p.unhandled)
	ls.OnPanic(p.panicked)
	p.bind()
	return p
}

// unhandled receives failures of async dispatches that nobody awaited.
func (p *page) unhandled(_ context.Context, err error) {
	p.srv.metrics.Unhandled()
	p.srv.reporter.Report(p.live.Context(), err, map[string]any{"session": p.live.ID})
	p.live.Post(func() { p.panicked(p.live.Context(), err) })
}

// panicked shows the generic error toast. It runs on the event loop.
func (p *page) panicked(context.Context, error) {
	toast.Error(p.live.Context(), p.notify, connect.DefaultErrorMessage)
}

func (p *page) bind() {
	c := p.conn
	ls := p.live
	add := func(unsub func()) { p.unsubs = append(p.unsubs, unsub) }

	add(c.NotificationSystem(ls.Container(idNotifications),
		func(t *store.Tree) []toast.Notification { return state.UI(t).Notifications },
		p.actions.UI.Remove))

	add(connect.BindElement(c, ls.Element(idLayout), selectLayout, layoutView))
	add(connect.BindElement(c, ls.Element(idUserBadge), selectBadge, badgeView))
	add(connect.BindElement(c, ls.Element(idLoginError),
		func(t *store.Tree) string { return state.Auth(t).Error }, alertView))

	add(c.Connect(connect.ComponentFunc(p.watchSession),
		func(t *store.Tree) any { return state.Auth(t).IsAuthenticated }, nil))

	p.bindButtons()
	p.bindForms()
	p.bindTables()
}

func (p *page) bindButtons() {
	c := p.conn
	ls := p.live

	p.unsubs = append(p.unsubs,
		c.BindButton(ls.Button(idLogout), connect.ButtonOptions[*store.Tree]{
			Action:   func(*store.Tree) store.Action { return p.actions.Auth.Logout() },
			Disabled: func(t *store.Tree) bool { return !state.Auth(t).IsAuthenticated },
		}),
		c.BindButton(ls.Button(idThemeToggle), connect.ButtonOptions[*store.Tree]{
			Action: func(t *store.Tree) store.Action {
				if state.UI(t).Theme == ui.ThemeDark {
					return ui.SetTheme{Theme: ui.ThemeLight}
				}
				return ui.SetTheme{Theme: ui.ThemeDark}
			},
			Label: func(t *store.Tree) string {
				if state.UI(t).Theme == ui.ThemeDark {
					return "Light mode"
				}
				return "Dark mode"
			},
		}),
		c.BindButton(ls.Button(idSidebarToggle), connect.ButtonOptions[*store.Tree]{
			Action: func(*store.Tree) store.Action { return ui.ToggleSidebar{} },
			Label: func(t *store.Tree) string {
				if state.UI(t).Sidebar == ui.SidebarCollapsed {
					return "Expand"
				}
				return "Collapse"
			},
		}),
	)
}

func (p *page) bindForms() {
	c := p.conn
	ls := p.live

	p.unsubs = append(p.unsubs,
		c.BindForm(ls.Form(idLoginForm), func(v map[string]string) store.Action {
			return p.actions.Auth.Login(api.Credentials{Username: v["username"], Password: v["password"]})
		}, connect.FormOptions{
			Transform: trimValues,
			Validate: func(v map[string]string) error {
				return connect.ValidateStruct(loginInput{Username: v["username"], Password: v["password"]})
			},
			// The reason is rendered next to the form.
			ErrorMessage:   "Sign in failed",
			ResetOnSuccess: true,
			OnSuccess: func(r store.Result) {
				if resp, ok := r.Data.(*api.LoginResponse); ok {
					p.signedIn(resp)
				}
			},
		}),

		c.BindForm(ls.Form(idProductCreate), func(v map[string]string) store.Action {
			return p.actions.Products.Create(productFromValues(v))
		}, connect.FormOptions{
			Transform:      trimValues,
			Validate:       func(v map[string]string) error { return connect.ValidateStruct(productInputFrom(v)) },
			SuccessMessage: "Product created",
			ResetOnSuccess: true,
		}),

		c.BindForm(ls.Form(idProductDelete), func(v map[string]string) store.Action {
			return p.actions.Products.Delete(parseID(v["id"]))
		}, connect.FormOptions{
			Validate:       validateID,
			SuccessMessage: "Product deleted",
		}),

		c.BindForm(ls.Form(idProductFilter), func(v map[string]string) store.Action {
			return products.SetFilter{Filter: products.Filter{Query: v["query"], Category: v["category"]}}
		}, connect.FormOptions{Transform: trimValues}),

		c.BindForm(ls.Form(idUserCreate), func(v map[string]string) store.Action {
			return p.actions.Users.Create(userInputFrom(v).NewUser())
		}, connect.FormOptions{
			Transform:      trimValues,
			Validate:       func(v map[string]string) error { return connect.ValidateStruct(userInputFrom(v)) },
			SuccessMessage: "User created",
			ResetOnSuccess: true,
		}),

		c.BindForm(ls.Form(idAccountStatus), func(v map[string]string) store.Action {
			return p.actions.Accounts.UpdateStatus(parseID(v["id"]), api.AccountStatus(v["status"]))
		}, connect.FormOptions{
			Validate: func(v map[string]string) error {
				return connect.ValidateStruct(statusInput{ID: v["id"], Status: v["status"]})
			},
			SuccessMessage: "Account updated",
		}),

		c.BindForm(ls.Form(idTransactionFilter), func(v map[string]string) store.Action {
			return p.filterTransactions(transactions.Filter{AccountID: parseID(v["account_id"]), Type: v["type"]})
		}, connect.FormOptions{
			Transform: trimValues,
			Validate: func(v map[string]string) error {
				return connect.ValidateStruct(filterInput{AccountID: v["account_id"], Type: v["type"]})
			},
		}),
	)
}

// filterTransactions stores the filter and reloads the ledger with it.
func (p *page) filterTransactions(f transactions.Filter) store.Thunk[*store.Tree] {
	return func(ctx context.Context, dispatch store.Dispatch, _ func() *store.Tree) store.Result {
		dispatch(ctx, transactions.SetFilter{Filter: f})
		r, _ := store.AsResult(dispatch(ctx, p.actions.Transactions.Fetch()))
		return r
	}
}

func (p *page) bindTables() {
	c := p.conn
	ls := p.live
	currency := p.srv.currency

	p.unsubs = append(p.unsubs,
		connect.BindTable(c, ls.Element(idProductsBody),
			func(t *store.Tree) connect.TableData[api.Product] {
				s := state.Products(t)
				return connect.TableData[api.Product]{Items: s.Filtered(), Loading: s.IsLoading, Error: s.Error}
			},
			func(pr api.Product) *vdom.VNode { return productRow(pr, currency) },
			connect.TableOptions{Columns: productColumns, EmptyMessage: "No products found"}),

		connect.BindTable(c, ls.Element(idUsersBody),
			func(t *store.Tree) connect.TableData[api.User] {
				s := state.Users(t)
				return connect.TableData[api.User]{Items: s.VisibleTo(viewer(t)), Loading: s.IsLoading, Error: s.Error}
			},
			userRow,
			connect.TableOptions{Columns: userColumns, EmptyMessage: "No users found"}),

		connect.BindTable(c, ls.Element(idAccountsBody),
			func(t *store.Tree) connect.TableData[api.Account] {
				s := state.Accounts(t)
				return connect.TableData[api.Account]{Items: s.VisibleTo(viewer(t)), Loading: s.IsLoading, Error: s.Error}
			},
			func(a api.Account) *vdom.VNode { return accountRow(a, currency) },
			connect.TableOptions{Columns: accountColumns, EmptyMessage: "No accounts found"}),

		connect.BindTable(c, ls.Element(idTransactionsBody),
			func(t *store.Tree) connect.TableData[api.Transaction] {
				s := state.Transactions(t)
				items := s.VisibleTo(viewer(t), state.Accounts(t).Items)
				return connect.TableData[api.Transaction]{Items: items, Loading: s.IsLoading, Error: s.Error}
			},
			func(tx api.Transaction) *vdom.VNode { return transactionRow(tx, currency) },
			connect.TableOptions{Columns: transactionColumns, EmptyMessage: "No transactions found"}),
	)
}

func viewer(t *store.Tree) api.User {
	if u := state.Auth(t).User; u != nil {
		return *u
	}
	return api.User{}
}

// signedIn runs after a successful login: it restores the user's
// preferences, schedules the token expiry and loads the data tables.
func (p *page) signedIn(resp *api.LoginResponse) {
	ctx := report.WithUser(p.live.Context(), resp.User)
	p.live.SetContext(ctx)

	if p.prefs != nil {
		subject := prefSubject(resp.User)
		prefs, ok, err := p.prefs.Load(ctx, subject)
		if err != nil {
			p.live.Logger().Warn("load preferences", "error", err)
		}
		if ok {
			p.store.Dispatch(ctx, ui.Hydrate{Prefs: prefs})
		}
		p.stopPrefs = p.prefs.Attach(p.store, subject)
	}

	if !resp.ExpiresAt.IsZero() {
		p.stopExpiry = p.live.Clock().AfterFunc(resp.ExpiresAt.Sub(p.srv.now()), p.expire)
	}

	// Loading runs as its own step so the sign-in patches go out first.
	p.live.Post(p.load)
}

func prefSubject(u api.User) string {
	if u.ID != 0 {
		return strconv.FormatInt(u.ID, 10)
	}
	return "user-" + u.Username
}

// load starts the table fetches off the loop. Their actions are reduced
// back on the loop as they arrive, so the page stays interactive.
func (p *page) load() {
	if !state.Auth(p.store.GetState()).IsAuthenticated {
		return
	}
	fetches := []store.Action{p.actions.Products.Fetch()}
	if users.CanManage(viewer(p.store.GetState())) {
		fetches = append(fetches, p.actions.Users.Fetch())
	}
	fetches = append(fetches, p.actions.Accounts.Fetch(), p.actions.Transactions.Fetch())

	ctx := live.Background(p.live.Context())
	for _, fetch := range fetches {
		p.store.DispatchAsync(ctx, fetch)
	}
}

func (p *page) expire() {
	s := state.Auth(p.store.GetState())
	if !s.Expired(p.srv.now()) {
		return
	}
	p.store.Dispatch(p.live.Context(), p.actions.Auth.Logout())
	toast.Warning(p.live.Context(), p.notify, ExpiredMessage)
}

// watchSession tears down per-user state when the user signs out, however
// that happened.
func (p *page) watchSession(props, _ any) {
	if authenticated, _ := props.(bool); authenticated {
		return
	}
	p.signedOut()
}

func (p *page) signedOut() {
	if p.stopPrefs != nil {
		p.stopPrefs()
		p.stopPrefs = nil
	}
	if p.stopExpiry != nil {
		p.stopExpiry()
		p.stopExpiry = nil
	}
	p.live.SetContext(context.Background())
}

func (p *page) close() {
	for _, unsub := range p.unsubs {
		unsub()
	}
	p.signedOut()
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func validateID(v map[string]string) error {
	if parseID(v["id"]) <= 0 {
		return errors.New("Invalid id")
	}
	return nil
}
