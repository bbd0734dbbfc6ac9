package connect

import (
	"context"
	"log/slog"

	"github.com/nanacaring/cmsportal/pkg/store"
	"github.com/nanacaring/cmsportal/pkg/toast"
)

// Element is anything whose content can be replaced with HTML.
type Element interface {
	SetHTML(html string)
}

// ButtonElement is a clickable element.
type ButtonElement interface {
	Element
	SetDisabled(disabled bool)
	OnClick(handler func())
}

// FormElement is a form whose submissions deliver its field values.
type FormElement interface {
	OnSubmit(handler func(values map[string]string))
	Reset()
	SetBusy(busy bool)
}

// DismissElement is a container whose children can be dismissed by id.
type DismissElement interface {
	Element
	OnDismiss(handler func(id string))
}

// Component receives projected props and actions on every state change.
// Update must be idempotent.
type Component interface {
	Update(props, actions any)
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(props, actions any)

// Update implements Component.
func (f ComponentFunc) Update(props, actions any) { f(props, actions) }

// Runner runs slow work away from the caller. work receives the context
// to dispatch with; done runs where bindings are allowed to touch their
// elements again.
type Runner interface {
	Go(work func(ctx context.Context), done func())
}

type config struct {
	ctx      context.Context
	notifier toast.Notifier
	logger   *slog.Logger
	runner   Runner
}

// Option configures a Connector.
type Option func(*config)

// WithContext sets the context used for dispatches made by bindings.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithNotifier sets where form bindings send success and error toasts.
func WithNotifier(n toast.Notifier) Option {
	return func(c *config) {
		c.notifier = n
	}
}

// WithLogger sets the logger for binding failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRunner makes form bindings dispatch through r instead of blocking
// the submit handler until the dispatch returns.
func WithRunner(r Runner) Option {
	return func(c *config) {
		c.runner = r
	}
}

// Connector creates bindings against one store.
type Connector[S any] struct {
	store    *store.Store[S]
	ctx      context.Context
	notifier toast.Notifier
	logger   *slog.Logger
	runner   Runner
}

// New creates a Connector for st.
func New[S any](st *store.Store[S], opts ...Option) *Connector[S] {
	cfg := config{
		ctx:    context.Background(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Connector[S]{
		store:    st,
		ctx:      cfg.ctx,
		notifier: cfg.notifier,
		logger:   cfg.logger,
		runner:   cfg.runner,
	}
}

// Store returns the connected store.
func (c *Connector[S]) Store() *store.Store[S] { return c.store }

// Dispatch sends action to the store with the connector's context.
func (c *Connector[S]) Dispatch(action store.Action) any {
	return c.store.Dispatch(c.ctx, action)
}

func (c *Connector[S]) dispatcher() store.Dispatch {
	return func(ctx context.Context, action store.Action) any {
		if ctx == nil {
			ctx = c.ctx
		}
		return c.store.Dispatch(ctx, action)
	}
}

// watch calls fn with the current state and after every dispatch.
func (c *Connector[S]) watch(fn func(S)) (unsubscribe func()) {
	unsubscribe = c.store.Subscribe(fn)
	fn(c.store.GetState())
	return unsubscribe
}

// Connect calls component.Update with mapState's props and mapDispatch's
// actions now and after every dispatch. Either mapper may be nil.
func (c *Connector[S]) Connect(component Component, mapState func(S) any, mapDispatch func(store.Dispatch) any) (unsubscribe func()) {
	dispatch := c.dispatcher()
	return c.watch(func(state S) {
		var props, actions any
		if mapState != nil {
			props = mapState(state)
		}
		if mapDispatch != nil {
			actions = mapDispatch(dispatch)
		}
		component.Update(props, actions)
	})
}

func (c *Connector[S]) notify(level toast.Type, message string) {
	if message == "" {
		return
	}
	toast.Show(c.ctx, c.notifier, level, message)
}
