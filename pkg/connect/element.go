package connect

import (
	"sync/atomic"

	"github.com/nanacaring/cmsportal/pkg/render"
	"github.com/nanacaring/cmsportal/pkg/store"
	"github.com/nanacaring/cmsportal/pkg/toast"
	"github.com/nanacaring/cmsportal/pkg/vdom"
)

// BindElement renders selector's value into el, skipping renders when the
// value is unchanged.
func BindElement[S any, V comparable](c *Connector[S], el Element, selector func(S) V, view func(V) *vdom.VNode) (unsubscribe func()) {
	return BindElementFunc(c, el, selector, func(a, b V) bool { return a == b }, view)
}

// BindElementFunc is BindElement with a custom equality for values that are
// not comparable.
func BindElementFunc[S, V any](c *Connector[S], el Element, selector func(S) V, equal func(a, b V) bool, view func(V) *vdom.VNode) (unsubscribe func()) {
	var (
		last    V
		started bool
	)
	return c.watch(func(state S) {
		v := selector(state)
		if started && equal(last, v) {
			return
		}
		started = true
		last = v
		el.SetHTML(render.HTML(view(v)))
	})
}

// ButtonOptions configures BindButton.
type ButtonOptions[S any] struct {
	// Action builds the action dispatched on click. A nil result skips the
	// dispatch.
	Action   func(state S) store.Action
	Disabled func(state S) bool
	Label    func(state S) string
}

// BindButton dispatches opts.Action on click and keeps the button's
// disabled state and label in sync with the store.
func (c *Connector[S]) BindButton(btn ButtonElement, opts ButtonOptions[S]) (unsubscribe func()) {
	var (
		lastLabel    string
		lastDisabled bool
		started      bool
		closed       atomic.Bool
	)

	btn.OnClick(func() {
		if closed.Load() || opts.Action == nil {
			return
		}
		if action := opts.Action(c.store.GetState()); action != nil {
			c.Dispatch(action)
		}
	})

	unsub := c.watch(func(state S) {
		if opts.Disabled != nil {
			if d := opts.Disabled(state); !started || d != lastDisabled {
				lastDisabled = d
				btn.SetDisabled(d)
			}
		}
		if opts.Label != nil {
			if l := opts.Label(state); !started || l != lastLabel {
				lastLabel = l
				btn.SetHTML(render.HTML(vdom.Text(l)))
			}
		}
		started = true
	})
	return func() {
		closed.Store(true)
		unsub()
	}
}

// NotificationSystem renders the selected notifications into container and
// dispatches remove(id) when one is dismissed. Expiry is scheduled by
// whoever adds the notification.
func (c *Connector[S]) NotificationSystem(container DismissElement, selector func(S) []toast.Notification, remove func(id string) store.Action) (unsubscribe func()) {
	var closed atomic.Bool
	container.OnDismiss(func(id string) {
		if closed.Load() || id == "" {
			return
		}
		c.Dispatch(remove(id))
	})

	unsub := BindElementFunc(c, container, selector, sameNotifications, toast.RenderList)
	return func() {
		closed.Store(true)
		unsub()
	}
}

func sameNotifications(a, b []toast.Notification) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
