// Package ui is the presentation slice: theme, sidebar, toasts and the
// open modal.
package ui

import (
	"context"
	"slices"
	"time"

	"github.com/nanacaring/cmsportal/internal/state/slice"
	"github.com/nanacaring/cmsportal/pkg/store"
	"github.com/nanacaring/cmsportal/pkg/toast"
)

const Name = "ui"

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	SidebarExpanded  = "expanded"
	SidebarCollapsed = "collapsed"
)

// Prefs is the persisted part of the slice.
type Prefs struct {
	Theme   string `json:"theme"`
	Sidebar string `json:"sidebar"`
}

// Modal is the open dialog.
type Modal struct {
	ID    string
	Props map[string]string
}

type State struct {
	Theme         string
	Sidebar       string
	Notifications []toast.Notification
	Modal         *Modal
}

func Initial() *State {
	return &State{Theme: ThemeLight, Sidebar: SidebarExpanded}
}

func From(t *store.Tree) *State {
	if s := store.Select[*State](t, Name); s != nil {
		return s
	}
	return Initial()
}

// Prefs returns the persisted projection of s.
func (s *State) Prefs() Prefs {
	return Prefs{Theme: s.Theme, Sidebar: s.Sidebar}
}

type Action interface {
	store.Action
	uiAction()
}

type (
	SetTheme           struct{ Theme string }
	ToggleSidebar      struct{}
	SetSidebar         struct{ Sidebar string }
	AddNotification    struct{ Notification toast.Notification }
	RemoveNotification struct{ ID string }
	OpenModal          struct {
		ID    string
		Props map[string]string
	}
	CloseModal struct{}
	Hydrate    struct{ Prefs Prefs }
)

func (SetTheme) ActionType() string           { return "UI_SET_THEME" }
func (ToggleSidebar) ActionType() string      { return "UI_TOGGLE_SIDEBAR" }
func (SetSidebar) ActionType() string         { return "UI_SET_SIDEBAR" }
func (AddNotification) ActionType() string    { return "UI_ADD_NOTIFICATION" }
func (RemoveNotification) ActionType() string { return "UI_REMOVE_NOTIFICATION" }
func (OpenModal) ActionType() string          { return "UI_OPEN_MODAL" }
func (CloseModal) ActionType() string         { return "UI_CLOSE_MODAL" }
func (Hydrate) ActionType() string            { return "UI_HYDRATE" }

func (SetTheme) uiAction()           {}
func (ToggleSidebar) uiAction()      {}
func (SetSidebar) uiAction()         {}
func (AddNotification) uiAction()    {}
func (RemoveNotification) uiAction() {}
func (OpenModal) uiAction()          {}
func (CloseModal) uiAction()         {}
func (Hydrate) uiAction()            {}

func validTheme(t string) bool   { return t == ThemeLight || t == ThemeDark }
func validSidebar(s string) bool { return s == SidebarExpanded || s == SidebarCollapsed }

func Reduce(s *State, a store.Action) *State {
	if s == nil {
		s = Initial()
	}
	act, ok := a.(Action)
	if !ok {
		return s
	}

	next := *s
	switch act := act.(type) {
	case SetTheme:
		if !validTheme(act.Theme) || act.Theme == s.Theme {
			return s
		}
		next.Theme = act.Theme
	case ToggleSidebar:
		if s.Sidebar == SidebarCollapsed {
			next.Sidebar = SidebarExpanded
		} else {
			next.Sidebar = SidebarCollapsed
		}
	case SetSidebar:
		if !validSidebar(act.Sidebar) || act.Sidebar == s.Sidebar {
			return s
		}
		next.Sidebar = act.Sidebar
	case AddNotification:
		next.Notifications = append(slices.Clip(s.Notifications), act.Notification)
	case RemoveNotification:
		i := slices.IndexFunc(s.Notifications, func(n toast.Notification) bool { return n.ID == act.ID })
		if i < 0 {
			return s
		}
		next.Notifications = slices.Delete(slices.Clone(s.Notifications), i, i+1)
	case OpenModal:
		next.Modal = &Modal{ID: act.ID, Props: act.Props}
	case CloseModal:
		if s.Modal == nil {
			return s
		}
		next.Modal = nil
	case Hydrate:
		changed := false
		if validTheme(act.Prefs.Theme) && act.Prefs.Theme != s.Theme {
			next.Theme, changed = act.Prefs.Theme, true
		}
		if validSidebar(act.Prefs.Sidebar) && act.Prefs.Sidebar != s.Sidebar {
			next.Sidebar, changed = act.Prefs.Sidebar, true
		}
		if !changed {
			return s
		}
	default:
		return s
	}
	return &next
}

// Clock schedules callbacks. Live sessions supply one that runs callbacks
// on the session's event loop.
type Clock interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SystemClock schedules with time.AfterFunc.
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Notifier adds notifications that remove themselves after their duration.
type Notifier struct {
	Clock Clock
}

func (n Notifier) clock() Clock {
	if n.Clock != nil {
		return n.Clock
	}
	return SystemClock{}
}

// Add shows message and schedules its removal. A non-positive duration
// uses toast.DefaultDuration. The Result carries the notification id.
func (n Notifier) Add(message string, level toast.Type, duration time.Duration) slice.Thunk {
	return func(ctx context.Context, dispatch store.Dispatch, _ func() slice.State) store.Result {
		note := toast.New(level, message, duration)
		dispatch(ctx, AddNotification{Notification: note})

		removeCtx := context.WithoutCancel(ctx)
		n.clock().AfterFunc(note.Duration, func() {
			dispatch(removeCtx, RemoveNotification{ID: note.ID})
		})
		return store.Success(note.ID)
	}
}

// Remove dismisses a notification.
func (Notifier) Remove(id string) store.Action {
	return RemoveNotification{ID: id}
}

// For returns a toast.Notifier that dispatches through dispatch.
func (n Notifier) For(dispatch store.Dispatch) toast.Notifier {
	return toast.NotifierFunc(func(ctx context.Context, level toast.Type, message string, d time.Duration) {
		dispatch(ctx, n.Add(message, level, d))
	})
}
