package toast

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nanacaring/cmsportal/pkg/vdom"
)

// DefaultDuration is how long a notification stays visible when no
// duration is given.
const DefaultDuration = 5000 * time.Millisecond

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeSuccess, TypeError, TypeWarning, TypeInfo:
		return true
	}
	return false
}

// Notification is a single toast.
type Notification struct {
	ID        string
	Level     Type
	Title     string
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// New creates a notification with a fresh id. Unknown levels become info
// and a non-positive duration becomes DefaultDuration.
func New(level Type, message string, duration time.Duration) Notification {
	if !level.Valid() {
		level = TypeInfo
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Duration:  duration,
		CreatedAt: time.Now(),
	}
}

// Notifier shows notifications to the current user.
type Notifier interface {
	Notify(ctx context.Context, level Type, message string, duration time.Duration)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, level Type, message string, duration time.Duration)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, level Type, message string, duration time.Duration) {
	f(ctx, level, message, duration)
}

// Show displays a toast with the default duration. A nil notifier is a
// no-op.
func Show(ctx context.Context, n Notifier, level Type, message string) {
	if n == nil {
		return
	}
	n.Notify(ctx, level, message, DefaultDuration)
}

// Success shows a success toast.
//
//	toast.Success(ctx, n, "Changes saved!")
func Success(ctx context.Context, n Notifier, message string) {
	Show(ctx, n, TypeSuccess, message)
}

// Error shows an error toast.
//
//	toast.Error(ctx, n, "Failed to delete item")
func Error(ctx context.Context, n Notifier, message string) {
	Show(ctx, n, TypeError, message)
}

// Warning shows a warning toast.
func Warning(ctx context.Context, n Notifier, message string) {
	Show(ctx, n, TypeWarning, message)
}

// Info shows an info toast.
func Info(ctx context.Context, n Notifier, message string) {
	Show(ctx, n, TypeInfo, message)
}

// Render renders one notification.
func Render(n Notification) *vdom.VNode {
	var title *vdom.VNode
	if n.Title != "" {
		title = vdom.Strong(n.Title)
	}
	return vdom.Li(
		vdom.Key(n.ID),
		vdom.Class("toast", "toast-"+string(n.Level)),
		vdom.Role("status"),
		title,
		vdom.Span(n.Message),
		vdom.Button(vdom.Type("button"), vdom.Class("toast-dismiss"), vdom.Data("toast", n.ID), "×"),
	)
}

// RenderList renders the notification container contents.
func RenderList(ns []Notification) *vdom.VNode {
	items := make([]*vdom.VNode, 0, len(ns))
	for _, n := range ns {
		items = append(items, Render(n))
	}
	return vdom.Ul(vdom.Class("toasts"), vdom.AriaLive("polite"), items)
}
