package live

import (
	"context"

	"github.com/nanacaring/cmsportal/pkg/store"
)

type backgroundKey struct{}

// Background marks ctx as belonging to work running off the event loop.
// OnLoop moves plain actions dispatched with such a context onto the loop.
func Background(ctx context.Context) context.Context {
	return context.WithValue(ctx, backgroundKey{}, true)
}

// IsBackground reports whether ctx was marked by Background.
func IsBackground(ctx context.Context) bool {
	v, _ := ctx.Value(backgroundKey{}).(bool)
	return v
}

// Do runs fn on the event loop and waits for it. A panic in fn is raised
// again in the caller. Do reports false if the session closed before fn
// ran. It must not be called from the loop itself.
func (s *Session) Do(fn func()) bool {
	ran := make(chan any, 1)
	ok := s.Post(func() {
		defer func() { ran <- recover() }()
		fn()
	})
	if !ok {
		return false
	}
	select {
	case r := <-ran:
		if r != nil {
			panic(r)
		}
		return true
	case <-s.done:
		return false
	}
}

// Go runs work on a new goroutine with a Background context and then runs
// done on the event loop. A panic in work is reported like a handler panic
// and done still runs.
func (s *Session) Go(work func(ctx context.Context), done func()) {
	ctx := Background(s.Context())
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := s.recovered(r)
				s.Post(func() { s.notifyPanic(err) })
			}
			if done != nil {
				s.Post(done)
			}
		}()
		work(ctx)
	}()
}

// OnLoop returns store middleware that runs plain actions dispatched with a
// Background context on s's event loop, so reducers and listeners never
// run concurrently with event handlers. Thunks keep running where they were
// dispatched. Install it after store.ThunkMiddleware.
func OnLoop[S any](s *Session) store.Middleware[S] {
	return func(store.API[S]) func(next store.Dispatch) store.Dispatch {
		return func(next store.Dispatch) store.Dispatch {
			return func(ctx context.Context, action store.Action) any {
				if !IsBackground(ctx) {
					return next(ctx, action)
				}
				var out any
				if !s.Do(func() {
					out = next(context.WithValue(ctx, backgroundKey{}, false), action)
				}) {
					return nil
				}
				return out
			}
		}
	}
}
