package store

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Dispatch sends an action through a store's middleware chain.
// It returns the dispatched action, or whatever a middleware returned in its
// place (a Result for thunks).
type Dispatch func(ctx context.Context, action Action) any

// Reducer computes the next state from the current state and an action.
// It must return state unchanged for actions it does not handle.
type Reducer[S any] func(state S, action Action) S

// Listener is notified with the new state after every dispatch.
type Listener[S any] func(state S)

// API is the view of a store handed to middleware.
type API[S any] interface {
	Dispatch(ctx context.Context, action Action) any
	GetState() S
}

// Middleware intercepts dispatch. Middleware is composed left to right:
// the first middleware sees an action first.
type Middleware[S any] func(api API[S]) func(next Dispatch) Dispatch

// UnhandledFunc receives failures that escaped an asynchronous dispatch.
type UnhandledFunc func(ctx context.Context, err error)

type subscription[S any] struct {
	fn      Listener[S]
	removed atomic.Bool
}

// Store holds the current state and coordinates dispatch and subscription.
// It is safe for concurrent use, but dispatch is designed to be driven from
// one goroutine; see the package documentation on reentrancy.
type Store[S any] struct {
	mu        sync.Mutex
	reducer   Reducer[S]
	state     S
	version   uint64
	listeners []*subscription[S]

	dispatch  Dispatch
	running   atomic.Bool
	unhandled atomic.Pointer[UnhandledFunc]
}

// New creates a store with the given root reducer, initial state and
// middleware chain.
func New[S any](reducer Reducer[S], initial S, middlewares ...Middleware[S]) *Store[S] {
	if reducer == nil {
		panic("store: nil reducer")
	}
	s := &Store[S]{
		reducer: reducer,
		state:   initial,
	}

	// Middleware may capture the API during construction but must not
	// dispatch through it until the chain is complete.
	s.dispatch = func(context.Context, Action) any {
		panic("store: dispatch called while constructing middleware")
	}

	chain := make([]func(Dispatch) Dispatch, 0, len(middlewares))
	for _, mw := range middlewares {
		if mw == nil {
			continue
		}
		chain = append(chain, mw(s))
	}

	dispatch := Dispatch(s.baseDispatch)
	for i := len(chain) - 1; i >= 0; i-- {
		dispatch = chain[i](dispatch)
	}
	s.dispatch = dispatch
	s.running.Store(true)
	return s
}

// GetState returns the current state. The value is shared; callers must
// treat it as read-only.
func (s *Store[S]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch sends action through the middleware chain.
func (s *Store[S]) Dispatch(ctx context.Context, action Action) any {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.dispatch(ctx, action)
}

// Running reports whether construction has finished.
func (s *Store[S]) Running() bool {
	return s.running.Load()
}

// Subscribe registers listener and returns a function that removes exactly
// this registration. Registering the same function twice yields two
// independent registrations.
func (s *Store[S]) Subscribe(listener Listener[S]) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}
	sub := &subscription[S]{fn: listener}

	s.mu.Lock()
	s.listeners = append(s.listeners, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.removed.Store(true)
			s.mu.Lock()
			defer s.mu.Unlock()
			if i := slices.Index(s.listeners, sub); i >= 0 {
				s.listeners = slices.Delete(s.listeners, i, i+1)
			}
		})
	}
}

// OnUnhandled sets the handler for panics escaping DispatchAsync.
func (s *Store[S]) OnUnhandled(fn UnhandledFunc) {
	if fn == nil {
		s.unhandled.Store(nil)
		return
	}
	s.unhandled.Store(&fn)
}

func (s *Store[S]) reportUnhandled(ctx context.Context, err error) bool {
	fn := s.unhandled.Load()
	if fn == nil {
		return false
	}
	(*fn)(ctx, err)
	return true
}

// baseDispatch is the end of the middleware chain. Each listener receives
// the state current when it is called, so listeners after one that
// dispatched see the result of the nested dispatch.
func (s *Store[S]) baseDispatch(ctx context.Context, action Action) any {
	if action == nil {
		panic("store: nil action")
	}
	if _, ok := action.(thunk); ok {
		panic(ErrNotPlain)
	}

	listeners := s.reduce(action)
	for _, sub := range listeners {
		if sub.removed.Load() {
			continue
		}
		sub.fn(s.GetState())
	}
	return action
}

// reduce runs the reducer without holding the lock, so a reducer may call
// GetState or Dispatch. If the state moved while the reducer ran, it is
// run again on the newer state; reducers are pure, so only the last run
// counts. A panicking reducer leaves the state untouched.
func (s *Store[S]) reduce(action Action) []*subscription[S] {
	for {
		s.mu.Lock()
		current, version := s.state, s.version
		s.mu.Unlock()

		next := s.reducer(current, action)

		s.mu.Lock()
		if s.version == version {
			s.state = next
			s.version++
			listeners := slices.Clone(s.listeners)
			s.mu.Unlock()
			return listeners
		}
		s.mu.Unlock()
	}
}
