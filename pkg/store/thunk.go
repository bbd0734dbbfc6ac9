package store

import (
	"context"
	"fmt"
	"runtime/debug"
)

// ThunkType is the action type reported by every Thunk.
const ThunkType = "@@store/THUNK"

// thunk marks Thunk values of any state type.
type thunk interface {
	isThunk()
}

// Thunk is an action that runs deferred work with access to dispatch and
// the current state. Thunks must catch their own failures and report them
// in the returned Result.
type Thunk[S any] func(ctx context.Context, dispatch Dispatch, getState func() S) Result

// ActionType implements Action.
func (Thunk[S]) ActionType() string { return ThunkType }

func (Thunk[S]) isThunk() {}

// Result is the outcome of a thunk.
type Result struct {
	Data any
	Err  error
}

// OK reports whether the thunk succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Success returns a successful Result.
func Success(data any) Result { return Result{Data: data} }

// Failure returns a failed Result.
func Failure(err error) Result { return Result{Err: err} }

// AsResult extracts a Result from a Dispatch return value.
func AsResult(v any) (Result, bool) {
	r, ok := v.(Result)
	return r, ok
}

// ThunkMiddleware runs Thunk actions instead of forwarding them. The thunk
// receives the fully wrapped dispatch, so the actions it dispatches pass
// through the whole chain. Thunks never reach next.
func ThunkMiddleware[S any]() Middleware[S] {
	return func(api API[S]) func(next Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(ctx context.Context, action Action) any {
				if t, ok := action.(Thunk[S]); ok {
					return t(ctx, api.Dispatch, api.GetState)
				}
				return next(ctx, action)
			}
		}
	}
}

// AsyncThunk builds a Thunk around a, dispatching the pending action, then
// fulfilled with the data or rejected with the error returned by do.
func AsyncThunk[S any](a AsyncAction, do func(ctx context.Context, getState func() S) (any, error)) Thunk[S] {
	return func(ctx context.Context, dispatch Dispatch, getState func() S) Result {
		dispatch(ctx, a.Pending.New(struct{}{}))
		data, err := do(ctx, getState)
		if err != nil {
			dispatch(ctx, a.Rejected.New(err))
			return Failure(err)
		}
		dispatch(ctx, a.Fulfilled.New(data))
		return Success(data)
	}
}

// PanicError wraps a value recovered from a panicking dispatch.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("store: dispatch panicked: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Future is the pending outcome of DispatchAsync.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Done is closed when the dispatch has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the dispatch finishes or ctx is done. A panic inside the
// dispatch is returned as a *PanicError.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result waits for the dispatch and converts its value to a Result. Panics
// and non-Result values are reported as failures and successes respectively.
func (f *Future) Result(ctx context.Context) Result {
	v, err := f.Wait(ctx)
	if err != nil {
		return Failure(err)
	}
	if r, ok := AsResult(v); ok {
		return r
	}
	return Success(v)
}

// DispatchAsync runs Dispatch on a new goroutine. A panic is recovered,
// passed to the OnUnhandled handler and stored in the Future.
func (s *Store[S]) DispatchAsync(ctx context.Context, action Action) *Future {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = &PanicError{Value: r, Stack: debug.Stack()}
				s.reportUnhandled(ctx, f.err)
			}
		}()
		f.value = s.Dispatch(ctx, action)
	}()
	return f
}
