package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nanacaring/cmsportal/pkg/store"
)

func TestThunkBypassesReducer(t *testing.T) {
	var seen []string
	spy := func(s *counter, a store.Action) *counter {
		seen = append(seen, a.ActionType())
		return reduceCounter(s, a)
	}
	st := store.New(store.Reducer[*counter](spy), &counter{}, store.ThunkMiddleware[*counter]())

	res := st.Dispatch(context.Background(), store.Thunk[*counter](func(ctx context.Context, dispatch store.Dispatch, getState func() *counter) store.Result {
		dispatch(ctx, increment{by: 2})
		dispatch(ctx, increment{by: 3})
		return store.Success(getState().n)
	}))

	r, ok := store.AsResult(res)
	if !ok {
		t.Fatalf("expected Result from thunk dispatch, got %T", res)
	}
	if !r.OK() || r.Data != 5 {
		t.Errorf("expected successful result with 5, got %+v", r)
	}
	if len(seen) != 2 {
		t.Fatalf("expected reducer to see only the 2 plain actions, got %v", seen)
	}
	for _, typ := range seen {
		if typ == store.ThunkType {
			t.Error("expected thunk never to reach the reducer")
		}
	}
}

func TestThunkDispatchGoesThroughWholeChain(t *testing.T) {
	var logged []string
	logMW := func(api store.API[*counter]) func(store.Dispatch) store.Dispatch {
		return func(next store.Dispatch) store.Dispatch {
			return func(ctx context.Context, a store.Action) any {
				logged = append(logged, a.ActionType())
				return next(ctx, a)
			}
		}
	}
	st := newCounterStore(store.ThunkMiddleware[*counter](), logMW)

	inner := store.Thunk[*counter](func(ctx context.Context, dispatch store.Dispatch, _ func() *counter) store.Result {
		dispatch(ctx, increment{by: 1})
		return store.Success(nil)
	})
	outer := store.Thunk[*counter](func(ctx context.Context, dispatch store.Dispatch, _ func() *counter) store.Result {
		return store.Result{Data: dispatch(ctx, inner)}
	})
	st.Dispatch(context.Background(), outer)

	if len(logged) != 1 || logged[0] != "INCREMENT" {
		t.Errorf("expected only INCREMENT to reach later middleware, got %v", logged)
	}
}

func TestThunkFailureResult(t *testing.T) {
	st := newCounterStore(store.ThunkMiddleware[*counter]())
	boom := errors.New("boom")
	res := st.Dispatch(context.Background(), store.Thunk[*counter](func(context.Context, store.Dispatch, func() *counter) store.Result {
		return store.Failure(boom)
	}))
	r, _ := store.AsResult(res)
	if r.OK() || !errors.Is(r.Err, boom) {
		t.Errorf("expected failure wrapping boom, got %+v", r)
	}
}

func TestAsyncThunk(t *testing.T) {
	fetch := store.CreateAsyncAction("items/FETCH")
	var types []string
	spy := func(s *counter, a store.Action) *counter {
		types = append(types, a.ActionType())
		return reduceCounter(s, a)
	}

	t.Run("fulfilled", func(t *testing.T) {
		types = nil
		st := store.New(store.Reducer[*counter](spy), &counter{}, store.ThunkMiddleware[*counter]())
		res := st.Dispatch(context.Background(), store.AsyncThunk(fetch, func(context.Context, func() *counter) (any, error) {
			return []string{"a"}, nil
		}))
		r, _ := store.AsResult(res)
		if !r.OK() {
			t.Fatalf("expected success, got %v", r.Err)
		}
		if len(types) != 2 || types[0] != "items/FETCH_PENDING" || types[1] != "items/FETCH_FULFILLED" {
			t.Errorf("unexpected action sequence %v", types)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		types = nil
		var payload any
		st := store.New(store.Reducer[*counter](func(s *counter, a store.Action) *counter {
			if fetch.Rejected.Match(a) {
				payload = a.(store.Plain).Payload
			}
			return spy(s, a)
		}), &counter{}, store.ThunkMiddleware[*counter]())

		res := st.Dispatch(context.Background(), store.AsyncThunk(fetch, func(context.Context, func() *counter) (any, error) {
			return nil, errors.New("offline")
		}))
		r, _ := store.AsResult(res)
		if r.OK() {
			t.Fatal("expected failure")
		}
		if len(types) != 2 || types[1] != "items/FETCH_REJECTED" {
			t.Errorf("unexpected action sequence %v", types)
		}
		if payload != "offline" {
			t.Errorf("expected rejected payload 'offline', got %v", payload)
		}
	})
}

func TestCreateAction(t *testing.T) {
	setName := store.CreateAction[string]("user/SET_NAME", nil)
	a := setName.New("ada")
	if a.ActionType() != "user/SET_NAME" || a.Payload != "ada" {
		t.Errorf("unexpected action %#v", a)
	}
	if !setName.Match(a) {
		t.Error("expected creator to match its own action")
	}
	if setName.Match(increment{}) || setName.Match(nil) {
		t.Error("expected creator not to match foreign actions")
	}

	withPayload := store.CreateAction("user/SET_AGE", func(n int) any { return map[string]int{"age": n} })
	if got := withPayload.New(3).Payload.(map[string]int)["age"]; got != 3 {
		t.Errorf("expected payload creator output, got %v", got)
	}
	if withPayload.Type() != "user/SET_AGE" {
		t.Errorf("unexpected type %q", withPayload.Type())
	}
}

func TestDispatchAsyncReportsPanics(t *testing.T) {
	st := newCounterStore(store.ThunkMiddleware[*counter]())

	var mu sync.Mutex
	var reported error
	st.OnUnhandled(func(_ context.Context, err error) {
		mu.Lock()
		reported = err
		mu.Unlock()
	})

	f := st.DispatchAsync(context.Background(), store.Thunk[*counter](func(context.Context, store.Dispatch, func() *counter) store.Result {
		panic("thunk bug")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	var pe *store.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if pe.Value != "thunk bug" {
		t.Errorf("expected panic value to be kept, got %v", pe.Value)
	}

	mu.Lock()
	defer mu.Unlock()
	if reported == nil {
		t.Error("expected OnUnhandled to receive the panic")
	}
}

func TestDispatchAsyncResult(t *testing.T) {
	st := newCounterStore(store.ThunkMiddleware[*counter]())
	f := st.DispatchAsync(context.Background(), store.Thunk[*counter](func(ctx context.Context, dispatch store.Dispatch, getState func() *counter) store.Result {
		dispatch(ctx, increment{by: 4})
		return store.Success(getState().n)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r := f.Result(ctx)
	if !r.OK() || r.Data != 4 {
		t.Errorf("expected success with 4, got %+v", r)
	}

	plain := st.DispatchAsync(context.Background(), increment{by: 1}).Result(ctx)
	if !plain.OK() || plain.Data != (increment{by: 1}) {
		t.Errorf("expected plain action echoed as success, got %+v", plain)
	}
}
