// Package slice holds helpers shared by the state slices.
package slice

import (
	"context"
	"errors"
	"reflect"

	"github.com/nanacaring/cmsportal/pkg/store"
)

// ErrEmptyResponse is returned when the backend answers a create or update
// without the record.
var ErrEmptyResponse = errors.New("empty response from server")

// State is the root state every slice thunk runs against.
type State = *store.Tree

// Thunk is a thunk over the root state.
type Thunk = store.Thunk[State]

// Request runs the start/success/failure sequence shared by every async
// slice operation: start is dispatched, do runs, and then either
// success(value) or failure(err) is dispatched. The outcome is returned as
// a Result so form bindings can react to it.
func Request[T any](start store.Action, do func(ctx context.Context, state State) (T, error), success func(T) store.Action, failure func(error) store.Action) Thunk {
	return func(ctx context.Context, dispatch store.Dispatch, getState func() State) store.Result {
		if start != nil {
			dispatch(ctx, start)
		}
		v, err := do(ctx, getState())
		if err != nil {
			dispatch(ctx, failure(err))
			return store.Failure(err)
		}
		dispatch(ctx, success(v))
		return store.Success(v)
	}
}

// ErrorMessage converts err to the message stored in a slice.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Required dereferences a record returned by the backend. A nil record
// with no error becomes ErrEmptyResponse.
func Required[T any](v *T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, ErrEmptyResponse
	}
	return *v, nil
}

// Reset returns s when it already equals initial() and a fresh initial
// state otherwise, so resetting an empty slice keeps its reference.
func Reset[S any](s *S, initial func() *S) *S {
	fresh := initial()
	if s != nil && reflect.DeepEqual(*s, *fresh) {
		return s
	}
	return fresh
}
