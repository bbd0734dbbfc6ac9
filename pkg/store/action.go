package store

import "errors"

// Action describes an intended state change. Its type string routes it in
// reducers and must be unique across the application.
type Action interface {
	ActionType() string
}

// Plain is an untyped action carrying an arbitrary payload.
// Prefer per-slice action types; Plain is what CreateAction produces.
type Plain struct {
	Type    string
	Payload any
}

// ActionType implements Action.
func (p Plain) ActionType() string { return p.Type }

// ActionCreator builds Plain actions of a single type.
type ActionCreator[P any] struct {
	typ     string
	payload func(P) any
}

// CreateAction returns a creator for actions of the given type. When
// payloadCreator is nil the argument itself becomes the payload.
func CreateAction[P any](typ string, payloadCreator func(P) any) ActionCreator[P] {
	return ActionCreator[P]{typ: typ, payload: payloadCreator}
}

// Type returns the action type produced by this creator.
func (c ActionCreator[P]) Type() string { return c.typ }

// New builds an action from arg.
func (c ActionCreator[P]) New(arg P) Plain {
	if c.payload == nil {
		return Plain{Type: c.typ, Payload: arg}
	}
	return Plain{Type: c.typ, Payload: c.payload(arg)}
}

// Match reports whether a was produced by this creator.
func (c ActionCreator[P]) Match(a Action) bool {
	return a != nil && a.ActionType() == c.typ
}

// Suffixes appended by CreateAsyncAction.
const (
	PendingSuffix   = "_PENDING"
	FulfilledSuffix = "_FULFILLED"
	RejectedSuffix  = "_REJECTED"
)

// AsyncAction is the pending/fulfilled/rejected triplet of an async
// operation.
type AsyncAction struct {
	Pending   ActionCreator[struct{}]
	Fulfilled ActionCreator[any]
	Rejected  ActionCreator[error]
}

// CreateAsyncAction returns the triplet of creators for prefix. The rejected
// payload is the error message, not the error value, so that it can be
// logged and compared.
func CreateAsyncAction(prefix string) AsyncAction {
	return AsyncAction{
		Pending:   CreateAction(prefix+PendingSuffix, func(struct{}) any { return nil }),
		Fulfilled: CreateAction[any](prefix+FulfilledSuffix, nil),
		Rejected: CreateAction(prefix+RejectedSuffix, func(err error) any {
			if err == nil {
				return ""
			}
			return err.Error()
		}),
	}
}

// ErrNotPlain is the panic value when a Thunk reaches the reducer, which
// happens when ThunkMiddleware is not installed.
var ErrNotPlain = errors.New("store: thunk dispatched without ThunkMiddleware")
