package connect

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime/debug"
	"sync/atomic"

	"github.com/nanacaring/cmsportal/pkg/store"
	"github.com/nanacaring/cmsportal/pkg/toast"
)

// DefaultErrorMessage is shown when a form submission fails and no
// ErrorMessage is configured.
const DefaultErrorMessage = "Something went wrong. Please try again."

// FormOptions configures BindForm.
type FormOptions struct {
	// Transform rewrites the submitted values before validation.
	Transform func(values map[string]string) map[string]string
	// Validate rejects values before anything is dispatched.
	Validate func(values map[string]string) error

	SuccessMessage string
	ErrorMessage   string
	ResetOnSuccess bool

	OnSuccess func(result store.Result)
	OnError   func(err error)
}

// BindForm dispatches create(values) on every submission of form.
//
// A dispatch that returns a failed Result, a validation error and a panic
// are all treated as failures: OnError is called and an error toast is
// shown. The form's busy flag is cleared on every path. With a Runner the
// dispatch runs through it and the outcome is handled in its done step.
func (c *Connector[S]) BindForm(form FormElement, create func(values map[string]string) store.Action, opts FormOptions) (unsubscribe func()) {
	var closed atomic.Bool

	form.OnSubmit(func(values map[string]string) {
		if closed.Load() {
			return
		}
		form.SetBusy(true)

		action, err := c.prepare(maps.Clone(values), create, opts)
		if err != nil || c.runner == nil {
			var result store.Result
			if err == nil {
				result, err = c.submit(c.ctx, action)
			}
			c.finish(form, opts, result, err)
			return
		}

		var (
			result    store.Result
			submitErr error
		)
		c.runner.Go(func(ctx context.Context) {
			result, submitErr = c.submit(ctx, action)
		}, func() {
			c.finish(form, opts, result, submitErr)
		})
	})

	return func() { closed.Store(true) }
}

// finish reports the outcome of a submission and clears the busy flag.
func (c *Connector[S]) finish(form FormElement, opts FormOptions, result store.Result, err error) {
	defer form.SetBusy(false)

	if err != nil {
		c.logger.Warn("form submit failed", "error", err)
		if opts.OnError != nil {
			opts.OnError(err)
		}
		msg := opts.ErrorMessage
		if msg == "" {
			msg = DefaultErrorMessage
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			msg = verr.Error()
		}
		c.notify(toast.TypeError, msg)
		return
	}

	if opts.OnSuccess != nil {
		opts.OnSuccess(result)
	}
	c.notify(toast.TypeSuccess, opts.SuccessMessage)
	if opts.ResetOnSuccess {
		form.Reset()
	}
}

// prepare transforms and validates values and builds the action.
func (c *Connector[S]) prepare(values map[string]string, create func(map[string]string) store.Action, opts FormOptions) (action store.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &store.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	if values == nil {
		values = map[string]string{}
	}
	if opts.Transform != nil {
		values = opts.Transform(values)
	}
	if opts.Validate != nil {
		if err := opts.Validate(values); err != nil {
			return nil, err
		}
	}

	action = create(values)
	if action == nil {
		return nil, fmt.Errorf("connect: form action creator returned nil")
	}
	return action, nil
}

func (c *Connector[S]) submit(ctx context.Context, action store.Action) (result store.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &store.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	v := c.store.Dispatch(ctx, action)
	if r, ok := store.AsResult(v); ok {
		return r, r.Err
	}
	return store.Success(v), nil
}
