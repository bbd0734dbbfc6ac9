// Package connect binds store state to UI elements.
//
// The portal renders server side, so elements here are small interfaces:
// something that can take new HTML, a button that can be disabled and
// clicked, a form that can be submitted and reset. The live session
// implements them by sending patches to the browser; tests implement them
// with plain structs.
//
// Every binding subscribes to the store and returns its unsubscribe
// function. Bindings render once immediately and then on every dispatch.
//
//	c := connect.New(st, connect.WithNotifier(notifier))
//	defer c.BindForm(loginForm, loginAction, connect.FormOptions{
//	    SuccessMessage: "Welcome back",
//	    ResetOnSuccess: true,
//	})()
package connect
