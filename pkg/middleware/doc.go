// Package middleware provides observability middleware for stores.
//
// This package includes:
//   - Prometheus metrics for dispatched actions and live sessions
//   - OpenTelemetry tracing of dispatched actions
//
// # Prometheus Metrics
//
// A Collector is created once per process and shared by every store:
//
//	metrics := middleware.NewCollector(middleware.WithRegistry(reg))
//
//	st := store.New(root, nil,
//	    store.ThunkMiddleware[*store.Tree](),
//	    middleware.Observe[*store.Tree](metrics),
//	)
//
// Collected series (default namespace "cmsportal"):
//   - cmsportal_actions_total: dispatched plain actions by type and status
//   - cmsportal_dispatch_duration_seconds: reducer plus listener time by type
//   - cmsportal_active_sessions: open live sessions
//   - cmsportal_patches_sent_total: patches written to browsers
//   - cmsportal_websocket_errors_total: websocket failures by kind
//   - cmsportal_unhandled_errors_total: panics recovered outside dispatch
//
// # OpenTelemetry
//
// Tracing opens one span per plain action:
//
//	middleware.Tracing[*store.Tree](middleware.WithTracerName("cmsportal"))
//
// The tracer comes from the global provider; configure it in main.
//
// Both middlewares belong after store.ThunkMiddleware so that they observe
// the plain actions a thunk dispatches and never the thunk itself.
package middleware
