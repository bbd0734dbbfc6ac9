package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nanacaring/cmsportal/pkg/store"
)

// Default tracer name for store spans.
const defaultTracerName = "cmsportal/store"

// TraceConfig configures the tracing middleware.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "cmsportal/store").
	TracerName string

	// TracerProvider overrides the global provider. Mostly for tests.
	TracerProvider trace.TracerProvider

	// Filter determines which actions to trace.
	// Return true to trace the action. If nil, all actions are traced.
	Filter func(action store.Action) bool

	// AttributeExtractor adds custom attributes per action.
	AttributeExtractor func(action store.Action) []attribute.KeyValue
}

// TraceOption configures the tracing middleware.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(c *TraceConfig) {
		c.TracerProvider = tp
	}
}

// WithActionFilter sets a filter function for actions.
func WithActionFilter(filter func(action store.Action) bool) TraceOption {
	return func(c *TraceConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(action store.Action) []attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.AttributeExtractor = extractor
	}
}

// Tracing returns store middleware that opens a span around every plain
// action. The span context is passed down the chain so that actions
// dispatched from listeners nest under it. A panic is recorded on the span
// and re-raised.
func Tracing[S any](opts ...TraceOption) store.Middleware[S] {
	config := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return func(api store.API[S]) func(next store.Dispatch) store.Dispatch {
		return func(next store.Dispatch) store.Dispatch {
			return func(ctx context.Context, action store.Action) any {
				if config.Filter != nil && !config.Filter(action) {
					return next(ctx, action)
				}

				typ := action.ActionType()
				attrs := []attribute.KeyValue{
					attribute.String("store.action", typ),
				}
				if config.AttributeExtractor != nil {
					attrs = append(attrs, config.AttributeExtractor(action)...)
				}

				spanCtx, span := tracer.Start(ctx, "store.dispatch "+typ,
					trace.WithSpanKind(trace.SpanKindInternal),
					trace.WithAttributes(attrs...),
				)
				defer span.End()

				defer func() {
					if r := recover(); r != nil {
						err := fmt.Errorf("dispatch %s panicked: %v", typ, r)
						span.RecordError(err)
						span.SetStatus(codes.Error, err.Error())
						panic(r)
					}
				}()

				result := next(spanCtx, action)
				span.SetStatus(codes.Ok, "")
				return result
			}
		}
	}
}

// SpanFromContext returns the span of the dispatch in progress, if any.
func SpanFromContext(ctx context.Context) trace.Span {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() && !span.IsRecording() {
		return nil
	}
	return span
}
