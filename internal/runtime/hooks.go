package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
)

// RequestContext provides information about an intercepted request to hooks.
type RequestContext struct {
	// Method and URL of the intercepted request.
	Method string
	URL    string
	// Endpoint is the name of the matched endpoint, empty when unhandled.
	Endpoint string
	// CorrelationID is set once the request has been mocked.
	CorrelationID string
	// Status is the status sent back, 0 when the request failed.
	Status int
	// Context is the context of the intercepted request.
	Context context.Context
	// StartedAt is when interception began.
	StartedAt time.Time
	// Duration is set in OnMocked and OnBypass.
	Duration time.Duration
}

// RequestHooks defines callbacks for the request lifecycle.
// All hooks are optional - nil hooks are simply not called.
type RequestHooks struct {
	// OnRequestStart is called before the registry is consulted.
	OnRequestStart func(ctx RequestContext)

	// OnMocked is called after a mocked response was sent.
	OnMocked func(ctx RequestContext)

	// OnUnhandled is called when no endpoint matched.
	OnUnhandled func(ctx RequestContext)

	// OnBypass is called after a request went to the real network, either
	// because it was unhandled or because its endpoint passed it through.
	OnBypass func(ctx RequestContext, err error)
}

// Merge combines two RequestHooks, creating a new RequestHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h RequestHooks) Merge(other RequestHooks) RequestHooks {
	return RequestHooks{
		OnRequestStart: chainHooks(h.OnRequestStart, other.OnRequestStart),
		OnMocked:       chainHooks(h.OnMocked, other.OnMocked),
		OnUnhandled:    chainHooks(h.OnUnhandled, other.OnUnhandled),
		OnBypass:       chainBypassHooks(h.OnBypass, other.OnBypass),
	}
}

func chainHooks(a, b func(RequestContext)) func(RequestContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx RequestContext) {
		a(ctx)
		b(ctx)
	}
}

func chainBypassHooks(a, b func(RequestContext, error)) func(RequestContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx RequestContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

func (h RequestHooks) requestStart(ctx RequestContext) {
	if h.OnRequestStart != nil {
		h.OnRequestStart(ctx)
	}
}

func (h RequestHooks) mocked(ctx RequestContext) {
	if h.OnMocked != nil {
		h.OnMocked(ctx)
	}
}

func (h RequestHooks) unhandled(ctx RequestContext) {
	if h.OnUnhandled != nil {
		h.OnUnhandled(ctx)
	}
}

func (h RequestHooks) bypass(ctx RequestContext, err error) {
	if h.OnBypass != nil {
		h.OnBypass(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log the request lifecycle.
func LoggingHooks(logger loggingpkg.ServiceLogger) RequestHooks {
	return RequestHooks{
		OnMocked: func(ctx RequestContext) {
			logger.Info("Request mocked", loggingpkg.LogFields{
				"endpoint":       ctx.Endpoint,
				"method":         ctx.Method,
				"url":            ctx.URL,
				"status":         ctx.Status,
				"correlation_id": ctx.CorrelationID,
				"duration_ms":    ctx.Duration.Milliseconds(),
			})
		},
		OnUnhandled: func(ctx RequestContext) {
			logger.Info("Request unhandled", loggingpkg.LogFields{
				"method": ctx.Method,
				"url":    ctx.URL,
			})
		},
		OnBypass: func(ctx RequestContext, err error) {
			fields := loggingpkg.LogFields{
				"endpoint":    ctx.Endpoint,
				"method":      ctx.Method,
				"url":         ctx.URL,
				"status":      ctx.Status,
				"duration_ms": ctx.Duration.Milliseconds(),
			}
			if err != nil {
				logger.Error("Bypassed request failed", err, fields)
				return
			}
			logger.Info("Request bypassed", fields)
		},
	}
}

// CountingHooks returns pre-built hooks that report lifecycle events to
// plain callbacks, keyed by endpoint name.
func CountingHooks(onMocked, onUnhandled, onBypass func(endpoint string)) RequestHooks {
	return RequestHooks{
		OnMocked: func(ctx RequestContext) {
			if onMocked != nil {
				onMocked(ctx.Endpoint)
			}
		},
		OnUnhandled: func(ctx RequestContext) {
			if onUnhandled != nil {
				onUnhandled(ctx.Endpoint)
			}
		},
		OnBypass: func(ctx RequestContext, err error) {
			if onBypass != nil {
				onBypass(ctx.Endpoint)
			}
		},
	}
}
