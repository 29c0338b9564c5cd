// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cibere/flogin/pkg/jsonrpc"
)

// EventHandler handles one host-dispatched event request. The returned value
// must be response-shaped (QueryResponse, ExecuteResponse, ErrorResponse) to
// reach the wire; anything else is replaced by an internal error response.
type EventHandler func(ctx context.Context, params []json.RawMessage) (any, error)

// ErrorHandler is the generic fallback for event failures. It must return a
// response-shaped value.
type ErrorHandler func(ctx context.Context, event string, err error) any

// errorHook adapts an event-specific error handler for the run wrapper.
type errorHook func(ctx context.Context, err error) (any, error)

// runEvent is the uniform execution wrapper around every dispatched handler:
// cooperative cancellation is suppressed silently, and any other failure is
// routed to the event's dedicated error hook first, then to the generic
// error handler.
func (p *Plugin) runEvent(ctx context.Context, name string, fn EventHandler, params []json.RawMessage, hook errorHook) (value any) {
	defer func() {
		if v := recover(); v != nil {
			p.log().Error("panic in event", "event", name, "panic", fmt.Sprint(v))
			value = p.handleEventError(ctx, name, fmt.Errorf("panic in event %s: %v", name, v), hook)
		}
	}()

	v, err := fn(ctx, params)
	if err == nil {
		return v
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return nil
	}
	return p.handleEventError(ctx, name, err, hook)
}

func (p *Plugin) handleEventError(ctx context.Context, name string, err error, hook errorHook) any {
	if hook != nil {
		v, herr := hook(ctx, err)
		if herr == nil {
			return v
		}
		err = herr
	}

	p.mu.Lock()
	handler := p.errorHandler
	p.mu.Unlock()
	return handler(ctx, name, err)
}

// defaultOnError logs the failure and reports it to the host as an internal
// error carrying the original error text.
func (p *Plugin) defaultOnError(_ context.Context, event string, err error) any {
	p.log().Error("ignoring exception in event", "event", event, "err", err)
	return jsonrpc.InternalErrorResponse(err)
}
