// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import "context"

// SearchCallback produces the results for a matched query.
type SearchCallback func(ctx context.Context, q *Query) (Outcome, error)

// SearchErrorCallback turns a callback failure into an Outcome, letting a
// handler present its own error results instead of the generic error
// response.
type SearchErrorCallback func(ctx context.Context, q *Query, err error) (Outcome, error)

// SearchHandler pairs a condition with the callback that runs when it
// matches. Handlers are evaluated in registration order and the first match
// wins.
type SearchHandler struct {
	// Name labels the handler in logs. Optional.
	Name string
	// Condition gates the handler. Nil matches every query.
	Condition Condition
	// Callback produces the handler's results.
	Callback SearchCallback
	// OnError handles a Callback failure. Nil falls back to the plugin's
	// generic error handler.
	OnError SearchErrorCallback
}

// NewSearchHandler builds a handler from a condition and callback. A nil
// condition matches every query.
func NewSearchHandler(condition Condition, callback SearchCallback) *SearchHandler {
	return &SearchHandler{Condition: condition, Callback: callback}
}

// matches evaluates the handler's condition, resetting stale condition data
// first so one handler's data never leaks into the next evaluation.
func (h *SearchHandler) matches(q *Query) bool {
	q.ConditionData = nil
	if h.Condition == nil {
		return true
	}
	return h.Condition.Match(q)
}

func (h *SearchHandler) label() string {
	if h.Name != "" {
		return h.Name
	}
	return "search handler"
}
