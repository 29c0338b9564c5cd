// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"iter"

	"github.com/cibere/flogin/pkg/jsonrpc"
)

// Outcome is the product of a search or context-menu callback: nothing, one
// item, a list, a lazily-produced stream, or a direct error response. The
// zero Outcome is empty.
//
// Items may be *Result values, strings, raw wire maps, or anything
// stringable; normalization coerces them uniformly.
type Outcome struct {
	kind    outcomeKind
	item    any
	items   []any
	stream  iter.Seq[any]
	failure *jsonrpc.ErrorResponse
}

type outcomeKind int

const (
	outcomeEmpty outcomeKind = iota
	outcomeSingle
	outcomeMany
	outcomeStream
	outcomeFailure
)

// One wraps a single item.
func One(item any) Outcome {
	return Outcome{kind: outcomeSingle, item: item}
}

// Many wraps a list of items, preserving order.
func Many(items ...any) Outcome {
	return Outcome{kind: outcomeMany, items: items}
}

// Results wraps an already-built result list.
func Results(results ...*Result) Outcome {
	items := make([]any, len(results))
	for i, r := range results {
		items[i] = r
	}
	return Outcome{kind: outcomeMany, items: items}
}

// Stream wraps a sequence that yields items one at a time.
func Stream(seq iter.Seq[any]) Outcome {
	return Outcome{kind: outcomeStream, stream: seq}
}

// Fail short-circuits normalization: the error response is sent to the host
// unchanged instead of a result list.
func Fail(resp *jsonrpc.ErrorResponse) Outcome {
	return Outcome{kind: outcomeFailure, failure: resp}
}

// collect flattens the outcome into its items, or the failure passthrough.
func (o Outcome) collect() ([]any, *jsonrpc.ErrorResponse) {
	switch o.kind {
	case outcomeSingle:
		if resp, ok := o.item.(*jsonrpc.ErrorResponse); ok {
			return nil, resp
		}
		return []any{o.item}, nil
	case outcomeMany:
		return o.items, nil
	case outcomeStream:
		var items []any
		for item := range o.stream {
			items = append(items, item)
		}
		return items, nil
	case outcomeFailure:
		return nil, o.failure
	default:
		return nil, nil
	}
}
