// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

// Package jsonrpc implements the newline-delimited JSON-RPC 2.0 pipe between
// a Flow Launcher plugin process and the host.
//
// The package owns the wire codec, the bidirectional client with its
// pending-call table, and the in-flight task registry used for cooperative
// cancellation. Plugin-facing behavior (queries, results, events) lives in
// pkg/flogin; this package only moves correctly-shaped frames.
package jsonrpc

import (
	"bytes"
	"encoding/json"

	"github.com/samber/oops"
)

// Version is the protocol version string stamped on every frame.
const Version = "2.0"

// CancelRequestMethod is the one built-in notification method: the host asks
// the plugin to abort the in-flight request named by params.id.
const CancelRequestMethod = "$/cancelRequest"

// Request is an outbound request frame addressed to the host.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// Response is a response frame, success or error. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the wire shape of a JSON-RPC error.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Message is one decoded inbound frame. Concrete types are *InboundRequest,
// *InboundNotification, *InboundResult, and *InboundError.
type Message interface {
	isMessage()
}

// InboundRequest is a host-originated request that expects a response.
type InboundRequest struct {
	ID     int64
	Method string
	Params []json.RawMessage
}

// InboundNotification is a host-originated call without an id. It never
// receives a reply.
type InboundNotification struct {
	Method string
	Params json.RawMessage
}

// InboundResult is a successful response to an outbound request.
type InboundResult struct {
	ID     int64
	Result json.RawMessage
}

// InboundError is an error response to an outbound request.
type InboundError struct {
	ID  int64
	Err *ErrorObject
}

func (*InboundRequest) isMessage()      {}
func (*InboundNotification) isMessage() {}
func (*InboundResult) isMessage()       {}
func (*InboundError) isMessage()        {}

// frameTerminator closes every encoded frame. The host reads CRLF-delimited
// lines.
var frameTerminator = []byte("\r\n")

// Encode marshals a frame and appends the CRLF terminator.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, oops.Code("ENCODE_FAILED").Wrap(err)
	}
	return append(data, frameTerminator...), nil
}

// rawFrame is the probe shape used to classify an inbound line.
type rawFrame struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *ErrorObject    `json:"error"`
}

// Decode classifies one inbound line structurally: no id means notification,
// a method means request, a result field means success response, an error
// field means error response. Anything else is an invalid frame. Malformed
// JSON is surfaced as a *Error with CodeParseError.
func Decode(line []byte) (Message, error) {
	var frame rawFrame
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "Parse error", Data: err.Error()}
	}

	switch {
	case frame.ID == nil:
		return &InboundNotification{Method: frame.Method, Params: frame.Params}, nil
	case frame.Method != "":
		params, err := decodeParams(frame.Params)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
		}
		return &InboundRequest{ID: *frame.ID, Method: frame.Method, Params: params}, nil
	case frame.Result != nil:
		return &InboundResult{ID: *frame.ID, Result: frame.Result}, nil
	case frame.Error != nil:
		return &InboundError{ID: *frame.ID, Err: frame.Error}, nil
	default:
		return nil, &Error{Code: CodeInvalidRequest, Message: "Invalid request", Data: string(line)}
	}
}

// decodeParams splits a positional params array into raw elements. A missing
// or null params field decodes as an empty list.
func decodeParams(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}
