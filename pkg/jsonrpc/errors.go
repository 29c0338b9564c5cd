// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Fixed JSON-RPC 2.0 error codes. The server range is reserved for errors
// reported by the host itself.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeServerErrorStart..CodeServerErrorEnd is the host-originated range.
	CodeServerErrorStart = -32000
	CodeServerErrorEnd   = -32099
)

// Error is a protocol-level failure carrying a JSON-RPC error code. Unknown
// codes outside the reserved server range also decode as *Error so the raw
// code survives.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: %s (code %d)", e.Message, e.Code)
}

// Object converts the error to its wire shape.
func (e *Error) Object() *ErrorObject {
	return &ErrorObject{Code: e.Code, Message: e.Message, Data: e.Data}
}

// Response wraps the error into a payload that answers an inbound request.
func (e *Error) Response() *ErrorResponse {
	return &ErrorResponse{Code: e.Code, Message: e.Message, Data: e.Data}
}

// FlowError is a failure reported by the host in response to an outbound
// call, distinguished from protocol errors by its code falling inside the
// reserved server range.
type FlowError struct {
	Code    int
	Message string
	Data    any
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("flow: %s (code %d)", e.Message, e.Code)
}

// NewMethodNotFound builds the method-not-found protocol error.
func NewMethodNotFound(message string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: message}
}

// NewInternalError builds the internal-error protocol error.
func NewInternalError(message string, data any) *Error {
	return &Error{Code: CodeInternalError, Message: message, Data: data}
}

// errorFromObject converts a wire error object to the typed error surfaced to
// outbound callers.
func errorFromObject(obj *ErrorObject) error {
	if obj.Code <= CodeServerErrorStart && obj.Code >= CodeServerErrorEnd {
		return &FlowError{Code: obj.Code, Message: obj.Message, Data: obj.Data}
	}
	return &Error{Code: obj.Code, Message: obj.Message, Data: obj.Data}
}

// ResponseValue is a payload that can answer an inbound request. Anything a
// dispatch target returns must implement it; arbitrary values never reach the
// wire.
type ResponseValue interface {
	ResponseMessage(id int64) (*Response, error)
}

// ErrorResponse answers an inbound request with a JSON-RPC error, or lets a
// handler signal failure directly instead of returning results.
type ErrorResponse struct {
	Code    int
	Message string
	Data    any
}

// InternalErrorResponse builds the generic error payload used when handler
// execution fails. The host treats the whole server range as plugin errors,
// so this reports the start of it rather than the protocol internal code.
func InternalErrorResponse(data any) *ErrorResponse {
	if err, ok := data.(error); ok {
		data = err.Error()
	}
	return &ErrorResponse{Code: CodeServerErrorStart, Message: "Internal error", Data: data}
}

// ResponseMessage implements ResponseValue.
func (e *ErrorResponse) ResponseMessage(id int64) (*Response, error) {
	data := e.Data
	if err, ok := data.(error); ok {
		data = err.Error()
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &ErrorObject{Code: e.Code, Message: e.Message, Data: data},
	}, nil
}

// ExecuteResponse answers a result-click action. Hide controls whether the
// launcher window closes after the click.
type ExecuteResponse struct {
	Hide bool
}

// NewExecuteResponse returns the default action response, which hides the
// launcher window.
func NewExecuteResponse() *ExecuteResponse {
	return &ExecuteResponse{Hide: true}
}

// ResponseMessage implements ResponseValue.
func (e *ExecuteResponse) ResponseMessage(id int64) (*Response, error) {
	result, err := json.Marshal(map[string]bool{"hide": e.Hide})
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: Version, ID: id, Result: result}, nil
}
