// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"encoding/json"

	"github.com/cibere/flogin/pkg/jsonrpc"
)

// QueryResponse answers a query or context-menu request: the result list,
// any settings changes accumulated since the last flush, and an optional
// debug message shown in the host's log.
type QueryResponse struct {
	Results        []*Result
	SettingsChange map[string]any
	DebugMessage   string
}

// queryResponsePayload is the nested wire shape of the result field.
type queryResponsePayload struct {
	SettingsChange map[string]any `json:"settingsChange"`
	DebugMessage   string         `json:"debugMessage"`
	Result         []*Result      `json:"result"`
}

// ResponseMessage implements jsonrpc.ResponseValue.
func (r *QueryResponse) ResponseMessage(id int64) (*jsonrpc.Response, error) {
	payload := queryResponsePayload{
		SettingsChange: r.SettingsChange,
		DebugMessage:   r.DebugMessage,
		Result:         r.Results,
	}
	if payload.SettingsChange == nil {
		payload.SettingsChange = map[string]any{}
	}
	if payload.Result == nil {
		payload.Result = []*Result{}
	}
	result, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: id, Result: result}, nil
}
