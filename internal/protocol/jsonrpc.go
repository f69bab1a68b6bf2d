// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package protocol defines the JSON-RPC 2.0 message types shared by the
// hive node client and the beekeeper client.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the only JSON-RPC version spoken.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a request with the given id.
func NewRequest(id int64, method string, params any) Request {
	return Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// MatchesID reports whether the response id equals id.
// A numeric id may come back as a JSON number or a string.
func (r *Response) MatchesID(id int64) bool {
	var n int64
	if err := json.Unmarshal(r.ID, &n); err == nil {
		return n == id
	}
	var s string
	if err := json.Unmarshal(r.ID, &s); err == nil {
		return s == fmt.Sprint(id)
	}
	return false
}

// RPCError is the error object of a failed call.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard and hive-specific error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
	CodeAssertion      = -32003
)

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Detail extracts the human readable assertion message from hive error data,
// falling back to Message.
func (e *RPCError) Detail() string {
	var data struct {
		Message string `json:"message"`
		Stack   []struct {
			Format string `json:"format"`
		} `json:"stack"`
	}
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &data) == nil && data.Message != "" {
		return data.Message
	}
	return e.Message
}
