// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aplane-algo/clive/internal/protocol"
)

// RPCHandler answers one JSON-RPC method.
type RPCHandler func(params json.RawMessage) (any, *protocol.RPCError)

// RPCServer is a JSON-RPC 2.0 server backed by per-method handlers.
type RPCServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]RPCHandler
	calls    []string
	down     bool
}

// NewRPCServer starts an empty server that is closed when the test ends.
func NewRPCServer(t *testing.T) *RPCServer {
	t.Helper()
	s := &RPCServer{handlers: make(map[string]RPCHandler)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

// Handle registers or replaces the handler for method.
func (s *RPCServer) Handle(method string, h RPCHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// SetDown makes the server answer 503 to every request.
func (s *RPCServer) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Calls returns the methods called so far, in order.
func (s *RPCServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount returns how many times method was called.
func (s *RPCServer) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == method {
			n++
		}
	}
	return n
}

// URL returns the server URL.
func (s *RPCServer) URL() string {
	return s.Server.URL
}

func (s *RPCServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID     int64           `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	down := s.down
	h, ok := s.handlers[req.Method]
	if !down {
		s.calls = append(s.calls, req.Method)
	}
	s.mu.Unlock()

	if down {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{"jsonrpc": protocol.Version, "id": req.ID}
	if !ok {
		resp["error"] = &protocol.RPCError{Code: protocol.CodeMethodNotFound, Message: "method not found: " + req.Method}
	} else if result, rpcErr := h(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// AssertionError builds a hive-style assertion error carrying message.
func AssertionError(message string) *protocol.RPCError {
	data, _ := json.Marshal(map[string]string{"message": message})
	return &protocol.RPCError{Code: protocol.CodeAssertion, Message: "Assert Exception", Data: data}
}
