// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aplane-algo/clive/internal/protocol"
)

// rpcHandler answers every request through fn.
func rpcHandler(t *testing.T, fn func(req protocol.Request) (any, *protocol.RPCError)) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, rpcErr := fn(req)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func TestClientCall(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(req protocol.Request) (any, *protocol.RPCError) {
		if req.Method != "echo" {
			return nil, &protocol.RPCError{Code: protocol.CodeMethodNotFound, Message: "no such method"}
		}
		return req.Params, nil
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	if err := c.Call(context.Background(), "echo", []string{"a", "b"}, &got); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("result = %v", got)
	}

	err = c.Call(context.Background(), "missing", nil, nil)
	var rpcErr *protocol.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != protocol.CodeMethodNotFound {
		t.Errorf("error = %v, want RPCError %d", err, protocol.CodeMethodNotFound)
	}
}

func TestClientCall_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if err := c.Call(context.Background(), "x", nil, nil); !errors.Is(err, ErrHTTPStatus) {
		t.Errorf("error = %v, want ErrHTTPStatus", err)
	}
}

func TestClientCall_IDMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":999,"result":null}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if err := c.Call(context.Background(), "x", nil, nil); !errors.Is(err, ErrIDMismatch) {
		t.Errorf("error = %v, want ErrIDMismatch", err)
	}
}

func TestClientCall_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := "http://" + l.Addr().String()
	_ = l.Close()

	c, _ := New(addr, WithTimeout(time.Second))
	if err := c.Call(context.Background(), "x", nil, nil); !errors.Is(err, ErrUnreachable) {
		t.Errorf("error = %v, want ErrUnreachable", err)
	}
}

func TestClientCall_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.Call(ctx, "slow", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestClientUnixSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "bk.sock")
	l, err := net.Listen("unix", socket)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	srv := httptest.NewUnstartedServer(rpcHandler(t, func(req protocol.Request) (any, *protocol.RPCError) {
		return map[string]string{"method": req.Method}, nil
	}))
	srv.Listener = l
	srv.Start()
	defer srv.Close()

	c, err := New("unix://" + socket)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := c.Call(context.Background(), "beekeeper_api.get_info", map[string]string{}, &got); err != nil {
		t.Fatalf("Call over unix socket: %v", err)
	}
	if got["method"] != "beekeeper_api.get_info" {
		t.Errorf("result = %v", got)
	}
}

func TestNew_InvalidAddress(t *testing.T) {
	for _, addr := range []string{"ftp://x", "http://", "unix://", "::::"} {
		if _, err := New(addr); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("New(%q) error = %v, want ErrInvalidAddress", addr, err)
		}
	}
}
