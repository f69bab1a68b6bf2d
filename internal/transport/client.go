// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package transport carries JSON-RPC 2.0 calls over HTTP, either to a TCP
// endpoint or, for unix:// addresses, over a Unix domain socket.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aplane-algo/clive/internal/protocol"
	"github.com/aplane-algo/clive/internal/util"
)

// DefaultTimeout applies when no timeout option is given.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes bounds a single response body (32 MB).
const maxResponseBytes = 32 << 20

// Caller is the interface implemented by Client; fakes implement it in tests.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
	Address() string
}

// Client is a JSON-RPC client bound to one endpoint.
type Client struct {
	address  string
	endpoint string
	http     *http.Client
	nextID   atomic.Int64
}

// Compile-time interface check
var _ Caller = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for address. Supported forms: http://host[:port][/path],
// https://..., and unix:///path/to/socket.
func New(address string, opts ...Option) (*Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}

	c := &Client{
		address: address,
		http:    &http.Client{Timeout: DefaultTimeout},
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return nil, fmt.Errorf("%w %q: missing host", ErrInvalidAddress, address)
		}
		c.endpoint = address
	case "unix":
		socket := u.Path
		if socket == "" {
			return nil, fmt.Errorf("%w %q: missing socket path", ErrInvalidAddress, address)
		}
		dialer := &net.Dialer{}
		c.http.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, "unix", socket)
			},
		}
		// Host is ignored by the dialer but required by net/http.
		c.endpoint = "http://unix/"
	default:
		return nil, fmt.Errorf("%w %q: scheme must be http, https or unix", ErrInvalidAddress, address)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the configured address.
func (c *Client) Address() string {
	return c.address
}

// Call invokes method with params and decodes the result into result (may be nil).
// RPC-level failures are returned as *protocol.RPCError.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	body, err := json.Marshal(protocol.NewRequest(id, method, params))
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	util.Debug("rpc call", "address", c.address, "method", method, "id", id)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, c.address, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			util.Debug("failed to close response body", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	util.Debug("rpc done", "method", method, "status", resp.StatusCode, "elapsed", time.Since(start))

	var rpcResp protocol.Response
	decodeErr := json.Unmarshal(data, &rpcResp)

	// Hive nodes answer some RPC errors with 500; prefer the structured error.
	if decodeErr == nil && rpcResp.Error != nil {
		return rpcResp.Error
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d from %s: %s", ErrHTTPStatus, resp.StatusCode, c.address, truncate(string(data), 200))
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, decodeErr)
	}
	if !rpcResp.MatchesID(id) {
		return fmt.Errorf("%w: sent %d, got %s", ErrIDMismatch, id, string(rpcResp.ID))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
