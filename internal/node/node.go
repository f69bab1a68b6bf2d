// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aplane-algo/clive/internal/transport"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

// ErrOffline is returned when the node has never answered a refresh.
var ErrOffline = errors.New("node offline")

// DefaultRefreshInterval is how long cached basic info stays fresh.
const DefaultRefreshInterval = 3 * time.Second

// BasicInfo is the chain state every transaction build needs.
type BasicInfo struct {
	Config      Config
	Version     *Version
	DGPO        *DynamicGlobalProperties
	Online      bool
	RefreshedAt time.Time
}

// Node is an API client with cached basic info.
type Node struct {
	*API

	refresh time.Duration
	chainID wax.ChainID
	now     func() time.Time

	mu   sync.Mutex
	info BasicInfo
}

// Option configures a Node.
type Option func(*Node)

// WithRefreshInterval sets how long BasicInfo is served from cache.
func WithRefreshInterval(d time.Duration) Option {
	return func(n *Node) { n.refresh = d }
}

// WithChainID sets the chain id used when the node does not report one.
func WithChainID(id wax.ChainID) Option {
	return func(n *Node) { n.chainID = id }
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) Option {
	return func(n *Node) { n.now = now }
}

// New creates a Node over rpc.
func New(rpc transport.Caller, opts ...Option) *Node {
	n := &Node{
		API:     NewAPI(rpc),
		refresh: DefaultRefreshInterval,
		chainID: wax.MainnetChainID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// BasicInfo returns cached info, refreshing it first when stale. If the
// refresh fails the previous values are returned with Online false. The
// error is nil in that case unless no info was ever fetched.
func (n *Node) BasicInfo(ctx context.Context) (BasicInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.info.Online && n.now().Sub(n.info.RefreshedAt) < n.refresh {
		return n.info, nil
	}
	return n.refreshLocked(ctx)
}

// Refresh forces a refresh and returns the new info.
func (n *Node) Refresh(ctx context.Context) (BasicInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.refreshLocked(ctx)
}

// IsOnline reports the result of the last refresh without contacting the node.
func (n *Node) IsOnline() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.info.Online
}

func (n *Node) refreshLocked(ctx context.Context) (BasicInfo, error) {
	var (
		cfg     = n.info.Config
		version = n.info.Version
		dgpo    *DynamicGlobalProperties
	)

	// Config and version never change for a running node; fetch them once.
	g, gctx := errgroup.WithContext(ctx)
	if cfg == nil {
		g.Go(func() error {
			c, err := n.GetConfig(gctx)
			cfg = c
			return err
		})
	}
	if version == nil {
		g.Go(func() error {
			v, err := n.GetVersion(gctx)
			version = v
			return err
		})
	}
	g.Go(func() error {
		d, err := n.GetDynamicGlobalProperties(gctx)
		dgpo = d
		return err
	})

	if err := g.Wait(); err != nil {
		util.Debug("node refresh failed", "address", n.Address(), "error", err)
		n.info.Online = false
		if n.info.DGPO == nil {
			return n.info, fmt.Errorf("%w: %s: %w", ErrOffline, n.Address(), err)
		}
		return n.info, nil
	}

	n.info = BasicInfo{
		Config:      cfg,
		Version:     version,
		DGPO:        dgpo,
		Online:      true,
		RefreshedAt: n.now(),
	}
	return n.info, nil
}

// ChainID returns the chain id reported by the node, else the configured one.
func (n *Node) ChainID() wax.ChainID {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.info.Version != nil {
		if id, err := wax.ParseChainID(n.info.Version.ChainID); err == nil {
			return id
		}
	}
	if n.info.Config != nil {
		if s, ok := n.info.Config.String("HIVE_CHAIN_ID"); ok {
			if id, err := wax.ParseChainID(s); err == nil {
				return id
			}
		}
	}
	return n.chainID
}
