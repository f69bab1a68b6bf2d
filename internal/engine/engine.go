// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package engine provides the core wallet logic for clive, independent of any UI.
// It ties together the node, the beekeeper wallet and the active profile, and
// routes every state-changing operation through PerformActionsOnTransaction.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aplane-algo/clive/internal/beekeeper"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

// Engine contains all wallet state, independent of any UI.
type Engine struct {
	Node   *node.Node
	Wallet *beekeeper.Wallet
	Store  *profile.Store

	// Expiration applies to built transactions unless TxOptions overrides it.
	Expiration time.Duration

	mu      sync.RWMutex
	profile *profile.Profile
}

// EngineOption is a functional option for configuring the Engine
type EngineOption func(*Engine) error

// NewEngine creates a new Engine with the given options.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{Expiration: command.DefaultExpiration}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// WithNode sets the node used for queries and broadcasts
func WithNode(n *node.Node) EngineOption {
	return func(e *Engine) error {
		e.Node = n
		return nil
	}
}

// WithWallet sets the beekeeper wallet used for signing
func WithWallet(w *beekeeper.Wallet) EngineOption {
	return func(e *Engine) error {
		e.Wallet = w
		return nil
	}
}

// WithProfile sets the active profile and the store it is saved to.
// store may be nil for a profile that is never persisted.
func WithProfile(p *profile.Profile, store *profile.Store) EngineOption {
	return func(e *Engine) error {
		if p == nil {
			return fmt.Errorf("%w: nil profile", ErrNoProfile)
		}
		e.profile = p
		e.Store = store
		return nil
	}
}

// WithExpiration sets the default transaction expiration.
func WithExpiration(d time.Duration) EngineOption {
	return func(e *Engine) error {
		if d <= 0 || d > command.MaxExpiration {
			return fmt.Errorf("expiration %s outside (0, %s]", d, command.MaxExpiration)
		}
		e.Expiration = d
		return nil
	}
}

// Profile returns the active profile, or nil.
func (e *Engine) Profile() *profile.Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile
}

// SetProfile replaces the active profile.
func (e *Engine) SetProfile(p *profile.Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = p
}

// UpdateProfile applies edit to the active profile and saves it when a store
// is configured. The profile is left unchanged if edit fails.
func (e *Engine) UpdateProfile(edit func(*profile.Profile) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.profile == nil {
		return ErrNoProfile
	}
	next := e.profile.Clone()
	if err := edit(next); err != nil {
		return err
	}
	if e.Store != nil {
		if err := e.Store.Save(next); err != nil {
			return err
		}
	}
	e.profile = next
	return nil
}

// WatchProfile reloads the active profile when another process changes it on
// disk. onChange, if set, is told about every reload attempt.
func (e *Engine) WatchProfile(ctx context.Context, onChange profile.ChangeFunc, opts ...profile.WatchOption) error {
	p := e.Profile()
	if p == nil {
		return ErrNoProfile
	}
	if e.Store == nil {
		return fmt.Errorf("%w: profile %s has no store", ErrNoProfile, p.Name)
	}
	return e.Store.Watch(ctx, p.Name, func(fresh *profile.Profile, err error) {
		if err != nil {
			util.Warn("profile reload failed", "profile", p.Name, "error", err)
		} else {
			e.SetProfile(fresh)
		}
		if onChange != nil {
			onChange(fresh, err)
		}
	}, opts...)
}

// account returns name, or the working account when name is empty.
func (e *Engine) account(name string) (string, error) {
	if name != "" {
		return name, wax.ValidateAccountName(name)
	}
	p := e.Profile()
	if p == nil {
		return "", ErrNoProfile
	}
	return p.Working()
}

// ResolveKey accepts a profile alias or an STM public key.
func (e *Engine) ResolveKey(aliasOrKey string) (wax.PublicKey, error) {
	if p := e.Profile(); p != nil && p.Keys != nil {
		if k, err := p.Keys.Get(aliasOrKey); err == nil {
			return k.Value, nil
		}
	}
	key, err := wax.ParsePublicKey(aliasOrKey)
	if err != nil {
		return wax.PublicKey{}, fmt.Errorf("%w: %q is neither an alias nor a public key", ErrUnknownKey, aliasOrKey)
	}
	return key, nil
}

func (e *Engine) chain() (*node.Node, error) {
	if e.Node == nil {
		return nil, ErrNoNode
	}
	return e.Node, nil
}
