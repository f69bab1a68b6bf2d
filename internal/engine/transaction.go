// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

// TxOptions selects what happens to a built or loaded transaction.
type TxOptions struct {
	SignWith   []string // profile aliases or public keys
	AutoSign   bool
	Multisign  bool
	Unsign     bool
	SavePath   string
	SaveFormat command.Format
	Broadcast  bool
	// Force skips the known-accounts check.
	Force      bool
	Expiration time.Duration
}

// Perform builds a transaction from ops and processes it per opts.
func (e *Engine) Perform(ctx context.Context, ops []wax.Operation, opts TxOptions) (*command.PerformResult, error) {
	return e.perform(ctx, ops, nil, opts)
}

// ProcessTransaction signs, saves or broadcasts an existing transaction.
func (e *Engine) ProcessTransaction(ctx context.Context, tx *wax.Transaction, opts TxOptions) (*command.PerformResult, error) {
	return e.perform(ctx, nil, tx, opts)
}

// LoadTransaction reads a saved transaction.
func (e *Engine) LoadTransaction(ctx context.Context, path string, format command.Format) (*wax.Transaction, error) {
	return command.Run[*wax.Transaction](ctx, &command.Load{Path: path, Format: format})
}

func (e *Engine) perform(ctx context.Context, ops []wax.Operation, tx *wax.Transaction, opts TxOptions) (*command.PerformResult, error) {
	chain, err := e.chain()
	if err != nil {
		return nil, err
	}
	signKeys := make([]wax.PublicKey, 0, len(opts.SignWith))
	for _, ref := range opts.SignWith {
		key, err := e.ResolveKey(ref)
		if err != nil {
			return nil, err
		}
		signKeys = append(signKeys, key)
	}
	expiration := opts.Expiration
	if expiration == 0 {
		expiration = e.Expiration
	}

	p := &command.PerformActionsOnTransaction{
		Chain:        chain,
		Operations:   ops,
		Transaction:  tx,
		Expiration:   expiration,
		SignKeys:     signKeys,
		AutoSign:     opts.AutoSign,
		AutoSignKeys: e.autoSignKeys(),
		Multisign:    opts.Multisign,
		ForceUnsign:  opts.Unsign,
		SavePath:     opts.SavePath,
		SaveFormat:   opts.SaveFormat,
		Broadcast:    opts.Broadcast,
	}
	if e.Wallet != nil {
		p.Signer = e.Wallet
	}
	if prof := e.Profile(); prof != nil && !opts.Force {
		p.BeforeBroadcast = append(p.BeforeBroadcast, profile.KnownAccountsCheck(prof))
	}

	res, err := command.Run[*command.PerformResult](ctx, p)
	if err != nil {
		return nil, err
	}
	util.Debug("performed transaction", "id", res.ID, "signed", res.Transaction.IsSigned(), "saved", res.SavedTo, "broadcast", res.Broadcast)
	return res, nil
}

// autoSignKeys limits autosign to the profile's keys. With no profile keys
// every wallet key is a candidate.
func (e *Engine) autoSignKeys() []wax.PublicKey {
	p := e.Profile()
	if p == nil || p.Keys == nil || p.Keys.Len() == 0 {
		return nil
	}
	return p.Keys.Values()
}

// VerifyTransaction reports which required authorities of tx its signatures
// do not satisfy, resolving account authorities through the node.
func (e *Engine) VerifyTransaction(ctx context.Context, tx *wax.Transaction) ([]authority.Missing, error) {
	chain, err := e.chain()
	if err != nil {
		return nil, err
	}
	accounts := make(map[string]*node.Account)
	lookup := func(name string, role authority.Role) (*wax.Authority, error) {
		acc, ok := accounts[name]
		if !ok {
			acc, err = e.findAccount(ctx, name)
			if err != nil {
				return nil, err
			}
			accounts[name] = acc
		}
		switch role {
		case authority.Owner:
			return acc.Owner, nil
		case authority.Active:
			return acc.Active, nil
		case authority.Posting:
			return acc.Posting, nil
		}
		return nil, fmt.Errorf("%w: %s", authority.ErrUnknownRole, role)
	}
	return authority.VerifyTransaction(tx, chain.ChainID(), lookup)
}
