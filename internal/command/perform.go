// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/aplane-algo/clive/internal/wax"
)

// Check inspects a transaction before it is broadcast.
type Check func(ctx context.Context, tx *wax.Transaction) error

// PerformResult is what PerformActionsOnTransaction did.
type PerformResult struct {
	Transaction *wax.Transaction
	SavedTo     string
	Broadcast   bool
	ID          string
}

// PerformActionsOnTransaction builds or takes a transaction and then signs,
// saves and broadcasts it, each step optional, in that order.
//
// At most one signing mode (SignKeys or AutoSign) may be chosen. A signed
// transaction is only signed again with Multisign (append) or ForceUnsign
// (replace).
type PerformActionsOnTransaction struct {
	WithResult[*PerformResult]

	Chain  Chain
	Signer Signer

	// Exactly one of Operations and Transaction.
	Operations  []wax.Operation
	Transaction *wax.Transaction
	Expiration  time.Duration

	SignKeys        []wax.PublicKey
	AutoSign        bool
	AutoSignKeys    []wax.PublicKey
	Multisign       bool
	ForceUnsign     bool
	SavePath        string
	SaveFormat      Format
	Broadcast       bool
	BeforeBroadcast []Check
}

func (p *PerformActionsOnTransaction) validate() error {
	modes := 0
	if len(p.SignKeys) > 0 {
		modes++
	}
	if p.AutoSign {
		modes++
	}
	if modes > 1 {
		return ErrMultipleSignModes
	}
	if p.Multisign && modes == 0 {
		return fmt.Errorf("%w: multisign needs a signing key", ErrConflictingOptions)
	}
	if p.Multisign && p.ForceUnsign {
		return fmt.Errorf("%w: multisign and unsign", ErrConflictingOptions)
	}
	switch {
	case len(p.Operations) == 0 && p.Transaction == nil:
		return ErrNothingToDo
	case len(p.Operations) > 0 && p.Transaction != nil:
		return fmt.Errorf("%w: operations and a transaction", ErrConflictingOptions)
	}
	if modes > 0 && p.Signer == nil {
		return fmt.Errorf("%w: no wallet to sign with", ErrNoKeyAvailable)
	}
	return nil
}

func (p *PerformActionsOnTransaction) signing() bool {
	return len(p.SignKeys) > 0 || p.AutoSign
}

func (p *PerformActionsOnTransaction) Execute(ctx context.Context) error {
	if err := p.validate(); err != nil {
		return err
	}

	tx := p.Transaction
	if tx == nil {
		build := &Build{Chain: p.Chain, Operations: p.Operations, Expiration: p.Expiration}
		if err := build.Execute(ctx); err != nil {
			return err
		}
		tx = build.ResultOrNil()
	}

	if p.ForceUnsign {
		unsign := &UnSign{Transaction: tx}
		if err := unsign.Execute(ctx); err != nil {
			return err
		}
		tx = unsign.ResultOrNil()
	}

	if p.signing() {
		signed, err := p.sign(ctx, tx)
		if err != nil {
			return err
		}
		tx = signed
	}

	result := &PerformResult{Transaction: tx, ID: tx.ID()}

	if p.SavePath != "" {
		save := &SaveTransaction{Transaction: tx, Path: p.SavePath, Format: p.SaveFormat}
		if err := save.Execute(ctx); err != nil {
			return err
		}
		result.SavedTo = save.ResultOrNil()
	}

	if p.Broadcast {
		for _, check := range p.BeforeBroadcast {
			if err := check(ctx, tx); err != nil {
				return err
			}
		}
		bc := &Broadcast{Chain: p.Chain, Transaction: tx}
		if err := bc.Execute(ctx); err != nil {
			return err
		}
		result.Broadcast = true
	}

	p.setResult(result)
	return nil
}

// sign fetches basic info first so a loaded transaction is signed for the
// chain the node reports, not only the configured fallback.
func (p *PerformActionsOnTransaction) sign(ctx context.Context, tx *wax.Transaction) (*wax.Transaction, error) {
	if _, err := p.Chain.BasicInfo(ctx); err != nil {
		return nil, err
	}
	chainID := p.Chain.ChainID()
	if p.AutoSign {
		auto := &AutoSign{
			Signer:      p.Signer,
			Transaction: tx,
			ChainID:     chainID,
			Candidates:  p.AutoSignKeys,
			Multisign:   p.Multisign,
		}
		return Run[*wax.Transaction](ctx, auto)
	}
	sign := &Sign{
		Signer:      p.Signer,
		Transaction: tx,
		ChainID:     chainID,
		Keys:        p.SignKeys,
		Multisign:   p.Multisign,
	}
	return Run[*wax.Transaction](ctx, sign)
}
