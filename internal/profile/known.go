// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/wax"
)

// ErrUnknownAccount is returned when a transaction sends value to an account
// the profile does not know.
var ErrUnknownAccount = errors.New("unknown account")

// Recipients returns the accounts that receive value from tx, in order of
// first appearance. Operations that only touch the signer are skipped.
func Recipients(tx *wax.Transaction) []string {
	var out []string
	add := func(from, to string) {
		if to == "" || to == from {
			return
		}
		for _, a := range out {
			if a == to {
				return
			}
		}
		out = append(out, to)
	}
	for _, op := range tx.Operations {
		switch o := op.(type) {
		case *wax.TransferOperation:
			add(o.From, o.To)
		case *wax.RecurrentTransferOperation:
			add(o.From, o.To)
		case *wax.TransferToSavingsOperation:
			add(o.From, o.To)
		case *wax.TransferFromSavingsOperation:
			add(o.From, o.To)
		case *wax.TransferToVestingOperation:
			add(o.From, o.To)
		case *wax.DelegateVestingSharesOperation:
			add(o.Delegator, o.Delegatee)
		case *wax.SetWithdrawVestingRouteOperation:
			add(o.FromAccount, o.ToAccount)
		}
	}
	return out
}

// UnknownRecipients returns the recipients of tx that p does not know.
func (p *Profile) UnknownRecipients(tx *wax.Transaction) []string {
	var out []string
	for _, a := range Recipients(tx) {
		if !p.IsKnown(a) {
			out = append(out, a)
		}
	}
	return out
}

// KnownAccountsCheck refuses transactions whose recipients are not known to
// p. It passes everything when the profile has the check disabled.
func KnownAccountsCheck(p *Profile) command.Check {
	return func(_ context.Context, tx *wax.Transaction) error {
		if !p.KnownAccountsEnabled {
			return nil
		}
		if unknown := p.UnknownRecipients(tx); len(unknown) > 0 {
			return fmt.Errorf("%w: %s (add to known accounts or force)", ErrUnknownAccount, strings.Join(unknown, ", "))
		}
		return nil
	}
}
