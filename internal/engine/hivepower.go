// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

// Staking methods: power up, power down, delegation and withdraw routes

import (
	"context"
	"fmt"

	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/wax"
)

// MaxRoutePercent is 100% in basis points.
const MaxRoutePercent = 10000

// toVests converts a HIVE amount to VESTS at the current ratio. VESTS pass
// through; zero is allowed only when allowZero is set.
func (e *Engine) toVests(ctx context.Context, a wax.Asset, allowZero bool) (wax.Asset, error) {
	if a.Amount < 0 || (a.Amount == 0 && !allowZero) {
		return wax.Asset{}, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, a)
	}
	switch a.Symbol {
	case wax.SymbolVests:
		return a, nil
	case wax.SymbolHive:
		if a.Amount == 0 {
			return wax.Vests(0), nil
		}
		chain, err := e.chain()
		if err != nil {
			return wax.Asset{}, err
		}
		dgpo, err := command.Run[*node.DynamicGlobalProperties](ctx, command.NewDynamicGlobalProperties(chain))
		if err != nil {
			return wax.Asset{}, err
		}
		return dgpo.HiveToVests(a), nil
	}
	return wax.Asset{}, fmt.Errorf("%w: %s is not HIVE or VESTS", ErrInvalidAmount, a)
}

// PowerUp stakes liquid HIVE. An empty to stakes for from.
func (e *Engine) PowerUp(ctx context.Context, from, to string, amount wax.Asset, opts TxOptions) (*command.PerformResult, error) {
	from, to, err := e.endpoints(from, to)
	if err != nil {
		return nil, err
	}
	if amount.Symbol != wax.SymbolHive || amount.Amount <= 0 {
		return nil, fmt.Errorf("%w: power up takes a positive HIVE amount, got %s", ErrInvalidAmount, amount)
	}
	return e.Perform(ctx, []wax.Operation{&wax.TransferToVestingOperation{
		From:   from,
		To:     to,
		Amount: amount,
	}}, opts)
}

// PowerDown starts a power down of amount, given in HIVE or VESTS.
func (e *Engine) PowerDown(ctx context.Context, account string, amount wax.Asset, opts TxOptions) (*command.PerformResult, error) {
	account, err := e.account(account)
	if err != nil {
		return nil, err
	}
	vests, err := e.toVests(ctx, amount, false)
	if err != nil {
		return nil, err
	}
	return e.Perform(ctx, []wax.Operation{&wax.WithdrawVestingOperation{
		Account:       account,
		VestingShares: vests,
	}}, opts)
}

// CancelPowerDown stops an ongoing power down.
func (e *Engine) CancelPowerDown(ctx context.Context, account string, opts TxOptions) (*command.PerformResult, error) {
	account, err := e.account(account)
	if err != nil {
		return nil, err
	}
	return e.Perform(ctx, []wax.Operation{&wax.WithdrawVestingOperation{
		Account:       account,
		VestingShares: wax.Vests(0),
	}}, opts)
}

// Delegate sets the Hive Power delegated to delegatee. A zero amount removes
// the delegation.
func (e *Engine) Delegate(ctx context.Context, delegator, delegatee string, amount wax.Asset, opts TxOptions) (*command.PerformResult, error) {
	delegator, err := e.account(delegator)
	if err != nil {
		return nil, err
	}
	if err := wax.ValidateAccountName(delegatee); err != nil {
		return nil, err
	}
	if delegatee == delegator {
		return nil, fmt.Errorf("%s cannot delegate to itself", delegator)
	}
	vests, err := e.toVests(ctx, amount, true)
	if err != nil {
		return nil, err
	}
	return e.Perform(ctx, []wax.Operation{&wax.DelegateVestingSharesOperation{
		Delegator:     delegator,
		Delegatee:     delegatee,
		VestingShares: vests,
	}}, opts)
}

// SetWithdrawRoute routes percent (basis points) of power-down payouts from
// from to to. Zero percent removes the route.
func (e *Engine) SetWithdrawRoute(ctx context.Context, from, to string, percent uint16, autoVest bool, opts TxOptions) (*command.PerformResult, error) {
	from, err := e.account(from)
	if err != nil {
		return nil, err
	}
	if err := wax.ValidateAccountName(to); err != nil {
		return nil, err
	}
	if percent > MaxRoutePercent {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidPercent, percent, MaxRoutePercent)
	}
	return e.Perform(ctx, []wax.Operation{&wax.SetWithdrawVestingRouteOperation{
		FromAccount: from,
		ToAccount:   to,
		Percent:     percent,
		AutoVest:    autoVest,
	}}, opts)
}
