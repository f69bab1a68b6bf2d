// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

// Read-only queries. An empty account means the working account.

import (
	"context"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/node"
)

// Balances returns liquid, savings, staked and reward balances.
func (e *Engine) Balances(ctx context.Context, account string) (*command.BalancesData, error) {
	chain, account, err := e.query(account)
	if err != nil {
		return nil, err
	}
	return command.Run[*command.BalancesData](ctx, command.NewBalances(chain, account))
}

// Savings returns savings balances, interest and pending withdrawals.
func (e *Engine) Savings(ctx context.Context, account string) (*command.SavingsData, error) {
	chain, account, err := e.query(account)
	if err != nil {
		return nil, err
	}
	return command.Run[*command.SavingsData](ctx, command.NewSavings(chain, account))
}

// HivePower returns vesting, delegation and power-down state.
func (e *Engine) HivePower(ctx context.Context, account string) (*command.HivePowerData, error) {
	chain, account, err := e.query(account)
	if err != nil {
		return nil, err
	}
	return command.Run[*command.HivePowerData](ctx, command.NewHivePower(chain, account))
}

// Governance returns witness and proposal listings with the account's votes.
func (e *Engine) Governance(ctx context.Context, account string, opts command.GovernanceOptions) (*command.GovernanceData, error) {
	chain, account, err := e.query(account)
	if err != nil {
		return nil, err
	}
	return command.Run[*command.GovernanceData](ctx, command.NewGovernance(chain, account, opts))
}

// Authority returns the editable authority of account.
func (e *Engine) Authority(ctx context.Context, account string) (*authority.Authority, error) {
	chain, account, err := e.query(account)
	if err != nil {
		return nil, err
	}
	return command.Run[*authority.Authority](ctx, command.NewAccountAuthority(chain, account))
}

// NodeInfo returns the cached node state.
func (e *Engine) NodeInfo(ctx context.Context) (*command.NodeInfo, error) {
	chain, err := e.chain()
	if err != nil {
		return nil, err
	}
	return command.Run[*command.NodeInfo](ctx, command.NewNodeBasicInfo(chain, chain.Address()))
}

func (e *Engine) query(account string) (*node.Node, string, error) {
	chain, err := e.chain()
	if err != nil {
		return nil, "", err
	}
	account, err = e.account(account)
	if err != nil {
		return nil, "", err
	}
	return chain, account, nil
}
