// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

// Governance, rewards and custom_json methods

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/wax"
)

// VoteWitness approves or removes a witness vote of account. It refuses
// votes that would not change anything and votes beyond the chain limit.
func (e *Engine) VoteWitness(ctx context.Context, account, witness string, approve bool, opts TxOptions) (*command.PerformResult, error) {
	account, err := e.account(account)
	if err != nil {
		return nil, err
	}
	if err := wax.ValidateAccountName(witness); err != nil {
		return nil, err
	}
	acc, err := e.findAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	voted := slices.Contains(acc.WitnessVotes, witness)
	switch {
	case approve && voted:
		return nil, fmt.Errorf("%w: %s already votes for %s", ErrAlreadyVoted, account, witness)
	case !approve && !voted:
		return nil, fmt.Errorf("%w: %s does not vote for %s", ErrNotVoted, account, witness)
	case approve && len(acc.WitnessVotes) >= command.MaxWitnessVotes:
		return nil, fmt.Errorf("%w: %s has %d votes", ErrTooManyWitnessVotes, account, len(acc.WitnessVotes))
	}
	return e.Perform(ctx, []wax.Operation{&wax.AccountWitnessVoteOperation{
		Account: account,
		Witness: witness,
		Approve: approve,
	}}, opts)
}

// SetProxy delegates governance votes to proxy. An empty proxy clears it.
func (e *Engine) SetProxy(ctx context.Context, account, proxy string, opts TxOptions) (*command.PerformResult, error) {
	account, err := e.account(account)
	if err != nil {
		return nil, err
	}
	if proxy != "" {
		if err := wax.ValidateAccountName(proxy); err != nil {
			return nil, err
		}
		if proxy == account {
			return nil, fmt.Errorf("%s cannot proxy to itself", account)
		}
	}
	return e.Perform(ctx, []wax.Operation{&wax.AccountWitnessProxyOperation{
		Account: account,
		Proxy:   proxy,
	}}, opts)
}

// VoteProposals approves or unapproves DHF proposals.
func (e *Engine) VoteProposals(ctx context.Context, voter string, ids []int64, approve bool, opts TxOptions) (*command.PerformResult, error) {
	voter, err := e.account(voter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no proposal ids", command.ErrNothingToDo)
	}
	for _, id := range ids {
		if id < 0 {
			return nil, fmt.Errorf("invalid proposal id %d", id)
		}
	}
	return e.Perform(ctx, []wax.Operation{&wax.UpdateProposalVotesOperation{
		Voter:       voter,
		ProposalIDs: ids,
		Approve:     approve,
	}}, opts)
}

// ClaimRewards claims every pending reward balance of account.
func (e *Engine) ClaimRewards(ctx context.Context, account string, opts TxOptions) (*command.PerformResult, error) {
	account, err := e.account(account)
	if err != nil {
		return nil, err
	}
	b, err := e.Balances(ctx, account)
	if err != nil {
		return nil, err
	}
	if !b.HasRewards() {
		return nil, fmt.Errorf("%w: %s", ErrNothingToClaim, account)
	}
	return e.Perform(ctx, []wax.Operation{&wax.ClaimRewardBalanceOperation{
		Account:     account,
		RewardHive:  b.RewardHive,
		RewardHBD:   b.RewardHBD,
		RewardVests: b.RewardVests,
	}}, opts)
}

// CustomJSONParams describes a custom_json operation. Authorities default to
// the working account with posting authority.
type CustomJSONParams struct {
	ID       string
	JSON     string
	Accounts []string
	Active   bool
}

// MaxCustomJSONIDLength is the chain limit on custom_json ids.
const MaxCustomJSONIDLength = 32

// CustomJSON broadcasts application-defined JSON.
func (e *Engine) CustomJSON(ctx context.Context, params CustomJSONParams, opts TxOptions) (*command.PerformResult, error) {
	if params.ID == "" || len(params.ID) > MaxCustomJSONIDLength {
		return nil, fmt.Errorf("custom_json id must be 1 to %d characters", MaxCustomJSONIDLength)
	}
	if !json.Valid([]byte(params.JSON)) {
		return nil, fmt.Errorf("%w: %.40q", ErrInvalidJSON, params.JSON)
	}
	accounts := params.Accounts
	if len(accounts) == 0 {
		working, err := e.account("")
		if err != nil {
			return nil, err
		}
		accounts = []string{working}
	}
	for _, a := range accounts {
		if err := wax.ValidateAccountName(a); err != nil {
			return nil, err
		}
	}
	op := &wax.CustomJSONOperation{ID: params.ID, JSON: params.JSON}
	if params.Active {
		op.RequiredAuths = accounts
	} else {
		op.RequiredPostingAuths = accounts
	}
	return e.Perform(ctx, []wax.Operation{op}, opts)
}

func (e *Engine) findAccount(ctx context.Context, name string) (*node.Account, error) {
	chain, err := e.chain()
	if err != nil {
		return nil, err
	}
	accounts, err := chain.FindAccounts(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == name {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", node.ErrAccountNotFound, name)
}
