// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package node talks to a hive API node and caches the basic chain state
// every transaction needs.
package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/aplane-algo/clive/internal/transport"
	"github.com/aplane-algo/clive/internal/wax"
)

// ErrAccountNotFound is returned when a requested account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// MaxListLimit is the largest page size database_api list calls accept.
const MaxListLimit = 1000

// API exposes the node methods clive calls.
type API struct {
	rpc transport.Caller
}

// NewAPI wraps an RPC caller.
func NewAPI(rpc transport.Caller) *API {
	return &API{rpc: rpc}
}

// Address returns the node address.
func (a *API) Address() string {
	return a.rpc.Address()
}

func (a *API) condenser(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	if err := a.rpc.Call(ctx, "condenser_api."+method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (a *API) database(ctx context.Context, method string, params, result any) error {
	if err := a.rpc.Call(ctx, "database_api."+method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// GetDynamicGlobalProperties returns head block state.
func (a *API) GetDynamicGlobalProperties(ctx context.Context) (*DynamicGlobalProperties, error) {
	var dgpo DynamicGlobalProperties
	if err := a.condenser(ctx, "get_dynamic_global_properties", nil, &dgpo); err != nil {
		return nil, err
	}
	return &dgpo, nil
}

// GetConfig returns the node's HIVE_* configuration.
func (a *API) GetConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := a.condenser(ctx, "get_config", nil, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetVersion returns versions and the chain id.
func (a *API) GetVersion(ctx context.Context) (*Version, error) {
	var v Version
	if err := a.condenser(ctx, "get_version", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// FindAccounts returns the accounts that exist, in request order.
func (a *API) FindAccounts(ctx context.Context, names ...string) ([]Account, error) {
	var accounts []Account
	if err := a.condenser(ctx, "get_accounts", []any{names}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindAccount returns a single account or ErrAccountNotFound.
func (a *API) FindAccount(ctx context.Context, name string) (*Account, error) {
	accounts, err := a.FindAccounts(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == name {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
}

// BroadcastTransaction submits a signed transaction.
func (a *API) BroadcastTransaction(ctx context.Context, tx *wax.Transaction) error {
	return a.condenser(ctx, "broadcast_transaction", []any{tx}, nil)
}

// ListWitnesses returns witnesses ordered by votes.
func (a *API) ListWitnesses(ctx context.Context, start string, limit int) ([]Witness, error) {
	var witnesses []Witness
	if err := a.condenser(ctx, "get_witnesses_by_vote", []any{start, clampLimit(limit)}, &witnesses); err != nil {
		return nil, err
	}
	return witnesses, nil
}

// FindWitnesses returns the named witnesses that exist.
func (a *API) FindWitnesses(ctx context.Context, owners ...string) ([]Witness, error) {
	var res struct {
		Witnesses []Witness `json:"witnesses"`
	}
	if err := a.database(ctx, "find_witnesses", map[string]any{"owners": owners}, &res); err != nil {
		return nil, err
	}
	return res.Witnesses, nil
}

// ProposalStatus filters list_proposals.
type ProposalStatus string

const (
	ProposalsAll      ProposalStatus = "all"
	ProposalsActive   ProposalStatus = "active"
	ProposalsInactive ProposalStatus = "inactive"
	ProposalsVotable  ProposalStatus = "votable"
	ProposalsExpired  ProposalStatus = "expired"
)

// ListProposals lists proposals ordered by total votes, descending.
func (a *API) ListProposals(ctx context.Context, status ProposalStatus, limit int) ([]Proposal, error) {
	params := map[string]any{
		"start":           []any{},
		"limit":           clampLimit(limit),
		"order":           "by_total_votes",
		"order_direction": "descending",
		"status":          string(status),
	}
	var res struct {
		Proposals []Proposal `json:"proposals"`
	}
	if err := a.database(ctx, "list_proposals", params, &res); err != nil {
		return nil, err
	}
	return res.Proposals, nil
}

// FindProposals returns the proposals with the given ids.
func (a *API) FindProposals(ctx context.Context, ids ...int64) ([]Proposal, error) {
	var res struct {
		Proposals []Proposal `json:"proposals"`
	}
	if err := a.database(ctx, "find_proposals", map[string]any{"proposal_ids": ids}, &res); err != nil {
		return nil, err
	}
	return res.Proposals, nil
}

// ListProposalVotes returns the proposals voter has approved.
func (a *API) ListProposalVotes(ctx context.Context, voter string, limit int) ([]ProposalVote, error) {
	params := map[string]any{
		"start":           []any{voter},
		"limit":           clampLimit(limit),
		"order":           "by_voter_proposal",
		"order_direction": "ascending",
		"status":          string(ProposalsAll),
	}
	var res struct {
		ProposalVotes []ProposalVote `json:"proposal_votes"`
	}
	if err := a.database(ctx, "list_proposal_votes", params, &res); err != nil {
		return nil, err
	}
	// The listing continues past voter; keep only their entries.
	votes := res.ProposalVotes[:0]
	for _, v := range res.ProposalVotes {
		if v.Voter == voter {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

// FindSavingsWithdrawals returns pending withdrawals from account's savings.
func (a *API) FindSavingsWithdrawals(ctx context.Context, account string) ([]SavingsWithdrawal, error) {
	var withdrawals []SavingsWithdrawal
	if err := a.condenser(ctx, "get_savings_withdraw_from", []any{account}, &withdrawals); err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// FindVestingDelegations returns outgoing delegations of account.
func (a *API) FindVestingDelegations(ctx context.Context, account string) ([]VestingDelegation, error) {
	var delegations []VestingDelegation
	if err := a.condenser(ctx, "get_vesting_delegations", []any{account, "", MaxListLimit}, &delegations); err != nil {
		return nil, err
	}
	return delegations, nil
}

// FindWithdrawVestingRoutes returns outgoing power-down routes of account.
func (a *API) FindWithdrawVestingRoutes(ctx context.Context, account string) ([]WithdrawRoute, error) {
	var routes []WithdrawRoute
	if err := a.condenser(ctx, "get_withdraw_routes", []any{account, "outgoing"}, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// GetFeedHistory returns the witness price feed median.
func (a *API) GetFeedHistory(ctx context.Context) (*FeedHistory, error) {
	var feed FeedHistory
	if err := a.condenser(ctx, "get_feed_history", nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
