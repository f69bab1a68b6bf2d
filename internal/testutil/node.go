// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package testutil

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/aplane-algo/clive/internal/protocol"
	"github.com/aplane-algo/clive/internal/wax"
)

// Head block used by MockNode. TaPoS of this id is (0xabcd, 0x44332211).
const (
	MockHeadBlockID   = "0000abcd11223344000000000000000000000000"
	MockHeadBlockTime = "2026-01-02T03:04:05"
)

// MockNode is a fake hive API node. Accounts and other objects are kept as
// generic JSON maps so tests can shape them freely.
type MockNode struct {
	*RPCServer

	mu         sync.Mutex
	dgpo       map[string]any
	accounts   map[string]map[string]any
	witnesses  []map[string]any
	proposals  []map[string]any
	votes      []map[string]any
	savings    map[string][]map[string]any
	delegs     map[string][]map[string]any
	routes     map[string][]map[string]any
	broadcasts []json.RawMessage
	rejectWith string
}

// NewMockNode starts a fake node with mainnet ids and a fixed head block.
func NewMockNode(t *testing.T) *MockNode {
	t.Helper()
	n := &MockNode{
		RPCServer: NewRPCServer(t),
		dgpo: map[string]any{
			"head_block_number":           43981,
			"head_block_id":               MockHeadBlockID,
			"time":                        MockHeadBlockTime,
			"current_witness":             "blocktrades",
			"last_irreversible_block_num": 43960,
			"current_supply":              "400000000.000 HIVE",
			"current_hbd_supply":          "30000000.000 HBD",
			"total_vesting_fund_hive":     "200000000.000 HIVE",
			"total_vesting_shares":        "400000000000.000000 VESTS",
			"hbd_interest_rate":           2000,
			"hbd_print_rate":              10000,
			"vesting_reward_percent":      1500,
		},
		accounts: make(map[string]map[string]any),
		savings:  make(map[string][]map[string]any),
		delegs:   make(map[string][]map[string]any),
		routes:   make(map[string][]map[string]any),
	}
	n.Handle("condenser_api.get_dynamic_global_properties", n.getDGPO)
	n.SetChainID(wax.MainnetChainIDHex)
	n.Handle("condenser_api.get_accounts", n.getAccounts)
	n.Handle("condenser_api.broadcast_transaction", n.broadcast)
	n.Handle("condenser_api.get_witnesses_by_vote", n.witnessesByVote)
	n.Handle("database_api.find_witnesses", n.findWitnesses)
	n.Handle("database_api.list_proposals", n.list(func() any { return map[string]any{"proposals": n.proposals} }))
	n.Handle("database_api.find_proposals", n.list(func() any { return map[string]any{"proposals": n.proposals} }))
	n.Handle("database_api.list_proposal_votes", n.list(func() any { return map[string]any{"proposal_votes": n.votes} }))
	n.Handle("condenser_api.get_savings_withdraw_from", n.byAccount(func(a string) any { return n.savings[a] }))
	n.Handle("condenser_api.get_vesting_delegations", n.byAccount(func(a string) any { return n.delegs[a] }))
	n.Handle("condenser_api.get_withdraw_routes", n.byAccount(func(a string) any { return n.routes[a] }))
	n.Handle("condenser_api.get_feed_history", func(json.RawMessage) (any, *protocol.RPCError) {
		return map[string]any{
			"current_median_history": map[string]string{"base": "0.250 HBD", "quote": "1.000 HIVE"},
			"price_history":          []any{},
		}, nil
	})
	return n
}

// SetChainID makes get_config and get_version report chainID.
func (n *MockNode) SetChainID(chainID string) {
	n.Handle("condenser_api.get_config", func(json.RawMessage) (any, *protocol.RPCError) {
		return map[string]any{"HIVE_CHAIN_ID": chainID, "HIVE_ADDRESS_PREFIX": wax.PublicKeyPrefix}, nil
	})
	n.Handle("condenser_api.get_version", func(json.RawMessage) (any, *protocol.RPCError) {
		return map[string]any{
			"blockchain_version": "1.27.11",
			"hive_revision":      "0000000000000000000000000000000000000000",
			"fc_revision":        "0000000000000000000000000000000000000000",
			"chain_id":           chainID,
		}, nil
	})
}

// SetDGPO overrides one dynamic global property.
func (n *MockNode) SetDGPO(key string, value any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dgpo[key] = value
}

// AddAccount registers an account whose active, owner and posting authority
// is the single key, with the given liquid HIVE balance. Other fields can be
// adjusted through SetAccountField.
func (n *MockNode) AddAccount(name string, key wax.PublicKey, balance string) {
	single := map[string]any{
		"weight_threshold": 1,
		"account_auths":    []any{},
		"key_auths":        []any{[]any{key.String(), 1}},
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts[name] = map[string]any{
		"id":                        len(n.accounts) + 1,
		"name":                      name,
		"owner":                     single,
		"active":                    single,
		"posting":                   single,
		"memo_key":                  key.String(),
		"json_metadata":             "",
		"posting_json_metadata":     "",
		"proxy":                     "",
		"recovery_account":          "hive.fund",
		"balance":                   balance,
		"savings_balance":           "0.000 HIVE",
		"hbd_balance":               "0.000 HBD",
		"savings_hbd_balance":       "0.000 HBD",
		"savings_withdraw_requests": 0,
		"reward_hive_balance":       "0.000 HIVE",
		"reward_hbd_balance":        "0.000 HBD",
		"reward_vesting_balance":    "0.000000 VESTS",
		"vesting_shares":            "0.000000 VESTS",
		"delegated_vesting_shares":  "0.000000 VESTS",
		"received_vesting_shares":   "0.000000 VESTS",
		"vesting_withdraw_rate":     "0.000000 VESTS",
		"next_vesting_withdrawal":   "1969-12-31T23:59:59",
		"withdrawn":                 0,
		"to_withdraw":               0,
		"withdraw_routes":           0,
		"witness_votes":             []string{},
		"witnesses_voted_for":       0,
	}
}

// SetAccountField overrides one field of a registered account.
func (n *MockNode) SetAccountField(name, key string, value any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if acc, ok := n.accounts[name]; ok {
		acc[key] = value
	}
}

// SetAuthority replaces one authority role of an account.
func (n *MockNode) SetAuthority(name, role string, auth *wax.Authority) {
	n.SetAccountField(name, role, auth)
}

// AddWitness appends a witness to the by-vote listing.
func (n *MockNode) AddWitness(owner string, votes int64, key wax.PublicKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.witnesses = append(n.witnesses, map[string]any{
		"owner":                    owner,
		"url":                      "https://hive.blog/@" + owner,
		"votes":                    votes,
		"total_missed":             0,
		"signing_key":              key.String(),
		"running_version":          "1.27.11",
		"last_confirmed_block_num": 43980,
	})
}

// AddProposal appends a proposal.
func (n *MockNode) AddProposal(id int64, creator, subject string, totalVotes int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.proposals = append(n.proposals, map[string]any{
		"id":          id,
		"proposal_id": id,
		"creator":     creator,
		"receiver":    creator,
		"start_date":  "2026-01-01T00:00:00",
		"end_date":    "2027-01-01T00:00:00",
		"daily_pay":   "100.000 HBD",
		"subject":     subject,
		"permlink":    subject,
		"total_votes": totalVotes,
		"status":      "active",
	})
}

// AddProposalVote records that voter approves proposal id.
func (n *MockNode) AddProposalVote(voter string, id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var proposal map[string]any
	for _, p := range n.proposals {
		if p["id"] == id {
			proposal = p
		}
	}
	n.votes = append(n.votes, map[string]any{"id": len(n.votes), "voter": voter, "proposal": proposal})
}

// AddSavingsWithdrawal records a pending transfer from savings.
func (n *MockNode) AddSavingsWithdrawal(from string, requestID uint32, amount string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.savings[from] = append(n.savings[from], map[string]any{
		"id":         len(n.savings[from]),
		"from":       from,
		"to":         from,
		"memo":       "",
		"request_id": requestID,
		"amount":     amount,
		"complete":   "2026-01-05T03:04:05",
	})
}

// AddDelegation records an outgoing vesting delegation.
func (n *MockNode) AddDelegation(delegator, delegatee, vests string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delegs[delegator] = append(n.delegs[delegator], map[string]any{
		"id":                  len(n.delegs[delegator]),
		"delegator":           delegator,
		"delegatee":           delegatee,
		"vesting_shares":      vests,
		"min_delegation_time": "2026-01-02T03:04:05",
	})
}

// AddWithdrawRoute records an outgoing power down route.
func (n *MockNode) AddWithdrawRoute(from, to string, percent uint16, autoVest bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[from] = append(n.routes[from], map[string]any{
		"id":           len(n.routes[from]),
		"from_account": from,
		"to_account":   to,
		"percent":      percent,
		"auto_vest":    autoVest,
	})
}

// RejectBroadcasts makes broadcast_transaction fail with an assertion message.
// An empty message accepts broadcasts again.
func (n *MockNode) RejectBroadcasts(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejectWith = message
}

// Broadcasts returns the raw JSON of every accepted transaction.
func (n *MockNode) Broadcasts() []json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]json.RawMessage(nil), n.broadcasts...)
}

func (n *MockNode) getDGPO(json.RawMessage) (any, *protocol.RPCError) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]any, len(n.dgpo))
	for k, v := range n.dgpo {
		out[k] = v
	}
	return out, nil
}

func (n *MockNode) getAccounts(raw json.RawMessage) (any, *protocol.RPCError) {
	var params [][]string
	if err := json.Unmarshal(raw, &params); err != nil || len(params) != 1 {
		return nil, invalidParams(err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]map[string]any, 0, len(params[0]))
	for _, name := range params[0] {
		if acc, ok := n.accounts[name]; ok {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (n *MockNode) findWitnesses(raw json.RawMessage) (any, *protocol.RPCError) {
	var params struct {
		Owners []string `json:"owners"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []map[string]any{}
	for _, owner := range params.Owners {
		for _, w := range n.witnesses {
			if w["owner"] == owner {
				out = append(out, w)
			}
		}
	}
	return map[string]any{"witnesses": out}, nil
}

// witnessesByVote lists witnesses in insertion order, which tests keep
// sorted by votes, honouring the limit parameter.
func (n *MockNode) witnessesByVote(raw json.RawMessage) (any, *protocol.RPCError) {
	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil || len(params) != 2 {
		return nil, invalidParams(err)
	}
	var limit int
	if err := json.Unmarshal(params[1], &limit); err != nil {
		return nil, invalidParams(err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.witnesses
	if limit < len(out) {
		out = out[:limit]
	}
	return append([]map[string]any{}, out...), nil
}

func (n *MockNode) broadcast(raw json.RawMessage) (any, *protocol.RPCError) {
	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil || len(params) != 1 {
		return nil, invalidParams(err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rejectWith != "" {
		return nil, AssertionError(n.rejectWith)
	}
	n.broadcasts = append(n.broadcasts, params[0])
	return struct{}{}, nil
}

func (n *MockNode) list(fn func() any) RPCHandler {
	return func(json.RawMessage) (any, *protocol.RPCError) {
		n.mu.Lock()
		defer n.mu.Unlock()
		return fn(), nil
	}
}

func (n *MockNode) byAccount(fn func(account string) any) RPCHandler {
	return func(raw json.RawMessage) (any, *protocol.RPCError) {
		var params []json.RawMessage
		if err := json.Unmarshal(raw, &params); err != nil || len(params) == 0 {
			return nil, invalidParams(err)
		}
		var account string
		if err := json.Unmarshal(params[0], &account); err != nil {
			return nil, invalidParams(err)
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		return fn(account), nil
	}
}
