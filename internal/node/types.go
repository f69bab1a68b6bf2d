// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package node

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/aplane-algo/clive/internal/wax"
)

// Int64 decodes an int64 that hived may emit either as a JSON number or as a string.
type Int64 int64

func (v *Int64) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid integer %s", string(data))
		}
		n = json.Number(s)
	}
	parsed, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", string(data), err)
	}
	*v = Int64(parsed)
	return nil
}

// DynamicGlobalProperties is the subset of dynamic global properties clive uses.
type DynamicGlobalProperties struct {
	HeadBlockNumber          uint32    `json:"head_block_number"`
	HeadBlockID              string    `json:"head_block_id"`
	Time                     wax.Time  `json:"time"`
	CurrentWitness           string    `json:"current_witness"`
	LastIrreversibleBlockNum uint32    `json:"last_irreversible_block_num"`
	CurrentSupply            wax.Asset `json:"current_supply"`
	CurrentHBDSupply         wax.Asset `json:"current_hbd_supply"`
	TotalVestingFundHive     wax.Asset `json:"total_vesting_fund_hive"`
	TotalVestingShares       wax.Asset `json:"total_vesting_shares"`
	HBDInterestRate          uint16    `json:"hbd_interest_rate"`
	HBDPrintRate             uint16    `json:"hbd_print_rate"`
	VestingRewardPercent     uint16    `json:"vesting_reward_percent"`
}

// VestsToHive converts vesting shares into HIVE at the current ratio.
func (d *DynamicGlobalProperties) VestsToHive(vests wax.Asset) wax.Asset {
	if d.TotalVestingShares.Amount == 0 {
		return wax.Hive(0)
	}
	return wax.Hive(mulDiv(vests.Amount, d.TotalVestingFundHive.Amount, d.TotalVestingShares.Amount))
}

// HiveToVests converts HIVE into vesting shares at the current ratio.
func (d *DynamicGlobalProperties) HiveToVests(hive wax.Asset) wax.Asset {
	if d.TotalVestingFundHive.Amount == 0 {
		return wax.Vests(0)
	}
	return wax.Vests(mulDiv(hive.Amount, d.TotalVestingShares.Amount, d.TotalVestingFundHive.Amount))
}

// mulDiv computes a*b/c without intermediate overflow, truncating toward zero.
func mulDiv(a, b, c int64) int64 {
	r := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	r.Quo(r, big.NewInt(c))
	return r.Int64()
}

// Version is the result of get_version.
type Version struct {
	BlockchainVersion string `json:"blockchain_version"`
	HiveRevision      string `json:"hive_revision"`
	FCRevision        string `json:"fc_revision"`
	ChainID           string `json:"chain_id"`
}

// Config is the node's compile-time configuration (HIVE_* constants).
type Config map[string]json.RawMessage

// String returns a string-valued entry.
func (c Config) String(key string) (string, bool) {
	raw, ok := c[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Account is the subset of a condenser account object clive uses.
type Account struct {
	ID                     int64          `json:"id"`
	Name                   string         `json:"name"`
	Owner                  *wax.Authority `json:"owner"`
	Active                 *wax.Authority `json:"active"`
	Posting                *wax.Authority `json:"posting"`
	MemoKey                wax.PublicKey  `json:"memo_key"`
	JSONMetadata           string         `json:"json_metadata"`
	PostingJSONMetadata    string         `json:"posting_json_metadata"`
	Proxy                  string         `json:"proxy"`
	RecoveryAccount        string         `json:"recovery_account"`
	Balance                wax.Asset      `json:"balance"`
	SavingsBalance         wax.Asset      `json:"savings_balance"`
	HBDBalance             wax.Asset      `json:"hbd_balance"`
	SavingsHBDBalance      wax.Asset      `json:"savings_hbd_balance"`
	SavingsWithdrawCount   uint16         `json:"savings_withdraw_requests"`
	RewardHiveBalance      wax.Asset      `json:"reward_hive_balance"`
	RewardHBDBalance       wax.Asset      `json:"reward_hbd_balance"`
	RewardVestingBalance   wax.Asset      `json:"reward_vesting_balance"`
	VestingShares          wax.Asset      `json:"vesting_shares"`
	DelegatedVestingShares wax.Asset      `json:"delegated_vesting_shares"`
	ReceivedVestingShares  wax.Asset      `json:"received_vesting_shares"`
	VestingWithdrawRate    wax.Asset      `json:"vesting_withdraw_rate"`
	NextVestingWithdrawal  wax.Time       `json:"next_vesting_withdrawal"`
	Withdrawn              Int64          `json:"withdrawn"`
	ToWithdraw             Int64          `json:"to_withdraw"`
	WithdrawRoutes         uint16         `json:"withdraw_routes"`
	WitnessVotes           []string       `json:"witness_votes"`
	WitnessesVotedFor      uint16         `json:"witnesses_voted_for"`
	SavingsHBDSeconds      Int64          `json:"savings_hbd_seconds"`
	HBDSecondsLastUpdate   wax.Time       `json:"savings_hbd_seconds_last_update"`
	HBDLastInterestPayment wax.Time       `json:"savings_hbd_last_interest_payment"`
}

// Witness is a witness object.
type Witness struct {
	Owner          string        `json:"owner"`
	URL            string        `json:"url"`
	Votes          Int64         `json:"votes"`
	TotalMissed    uint32        `json:"total_missed"`
	SigningKey     wax.PublicKey `json:"signing_key"`
	RunningVersion string        `json:"running_version"`
	LastBlock      uint32        `json:"last_confirmed_block_num"`
}

// IsActive reports whether the witness has a signing key set.
func (w *Witness) IsActive() bool {
	return !w.SigningKey.IsZero()
}

// Proposal is a DHF proposal.
type Proposal struct {
	ID         int64     `json:"id"`
	ProposalID int64     `json:"proposal_id"`
	Creator    string    `json:"creator"`
	Receiver   string    `json:"receiver"`
	StartDate  wax.Time  `json:"start_date"`
	EndDate    wax.Time  `json:"end_date"`
	DailyPay   wax.Asset `json:"daily_pay"`
	Subject    string    `json:"subject"`
	Permlink   string    `json:"permlink"`
	TotalVotes Int64     `json:"total_votes"`
	Status     string    `json:"status"`
}

// ProposalVote is one (voter, proposal) approval.
type ProposalVote struct {
	ID       int64    `json:"id"`
	Voter    string   `json:"voter"`
	Proposal Proposal `json:"proposal"`
}

// SavingsWithdrawal is a pending transfer_from_savings.
type SavingsWithdrawal struct {
	ID        int64     `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Memo      string    `json:"memo"`
	RequestID uint32    `json:"request_id"`
	Amount    wax.Asset `json:"amount"`
	Complete  wax.Time  `json:"complete"`
}

// VestingDelegation is an outgoing delegation.
type VestingDelegation struct {
	ID                int64     `json:"id"`
	Delegator         string    `json:"delegator"`
	Delegatee         string    `json:"delegatee"`
	VestingShares     wax.Asset `json:"vesting_shares"`
	MinDelegationTime wax.Time  `json:"min_delegation_time"`
}

// WithdrawRoute routes part of a power down to another account.
type WithdrawRoute struct {
	ID          int64  `json:"id"`
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Percent     uint16 `json:"percent"`
	AutoVest    bool   `json:"auto_vest"`
}

// Price is a base/quote exchange rate.
type Price struct {
	Base  wax.Asset `json:"base"`
	Quote wax.Asset `json:"quote"`
}

// FeedHistory holds the median HBD/HIVE price.
type FeedHistory struct {
	CurrentMedianHistory Price   `json:"current_median_history"`
	PriceHistory         []Price `json:"price_history"`
}
