// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Protocol operation ids (index in hive::protocol::operation).
const (
	OpIDVote                      uint32 = 0
	OpIDTransfer                  uint32 = 2
	OpIDTransferToVesting         uint32 = 3
	OpIDWithdrawVesting           uint32 = 4
	OpIDAccountUpdate             uint32 = 10
	OpIDAccountWitnessVote        uint32 = 12
	OpIDAccountWitnessProxy       uint32 = 13
	OpIDCustomJSON                uint32 = 18
	OpIDSetWithdrawVestingRoute   uint32 = 20
	OpIDChangeRecoveryAccount     uint32 = 26
	OpIDTransferToSavings         uint32 = 32
	OpIDTransferFromSavings       uint32 = 33
	OpIDCancelTransferFromSavings uint32 = 34
	OpIDClaimRewardBalance        uint32 = 39
	OpIDDelegateVestingShares     uint32 = 40
	OpIDAccountUpdate2            uint32 = 43
	OpIDUpdateProposalVotes       uint32 = 45
	OpIDRemoveProposal            uint32 = 46
	OpIDRecurrentTransfer         uint32 = 49
)

func init() {
	registerOperation(func() Operation { return &VoteOperation{} })
	registerOperation(func() Operation { return &TransferOperation{} })
	registerOperation(func() Operation { return &TransferToVestingOperation{} })
	registerOperation(func() Operation { return &WithdrawVestingOperation{} })
	registerOperation(func() Operation { return &AccountUpdateOperation{} })
	registerOperation(func() Operation { return &AccountWitnessVoteOperation{} })
	registerOperation(func() Operation { return &AccountWitnessProxyOperation{} })
	registerOperation(func() Operation { return &CustomJSONOperation{} })
	registerOperation(func() Operation { return &SetWithdrawVestingRouteOperation{} })
	registerOperation(func() Operation { return &ChangeRecoveryAccountOperation{} })
	registerOperation(func() Operation { return &TransferToSavingsOperation{} })
	registerOperation(func() Operation { return &TransferFromSavingsOperation{} })
	registerOperation(func() Operation { return &CancelTransferFromSavingsOperation{} })
	registerOperation(func() Operation { return &ClaimRewardBalanceOperation{} })
	registerOperation(func() Operation { return &DelegateVestingSharesOperation{} })
	registerOperation(func() Operation { return &AccountUpdate2Operation{} })
	registerOperation(func() Operation { return &UpdateProposalVotesOperation{} })
	registerOperation(func() Operation { return &RemoveProposalOperation{} })
	registerOperation(func() Operation { return &RecurrentTransferOperation{} })
}

// Extensions is an always-empty extensions vector.
type Extensions struct{}

func (Extensions) MarshalJSON() ([]byte, error) {
	return []byte("[]"), nil
}

func (*Extensions) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("invalid extensions: %w", err)
	}
	if len(items) != 0 {
		return fmt.Errorf("unsupported extensions (count %d)", len(items))
	}
	return nil
}

// VoteOperation upvotes or downvotes a post; weight is in basis points (-10000..10000).
type VoteOperation struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int16  `json:"weight"`
}

func (*VoteOperation) OpName() string { return "vote" }
func (*VoteOperation) OpID() uint32   { return OpIDVote }
func (o *VoteOperation) encode(e *Encoder) {
	e.String(o.Voter)
	e.String(o.Author)
	e.String(o.Permlink)
	e.Int16(o.Weight)
}
func (o *VoteOperation) decode(d *Decoder) {
	o.Voter = d.String()
	o.Author = d.String()
	o.Permlink = d.String()
	o.Weight = d.Int16()
}
func (o *VoteOperation) RequiredAuthorities(r *RequiredAuths) { r.addPosting(o.Voter) }

// TransferOperation moves liquid HIVE or HBD.
type TransferOperation struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Asset  `json:"amount"`
	Memo   string `json:"memo"`
}

func (*TransferOperation) OpName() string { return "transfer" }
func (*TransferOperation) OpID() uint32   { return OpIDTransfer }
func (o *TransferOperation) encode(e *Encoder) {
	e.String(o.From)
	e.String(o.To)
	encodeAsset(e, o.Amount)
	e.String(o.Memo)
}
func (o *TransferOperation) decode(d *Decoder) {
	o.From = d.String()
	o.To = d.String()
	o.Amount = decodeAsset(d)
	o.Memo = d.String()
}
func (o *TransferOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.From) }

// TransferToVestingOperation powers up HIVE into VESTS. An empty To means the sender.
type TransferToVestingOperation struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Asset  `json:"amount"`
}

func (*TransferToVestingOperation) OpName() string { return "transfer_to_vesting" }
func (*TransferToVestingOperation) OpID() uint32   { return OpIDTransferToVesting }
func (o *TransferToVestingOperation) encode(e *Encoder) {
	e.String(o.From)
	e.String(o.To)
	encodeAsset(e, o.Amount)
}
func (o *TransferToVestingOperation) decode(d *Decoder) {
	o.From = d.String()
	o.To = d.String()
	o.Amount = decodeAsset(d)
}
func (o *TransferToVestingOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.From) }

// WithdrawVestingOperation starts (or with zero shares, cancels) a power down.
type WithdrawVestingOperation struct {
	Account       string `json:"account"`
	VestingShares Asset  `json:"vesting_shares"`
}

func (*WithdrawVestingOperation) OpName() string { return "withdraw_vesting" }
func (*WithdrawVestingOperation) OpID() uint32   { return OpIDWithdrawVesting }
func (o *WithdrawVestingOperation) encode(e *Encoder) {
	e.String(o.Account)
	encodeAsset(e, o.VestingShares)
}
func (o *WithdrawVestingOperation) decode(d *Decoder) {
	o.Account = d.String()
	o.VestingShares = decodeAsset(d)
}
func (o *WithdrawVestingOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.Account) }

// AccountUpdateOperation is the original authority update; memo key is mandatory.
type AccountUpdateOperation struct {
	Account      string     `json:"account"`
	Owner        *Authority `json:"owner,omitempty"`
	Active       *Authority `json:"active,omitempty"`
	Posting      *Authority `json:"posting,omitempty"`
	MemoKey      PublicKey  `json:"memo_key"`
	JSONMetadata string     `json:"json_metadata"`
}

func (*AccountUpdateOperation) OpName() string { return "account_update" }
func (*AccountUpdateOperation) OpID() uint32   { return OpIDAccountUpdate }
func (o *AccountUpdateOperation) encode(e *Encoder) {
	e.String(o.Account)
	encodeOptionalAuthority(e, o.Owner)
	encodeOptionalAuthority(e, o.Active)
	encodeOptionalAuthority(e, o.Posting)
	encodePublicKey(e, o.MemoKey)
	e.String(o.JSONMetadata)
}
func (o *AccountUpdateOperation) decode(d *Decoder) {
	o.Account = d.String()
	o.Owner = decodeOptionalAuthority(d)
	o.Active = decodeOptionalAuthority(d)
	o.Posting = decodeOptionalAuthority(d)
	o.MemoKey = decodePublicKey(d)
	o.JSONMetadata = d.String()
}
func (o *AccountUpdateOperation) RequiredAuthorities(r *RequiredAuths) {
	if o.Owner != nil {
		r.addOwner(o.Account)
		return
	}
	r.addActive(o.Account)
}

// AccountWitnessVoteOperation approves or unapproves a witness.
type AccountWitnessVoteOperation struct {
	Account string `json:"account"`
	Witness string `json:"witness"`
	Approve bool   `json:"approve"`
}

func (*AccountWitnessVoteOperation) OpName() string { return "account_witness_vote" }
func (*AccountWitnessVoteOperation) OpID() uint32   { return OpIDAccountWitnessVote }
func (o *AccountWitnessVoteOperation) encode(e *Encoder) {
	e.String(o.Account)
	e.String(o.Witness)
	e.Bool(o.Approve)
}
func (o *AccountWitnessVoteOperation) decode(d *Decoder) {
	o.Account = d.String()
	o.Witness = d.String()
	o.Approve = d.Bool()
}
func (o *AccountWitnessVoteOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.Account) }

// AccountWitnessProxyOperation sets a governance proxy. An empty Proxy clears it.
type AccountWitnessProxyOperation struct {
	Account string `json:"account"`
	Proxy   string `json:"proxy"`
}

func (*AccountWitnessProxyOperation) OpName() string { return "account_witness_proxy" }
func (*AccountWitnessProxyOperation) OpID() uint32   { return OpIDAccountWitnessProxy }
func (o *AccountWitnessProxyOperation) encode(e *Encoder) {
	e.String(o.Account)
	e.String(o.Proxy)
}
func (o *AccountWitnessProxyOperation) decode(d *Decoder) {
	o.Account = d.String()
	o.Proxy = d.String()
}
func (o *AccountWitnessProxyOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.Account) }

// CustomJSONOperation carries application-defined JSON.
type CustomJSONOperation struct {
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
}

func (*CustomJSONOperation) OpName() string { return "custom_json" }
func (*CustomJSONOperation) OpID() uint32   { return OpIDCustomJSON }
func (o *CustomJSONOperation) encode(e *Encoder) {
	e.Strings(sortedCopy(o.RequiredAuths))
	e.Strings(sortedCopy(o.RequiredPostingAuths))
	e.String(o.ID)
	e.String(o.JSON)
}
func (o *CustomJSONOperation) decode(d *Decoder) {
	o.RequiredAuths = d.Strings()
	o.RequiredPostingAuths = d.Strings()
	o.ID = d.String()
	o.JSON = d.String()
}
func (o *CustomJSONOperation) RequiredAuthorities(r *RequiredAuths) {
	r.addActive(o.RequiredAuths...)
	r.addPosting(o.RequiredPostingAuths...)
}

func (o *CustomJSONOperation) MarshalJSON() ([]byte, error) {
	type plain CustomJSONOperation
	p := plain(*o)
	if p.RequiredAuths == nil {
		p.RequiredAuths = []string{}
	}
	if p.RequiredPostingAuths == nil {
		p.RequiredPostingAuths = []string{}
	}
	return json.Marshal(p)
}

// SetWithdrawVestingRouteOperation routes a percentage of power-down payouts.
// Percent is in basis points.
type SetWithdrawVestingRouteOperation struct {
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Percent     uint16 `json:"percent"`
	AutoVest    bool   `json:"auto_vest"`
}

func (*SetWithdrawVestingRouteOperation) OpName() string { return "set_withdraw_vesting_route" }
func (*SetWithdrawVestingRouteOperation) OpID() uint32   { return OpIDSetWithdrawVestingRoute }
func (o *SetWithdrawVestingRouteOperation) encode(e *Encoder) {
	e.String(o.FromAccount)
	e.String(o.ToAccount)
	e.Uint16(o.Percent)
	e.Bool(o.AutoVest)
}
func (o *SetWithdrawVestingRouteOperation) decode(d *Decoder) {
	o.FromAccount = d.String()
	o.ToAccount = d.String()
	o.Percent = d.Uint16()
	o.AutoVest = d.Bool()
}
func (o *SetWithdrawVestingRouteOperation) RequiredAuthorities(r *RequiredAuths) {
	r.addActive(o.FromAccount)
}

// ChangeRecoveryAccountOperation changes who may recover the account.
type ChangeRecoveryAccountOperation struct {
	AccountToRecover   string     `json:"account_to_recover"`
	NewRecoveryAccount string     `json:"new_recovery_account"`
	Extensions         Extensions `json:"extensions"`
}

func (*ChangeRecoveryAccountOperation) OpName() string { return "change_recovery_account" }
func (*ChangeRecoveryAccountOperation) OpID() uint32   { return OpIDChangeRecoveryAccount }
func (o *ChangeRecoveryAccountOperation) encode(e *Encoder) {
	e.String(o.AccountToRecover)
	e.String(o.NewRecoveryAccount)
	e.EmptyExtensions()
}
func (o *ChangeRecoveryAccountOperation) decode(d *Decoder) {
	o.AccountToRecover = d.String()
	o.NewRecoveryAccount = d.String()
	d.EmptyExtensions()
}
func (o *ChangeRecoveryAccountOperation) RequiredAuthorities(r *RequiredAuths) {
	r.addOwner(o.AccountToRecover)
}

// TransferToSavingsOperation deposits into savings.
type TransferToSavingsOperation struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Asset  `json:"amount"`
	Memo   string `json:"memo"`
}

func (*TransferToSavingsOperation) OpName() string { return "transfer_to_savings" }
func (*TransferToSavingsOperation) OpID() uint32   { return OpIDTransferToSavings }
func (o *TransferToSavingsOperation) encode(e *Encoder) {
	e.String(o.From)
	e.String(o.To)
	encodeAsset(e, o.Amount)
	e.String(o.Memo)
}
func (o *TransferToSavingsOperation) decode(d *Decoder) {
	o.From = d.String()
	o.To = d.String()
	o.Amount = decodeAsset(d)
	o.Memo = d.String()
}
func (o *TransferToSavingsOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.From) }

// TransferFromSavingsOperation starts a three-day savings withdrawal.
type TransferFromSavingsOperation struct {
	From      string `json:"from"`
	RequestID uint32 `json:"request_id"`
	To        string `json:"to"`
	Amount    Asset  `json:"amount"`
	Memo      string `json:"memo"`
}

func (*TransferFromSavingsOperation) OpName() string { return "transfer_from_savings" }
func (*TransferFromSavingsOperation) OpID() uint32   { return OpIDTransferFromSavings }
func (o *TransferFromSavingsOperation) encode(e *Encoder) {
	e.String(o.From)
	e.Uint32(o.RequestID)
	e.String(o.To)
	encodeAsset(e, o.Amount)
	e.String(o.Memo)
}
func (o *TransferFromSavingsOperation) decode(d *Decoder) {
	o.From = d.String()
	o.RequestID = d.Uint32()
	o.To = d.String()
	o.Amount = decodeAsset(d)
	o.Memo = d.String()
}
func (o *TransferFromSavingsOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.From) }

// CancelTransferFromSavingsOperation cancels a pending savings withdrawal.
type CancelTransferFromSavingsOperation struct {
	From      string `json:"from"`
	RequestID uint32 `json:"request_id"`
}

func (*CancelTransferFromSavingsOperation) OpName() string { return "cancel_transfer_from_savings" }
func (*CancelTransferFromSavingsOperation) OpID() uint32   { return OpIDCancelTransferFromSavings }
func (o *CancelTransferFromSavingsOperation) encode(e *Encoder) {
	e.String(o.From)
	e.Uint32(o.RequestID)
}
func (o *CancelTransferFromSavingsOperation) decode(d *Decoder) {
	o.From = d.String()
	o.RequestID = d.Uint32()
}
func (o *CancelTransferFromSavingsOperation) RequiredAuthorities(r *RequiredAuths) {
	r.addActive(o.From)
}

// ClaimRewardBalanceOperation claims pending author/curation rewards.
type ClaimRewardBalanceOperation struct {
	Account     string `json:"account"`
	RewardHive  Asset  `json:"reward_hive"`
	RewardHBD   Asset  `json:"reward_hbd"`
	RewardVests Asset  `json:"reward_vests"`
}

func (*ClaimRewardBalanceOperation) OpName() string { return "claim_reward_balance" }
func (*ClaimRewardBalanceOperation) OpID() uint32   { return OpIDClaimRewardBalance }
func (o *ClaimRewardBalanceOperation) encode(e *Encoder) {
	e.String(o.Account)
	encodeAsset(e, o.RewardHive)
	encodeAsset(e, o.RewardHBD)
	encodeAsset(e, o.RewardVests)
}
func (o *ClaimRewardBalanceOperation) decode(d *Decoder) {
	o.Account = d.String()
	o.RewardHive = decodeAsset(d)
	o.RewardHBD = decodeAsset(d)
	o.RewardVests = decodeAsset(d)
}
func (o *ClaimRewardBalanceOperation) RequiredAuthorities(r *RequiredAuths) { r.addPosting(o.Account) }

// DelegateVestingSharesOperation delegates (or with zero shares, removes) Hive Power.
type DelegateVestingSharesOperation struct {
	Delegator     string `json:"delegator"`
	Delegatee     string `json:"delegatee"`
	VestingShares Asset  `json:"vesting_shares"`
}

func (*DelegateVestingSharesOperation) OpName() string { return "delegate_vesting_shares" }
func (*DelegateVestingSharesOperation) OpID() uint32   { return OpIDDelegateVestingShares }
func (o *DelegateVestingSharesOperation) encode(e *Encoder) {
	e.String(o.Delegator)
	e.String(o.Delegatee)
	encodeAsset(e, o.VestingShares)
}
func (o *DelegateVestingSharesOperation) decode(d *Decoder) {
	o.Delegator = d.String()
	o.Delegatee = d.String()
	o.VestingShares = decodeAsset(d)
}
func (o *DelegateVestingSharesOperation) RequiredAuthorities(r *RequiredAuths) {
	r.addActive(o.Delegator)
}

// AccountUpdate2Operation updates any subset of authorities and metadata.
type AccountUpdate2Operation struct {
	Account             string     `json:"account"`
	Owner               *Authority `json:"owner,omitempty"`
	Active              *Authority `json:"active,omitempty"`
	Posting             *Authority `json:"posting,omitempty"`
	MemoKey             *PublicKey `json:"memo_key,omitempty"`
	JSONMetadata        string     `json:"json_metadata"`
	PostingJSONMetadata string     `json:"posting_json_metadata"`
	Extensions          Extensions `json:"extensions"`
}

func (*AccountUpdate2Operation) OpName() string { return "account_update2" }
func (*AccountUpdate2Operation) OpID() uint32   { return OpIDAccountUpdate2 }
func (o *AccountUpdate2Operation) encode(e *Encoder) {
	e.String(o.Account)
	encodeOptionalAuthority(e, o.Owner)
	encodeOptionalAuthority(e, o.Active)
	encodeOptionalAuthority(e, o.Posting)
	if o.MemoKey == nil {
		e.Bool(false)
	} else {
		e.Bool(true)
		encodePublicKey(e, *o.MemoKey)
	}
	e.String(o.JSONMetadata)
	e.String(o.PostingJSONMetadata)
	e.EmptyExtensions()
}
func (o *AccountUpdate2Operation) decode(d *Decoder) {
	o.Account = d.String()
	o.Owner = decodeOptionalAuthority(d)
	o.Active = decodeOptionalAuthority(d)
	o.Posting = decodeOptionalAuthority(d)
	if d.Bool() {
		key := decodePublicKey(d)
		o.MemoKey = &key
	}
	o.JSONMetadata = d.String()
	o.PostingJSONMetadata = d.String()
	d.EmptyExtensions()
}
func (o *AccountUpdate2Operation) RequiredAuthorities(r *RequiredAuths) {
	switch {
	case o.Owner != nil:
		r.addOwner(o.Account)
	case o.Active != nil || o.Posting != nil || o.MemoKey != nil || o.JSONMetadata != "":
		r.addActive(o.Account)
	default:
		r.addPosting(o.Account)
	}
}

// UpdateProposalVotesOperation approves or unapproves DHF proposals.
type UpdateProposalVotesOperation struct {
	Voter       string     `json:"voter"`
	ProposalIDs []int64    `json:"proposal_ids"`
	Approve     bool       `json:"approve"`
	Extensions  Extensions `json:"extensions"`
}

func (*UpdateProposalVotesOperation) OpName() string { return "update_proposal_votes" }
func (*UpdateProposalVotesOperation) OpID() uint32   { return OpIDUpdateProposalVotes }
func (o *UpdateProposalVotesOperation) encode(e *Encoder) {
	e.String(o.Voter)
	encodeIDSet(e, o.ProposalIDs)
	e.Bool(o.Approve)
	e.EmptyExtensions()
}
func (o *UpdateProposalVotesOperation) decode(d *Decoder) {
	o.Voter = d.String()
	o.ProposalIDs = decodeIDSet(d)
	o.Approve = d.Bool()
	d.EmptyExtensions()
}
func (o *UpdateProposalVotesOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.Voter) }

// RemoveProposalOperation removes proposals owned by ProposalOwner.
type RemoveProposalOperation struct {
	ProposalOwner string     `json:"proposal_owner"`
	ProposalIDs   []int64    `json:"proposal_ids"`
	Extensions    Extensions `json:"extensions"`
}

func (*RemoveProposalOperation) OpName() string { return "remove_proposal" }
func (*RemoveProposalOperation) OpID() uint32   { return OpIDRemoveProposal }
func (o *RemoveProposalOperation) encode(e *Encoder) {
	e.String(o.ProposalOwner)
	encodeIDSet(e, o.ProposalIDs)
	e.EmptyExtensions()
}
func (o *RemoveProposalOperation) decode(d *Decoder) {
	o.ProposalOwner = d.String()
	o.ProposalIDs = decodeIDSet(d)
	d.EmptyExtensions()
}
func (o *RemoveProposalOperation) RequiredAuthorities(r *RequiredAuths) {
	r.addActive(o.ProposalOwner)
}

// RecurrentTransferOperation schedules repeated transfers every Recurrence hours.
type RecurrentTransferOperation struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Amount     Asset      `json:"amount"`
	Memo       string     `json:"memo"`
	Recurrence uint16     `json:"recurrence"`
	Executions uint16     `json:"executions"`
	Extensions Extensions `json:"extensions"`
}

func (*RecurrentTransferOperation) OpName() string { return "recurrent_transfer" }
func (*RecurrentTransferOperation) OpID() uint32   { return OpIDRecurrentTransfer }
func (o *RecurrentTransferOperation) encode(e *Encoder) {
	e.String(o.From)
	e.String(o.To)
	encodeAsset(e, o.Amount)
	e.String(o.Memo)
	e.Uint16(o.Recurrence)
	e.Uint16(o.Executions)
	e.EmptyExtensions()
}
func (o *RecurrentTransferOperation) decode(d *Decoder) {
	o.From = d.String()
	o.To = d.String()
	o.Amount = decodeAsset(d)
	o.Memo = d.String()
	o.Recurrence = d.Uint16()
	o.Executions = d.Uint16()
	d.EmptyExtensions()
}
func (o *RecurrentTransferOperation) RequiredAuthorities(r *RequiredAuths) { r.addActive(o.From) }

// encodeIDSet writes a flat_set<int64>: sorted and deduplicated.
func encodeIDSet(e *Encoder, ids []int64) {
	set := sortedIDs(ids)
	e.Varint(uint64(len(set)))
	for _, id := range set {
		e.Int64(id)
	}
}

func decodeIDSet(d *Decoder) []int64 {
	n := d.Length()
	ids := make([]int64, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		ids = append(ids, d.Int64())
	}
	return ids
}

func sortedIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
