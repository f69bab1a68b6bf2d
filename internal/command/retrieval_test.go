// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/testutil"
	"github.com/aplane-algo/clive/internal/wax"
)

func TestBalances(t *testing.T) {
	key := testutil.TestKey(t, 1)
	e := newEnv(t)
	e.mock.AddAccount("alice", key.PublicKey(), "12.345 HIVE")
	e.mock.SetAccountField("alice", "hbd_balance", "1.500 HBD")
	e.mock.SetAccountField("alice", "vesting_shares", "2000000.000000 VESTS")
	e.mock.SetAccountField("alice", "reward_vesting_balance", "2000.000000 VESTS")

	b, err := Run[*BalancesData](context.Background(), NewBalances(e.chain, "alice"))
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	checks := map[string][2]string{
		"hive":     {b.Hive.String(), "12.345 HIVE"},
		"hbd":      {b.HBD.String(), "1.500 HBD"},
		"hp":       {b.HivePower.String(), "1000.000 HIVE"},
		"rewardHP": {b.RewardHP.String(), "1.000 HIVE"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %s, want %s", name, c[0], c[1])
		}
	}
	if !b.HasRewards() {
		t.Error("HasRewards = false with pending vesting reward")
	}
}

func TestBalances_UnknownAccount(t *testing.T) {
	e := newEnv(t)
	err := NewBalances(e.chain, "nobody").Execute(context.Background())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageSanitize {
		t.Fatalf("error = %v, want sanitize StageError", err)
	}
	if !errors.Is(err, node.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestBalances_NodeDown(t *testing.T) {
	e := newEnv(t)
	e.mock.SetDown(true)
	err := NewBalances(e.chain, "alice").Execute(context.Background())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageHarvest {
		t.Fatalf("error = %v, want harvest StageError", err)
	}
}

func TestSavings(t *testing.T) {
	key := testutil.TestKey(t, 1)
	e := newEnv(t)
	e.mock.AddAccount("alice", key.PublicKey(), "0.000 HIVE")
	e.mock.SetAccountField("alice", "savings_hbd_balance", "100.000 HBD")
	e.mock.SetAccountField("alice", "savings_balance", "5.000 HIVE")
	e.mock.SetAccountField("alice", "savings_hbd_seconds", "0")
	// One day before the mock head block time.
	e.mock.SetAccountField("alice", "savings_hbd_seconds_last_update", "2026-01-01T03:04:05")
	e.mock.AddSavingsWithdrawal("alice", 7, "1.000 HBD")
	e.mock.AddSavingsWithdrawal("alice", 3, "2.000 HIVE")

	s, err := Run[*SavingsData](context.Background(), NewSavings(e.chain, "alice"))
	if err != nil {
		t.Fatalf("Savings: %v", err)
	}
	if s.HBDSavings.String() != "100.000 HBD" || s.HiveSavings.String() != "5.000 HIVE" {
		t.Errorf("savings = %s / %s", s.HBDSavings, s.HiveSavings)
	}
	if s.InterestPercent() != "20.00%" {
		t.Errorf("InterestPercent = %s, want 20.00%%", s.InterestPercent())
	}
	// 100 HBD for one day at 20% per year.
	if s.PendingInterest.String() != "0.054 HBD" {
		t.Errorf("PendingInterest = %s, want 0.054 HBD", s.PendingInterest)
	}
	if len(s.Withdrawals) != 2 {
		t.Fatalf("Withdrawals = %d, want 2", len(s.Withdrawals))
	}
	if s.NextRequestID != 8 {
		t.Errorf("NextRequestID = %d, want 8", s.NextRequestID)
	}
}

func TestHivePower(t *testing.T) {
	key := testutil.TestKey(t, 1)
	e := newEnv(t)
	e.mock.AddAccount("alice", key.PublicKey(), "0.000 HIVE")
	e.mock.SetAccountField("alice", "vesting_shares", "2000000.000000 VESTS")
	e.mock.SetAccountField("alice", "delegated_vesting_shares", "400000.000000 VESTS")
	e.mock.SetAccountField("alice", "received_vesting_shares", "200000.000000 VESTS")
	e.mock.SetAccountField("alice", "vesting_withdraw_rate", "100000.000000 VESTS")
	e.mock.SetAccountField("alice", "next_vesting_withdrawal", "2026-01-09T03:04:05")
	e.mock.SetAccountField("alice", "to_withdraw", 1300000000000)
	e.mock.SetAccountField("alice", "withdrawn", 100000000000)
	e.mock.AddDelegation("alice", "carol", "400000.000000 VESTS")
	e.mock.AddWithdrawRoute("alice", "bob", 5000, true)

	hp, err := Run[*HivePowerData](context.Background(), NewHivePower(e.chain, "alice"))
	if err != nil {
		t.Fatalf("HivePower: %v", err)
	}

	got := map[string]string{
		"owned":     hp.OwnedHP.String(),
		"delegated": hp.DelegatedHP.String(),
		"received":  hp.ReceivedHP.String(),
		"effective": hp.EffectiveHP.String(),
		"vests":     hp.EffectiveVests.String(),
		"rate":      hp.WithdrawRateHP.String(),
		"remaining": hp.RemainingHP.String(),
		"next":      hp.NextPowerDown.String(),
	}
	want := map[string]string{
		"owned":     "1000.000 HIVE",
		"delegated": "200.000 HIVE",
		"received":  "100.000 HIVE",
		"effective": "900.000 HIVE",
		"vests":     "1800000.000000 VESTS",
		"rate":      "50.000 HIVE",
		"remaining": "600.000 HIVE",
		"next":      "2026-01-09T03:04:05",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hive power mismatch (-want +got):\n%s", diff)
	}
	if !hp.PoweringDown {
		t.Error("PoweringDown = false")
	}
	if len(hp.Delegations) != 1 || hp.Delegations[0].Delegatee != "carol" {
		t.Errorf("Delegations = %+v", hp.Delegations)
	}
	if len(hp.Routes) != 1 || hp.Routes[0].ToAccount != "bob" || !hp.Routes[0].AutoVest {
		t.Errorf("Routes = %+v", hp.Routes)
	}
}

func TestHivePower_NotPoweringDown(t *testing.T) {
	key := testutil.TestKey(t, 1)
	e := newEnv(t)
	e.mock.AddAccount("alice", key.PublicKey(), "0.000 HIVE")

	hp, err := Run[*HivePowerData](context.Background(), NewHivePower(e.chain, "alice"))
	if err != nil {
		t.Fatal(err)
	}
	if hp.PoweringDown || !hp.NextPowerDown.IsZero() || !hp.RemainingVests.IsZero() {
		t.Errorf("unexpected power down: %+v", hp)
	}
}

func TestGovernance(t *testing.T) {
	key := testutil.TestKey(t, 1)
	e := newEnv(t)
	e.mock.AddAccount("alice", key.PublicKey(), "0.000 HIVE")
	e.mock.SetAccountField("alice", "witness_votes", []string{"w2", "w9"})
	e.mock.SetAccountField("alice", "witnesses_voted_for", 2)
	e.mock.AddWitness("w1", 300, key.PublicKey())
	e.mock.AddWitness("w2", 200, key.PublicKey())
	e.mock.AddWitness("w3", 100, wax.PublicKey{})
	e.mock.AddWitness("w9", 10, key.PublicKey())
	e.mock.AddProposal(1, "dev", "fund-a", 5000)
	e.mock.AddProposal(2, "ops", "fund-b", 4000)
	e.mock.AddProposalVote("alice", 2)
	e.mock.AddProposalVote("bob", 1)

	g, err := Run[*GovernanceData](context.Background(),
		NewGovernance(e.chain, "alice", GovernanceOptions{WitnessLimit: 3}))
	if err != nil {
		t.Fatalf("Governance: %v", err)
	}

	type row struct {
		Name   string
		Rank   int
		Voted  bool
		Active bool
	}
	var rows []row
	for _, w := range g.Witnesses {
		rows = append(rows, row{w.Name, w.Rank, w.Voted, w.Active})
	}
	wantRows := []row{
		{"w1", 1, false, true},
		{"w2", 2, true, true},
		{"w3", 3, false, false},
		{"w9", 0, true, true},
	}
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Errorf("witnesses mismatch (-want +got):\n%s", diff)
	}
	if g.VotesLeft() != MaxWitnessVotes-2 {
		t.Errorf("VotesLeft = %d", g.VotesLeft())
	}
	if g.HasProxy() {
		t.Error("HasProxy = true without proxy")
	}

	voted := map[int64]bool{}
	for _, p := range g.Proposals {
		voted[p.ID] = p.Voted
	}
	if diff := cmp.Diff(map[int64]bool{1: false, 2: true}, voted); diff != "" {
		t.Errorf("proposal votes mismatch (-want +got):\n%s", diff)
	}
}

func TestAccountAuthority(t *testing.T) {
	key := testutil.TestKey(t, 1)
	e := newEnv(t)
	e.mock.AddAccount("alice", key.PublicKey(), "0.000 HIVE")

	auth, err := Run[*authority.Authority](context.Background(), NewAccountAuthority(e.chain, "alice"))
	if err != nil {
		t.Fatalf("AccountAuthority: %v", err)
	}
	active, err := auth.Regular(authority.Active)
	if err != nil {
		t.Fatal(err)
	}
	if !active.Has(key.PublicKey().String()) || active.Threshold() != 1 {
		t.Errorf("active = %+v", active.Authority())
	}
	if auth.Memo().Key() != key.PublicKey() {
		t.Errorf("memo = %s", auth.Memo().Key())
	}
	if auth.Changed() {
		t.Error("fresh authority reports changes")
	}
}

func TestNodeBasicInfo(t *testing.T) {
	e := newEnv(t)
	info, err := Run[*NodeInfo](context.Background(), NewNodeBasicInfo(e.chain, e.mock.URL()))
	if err != nil {
		t.Fatalf("NodeBasicInfo: %v", err)
	}
	if !info.Online || info.HeadBlockNumber != 43981 || info.BlockchainVersion != "1.27.11" {
		t.Errorf("info = %+v", info)
	}
	if info.ChainID != wax.MainnetChainID {
		t.Errorf("ChainID = %s", info.ChainID)
	}
	if info.HeadBlockTime.String() != testutil.MockHeadBlockTime {
		t.Errorf("HeadBlockTime = %s", info.HeadBlockTime)
	}
}

func TestNodeBasicInfo_NeverReached(t *testing.T) {
	e := newEnv(t)
	e.mock.SetDown(true)
	err := NewNodeBasicInfo(e.chain, e.mock.URL()).Execute(context.Background())
	if !errors.Is(err, node.ErrOffline) {
		t.Errorf("error = %v, want ErrOffline", err)
	}
}

func TestDynamicGlobalProperties(t *testing.T) {
	e := newEnv(t)
	d, err := Run[*node.DynamicGlobalProperties](context.Background(), NewDynamicGlobalProperties(e.chain))
	if err != nil {
		t.Fatal(err)
	}
	if d.HeadBlockID != testutil.MockHeadBlockID {
		t.Errorf("HeadBlockID = %s", d.HeadBlockID)
	}

	e.mock.SetDGPO("head_block_id", "")
	err = NewDynamicGlobalProperties(e.chain).Execute(context.Background())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageSanitize {
		t.Errorf("error = %v, want sanitize StageError", err)
	}
}
