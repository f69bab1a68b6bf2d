// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/beekeeper"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/keys"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/testutil"
	"github.com/aplane-algo/clive/internal/transport"
	"github.com/aplane-algo/clive/internal/wax"
)

// testEnv is an engine over a mock node and an unlocked mock wallet. The
// profile works on alice, whose authorities are the first wallet key.
type testEnv struct {
	mock  *testutil.MockNode
	bk    *testutil.MockBeekeeper
	store *profile.Store
	eng   *Engine
}

func newTestEnv(t *testing.T, walletKeys ...*wax.PrivateKey) *testEnv {
	t.Helper()
	env := &testEnv{
		mock:  testutil.NewMockNode(t),
		bk:    testutil.NewMockBeekeeper(t),
		store: profile.NewStore(filepath.Join(t.TempDir(), "profiles")),
	}

	rpc, err := transport.New(env.mock.URL())
	if err != nil {
		t.Fatal(err)
	}
	bkRPC, err := transport.New(env.bk.URL())
	if err != nil {
		t.Fatal(err)
	}
	env.bk.AddWallet("clive", "pw", walletKeys...)
	wallet := beekeeper.NewWallet(beekeeper.NewClient(bkRPC), "clive")

	p, err := profile.New("main")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetWorkingAccount("alice"); err != nil {
		t.Fatal(err)
	}
	_ = p.AddKnown("bob")
	if len(walletKeys) > 0 {
		env.mock.AddAccount("alice", walletKeys[0].PublicKey(), "100.000 HIVE")
		if err := p.Keys.Add(keys.PublicKeyAliased{Alias: "main", Value: walletKeys[0].PublicKey()}); err != nil {
			t.Fatal(err)
		}
	}

	env.eng, err = NewEngine(WithNode(node.New(rpc)), WithWallet(wallet), WithProfile(p, env.store))
	if err != nil {
		t.Fatal(err)
	}
	if err := env.eng.Unlock(context.Background(), []byte("pw")); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	return env
}

// operation returns the single operation of a built transaction.
func operation[T wax.Operation](t *testing.T, res *command.PerformResult) T {
	t.Helper()
	if len(res.Transaction.Operations) != 1 {
		t.Fatalf("operations = %d, want 1", len(res.Transaction.Operations))
	}
	op, ok := res.Transaction.Operations[0].(T)
	if !ok {
		t.Fatalf("operation is %T", res.Transaction.Operations[0])
	}
	return op
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		opts    []EngineOption
		wantErr bool
	}{
		{name: "no options"},
		{name: "expiration", opts: []EngineOption{WithExpiration(10 * time.Minute)}},
		{name: "expiration too long", opts: []EngineOption{WithExpiration(2 * time.Hour)}, wantErr: true},
		{name: "nil profile", opts: []EngineOption{WithProfile(nil, nil)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := NewEngine(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEngine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && eng.Expiration <= 0 {
				t.Errorf("Expiration = %s", eng.Expiration)
			}
		})
	}
}

func TestEngine_NotConfigured(t *testing.T) {
	eng, _ := NewEngine()
	ctx := context.Background()

	if _, err := eng.Balances(ctx, "alice"); !errors.Is(err, ErrNoNode) {
		t.Errorf("Balances: error = %v, want ErrNoNode", err)
	}
	if err := eng.Unlock(ctx, []byte("pw")); !errors.Is(err, ErrNoWallet) {
		t.Errorf("Unlock: error = %v, want ErrNoWallet", err)
	}
	if err := eng.UpdateProfile(func(*profile.Profile) error { return nil }); !errors.Is(err, ErrNoProfile) {
		t.Errorf("UpdateProfile: error = %v, want ErrNoProfile", err)
	}
	if s := eng.Status(ctx); s.Profile != "" || s.NodeOnline {
		t.Errorf("Status = %+v", s)
	}
}

func TestTransfer(t *testing.T) {
	k1 := testutil.TestKey(t, 1)
	env := newTestEnv(t, k1)
	ctx := context.Background()
	send := TxOptions{AutoSign: true, Broadcast: true}

	tests := []struct {
		name    string
		params  TransferParams
		opts    TxOptions
		wantErr error
	}{
		{
			name:   "known recipient",
			params: TransferParams{To: "bob", Amount: wax.Hive(1500), Memo: "rent"},
			opts:   send,
		},
		{
			name:    "vests",
			params:  TransferParams{To: "bob", Amount: wax.Vests(1)},
			opts:    send,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "zero",
			params:  TransferParams{To: "bob", Amount: wax.HBD(0)},
			opts:    send,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "bad recipient",
			params:  TransferParams{To: "B", Amount: wax.Hive(1)},
			opts:    send,
			wantErr: wax.ErrInvalidAccountName,
		},
		{
			name:    "unknown recipient",
			params:  TransferParams{To: "mallory", Amount: wax.Hive(1)},
			opts:    send,
			wantErr: profile.ErrUnknownAccount,
		},
		{
			name:   "unknown recipient forced",
			params: TransferParams{To: "mallory", Amount: wax.Hive(1)},
			opts:   TxOptions{AutoSign: true, Broadcast: true, Force: true},
		},
		{
			name:   "signed by alias",
			params: TransferParams{To: "bob", Amount: wax.HBD(1)},
			opts:   TxOptions{SignWith: []string{"main"}, Broadcast: true},
		},
		{
			name:    "unknown alias",
			params:  TransferParams{To: "bob", Amount: wax.HBD(1)},
			opts:    TxOptions{SignWith: []string{"cold"}},
			wantErr: ErrUnknownKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(env.mock.Broadcasts())
			res, err := env.eng.Transfer(ctx, tt.params, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if len(env.mock.Broadcasts()) != before {
					t.Error("failed transfer was broadcast")
				}
				return
			}
			if err != nil {
				t.Fatalf("Transfer: %v", err)
			}
			op := operation[*wax.TransferOperation](t, res)
			if op.From != "alice" || op.To != tt.params.To || op.Amount != tt.params.Amount {
				t.Errorf("operation = %+v", op)
			}
			sent := env.mock.Broadcasts()
			if len(sent) != before+1 {
				t.Fatalf("broadcasts = %d, want %d", len(sent), before+1)
			}
			var onWire wax.Transaction
			if err := json.Unmarshal(sent[len(sent)-1], &onWire); err != nil {
				t.Fatal(err)
			}
			if onWire.ID() != res.ID {
				t.Errorf("node received %s, want %s", onWire.ID(), res.ID)
			}
		})
	}
}

func TestTransfer_NoWorkingAccount(t *testing.T) {
	env := newTestEnv(t)
	_ = env.eng.UpdateProfile(func(p *profile.Profile) error {
		p.WorkingAccount = ""
		return nil
	})
	_, err := env.eng.Transfer(context.Background(), TransferParams{To: "bob", Amount: wax.Hive(1)}, TxOptions{})
	if !errors.Is(err, profile.ErrNoWorkingAccount) {
		t.Errorf("error = %v, want ErrNoWorkingAccount", err)
	}
}

func TestRecurrentTransfer(t *testing.T) {
	env := newTestEnv(t, testutil.TestKey(t, 1))
	ctx := context.Background()
	params := RecurrentTransferParams{
		TransferParams: TransferParams{To: "bob", Amount: wax.HBD(5000)},
		Recurrence:     12,
		Executions:     4,
	}
	if _, err := env.eng.RecurrentTransfer(ctx, params, TxOptions{}); err == nil {
		t.Error("accepted a 12h recurrence")
	}

	params.Recurrence = 24
	res, err := env.eng.RecurrentTransfer(ctx, params, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.RecurrentTransferOperation](t, res); op.Recurrence != 24 || op.Executions != 4 {
		t.Errorf("operation = %+v", op)
	}

	// A zero amount cancels regardless of schedule.
	cancel := RecurrentTransferParams{TransferParams: TransferParams{To: "bob", Amount: wax.HBD(0)}}
	if _, err := env.eng.RecurrentTransfer(ctx, cancel, TxOptions{}); err != nil {
		t.Errorf("cancel: %v", err)
	}
}

func TestSavings(t *testing.T) {
	env := newTestEnv(t, testutil.TestKey(t, 1))
	env.mock.AddSavingsWithdrawal("alice", 7, "1.000 HBD")
	ctx := context.Background()

	res, err := env.eng.SavingsDeposit(ctx, SavingsParams{Amount: wax.HBD(10000)}, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.TransferToSavingsOperation](t, res); op.From != "alice" || op.To != "alice" {
		t.Errorf("deposit = %+v", op)
	}

	res, err = env.eng.SavingsWithdraw(ctx, SavingsParams{Amount: wax.HBD(1000)}, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.TransferFromSavingsOperation](t, res); op.RequestID != 8 {
		t.Errorf("request id = %d, want 8", op.RequestID)
	}

	id := uint32(42)
	res, err = env.eng.SavingsWithdraw(ctx, SavingsParams{To: "bob", Amount: wax.Hive(1), RequestID: &id}, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.TransferFromSavingsOperation](t, res); op.RequestID != 42 || op.To != "bob" {
		t.Errorf("withdraw = %+v", op)
	}

	res, err = env.eng.CancelSavingsWithdrawal(ctx, "", 7, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.CancelTransferFromSavingsOperation](t, res); op.RequestID != 7 {
		t.Errorf("cancel = %+v", op)
	}
}

func TestHivePower(t *testing.T) {
	env := newTestEnv(t, testutil.TestKey(t, 1))
	ctx := context.Background()

	t.Run("power down converts HIVE", func(t *testing.T) {
		res, err := env.eng.PowerDown(ctx, "", wax.Hive(10000), TxOptions{})
		if err != nil {
			t.Fatal(err)
		}
		// 1 HIVE is 2000 VESTS at the mock ratio.
		if got := operation[*wax.WithdrawVestingOperation](t, res).VestingShares.String(); got != "20000.000000 VESTS" {
			t.Errorf("vesting shares = %s", got)
		}
	})

	t.Run("power down rejects HBD", func(t *testing.T) {
		if _, err := env.eng.PowerDown(ctx, "", wax.HBD(1), TxOptions{}); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("error = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("cancel power down", func(t *testing.T) {
		res, err := env.eng.CancelPowerDown(ctx, "", TxOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if !operation[*wax.WithdrawVestingOperation](t, res).VestingShares.IsZero() {
			t.Error("cancel carries shares")
		}
	})

	t.Run("power up", func(t *testing.T) {
		res, err := env.eng.PowerUp(ctx, "", "", wax.Hive(5000), TxOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if op := operation[*wax.TransferToVestingOperation](t, res); op.To != "alice" {
			t.Errorf("power up = %+v", op)
		}
		if _, err := env.eng.PowerUp(ctx, "", "", wax.HBD(5000), TxOptions{}); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("HBD power up: error = %v", err)
		}
	})

	t.Run("delegate vests and remove", func(t *testing.T) {
		res, err := env.eng.Delegate(ctx, "", "bob", wax.Vests(1234567), TxOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if got := operation[*wax.DelegateVestingSharesOperation](t, res).VestingShares; got != wax.Vests(1234567) {
			t.Errorf("delegated %s", got)
		}
		res, err = env.eng.Delegate(ctx, "", "bob", wax.Hive(0), TxOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if !operation[*wax.DelegateVestingSharesOperation](t, res).VestingShares.IsZero() {
			t.Error("removal carries shares")
		}
		if _, err := env.eng.Delegate(ctx, "", "alice", wax.Vests(1), TxOptions{}); err == nil {
			t.Error("self delegation accepted")
		}
	})

	t.Run("withdraw route", func(t *testing.T) {
		if _, err := env.eng.SetWithdrawRoute(ctx, "", "bob", 10001, false, TxOptions{}); !errors.Is(err, ErrInvalidPercent) {
			t.Errorf("error = %v, want ErrInvalidPercent", err)
		}
		res, err := env.eng.SetWithdrawRoute(ctx, "", "bob", 2500, true, TxOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if op := operation[*wax.SetWithdrawVestingRouteOperation](t, res); op.Percent != 2500 || !op.AutoVest {
			t.Errorf("route = %+v", op)
		}
	})
}

func TestVoteWitness(t *testing.T) {
	env := newTestEnv(t, testutil.TestKey(t, 1))
	env.mock.SetAccountField("alice", "witness_votes", []string{"witnessone"})
	ctx := context.Background()

	tests := []struct {
		name    string
		witness string
		approve bool
		wantErr error
	}{
		{name: "already voted", witness: "witnessone", approve: true, wantErr: ErrAlreadyVoted},
		{name: "not voted", witness: "witnesstwo", approve: false, wantErr: ErrNotVoted},
		{name: "approve", witness: "witnesstwo", approve: true},
		{name: "unvote", witness: "witnessone", approve: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.eng.VoteWitness(ctx, "", tt.witness, tt.approve, TxOptions{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if op := operation[*wax.AccountWitnessVoteOperation](t, res); op.Witness != tt.witness || op.Approve != tt.approve {
				t.Errorf("operation = %+v", op)
			}
		})
	}

	t.Run("limit", func(t *testing.T) {
		votes := make([]string, command.MaxWitnessVotes)
		for i := range votes {
			votes[i] = "witness" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		}
		env.mock.SetAccountField("alice", "witness_votes", votes)
		if _, err := env.eng.VoteWitness(ctx, "", "witnesstwo", true, TxOptions{}); !errors.Is(err, ErrTooManyWitnessVotes) {
			t.Errorf("error = %v, want ErrTooManyWitnessVotes", err)
		}
	})
}

func TestProxyAndProposals(t *testing.T) {
	env := newTestEnv(t, testutil.TestKey(t, 1))
	ctx := context.Background()

	res, err := env.eng.SetProxy(ctx, "", "bob", TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.AccountWitnessProxyOperation](t, res); op.Proxy != "bob" {
		t.Errorf("proxy = %+v", op)
	}
	if _, err := env.eng.SetProxy(ctx, "", "alice", TxOptions{}); err == nil {
		t.Error("self proxy accepted")
	}

	if _, err := env.eng.VoteProposals(ctx, "", nil, true, TxOptions{}); !errors.Is(err, command.ErrNothingToDo) {
		t.Errorf("no ids: error = %v", err)
	}
	res, err = env.eng.VoteProposals(ctx, "", []int64{3, 1}, true, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.UpdateProposalVotesOperation](t, res); len(op.ProposalIDs) != 2 || !op.Approve {
		t.Errorf("votes = %+v", op)
	}
}

func TestClaimRewards(t *testing.T) {
	env := newTestEnv(t, testutil.TestKey(t, 1))
	ctx := context.Background()

	if _, err := env.eng.ClaimRewards(ctx, "", TxOptions{}); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("error = %v, want ErrNothingToClaim", err)
	}

	env.mock.SetAccountField("alice", "reward_hbd_balance", "1.250 HBD")
	env.mock.SetAccountField("alice", "reward_vesting_balance", "10.000000 VESTS")
	res, err := env.eng.ClaimRewards(ctx, "", TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	op := operation[*wax.ClaimRewardBalanceOperation](t, res)
	if op.RewardHBD != wax.HBD(1250) || op.RewardVests != wax.Vests(10000000) || !op.RewardHive.IsZero() {
		t.Errorf("claim = %+v", op)
	}
}

func TestCustomJSON(t *testing.T) {
	env := newTestEnv(t, testutil.TestKey(t, 1))
	ctx := context.Background()

	if _, err := env.eng.CustomJSON(ctx, CustomJSONParams{ID: "follow", JSON: "{"}, TxOptions{}); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("error = %v, want ErrInvalidJSON", err)
	}

	res, err := env.eng.CustomJSON(ctx, CustomJSONParams{ID: "follow", JSON: `["follow",{}]`}, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	op := operation[*wax.CustomJSONOperation](t, res)
	if len(op.RequiredPostingAuths) != 1 || op.RequiredPostingAuths[0] != "alice" || len(op.RequiredAuths) != 0 {
		t.Errorf("posting custom_json = %+v", op)
	}

	res, err = env.eng.CustomJSON(ctx, CustomJSONParams{ID: "ssc-mainnet-hive", JSON: `{}`, Active: true}, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if op := operation[*wax.CustomJSONOperation](t, res); len(op.RequiredAuths) != 1 {
		t.Errorf("active custom_json = %+v", op)
	}
}

func TestVerifyTransaction(t *testing.T) {
	k1 := testutil.TestKey(t, 1)
	env := newTestEnv(t, k1)
	ctx := context.Background()

	unsigned, err := env.eng.Transfer(ctx, TransferParams{To: "bob", Amount: wax.Hive(1)}, TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	missing, err := env.eng.VerifyTransaction(ctx, unsigned.Transaction)
	if !errors.Is(err, authority.ErrMissingAuthority) {
		t.Fatalf("VerifyTransaction(unsigned) error = %v", err)
	}
	if len(missing) != 1 || missing[0].String() != "alice/active" {
		t.Errorf("missing = %v, want [alice/active]", missing)
	}

	signed, err := env.eng.ProcessTransaction(ctx, unsigned.Transaction, TxOptions{AutoSign: true})
	if err != nil {
		t.Fatal(err)
	}
	missing, err = env.eng.VerifyTransaction(ctx, signed.Transaction)
	if err != nil || len(missing) != 0 {
		t.Errorf("VerifyTransaction(signed) = %v, %v", missing, err)
	}
}
