// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aplane-algo/clive/internal/wax"
)

func TestRecipients(t *testing.T) {
	tx := wax.NewTransaction(
		&wax.TransferOperation{From: "alice", To: "bob", Amount: wax.Hive(1000)},
		&wax.TransferToSavingsOperation{From: "alice", To: "alice", Amount: wax.HBD(1000)},
		&wax.TransferToVestingOperation{From: "alice", Amount: wax.Hive(1)},
		&wax.DelegateVestingSharesOperation{Delegator: "alice", Delegatee: "carol", VestingShares: wax.Vests(1)},
		&wax.RecurrentTransferOperation{From: "alice", To: "bob", Amount: wax.HBD(5), Recurrence: 24, Executions: 2},
		&wax.SetWithdrawVestingRouteOperation{FromAccount: "alice", ToAccount: "dave", Percent: 5000},
		&wax.AccountWitnessVoteOperation{Account: "alice", Witness: "w1", Approve: true},
	)
	if diff := cmp.Diff([]string{"bob", "carol", "dave"}, Recipients(tx)); diff != "" {
		t.Errorf("recipients mismatch (-want +got):\n%s", diff)
	}
}

func TestKnownAccountsCheck(t *testing.T) {
	p, _ := New("main")
	_ = p.SetWorkingAccount("alice")
	_ = p.AddKnown("bob")
	check := KnownAccountsCheck(p)
	ctx := context.Background()

	tests := []struct {
		name    string
		to      string
		enabled bool
		wantErr error
	}{
		{name: "known", to: "bob", enabled: true},
		{name: "self", to: "alice", enabled: true},
		{name: "unknown", to: "mallory", enabled: true, wantErr: ErrUnknownAccount},
		{name: "disabled", to: "mallory", enabled: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.KnownAccountsEnabled = tt.enabled
			tx := wax.NewTransaction(&wax.TransferOperation{From: "alice", To: tt.to, Amount: wax.Hive(1)})
			err := check(ctx, tx)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
