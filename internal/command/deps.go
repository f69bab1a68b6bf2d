// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"context"

	"github.com/aplane-algo/clive/internal/beekeeper"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/wax"
)

// Chain is the node surface commands read from. *node.Node implements it.
type Chain interface {
	BasicInfo(ctx context.Context) (node.BasicInfo, error)
	ChainID() wax.ChainID
	GetDynamicGlobalProperties(ctx context.Context) (*node.DynamicGlobalProperties, error)
	FindAccounts(ctx context.Context, names ...string) ([]node.Account, error)
	ListWitnesses(ctx context.Context, start string, limit int) ([]node.Witness, error)
	FindWitnesses(ctx context.Context, owners ...string) ([]node.Witness, error)
	ListProposals(ctx context.Context, status node.ProposalStatus, limit int) ([]node.Proposal, error)
	ListProposalVotes(ctx context.Context, voter string, limit int) ([]node.ProposalVote, error)
	FindSavingsWithdrawals(ctx context.Context, account string) ([]node.SavingsWithdrawal, error)
	FindVestingDelegations(ctx context.Context, account string) ([]node.VestingDelegation, error)
	FindWithdrawVestingRoutes(ctx context.Context, account string) ([]node.WithdrawRoute, error)
	BroadcastTransaction(ctx context.Context, tx *wax.Transaction) error
}

// Signer produces signatures with keys it holds. *beekeeper.Wallet implements it.
type Signer interface {
	Keys(ctx context.Context) ([]wax.PublicKey, error)
	Sign(ctx context.Context, digest [32]byte, key wax.PublicKey) (wax.Signature, error)
}

var (
	_ Chain  = (*node.Node)(nil)
	_ Signer = (*beekeeper.Wallet)(nil)
)
