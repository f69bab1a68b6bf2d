// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"github.com/aplane-algo/clive/internal/keys"
	"github.com/aplane-algo/clive/internal/wax"
)

// StatusResult holds data for the status command
type StatusResult struct {
	NodeAddress     string
	NodeOnline      bool
	HeadBlockNumber uint32
	HeadBlockTime   wax.Time
	ChainID         string

	Profile         string // empty without an active profile
	WorkingAccount  string
	WatchedAccounts int
	KeyCount        int
	PendingKeys     int

	WalletName     string // empty without a wallet
	WalletUnlocked bool
}

// KeySyncResult compares profile keys with the keys held by the wallet
type KeySyncResult struct {
	InBoth            []keys.PublicKeyAliased
	MissingFromWallet []keys.PublicKeyAliased
	UntrackedInWallet []wax.PublicKey
}

// InSync reports whether profile and wallet hold the same keys.
func (r *KeySyncResult) InSync() bool {
	return len(r.MissingFromWallet) == 0 && len(r.UntrackedInWallet) == 0
}
