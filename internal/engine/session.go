// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"context"
	"fmt"

	"github.com/aplane-algo/clive/internal/keys"
	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

// Unlock opens the beekeeper wallet with password.
func (e *Engine) Unlock(ctx context.Context, password []byte) error {
	if e.Wallet == nil {
		return ErrNoWallet
	}
	return e.Wallet.Unlock(ctx, password)
}

// Lock locks the wallet and forgets the cached password.
func (e *Engine) Lock(ctx context.Context) error {
	if e.Wallet == nil {
		return ErrNoWallet
	}
	return e.Wallet.Lock(ctx)
}

// SyncKeys compares the profile's keys with the keys held by the wallet.
func (e *Engine) SyncKeys(ctx context.Context) (*KeySyncResult, error) {
	if e.Wallet == nil {
		return nil, ErrNoWallet
	}
	p := e.Profile()
	if p == nil {
		return nil, ErrNoProfile
	}
	walletKeys, err := e.Wallet.Keys(ctx)
	if err != nil {
		return nil, err
	}
	held := make(map[wax.PublicKey]bool, len(walletKeys))
	for _, k := range walletKeys {
		held[k] = true
	}

	res := &KeySyncResult{}
	for _, k := range p.Keys.All() {
		if held[k.Value] {
			res.InBoth = append(res.InBoth, k)
			delete(held, k.Value)
		} else {
			res.MissingFromWallet = append(res.MissingFromWallet, k)
		}
	}
	for _, k := range walletKeys {
		if held[k] {
			res.UntrackedInWallet = append(res.UntrackedInWallet, k)
		}
	}
	return res, nil
}

// TrackWalletKeys adds wallet keys the profile does not know, under their
// default alias, and returns them.
func (e *Engine) TrackWalletKeys(ctx context.Context) ([]keys.PublicKeyAliased, error) {
	diff, err := e.SyncKeys(ctx)
	if err != nil {
		return nil, err
	}
	added := make([]keys.PublicKeyAliased, 0, len(diff.UntrackedInWallet))
	for _, k := range diff.UntrackedInWallet {
		added = append(added, keys.PublicKeyAliased{Alias: k.String(), Value: k})
	}
	if len(added) == 0 {
		return nil, nil
	}
	err = e.UpdateProfile(func(p *profile.Profile) error {
		return p.Keys.Add(added...)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// ImportKey queues a WIF key on the profile and imports it into the wallet.
func (e *Engine) ImportKey(ctx context.Context, alias, wif string) (keys.PublicKeyAliased, error) {
	imported, err := e.importKeys(ctx, func(m *keys.KeyManager) error {
		_, err := m.SetToImport(alias, wif)
		return err
	})
	if err != nil {
		return keys.PublicKeyAliased{}, err
	}
	return single(imported)
}

// GenerateKey creates a fresh key under alias and imports it into the wallet.
// With a non-empty backupPath the private key is sealed to that file with
// passphrase before the wallet sees it.
func (e *Engine) GenerateKey(ctx context.Context, alias, backupPath string, passphrase []byte) (keys.PublicKeyAliased, error) {
	imported, err := e.importKeys(ctx, func(m *keys.KeyManager) error {
		generated, err := m.Generate(alias)
		if err != nil {
			return err
		}
		if backupPath == "" {
			return nil
		}
		return keys.WriteBackup(backupPath, []keys.PrivateKeyAliased{generated}, passphrase)
	})
	if err != nil {
		return keys.PublicKeyAliased{}, err
	}
	return single(imported)
}

// RestoreKeys imports every key of a sealed backup file. Keys the profile
// already tracks are skipped.
func (e *Engine) RestoreKeys(ctx context.Context, path string, passphrase []byte) ([]keys.PublicKeyAliased, error) {
	restored, err := keys.ReadBackup(path, passphrase)
	if err != nil {
		return nil, err
	}
	return e.importKeys(ctx, func(m *keys.KeyManager) error {
		for _, k := range restored {
			if m.Contains(k.Public) {
				continue
			}
			if _, err := m.SetToImport(k.Alias, k.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// importKeys queues keys on a copy of the profile, imports every pending key
// into the wallet and saves the profile. On failure the profile is left as it
// was; keys the wallet already accepted show up in SyncKeys.
func (e *Engine) importKeys(ctx context.Context, queue func(*keys.KeyManager) error) ([]keys.PublicKeyAliased, error) {
	if e.Wallet == nil {
		return nil, ErrNoWallet
	}
	var imported []keys.PublicKeyAliased
	err := e.UpdateProfile(func(p *profile.Profile) error {
		if err := queue(p.Keys); err != nil {
			return err
		}
		var err error
		imported, err = p.Keys.ImportPending(ctx, func(ctx context.Context, key keys.PrivateKeyAliased) error {
			got, err := e.Wallet.Import(ctx, key.Value)
			if err != nil {
				return err
			}
			if got != key.Public {
				return fmt.Errorf("wallet imported %s, expected %s", got, key.Public)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, k := range imported {
		util.Debug("imported key", "alias", k.Alias)
	}
	return imported, nil
}

func single(imported []keys.PublicKeyAliased) (keys.PublicKeyAliased, error) {
	if len(imported) != 1 {
		return keys.PublicKeyAliased{}, fmt.Errorf("imported %d keys, expected 1", len(imported))
	}
	return imported[0], nil
}

// RemoveKey forgets a key on the profile and, when fromWallet is set, deletes
// the private key from the wallet too.
func (e *Engine) RemoveKey(ctx context.Context, aliasOrKey string, fromWallet bool) (keys.PublicKeyAliased, error) {
	var removed keys.PublicKeyAliased
	err := e.UpdateProfile(func(p *profile.Profile) error {
		var err error
		removed, err = p.Keys.Remove(aliasOrKey)
		return err
	})
	if err != nil {
		return keys.PublicKeyAliased{}, err
	}
	if fromWallet {
		if e.Wallet == nil {
			return removed, ErrNoWallet
		}
		if err := e.Wallet.Remove(ctx, removed.Value); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Status summarises node, profile and wallet state. Node and wallet problems
// are reported as offline/locked rather than as errors.
func (e *Engine) Status(ctx context.Context) *StatusResult {
	s := &StatusResult{}
	if e.Node != nil {
		s.NodeAddress = e.Node.Address()
		s.ChainID = e.Node.ChainID().String()
		if info, err := e.NodeInfo(ctx); err == nil {
			s.NodeOnline = info.Online
			s.HeadBlockNumber = info.HeadBlockNumber
			s.HeadBlockTime = info.HeadBlockTime
			s.ChainID = info.ChainID.String()
		}
	}
	if p := e.Profile(); p != nil {
		s.Profile = p.Name
		s.WorkingAccount = p.WorkingAccount
		s.WatchedAccounts = len(p.WatchedAccounts)
		if p.Keys != nil {
			s.KeyCount = p.Keys.Len()
			s.PendingKeys = len(p.Keys.Pending())
		}
	}
	if e.Wallet != nil {
		s.WalletName = e.Wallet.Name()
		unlocked, err := e.Wallet.IsUnlocked(ctx)
		if err != nil {
			util.Debug("wallet status unavailable", "error", err)
		}
		s.WalletUnlocked = unlocked
	}
	return s
}
