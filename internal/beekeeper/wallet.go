// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package beekeeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aplane-algo/clive/internal/crypto"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

// Wallet binds a beekeeper session to one named wallet and remembers the
// password so an auto-locked wallet can be unlocked again.
type Wallet struct {
	client *Client
	name   string

	mu       sync.Mutex
	token    *crypto.SecureString
	password *crypto.SecureString
	timeout  time.Duration
}

// WalletOption configures a Wallet.
type WalletOption func(*Wallet)

// WithSessionTimeout sets the beekeeper auto-lock timeout applied on unlock.
func WithSessionTimeout(d time.Duration) WalletOption {
	return func(w *Wallet) { w.timeout = d }
}

// NewWallet creates a wallet handle. No beekeeper call is made until first use.
func NewWallet(client *Client, name string, opts ...WalletOption) *Wallet {
	w := &Wallet{client: client, name: name}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the wallet name.
func (w *Wallet) Name() string {
	return w.name
}

// session returns the session token, creating a session on first use. Caller holds mu.
func (w *Wallet) session(ctx context.Context) (string, error) {
	if !w.token.IsEmpty() {
		return w.token.Reveal(), nil
	}
	token, err := w.client.CreateSession(ctx, "clive")
	if err != nil {
		return "", err
	}
	w.token = crypto.NewSecureString(token)
	if w.timeout > 0 {
		if err := w.client.SetTimeout(ctx, token, w.timeout); err != nil {
			util.Debug("failed to set beekeeper timeout", "error", err)
		}
	}
	return token, nil
}

// Create creates the wallet with password and keeps it unlocked.
func (w *Wallet) Create(ctx context.Context, password []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	token, err := w.session(ctx)
	if err != nil {
		return err
	}
	if _, err := w.client.Create(ctx, token, w.name, string(password)); err != nil {
		return err
	}
	w.setPassword(password)
	return nil
}

// Unlock opens and unlocks the wallet, remembering the password for re-unlock.
func (w *Wallet) Unlock(ctx context.Context, password []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.unlock(ctx, string(password)); err != nil {
		return err
	}
	w.setPassword(password)
	return nil
}

func (w *Wallet) setPassword(password []byte) {
	w.password.Destroy()
	w.password = crypto.NewSecureStringFromBytes(password)
}

func (w *Wallet) unlock(ctx context.Context, password string) error {
	token, err := w.session(ctx)
	if err != nil {
		return err
	}
	if err := w.client.Open(ctx, token, w.name); err != nil {
		return err
	}
	err = w.client.Unlock(ctx, token, w.name, password)
	// Unlocking an already unlocked wallet is reported as an error by beekeeper.
	if err != nil {
		unlocked, lerr := w.isUnlocked(ctx, token)
		if lerr == nil && unlocked {
			return nil
		}
		return err
	}
	return nil
}

func (w *Wallet) isUnlocked(ctx context.Context, token string) (bool, error) {
	wallets, err := w.client.ListWallets(ctx, token)
	if err != nil {
		return false, err
	}
	for _, info := range wallets {
		if info.Name == w.name {
			return info.Unlocked, nil
		}
	}
	return false, nil
}

// IsUnlocked reports whether the wallet is currently unlocked in beekeeper.
func (w *Wallet) IsUnlocked(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.token.IsEmpty() {
		return false, nil
	}
	return w.isUnlocked(ctx, w.token.Reveal())
}

// EnsureUnlocked unlocks the wallet again with the remembered password if
// beekeeper auto-locked it. Without a remembered password it returns ErrWalletLocked.
func (w *Wallet) EnsureUnlocked(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.token.IsEmpty() {
		token := w.token.Reveal()
		unlocked, err := w.isUnlocked(ctx, token)
		if err == nil && unlocked {
			return token, nil
		}
		if err != nil && !errors.Is(err, ErrNoSession) {
			return "", err
		}
		if errors.Is(err, ErrNoSession) {
			w.token.Destroy()
		}
	}
	if w.password.IsEmpty() {
		return "", fmt.Errorf("%w: %s", ErrWalletLocked, w.name)
	}
	if err := w.unlock(ctx, w.password.Reveal()); err != nil {
		return "", err
	}
	return w.token.Reveal(), nil
}

// Keys returns public keys stored in the wallet.
func (w *Wallet) Keys(ctx context.Context) ([]wax.PublicKey, error) {
	token, err := w.EnsureUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	return w.client.GetPublicKeys(ctx, token, w.name)
}

// Import adds a private key and returns its public key.
func (w *Wallet) Import(ctx context.Context, wif string) (wax.PublicKey, error) {
	token, err := w.EnsureUnlocked(ctx)
	if err != nil {
		return wax.PublicKey{}, err
	}
	return w.client.ImportKey(ctx, token, w.name, wif)
}

// Remove deletes a key from the wallet.
func (w *Wallet) Remove(ctx context.Context, key wax.PublicKey) error {
	token, err := w.EnsureUnlocked(ctx)
	if err != nil {
		return err
	}
	return w.client.RemoveKey(ctx, token, w.name, key)
}

// Has reports whether the wallet can sign with key.
func (w *Wallet) Has(ctx context.Context, key wax.PublicKey) (bool, error) {
	token, err := w.EnsureUnlocked(ctx)
	if err != nil {
		return false, err
	}
	return w.client.HasMatchingPrivateKey(ctx, token, w.name, key)
}

// Sign signs digest with key.
func (w *Wallet) Sign(ctx context.Context, digest [32]byte, key wax.PublicKey) (wax.Signature, error) {
	token, err := w.EnsureUnlocked(ctx)
	if err != nil {
		return wax.Signature{}, err
	}
	return w.client.SignDigest(ctx, token, w.name, digest, key)
}

// Lock locks the wallet and forgets the password.
func (w *Wallet) Lock(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.password.Destroy()
	if w.token.IsEmpty() {
		return nil
	}
	return w.client.Lock(ctx, w.token.Reveal(), w.name)
}

// Close closes the session and zeroes the remembered secrets.
func (w *Wallet) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.password.Destroy()
	if w.token.IsEmpty() {
		return nil
	}
	token := w.token.Reveal()
	w.token.Destroy()
	return w.client.CloseSession(ctx, token)
}
