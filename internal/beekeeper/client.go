// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package beekeeper is a client for the beekeeper wallet daemon, which holds
// private keys and signs digests on behalf of clive.
package beekeeper

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/aplane-algo/clive/internal/transport"
	"github.com/aplane-algo/clive/internal/wax"
)

// WalletInfo is one entry of list_wallets.
type WalletInfo struct {
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
}

// Info is the result of get_info.
type Info struct {
	Now         string `json:"now"`
	TimeoutTime string `json:"timeout_time"`
}

// Client wraps beekeeper_api calls. Session tokens are passed explicitly.
type Client struct {
	rpc transport.Caller
}

// NewClient creates a client over an RPC caller.
func NewClient(rpc transport.Caller) *Client {
	return &Client{rpc: rpc}
}

// Address returns the beekeeper address.
func (c *Client) Address() string {
	return c.rpc.Address()
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if err := c.rpc.Call(ctx, "beekeeper_api."+method, params, result); err != nil {
		return fmt.Errorf("beekeeper %s: %w", method, classify(err))
	}
	return nil
}

type tokenParams struct {
	Token string `json:"token"`
}

type walletParams struct {
	Token      string `json:"token"`
	WalletName string `json:"wallet_name"`
}

// CreateSession opens a new session and returns its token.
func (c *Client) CreateSession(ctx context.Context, notes string) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	params := map[string]string{"notes": notes, "salt": fmt.Sprint(time.Now().UnixNano())}
	if err := c.call(ctx, "create_session", params, &res); err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", fmt.Errorf("beekeeper create_session: empty token")
	}
	return res.Token, nil
}

// CloseSession invalidates token.
func (c *Client) CloseSession(ctx context.Context, token string) error {
	return c.call(ctx, "close_session", tokenParams{token}, nil)
}

// SetTimeout sets the session auto-lock timeout.
func (c *Client) SetTimeout(ctx context.Context, token string, timeout time.Duration) error {
	params := struct {
		Token   string `json:"token"`
		Seconds int64  `json:"seconds"`
	}{token, int64(timeout / time.Second)}
	return c.call(ctx, "set_timeout", params, nil)
}

// Create creates a wallet. An empty password asks beekeeper to generate one,
// which is returned.
func (c *Client) Create(ctx context.Context, token, wallet, password string) (string, error) {
	params := map[string]string{"token": token, "wallet_name": wallet}
	if password != "" {
		params["password"] = password
	}
	var res struct {
		Password string `json:"password"`
	}
	if err := c.call(ctx, "create", params, &res); err != nil {
		return "", err
	}
	return res.Password, nil
}

// Open opens an existing wallet in the session.
func (c *Client) Open(ctx context.Context, token, wallet string) error {
	return c.call(ctx, "open", walletParams{token, wallet}, nil)
}

// CloseWallet closes a wallet in the session.
func (c *Client) CloseWallet(ctx context.Context, token, wallet string) error {
	return c.call(ctx, "close", walletParams{token, wallet}, nil)
}

// Unlock unlocks a wallet with password.
func (c *Client) Unlock(ctx context.Context, token, wallet, password string) error {
	params := map[string]string{"token": token, "wallet_name": wallet, "password": password}
	return c.call(ctx, "unlock", params, nil)
}

// Lock locks one wallet.
func (c *Client) Lock(ctx context.Context, token, wallet string) error {
	return c.call(ctx, "lock", walletParams{token, wallet}, nil)
}

// LockAll locks every wallet of the session.
func (c *Client) LockAll(ctx context.Context, token string) error {
	return c.call(ctx, "lock_all", tokenParams{token}, nil)
}

// ListWallets lists wallets opened in the session.
func (c *Client) ListWallets(ctx context.Context, token string) ([]WalletInfo, error) {
	var res struct {
		Wallets []WalletInfo `json:"wallets"`
	}
	if err := c.call(ctx, "list_wallets", tokenParams{token}, &res); err != nil {
		return nil, err
	}
	return res.Wallets, nil
}

// GetPublicKeys lists keys of an unlocked wallet (all unlocked wallets if wallet is empty).
func (c *Client) GetPublicKeys(ctx context.Context, token, wallet string) ([]wax.PublicKey, error) {
	params := map[string]string{"token": token}
	if wallet != "" {
		params["wallet_name"] = wallet
	}
	var res struct {
		Keys []struct {
			PublicKey string `json:"public_key"`
		} `json:"keys"`
	}
	if err := c.call(ctx, "get_public_keys", params, &res); err != nil {
		return nil, err
	}
	keys := make([]wax.PublicKey, 0, len(res.Keys))
	for _, k := range res.Keys {
		key, err := ParseKey(k.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("beekeeper get_public_keys: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ImportKey adds a WIF private key and returns its public key.
func (c *Client) ImportKey(ctx context.Context, token, wallet, wif string) (wax.PublicKey, error) {
	params := map[string]string{"token": token, "wallet_name": wallet, "wif_key": wif}
	var res struct {
		PublicKey string `json:"public_key"`
	}
	if err := c.call(ctx, "import_key", params, &res); err != nil {
		return wax.PublicKey{}, err
	}
	return ParseKey(res.PublicKey)
}

// RemoveKey deletes a key from the wallet.
func (c *Client) RemoveKey(ctx context.Context, token, wallet string, key wax.PublicKey) error {
	params := map[string]string{"token": token, "wallet_name": wallet, "public_key": key.String()}
	return c.call(ctx, "remove_key", params, nil)
}

// HasMatchingPrivateKey reports whether the wallet holds the private part of key.
func (c *Client) HasMatchingPrivateKey(ctx context.Context, token, wallet string, key wax.PublicKey) (bool, error) {
	params := map[string]string{"token": token, "wallet_name": wallet, "public_key": key.String()}
	var res struct {
		Exists bool `json:"exists"`
	}
	if err := c.call(ctx, "has_matching_private_key", params, &res); err != nil {
		return false, err
	}
	return res.Exists, nil
}

// SignDigest signs a 32-byte digest with key.
func (c *Client) SignDigest(ctx context.Context, token, wallet string, digest [32]byte, key wax.PublicKey) (wax.Signature, error) {
	params := map[string]string{
		"token":       token,
		"wallet_name": wallet,
		"sig_digest":  hex.EncodeToString(digest[:]),
		"public_key":  key.String(),
	}
	var res struct {
		Signature string `json:"signature"`
	}
	if err := c.call(ctx, "sign_digest", params, &res); err != nil {
		return wax.Signature{}, err
	}
	return wax.ParseSignature(res.Signature)
}

// GetInfo returns the session clock and auto-lock deadline.
func (c *Client) GetInfo(ctx context.Context, token string) (Info, error) {
	var res Info
	err := c.call(ctx, "get_info", tokenParams{token}, &res)
	return res, err
}

// ParseKey accepts a public key with or without the STM prefix; beekeeper
// reports keys without it.
func ParseKey(s string) (wax.PublicKey, error) {
	if !strings.HasPrefix(s, wax.PublicKeyPrefix) {
		s = wax.PublicKeyPrefix + s
	}
	return wax.ParsePublicKey(s)
}
