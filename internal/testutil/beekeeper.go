// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package testutil

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aplane-algo/clive/internal/protocol"
	"github.com/aplane-algo/clive/internal/wax"
)

type mockWallet struct {
	password string
	unlocked bool
	keys     map[wax.PublicKey]*wax.PrivateKey
}

// MockBeekeeper is an in-memory beekeeper that really signs digests.
type MockBeekeeper struct {
	*RPCServer

	mu       sync.Mutex
	sessions map[string]int64 // token -> timeout seconds
	wallets  map[string]*mockWallet
	next     int
}

// NewMockBeekeeper starts a fake beekeeper with no wallets.
func NewMockBeekeeper(t *testing.T) *MockBeekeeper {
	t.Helper()
	b := &MockBeekeeper{
		RPCServer: NewRPCServer(t),
		sessions:  make(map[string]int64),
		wallets:   make(map[string]*mockWallet),
	}
	for method, h := range map[string]RPCHandler{
		"create_session":           b.createSession,
		"close_session":            b.closeSession,
		"set_timeout":              b.setTimeout,
		"create":                   b.create,
		"open":                     b.open,
		"close":                    b.withSession(func(p bkParams) (any, *protocol.RPCError) { return struct{}{}, nil }),
		"unlock":                   b.unlock,
		"lock":                     b.lock,
		"lock_all":                 b.lockAll,
		"list_wallets":             b.listWallets,
		"get_public_keys":          b.getPublicKeys,
		"import_key":               b.importKey,
		"remove_key":               b.removeKey,
		"has_matching_private_key": b.hasMatching,
		"sign_digest":              b.signDigest,
		"get_info":                 b.getInfo,
	} {
		b.Handle("beekeeper_api."+method, h)
	}
	return b
}

// AddWallet creates a wallet directly, bypassing the API, holding keys.
func (b *MockBeekeeper) AddWallet(name, password string, keys ...*wax.PrivateKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := &mockWallet{password: password, keys: make(map[wax.PublicKey]*wax.PrivateKey)}
	for _, k := range keys {
		w.keys[k.PublicKey()] = k
	}
	b.wallets[name] = w
}

// LockWallet simulates an auto-lock of one wallet.
func (b *MockBeekeeper) LockWallet(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.wallets[name]; ok {
		w.unlocked = false
	}
}

// ExpireSessions drops every session, as a beekeeper restart would.
func (b *MockBeekeeper) ExpireSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = make(map[string]int64)
}

// SessionTimeout returns the timeout set for token.
func (b *MockBeekeeper) SessionTimeout(token string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[token]
}

// Keys returns the public keys held by a wallet, sorted.
func (b *MockBeekeeper) Keys(name string) []wax.PublicKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.wallets[name]
	if !ok {
		return nil
	}
	return sortedKeys(w.keys)
}

func sortedKeys(m map[wax.PublicKey]*wax.PrivateKey) []wax.PublicKey {
	keys := make([]wax.PublicKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

type bkParams struct {
	Token      string `json:"token"`
	WalletName string `json:"wallet_name"`
	Password   string `json:"password"`
	WIFKey     string `json:"wif_key"`
	PublicKey  string `json:"public_key"`
	SigDigest  string `json:"sig_digest"`
	Seconds    int64  `json:"seconds"`
}

func invalidParams(err error) *protocol.RPCError {
	msg := "invalid params"
	if err != nil {
		msg += ": " + err.Error()
	}
	return &protocol.RPCError{Code: protocol.CodeInvalidParams, Message: msg}
}

// withSession decodes params and checks the token. Handlers run under mu.
func (b *MockBeekeeper) withSession(fn func(p bkParams) (any, *protocol.RPCError)) RPCHandler {
	return func(raw json.RawMessage) (any, *protocol.RPCError) {
		var p bkParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, invalidParams(err)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.sessions[p.Token]; !ok {
			return nil, AssertionError("Invalid token: " + p.Token)
		}
		return fn(p)
	}
}

// unlockedWallet returns the named wallet if it exists and is unlocked. Caller holds mu.
func (b *MockBeekeeper) unlockedWallet(name string) (*mockWallet, *protocol.RPCError) {
	w, ok := b.wallets[name]
	if !ok {
		return nil, AssertionError(fmt.Sprintf("Unable to open file: %s.wallet", name))
	}
	if !w.unlocked {
		return nil, AssertionError(fmt.Sprintf("Wallet is locked: %s", name))
	}
	return w, nil
}

func parseBeekeeperKey(s string) (wax.PublicKey, error) {
	if !strings.HasPrefix(s, wax.PublicKeyPrefix) {
		s = wax.PublicKeyPrefix + s
	}
	return wax.ParsePublicKey(s)
}

func (b *MockBeekeeper) createSession(raw json.RawMessage) (any, *protocol.RPCError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	token := fmt.Sprintf("token-%04d", b.next)
	b.sessions[token] = 900
	return map[string]string{"token": token}, nil
}

func (b *MockBeekeeper) closeSession(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		delete(b.sessions, p.Token)
		return struct{}{}, nil
	})(raw)
}

func (b *MockBeekeeper) setTimeout(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		b.sessions[p.Token] = p.Seconds
		return struct{}{}, nil
	})(raw)
}

func (b *MockBeekeeper) create(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		if _, exists := b.wallets[p.WalletName]; exists {
			return nil, AssertionError(fmt.Sprintf("Wallet with name: '%s' already exists", p.WalletName))
		}
		password := p.Password
		if password == "" {
			password = "PW" + hex.EncodeToString([]byte(p.WalletName))
		}
		b.wallets[p.WalletName] = &mockWallet{
			password: password,
			unlocked: true,
			keys:     make(map[wax.PublicKey]*wax.PrivateKey),
		}
		return map[string]string{"password": password}, nil
	})(raw)
}

func (b *MockBeekeeper) open(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		if _, ok := b.wallets[p.WalletName]; !ok {
			return nil, AssertionError(fmt.Sprintf("Unable to open file: %s.wallet", p.WalletName))
		}
		return struct{}{}, nil
	})(raw)
}

func (b *MockBeekeeper) unlock(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		w, ok := b.wallets[p.WalletName]
		if !ok {
			return nil, AssertionError(fmt.Sprintf("Unable to open file: %s.wallet", p.WalletName))
		}
		if w.unlocked {
			return nil, AssertionError(fmt.Sprintf("Wallet is already unlocked: %s", p.WalletName))
		}
		if w.password != p.Password {
			return nil, AssertionError("Invalid password for wallet: " + p.WalletName)
		}
		w.unlocked = true
		return struct{}{}, nil
	})(raw)
}

func (b *MockBeekeeper) lock(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		w, err := b.unlockedWallet(p.WalletName)
		if err != nil {
			return nil, err
		}
		w.unlocked = false
		return struct{}{}, nil
	})(raw)
}

func (b *MockBeekeeper) lockAll(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		for _, w := range b.wallets {
			w.unlocked = false
		}
		return struct{}{}, nil
	})(raw)
}

func (b *MockBeekeeper) listWallets(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		type entry struct {
			Name     string `json:"name"`
			Unlocked bool   `json:"unlocked"`
		}
		names := make([]string, 0, len(b.wallets))
		for name := range b.wallets {
			names = append(names, name)
		}
		sort.Strings(names)
		list := make([]entry, 0, len(names))
		for _, name := range names {
			list = append(list, entry{name, b.wallets[name].unlocked})
		}
		return map[string]any{"wallets": list}, nil
	})(raw)
}

func (b *MockBeekeeper) getPublicKeys(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		var keys []wax.PublicKey
		if p.WalletName == "" {
			for _, w := range b.wallets {
				if w.unlocked {
					keys = append(keys, sortedKeys(w.keys)...)
				}
			}
		} else {
			w, err := b.unlockedWallet(p.WalletName)
			if err != nil {
				return nil, err
			}
			keys = sortedKeys(w.keys)
		}
		out := make([]map[string]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, map[string]string{"public_key": strings.TrimPrefix(k.String(), wax.PublicKeyPrefix)})
		}
		return map[string]any{"keys": out}, nil
	})(raw)
}

func (b *MockBeekeeper) importKey(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		w, rpcErr := b.unlockedWallet(p.WalletName)
		if rpcErr != nil {
			return nil, rpcErr
		}
		priv, err := wax.ParseWIF(p.WIFKey)
		if err != nil {
			return nil, AssertionError("Invalid private key: " + err.Error())
		}
		pub := priv.PublicKey()
		w.keys[pub] = priv
		return map[string]string{"public_key": strings.TrimPrefix(pub.String(), wax.PublicKeyPrefix)}, nil
	})(raw)
}

func (b *MockBeekeeper) removeKey(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		w, rpcErr := b.unlockedWallet(p.WalletName)
		if rpcErr != nil {
			return nil, rpcErr
		}
		key, err := parseBeekeeperKey(p.PublicKey)
		if err != nil {
			return nil, invalidParams(err)
		}
		if _, ok := w.keys[key]; !ok {
			return nil, AssertionError("Public key not found in wallet: " + p.PublicKey)
		}
		delete(w.keys, key)
		return struct{}{}, nil
	})(raw)
}

func (b *MockBeekeeper) hasMatching(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		w, rpcErr := b.unlockedWallet(p.WalletName)
		if rpcErr != nil {
			return nil, rpcErr
		}
		key, err := parseBeekeeperKey(p.PublicKey)
		if err != nil {
			return nil, invalidParams(err)
		}
		_, ok := w.keys[key]
		return map[string]bool{"exists": ok}, nil
	})(raw)
}

func (b *MockBeekeeper) signDigest(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		w, rpcErr := b.unlockedWallet(p.WalletName)
		if rpcErr != nil {
			return nil, rpcErr
		}
		key, err := parseBeekeeperKey(p.PublicKey)
		if err != nil {
			return nil, invalidParams(err)
		}
		priv, ok := w.keys[key]
		if !ok {
			return nil, AssertionError("Public key not found in wallet: " + p.PublicKey)
		}
		sum, err := hex.DecodeString(p.SigDigest)
		if err != nil || len(sum) != 32 {
			return nil, invalidParams(fmt.Errorf("sig_digest must be 32 bytes of hex"))
		}
		var digest [32]byte
		copy(digest[:], sum)
		return map[string]string{"signature": priv.SignDigest(digest).String()}, nil
	})(raw)
}

func (b *MockBeekeeper) getInfo(raw json.RawMessage) (any, *protocol.RPCError) {
	return b.withSession(func(p bkParams) (any, *protocol.RPCError) {
		return map[string]string{
			"now":          "2026-01-02T03:04:05",
			"timeout_time": "2026-01-02T03:19:05",
		}, nil
	})(raw)
}
