// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keys tracks the public keys a profile knows under aliases, and the
// private keys waiting to be imported into beekeeper.
package keys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/aplane-algo/clive/internal/wax"
)

// MaxAliasLength bounds alias length.
const MaxAliasLength = 64

var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrAliasTaken   = errors.New("alias already in use")
	ErrKeyExists    = errors.New("key already known")
	ErrInvalidAlias = errors.New("invalid alias")
	ErrInvalidKey   = errors.New("invalid private key")
)

// PublicKeyAliased is a public key known under an alias.
type PublicKeyAliased struct {
	Alias string        `json:"alias"`
	Value wax.PublicKey `json:"value"`
}

func (k PublicKeyAliased) String() string {
	if k.Alias == k.Value.String() {
		return k.Alias
	}
	return k.Alias + " (" + k.Value.String() + ")"
}

// PrivateKeyAliased is a WIF private key waiting to be imported.
type PrivateKeyAliased struct {
	Alias  string
	Value  string // WIF
	Public wax.PublicKey
}

// Aliased returns the public half under the same alias.
func (k PrivateKeyAliased) Aliased() PublicKeyAliased {
	return PublicKeyAliased{Alias: k.Alias, Value: k.Public}
}

// ImportFunc imports one pending key, typically into beekeeper.
type ImportFunc func(ctx context.Context, key PrivateKeyAliased) error

// KeyManager holds aliased public keys and keys pending import.
type KeyManager struct {
	mu      sync.RWMutex
	keys    []PublicKeyAliased
	pending []PrivateKeyAliased
}

// NewKeyManager returns a KeyManager holding keys.
func NewKeyManager(keys ...PublicKeyAliased) (*KeyManager, error) {
	m := &KeyManager{}
	if err := m.Add(keys...); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidateAlias checks alias syntax. Aliases are free text without control
// characters or surrounding spaces.
func ValidateAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAlias)
	}
	if len(alias) > MaxAliasLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidAlias, MaxAliasLength)
	}
	if strings.TrimSpace(alias) != alias {
		return fmt.Errorf("%w: leading or trailing space", ErrInvalidAlias)
	}
	for _, r := range alias {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character", ErrInvalidAlias)
		}
	}
	return nil
}

// Add stores keys. An empty alias defaults to the key itself. Aliases and
// values must be unique; nothing is added if any key is rejected.
func (m *KeyManager) Add(keys ...PublicKeyAliased) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := make([]PublicKeyAliased, 0, len(keys))
	for _, k := range keys {
		if k.Alias == "" {
			k.Alias = k.Value.String()
		}
		if err := ValidateAlias(k.Alias); err != nil {
			return err
		}
		if k.Value.IsZero() {
			return fmt.Errorf("%w: empty public key", ErrInvalidKey)
		}
		if !m.aliasAvailable(k.Alias) || containsAlias(added, k.Alias) {
			return fmt.Errorf("%w: %s", ErrAliasTaken, k.Alias)
		}
		if m.indexOfValue(k.Value) >= 0 || containsValue(added, k.Value) {
			return fmt.Errorf("%w: %s", ErrKeyExists, k.Value)
		}
		added = append(added, k)
	}
	m.keys = append(m.keys, added...)
	return nil
}

func containsAlias(keys []PublicKeyAliased, alias string) bool {
	for _, k := range keys {
		if k.Alias == alias {
			return true
		}
	}
	return false
}

func containsValue(keys []PublicKeyAliased, value wax.PublicKey) bool {
	for _, k := range keys {
		if k.Value == value {
			return true
		}
	}
	return false
}

// aliasAvailable checks stored and pending keys. Caller holds mu.
func (m *KeyManager) aliasAvailable(alias string) bool {
	if containsAlias(m.keys, alias) {
		return false
	}
	for _, p := range m.pending {
		if p.Alias == alias {
			return false
		}
	}
	return true
}

func (m *KeyManager) indexOfValue(value wax.PublicKey) int {
	for i, k := range m.keys {
		if k.Value == value {
			return i
		}
	}
	return -1
}

// find resolves an alias first, then a key string. Caller holds mu.
func (m *KeyManager) find(aliasOrValue string) int {
	for i, k := range m.keys {
		if k.Alias == aliasOrValue {
			return i
		}
	}
	if value, err := wax.ParsePublicKey(aliasOrValue); err == nil {
		return m.indexOfValue(value)
	}
	return -1
}

// Remove deletes the key with the given alias or value.
func (m *KeyManager) Remove(aliasOrValue string) (PublicKeyAliased, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(aliasOrValue)
	if i < 0 {
		return PublicKeyAliased{}, fmt.Errorf("%w: %s", ErrKeyNotFound, aliasOrValue)
	}
	removed := m.keys[i]
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	return removed, nil
}

// Get returns the key with the given alias or value.
func (m *KeyManager) Get(aliasOrValue string) (PublicKeyAliased, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.find(aliasOrValue)
	if i < 0 {
		return PublicKeyAliased{}, fmt.Errorf("%w: %s", ErrKeyNotFound, aliasOrValue)
	}
	return m.keys[i], nil
}

// GetFromAlias returns the key with exactly this alias.
func (m *KeyManager) GetFromAlias(alias string) (PublicKeyAliased, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range m.keys {
		if k.Alias == alias {
			return k, nil
		}
	}
	return PublicKeyAliased{}, fmt.Errorf("%w: no key aliased %q", ErrKeyNotFound, alias)
}

// IsAliasAvailable reports whether alias is unused by stored and pending keys.
func (m *KeyManager) IsAliasAvailable(alias string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aliasAvailable(alias)
}

// Contains reports whether value is stored.
func (m *KeyManager) Contains(value wax.PublicKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexOfValue(value) >= 0
}

// First returns the first key in alias order.
func (m *KeyManager) First() (PublicKeyAliased, error) {
	all := m.All()
	if len(all) == 0 {
		return PublicKeyAliased{}, fmt.Errorf("%w: no keys", ErrKeyNotFound)
	}
	return all[0], nil
}

// Rename changes the alias of a stored key.
func (m *KeyManager) Rename(oldAlias, newAlias string) error {
	if err := ValidateAlias(newAlias); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := -1
	for j, k := range m.keys {
		if k.Alias == oldAlias {
			i = j
		}
	}
	if i < 0 {
		return fmt.Errorf("%w: no key aliased %q", ErrKeyNotFound, oldAlias)
	}
	if oldAlias == newAlias {
		return nil
	}
	if !m.aliasAvailable(newAlias) {
		return fmt.Errorf("%w: %s", ErrAliasTaken, newAlias)
	}
	m.keys[i].Alias = newAlias
	return nil
}

// All returns the stored keys sorted by alias.
func (m *KeyManager) All() []PublicKeyAliased {
	m.mu.RLock()
	out := append([]PublicKeyAliased(nil), m.keys...)
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// Values returns the stored public keys in alias order.
func (m *KeyManager) Values() []wax.PublicKey {
	all := m.All()
	out := make([]wax.PublicKey, len(all))
	for i, k := range all {
		out[i] = k.Value
	}
	return out
}

// Len returns the number of stored keys.
func (m *KeyManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// SetToImport queues a private key for import. The alias defaults to the
// derived public key and must not collide with stored or pending keys.
func (m *KeyManager) SetToImport(alias, wif string) (PrivateKeyAliased, error) {
	priv, err := wax.ParseWIF(wif)
	if err != nil {
		return PrivateKeyAliased{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	public := priv.PublicKey()
	priv.Zero()

	if alias == "" {
		alias = public.String()
	}
	if err := ValidateAlias(alias); err != nil {
		return PrivateKeyAliased{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.aliasAvailable(alias) {
		return PrivateKeyAliased{}, fmt.Errorf("%w: %s", ErrAliasTaken, alias)
	}
	if m.indexOfValue(public) >= 0 {
		return PrivateKeyAliased{}, fmt.Errorf("%w: %s", ErrKeyExists, public)
	}
	for _, p := range m.pending {
		if p.Public == public {
			return PrivateKeyAliased{}, fmt.Errorf("%w: %s is already pending", ErrKeyExists, public)
		}
	}
	key := PrivateKeyAliased{Alias: alias, Value: strings.TrimSpace(wif), Public: public}
	m.pending = append(m.pending, key)
	return key, nil
}

// Pending returns the keys waiting for import, in queue order.
func (m *KeyManager) Pending() []PrivateKeyAliased {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PrivateKeyAliased(nil), m.pending...)
}

// ClearPending drops every pending key.
func (m *KeyManager) ClearPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

// ImportPending calls fn for each pending key in order. A key that imports
// successfully moves to the stored set. Processing stops at the first error
// and that key and the rest stay pending.
func (m *KeyManager) ImportPending(ctx context.Context, fn ImportFunc) ([]PublicKeyAliased, error) {
	var imported []PublicKeyAliased
	for _, key := range m.Pending() {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if err := fn(ctx, key); err != nil {
			return imported, fmt.Errorf("failed to import %s: %w", key.Alias, err)
		}
		m.mu.Lock()
		m.pending = removePending(m.pending, key.Public)
		if m.indexOfValue(key.Public) < 0 {
			m.keys = append(m.keys, key.Aliased())
		}
		m.mu.Unlock()
		imported = append(imported, key.Aliased())
	}
	return imported, nil
}

func removePending(pending []PrivateKeyAliased, public wax.PublicKey) []PrivateKeyAliased {
	out := pending[:0]
	for _, p := range pending {
		if p.Public != public {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns an independent copy of the stored and pending keys.
func (m *KeyManager) Clone() *KeyManager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &KeyManager{
		keys:    append([]PublicKeyAliased(nil), m.keys...),
		pending: append([]PrivateKeyAliased(nil), m.pending...),
	}
}

// MarshalJSON writes the stored keys only; pending private keys are never persisted.
func (m *KeyManager) MarshalJSON() ([]byte, error) {
	keys := m.All()
	if keys == nil {
		keys = []PublicKeyAliased{}
	}
	return json.Marshal(keys)
}

func (m *KeyManager) UnmarshalJSON(data []byte) error {
	var keys []PublicKeyAliased
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	fresh, err := NewKeyManager(keys...)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = fresh.keys
	m.pending = nil
	return nil
}
