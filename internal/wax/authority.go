// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Authority is a weighted set of keys and accounts with a threshold.
type Authority struct {
	WeightThreshold uint32
	AccountAuths    map[string]uint16
	KeyAuths        map[PublicKey]uint16
}

// NewAuthority creates an empty authority with the given threshold.
func NewAuthority(threshold uint32) *Authority {
	return &Authority{
		WeightThreshold: threshold,
		AccountAuths:    make(map[string]uint16),
		KeyAuths:        make(map[PublicKey]uint16),
	}
}

// SingleKeyAuthority is the common threshold-1 authority over one key.
func SingleKeyAuthority(key PublicKey) *Authority {
	a := NewAuthority(1)
	a.KeyAuths[key] = 1
	return a
}

// Clone returns a deep copy.
func (a *Authority) Clone() *Authority {
	if a == nil {
		return nil
	}
	c := NewAuthority(a.WeightThreshold)
	for k, v := range a.AccountAuths {
		c.AccountAuths[k] = v
	}
	for k, v := range a.KeyAuths {
		c.KeyAuths[k] = v
	}
	return c
}

// Equal reports whether two authorities have identical content.
func (a *Authority) Equal(b *Authority) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.WeightThreshold != b.WeightThreshold || len(a.AccountAuths) != len(b.AccountAuths) || len(a.KeyAuths) != len(b.KeyAuths) {
		return false
	}
	for k, v := range a.AccountAuths {
		if w, ok := b.AccountAuths[k]; !ok || w != v {
			return false
		}
	}
	for k, v := range a.KeyAuths {
		if w, ok := b.KeyAuths[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// TotalWeight sums all entry weights.
func (a *Authority) TotalWeight() uint64 {
	var total uint64
	for _, w := range a.AccountAuths {
		total += uint64(w)
	}
	for _, w := range a.KeyAuths {
		total += uint64(w)
	}
	return total
}

// IsImpossible reports whether the threshold cannot be reached by all entries together.
func (a *Authority) IsImpossible() bool {
	return a.TotalWeight() < uint64(a.WeightThreshold)
}

// SortedAccounts returns account names in flat_map order.
func (a *Authority) SortedAccounts() []string {
	names := make([]string, 0, len(a.AccountAuths))
	for name := range a.AccountAuths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedKeys returns keys in flat_map order.
func (a *Authority) SortedKeys() []PublicKey {
	keys := make([]PublicKey, 0, len(a.KeyAuths))
	for k := range a.KeyAuths {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

type authorityJSON struct {
	WeightThreshold uint32              `json:"weight_threshold"`
	AccountAuths    [][2]json.RawMessage `json:"account_auths"`
	KeyAuths        [][2]json.RawMessage `json:"key_auths"`
}

// MarshalJSON encodes auths as sorted [name, weight] pairs.
func (a Authority) MarshalJSON() ([]byte, error) {
	out := authorityJSON{
		WeightThreshold: a.WeightThreshold,
		AccountAuths:    make([][2]json.RawMessage, 0, len(a.AccountAuths)),
		KeyAuths:        make([][2]json.RawMessage, 0, len(a.KeyAuths)),
	}
	for _, name := range a.SortedAccounts() {
		n, _ := json.Marshal(name)
		w, _ := json.Marshal(a.AccountAuths[name])
		out.AccountAuths = append(out.AccountAuths, [2]json.RawMessage{n, w})
	}
	for _, key := range a.SortedKeys() {
		k, _ := json.Marshal(key.String())
		w, _ := json.Marshal(a.KeyAuths[key])
		out.KeyAuths = append(out.KeyAuths, [2]json.RawMessage{k, w})
	}
	return json.Marshal(out)
}

func (a *Authority) UnmarshalJSON(data []byte) error {
	var in authorityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("invalid authority: %w", err)
	}
	parsed := NewAuthority(in.WeightThreshold)
	for _, pair := range in.AccountAuths {
		var name string
		var weight uint16
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return fmt.Errorf("invalid account auth name: %w", err)
		}
		if err := json.Unmarshal(pair[1], &weight); err != nil {
			return fmt.Errorf("invalid account auth weight: %w", err)
		}
		parsed.AccountAuths[name] = weight
	}
	for _, pair := range in.KeyAuths {
		var keyStr string
		var weight uint16
		if err := json.Unmarshal(pair[0], &keyStr); err != nil {
			return fmt.Errorf("invalid key auth: %w", err)
		}
		if err := json.Unmarshal(pair[1], &weight); err != nil {
			return fmt.Errorf("invalid key auth weight: %w", err)
		}
		key, err := ParsePublicKey(keyStr)
		if err != nil {
			return err
		}
		parsed.KeyAuths[key] = weight
	}
	*a = *parsed
	return nil
}

func encodeAuthority(e *Encoder, a *Authority) {
	e.Uint32(a.WeightThreshold)
	e.Varint(uint64(len(a.AccountAuths)))
	for _, name := range a.SortedAccounts() {
		e.String(name)
		e.Uint16(a.AccountAuths[name])
	}
	e.Varint(uint64(len(a.KeyAuths)))
	for _, key := range a.SortedKeys() {
		encodePublicKey(e, key)
		e.Uint16(a.KeyAuths[key])
	}
}

func decodeAuthority(d *Decoder) *Authority {
	a := NewAuthority(d.Uint32())
	n := d.Length()
	for i := 0; i < n && d.Err() == nil; i++ {
		name := d.String()
		a.AccountAuths[name] = d.Uint16()
	}
	n = d.Length()
	for i := 0; i < n && d.Err() == nil; i++ {
		key := decodePublicKey(d)
		a.KeyAuths[key] = d.Uint16()
	}
	return a
}

func encodeOptionalAuthority(e *Encoder, a *Authority) {
	if a == nil {
		e.Bool(false)
		return
	}
	e.Bool(true)
	encodeAuthority(e, a)
}

func decodeOptionalAuthority(d *Decoder) *Authority {
	if !d.Bool() {
		return nil
	}
	return decodeAuthority(d)
}
