// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package authority models the owner, active, posting and memo authorities of
// an account, tracks edits against the on-chain state, and checks whether a
// set of signing keys satisfies a weighted threshold.
package authority

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aplane-algo/clive/internal/wax"
)

var (
	ErrUnknownRole      = errors.New("unknown authority role")
	ErrEntryExists      = errors.New("entry already present in authority")
	ErrEntryNotFound    = errors.New("entry not found in authority")
	ErrInvalidWeight    = errors.New("weight must be greater than zero")
	ErrInvalidEntry     = errors.New("entry is neither a public key nor an account name")
	ErrInvalidAuth      = errors.New("invalid authority")
	ErrNothingChanged   = errors.New("no authority changes to apply")
	ErrMissingAuthority = errors.New("missing required authority")
)

// Role names one of an account's authorities.
type Role string

const (
	Owner   Role = "owner"
	Active  Role = "active"
	Posting Role = "posting"
	Memo    Role = "memo"
)

// RegularRoles are the weighted roles, strongest first.
var RegularRoles = []Role{Owner, Active, Posting}

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case Owner, Active, Posting, Memo:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// IsRegular reports whether r is a weighted role.
func (r Role) IsRegular() bool {
	return r == Owner || r == Active || r == Posting
}

// Entry is a weighted member of a regular authority.
type Entry interface {
	// Value is the key string or account name.
	Value() string
	EntryWeight() uint16
	IsKey() bool
}

// KeyEntry is a key member of an authority.
type KeyEntry struct {
	Key    wax.PublicKey
	Weight uint16
}

func (e KeyEntry) Value() string       { return e.Key.String() }
func (e KeyEntry) EntryWeight() uint16 { return e.Weight }
func (e KeyEntry) IsKey() bool         { return true }

// AccountEntry is an account member of an authority.
type AccountEntry struct {
	Account string
	Weight  uint16
}

func (e AccountEntry) Value() string       { return e.Account }
func (e AccountEntry) EntryWeight() uint16 { return e.Weight }
func (e AccountEntry) IsKey() bool         { return false }

// parseEntry classifies s as a public key or an account name.
func parseEntry(s string) (key wax.PublicKey, account string, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, wax.PublicKeyPrefix) {
		if key, err = wax.ParsePublicKey(s); err == nil {
			return key, "", nil
		}
	}
	if wax.ValidateAccountName(s) == nil {
		return key, s, nil
	}
	return key, "", fmt.Errorf("%w: %q", ErrInvalidEntry, s)
}

// matchPattern matches value against a glob, or as a substring when the
// pattern has no glob metacharacters.
func matchPattern(pattern, value string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return strings.Contains(value, pattern)
	}
	ok, err := path.Match(pattern, value)
	return err == nil && ok
}

// RoleRegular is an editable weighted authority with the state it started from.
type RoleRegular struct {
	role     Role
	original *wax.Authority
	current  *wax.Authority
}

// NewRoleRegular wraps auth. A nil auth starts as an empty threshold-1 authority.
func NewRoleRegular(role Role, auth *wax.Authority) *RoleRegular {
	if auth == nil {
		auth = wax.NewAuthority(1)
	}
	return &RoleRegular{role: role, original: auth.Clone(), current: auth.Clone()}
}

// Role returns which role this is.
func (r *RoleRegular) Role() Role { return r.role }

// Authority returns a copy of the edited authority.
func (r *RoleRegular) Authority() *wax.Authority { return r.current.Clone() }

// Original returns a copy of the authority as first loaded.
func (r *RoleRegular) Original() *wax.Authority { return r.original.Clone() }

// Threshold returns the weight threshold.
func (r *RoleRegular) Threshold() uint32 { return r.current.WeightThreshold }

// SetThreshold changes the weight threshold.
func (r *RoleRegular) SetThreshold(threshold uint32) error {
	if threshold == 0 {
		return fmt.Errorf("%w: threshold must be greater than zero", ErrInvalidAuth)
	}
	r.current.WeightThreshold = threshold
	return nil
}

// Keys returns key entries in chain order.
func (r *RoleRegular) Keys() []KeyEntry {
	keys := r.current.SortedKeys()
	out := make([]KeyEntry, len(keys))
	for i, k := range keys {
		out[i] = KeyEntry{Key: k, Weight: r.current.KeyAuths[k]}
	}
	return out
}

// Accounts returns account entries in chain order.
func (r *RoleRegular) Accounts() []AccountEntry {
	names := r.current.SortedAccounts()
	out := make([]AccountEntry, len(names))
	for i, n := range names {
		out[i] = AccountEntry{Account: n, Weight: r.current.AccountAuths[n]}
	}
	return out
}

// Entries returns accounts then keys.
func (r *RoleRegular) Entries() []Entry {
	var out []Entry
	for _, a := range r.Accounts() {
		out = append(out, a)
	}
	for _, k := range r.Keys() {
		out = append(out, k)
	}
	return out
}

// Has reports whether the key or account is a member.
func (r *RoleRegular) Has(entry string) bool {
	key, account, err := parseEntry(entry)
	if err != nil {
		return false
	}
	if account != "" {
		_, ok := r.current.AccountAuths[account]
		return ok
	}
	_, ok := r.current.KeyAuths[key]
	return ok
}

// Match returns entries whose value matches pattern.
func (r *RoleRegular) Match(pattern string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if matchPattern(pattern, e.Value()) {
			out = append(out, e)
		}
	}
	return out
}

// AddKey adds a key member.
func (r *RoleRegular) AddKey(key wax.PublicKey, weight uint16) error {
	if weight == 0 {
		return ErrInvalidWeight
	}
	if _, ok := r.current.KeyAuths[key]; ok {
		return fmt.Errorf("%w: %s", ErrEntryExists, key)
	}
	r.current.KeyAuths[key] = weight
	return nil
}

// AddAccount adds an account member.
func (r *RoleRegular) AddAccount(account string, weight uint16) error {
	if weight == 0 {
		return ErrInvalidWeight
	}
	if err := wax.ValidateAccountName(account); err != nil {
		return err
	}
	if _, ok := r.current.AccountAuths[account]; ok {
		return fmt.Errorf("%w: %s", ErrEntryExists, account)
	}
	r.current.AccountAuths[account] = weight
	return nil
}

// Add adds a key or account given as a string.
func (r *RoleRegular) Add(entry string, weight uint16) error {
	key, account, err := parseEntry(entry)
	if err != nil {
		return err
	}
	if account != "" {
		return r.AddAccount(account, weight)
	}
	return r.AddKey(key, weight)
}

// Remove deletes a key or account member.
func (r *RoleRegular) Remove(entry string) error {
	_, err := r.remove(entry)
	return err
}

func (r *RoleRegular) remove(entry string) (uint16, error) {
	key, account, err := parseEntry(entry)
	if err != nil {
		return 0, err
	}
	if account != "" {
		w, ok := r.current.AccountAuths[account]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrEntryNotFound, account)
		}
		delete(r.current.AccountAuths, account)
		return w, nil
	}
	w, ok := r.current.KeyAuths[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEntryNotFound, key)
	}
	delete(r.current.KeyAuths, key)
	return w, nil
}

// Replace swaps old for replacement. A zero weight keeps the old entry's weight.
// On error the authority is unchanged.
func (r *RoleRegular) Replace(old, replacement string, weight uint16) error {
	if _, _, err := parseEntry(replacement); err != nil {
		return err
	}
	if old != replacement && r.Has(replacement) {
		return fmt.Errorf("%w: %s", ErrEntryExists, replacement)
	}
	snapshot := r.current.Clone()
	oldWeight, err := r.remove(old)
	if err != nil {
		return err
	}
	if weight == 0 {
		weight = oldWeight
	}
	if err := r.Add(replacement, weight); err != nil {
		r.current = snapshot
		return err
	}
	return nil
}

// Reset discards every edit.
func (r *RoleRegular) Reset() {
	r.current = r.original.Clone()
}

// Changed reports whether the authority differs from the original.
func (r *RoleRegular) Changed() bool {
	return !r.current.Equal(r.original)
}

// Validate checks that the authority can be used on chain.
func (r *RoleRegular) Validate() error {
	a := r.current
	if a.WeightThreshold == 0 {
		return fmt.Errorf("%w: %s threshold must be greater than zero", ErrInvalidAuth, r.role)
	}
	if len(a.KeyAuths)+len(a.AccountAuths) == 0 {
		return fmt.Errorf("%w: %s has no entries", ErrInvalidAuth, r.role)
	}
	for k, w := range a.KeyAuths {
		if w == 0 {
			return fmt.Errorf("%w: %s key %s has zero weight", ErrInvalidAuth, r.role, k)
		}
	}
	for n, w := range a.AccountAuths {
		if w == 0 {
			return fmt.Errorf("%w: %s account %s has zero weight", ErrInvalidAuth, r.role, n)
		}
	}
	if a.IsImpossible() {
		return fmt.Errorf("%w: %s threshold %d exceeds total weight %d", ErrInvalidAuth, r.role, a.WeightThreshold, a.TotalWeight())
	}
	return nil
}

// RoleMemo is the single memo key of an account.
type RoleMemo struct {
	original wax.PublicKey
	current  wax.PublicKey
}

// NewRoleMemo wraps a memo key.
func NewRoleMemo(key wax.PublicKey) *RoleMemo {
	return &RoleMemo{original: key, current: key}
}

func (m *RoleMemo) Role() Role { return Memo }

// Key returns the edited memo key.
func (m *RoleMemo) Key() wax.PublicKey { return m.current }

// Original returns the memo key as first loaded.
func (m *RoleMemo) Original() wax.PublicKey { return m.original }

// Replace sets a new memo key.
func (m *RoleMemo) Replace(key wax.PublicKey) error {
	if key.IsZero() {
		return fmt.Errorf("%w: empty memo key", ErrInvalidEntry)
	}
	m.current = key
	return nil
}

// Match reports whether the memo key matches pattern.
func (m *RoleMemo) Match(pattern string) bool {
	return matchPattern(pattern, m.current.String())
}

func (m *RoleMemo) Reset()        { m.current = m.original }
func (m *RoleMemo) Changed() bool { return m.current != m.original }

// CompoundRegular is an aggregate view over several regular roles, used to
// apply one edit to every role of an account at once.
type CompoundRegular struct {
	roles []*RoleRegular
}

// NewCompoundRegular groups roles.
func NewCompoundRegular(roles ...*RoleRegular) *CompoundRegular {
	return &CompoundRegular{roles: roles}
}

// Roles returns the grouped roles.
func (c *CompoundRegular) Roles() []*RoleRegular { return c.roles }

// RolesContaining returns the roles that have entry as a member.
func (c *CompoundRegular) RolesContaining(entry string) []Role {
	var out []Role
	for _, r := range c.roles {
		if r.Has(entry) {
			out = append(out, r.role)
		}
	}
	return out
}

// Keys returns the union of key members, sorted.
func (c *CompoundRegular) Keys() []wax.PublicKey {
	seen := make(map[wax.PublicKey]bool)
	var out []wax.PublicKey
	for _, r := range c.roles {
		for k := range r.current.KeyAuths {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Accounts returns the union of account members, sorted.
func (c *CompoundRegular) Accounts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.roles {
		for n := range r.current.AccountAuths {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Add adds entry to every role that does not already hold it.
func (c *CompoundRegular) Add(entry string, weight uint16) error {
	for _, r := range c.roles {
		if r.Has(entry) {
			continue
		}
		if err := r.Add(entry, weight); err != nil {
			return fmt.Errorf("%s: %w", r.role, err)
		}
	}
	return nil
}

// Remove removes entry from every role holding it.
func (c *CompoundRegular) Remove(entry string) error {
	found := false
	for _, r := range c.roles {
		if !r.Has(entry) {
			continue
		}
		found = true
		if err := r.Remove(entry); err != nil {
			return fmt.Errorf("%s: %w", r.role, err)
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entry)
	}
	return nil
}

// Replace replaces old in every role holding it.
func (c *CompoundRegular) Replace(old, replacement string, weight uint16) error {
	found := false
	for _, r := range c.roles {
		if !r.Has(old) {
			continue
		}
		found = true
		if err := r.Replace(old, replacement, weight); err != nil {
			return fmt.Errorf("%s: %w", r.role, err)
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, old)
	}
	return nil
}

// Changed reports whether any grouped role changed.
func (c *CompoundRegular) Changed() bool {
	for _, r := range c.roles {
		if r.Changed() {
			return true
		}
	}
	return false
}
