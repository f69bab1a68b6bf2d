// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package profile stores per-user wallet state (working account, watched and
// known accounts, aliased keys) in HMAC-protected files under the data
// directory.
package profile

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/aplane-algo/clive/internal/keys"
	"github.com/aplane-algo/clive/internal/wax"
)

// MaxNameLength bounds profile names.
const MaxNameLength = 64

var (
	ErrInvalidName      = errors.New("invalid profile name")
	ErrNoWorkingAccount = errors.New("no working account set")
	ErrAccountTracked   = errors.New("account already tracked")
	ErrNotTracked       = errors.New("account not tracked")
)

// Profile is one user's wallet state.
type Profile struct {
	Name            string
	WorkingAccount  string
	WatchedAccounts []string
	KnownAccounts   []string
	// KnownAccountsEnabled refuses broadcasts to accounts outside KnownAccounts.
	KnownAccountsEnabled bool
	Keys                 *keys.KeyManager
	NodeAddress          string
	ChainID              string
}

// New returns an empty profile with the known-accounts check enabled.
func New(name string) (*Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	km, _ := keys.NewKeyManager()
	return &Profile{Name: name, Keys: km, KnownAccountsEnabled: true}, nil
}

// ValidateName accepts letters, digits, '-', '_' and '.' not leading.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%w: length must be 1..%d", ErrInvalidName, MaxNameLength)
	}
	if name[0] == '.' {
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// SetWorkingAccount makes account the working account. It leaves the watched
// list and becomes known.
func (p *Profile) SetWorkingAccount(account string) error {
	if err := wax.ValidateAccountName(account); err != nil {
		return err
	}
	p.WatchedAccounts = remove(p.WatchedAccounts, account)
	if p.WorkingAccount != "" && p.WorkingAccount != account {
		p.WatchedAccounts = insert(p.WatchedAccounts, p.WorkingAccount)
	}
	p.WorkingAccount = account
	p.KnownAccounts = insert(p.KnownAccounts, account)
	return nil
}

// Working returns the working account or ErrNoWorkingAccount.
func (p *Profile) Working() (string, error) {
	if p.WorkingAccount == "" {
		return "", ErrNoWorkingAccount
	}
	return p.WorkingAccount, nil
}

// Watch adds account to the watched list.
func (p *Profile) Watch(account string) error {
	if err := wax.ValidateAccountName(account); err != nil {
		return err
	}
	if account == p.WorkingAccount || slices.Contains(p.WatchedAccounts, account) {
		return fmt.Errorf("%w: %s", ErrAccountTracked, account)
	}
	p.WatchedAccounts = insert(p.WatchedAccounts, account)
	return nil
}

// Unwatch removes account from the watched list.
func (p *Profile) Unwatch(account string) error {
	if !slices.Contains(p.WatchedAccounts, account) {
		return fmt.Errorf("%w: %s", ErrNotTracked, account)
	}
	p.WatchedAccounts = remove(p.WatchedAccounts, account)
	return nil
}

// AddKnown marks accounts as safe broadcast targets.
func (p *Profile) AddKnown(accounts ...string) error {
	for _, a := range accounts {
		if err := wax.ValidateAccountName(a); err != nil {
			return err
		}
	}
	for _, a := range accounts {
		p.KnownAccounts = insert(p.KnownAccounts, a)
	}
	return nil
}

// RemoveKnown forgets a known account.
func (p *Profile) RemoveKnown(account string) error {
	if !slices.Contains(p.KnownAccounts, account) {
		return fmt.Errorf("%w: %s", ErrNotTracked, account)
	}
	p.KnownAccounts = remove(p.KnownAccounts, account)
	return nil
}

// IsKnown reports whether account is known. The working account always is.
func (p *Profile) IsKnown(account string) bool {
	return account == p.WorkingAccount || slices.Contains(p.KnownAccounts, account)
}

// TrackedAccounts returns the working account first, then watched accounts.
func (p *Profile) TrackedAccounts() []string {
	var out []string
	if p.WorkingAccount != "" {
		out = append(out, p.WorkingAccount)
	}
	return append(out, p.WatchedAccounts...)
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.WatchedAccounts = slices.Clone(p.WatchedAccounts)
	c.KnownAccounts = slices.Clone(p.KnownAccounts)
	if p.Keys != nil {
		c.Keys = p.Keys.Clone()
	}
	return &c
}

func insert(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	list = append(list, s)
	sort.Strings(list)
	return list
}

func remove(list []string, s string) []string {
	return slices.DeleteFunc(list, func(v string) bool { return v == s })
}

// profileFile is the on-disk shape. Pending private keys are never written.
type profileFile struct {
	Name                 string           `json:"name"`
	WorkingAccount       string           `json:"working_account,omitempty"`
	WatchedAccounts      []string         `json:"watched_accounts,omitempty"`
	KnownAccounts        []string         `json:"known_accounts,omitempty"`
	KnownAccountsEnabled bool             `json:"known_accounts_enabled"`
	Keys                 *keys.KeyManager `json:"keys"`
	NodeAddress          string           `json:"node_address,omitempty"`
	ChainID              string           `json:"chain_id,omitempty"`
}

func (p *Profile) toFile() profileFile {
	km := p.Keys
	if km == nil {
		km, _ = keys.NewKeyManager()
	}
	return profileFile{
		Name:                 p.Name,
		WorkingAccount:       p.WorkingAccount,
		WatchedAccounts:      p.WatchedAccounts,
		KnownAccounts:        p.KnownAccounts,
		KnownAccountsEnabled: p.KnownAccountsEnabled,
		Keys:                 km,
		NodeAddress:          p.NodeAddress,
		ChainID:              p.ChainID,
	}
}

func (f *profileFile) toProfile() (*Profile, error) {
	if err := ValidateName(f.Name); err != nil {
		return nil, err
	}
	if f.ChainID != "" {
		if _, err := wax.ParseChainID(f.ChainID); err != nil {
			return nil, fmt.Errorf("profile %s: %w", f.Name, err)
		}
	}
	km := f.Keys
	if km == nil {
		km, _ = keys.NewKeyManager()
	}
	return &Profile{
		Name:                 f.Name,
		WorkingAccount:       f.WorkingAccount,
		WatchedAccounts:      f.WatchedAccounts,
		KnownAccounts:        f.KnownAccounts,
		KnownAccountsEnabled: f.KnownAccountsEnabled,
		Keys:                 km,
		NodeAddress:          f.NodeAddress,
		ChainID:              f.ChainID,
	}, nil
}
