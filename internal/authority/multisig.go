// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package authority

import (
	"fmt"
	"strings"

	"github.com/aplane-algo/clive/internal/wax"
)

// MaxSigCheckDepth is how deep account auths are followed, as on chain.
const MaxSigCheckDepth = 2

// Lookup returns the authority an account auth entry refers to.
type Lookup func(account string) (*wax.Authority, error)

// RoleLookup returns one role of an account.
type RoleLookup func(account string, role Role) (*wax.Authority, error)

// Satisfied reports the weight signers collect on auth and whether it reaches
// the threshold. Account entries count with their full weight when the
// referenced authority is itself satisfied, following at most depth levels.
func Satisfied(auth *wax.Authority, signers []wax.PublicKey, lookup Lookup, depth int) (uint64, bool, error) {
	set := make(map[wax.PublicKey]bool, len(signers))
	for _, k := range signers {
		set[k] = true
	}
	return satisfied(auth, set, lookup, depth, 0)
}

func satisfied(auth *wax.Authority, signers map[wax.PublicKey]bool, lookup Lookup, maxDepth, depth int) (uint64, bool, error) {
	if auth == nil {
		return 0, false, nil
	}
	threshold := uint64(auth.WeightThreshold)
	var weight uint64
	for _, k := range auth.SortedKeys() {
		if signers[k] {
			weight += uint64(auth.KeyAuths[k])
			if weight >= threshold {
				return weight, true, nil
			}
		}
	}
	if depth >= maxDepth || lookup == nil {
		return weight, weight >= threshold, nil
	}
	for _, name := range auth.SortedAccounts() {
		nested, err := lookup(name)
		if err != nil {
			return weight, false, fmt.Errorf("lookup %s: %w", name, err)
		}
		if _, ok, err := satisfied(nested, signers, lookup, maxDepth, depth+1); err != nil {
			return weight, false, err
		} else if ok {
			weight += uint64(auth.AccountAuths[name])
			if weight >= threshold {
				return weight, true, nil
			}
		}
	}
	return weight, weight >= threshold, nil
}

// nestedRole is the role account entries of r refer to.
func nestedRole(r Role) Role {
	if r == Posting {
		return Posting
	}
	return Active
}

// acceptedRoles lists which roles can stand in for r, weakest first.
func acceptedRoles(r Role) []Role {
	switch r {
	case Posting:
		return []Role{Posting, Active, Owner}
	case Active:
		return []Role{Active, Owner}
	}
	return []Role{Owner}
}

// AccountSatisfied checks whether signers satisfy role of account, accepting
// a stronger role in place of a weaker one.
func AccountSatisfied(account string, role Role, signers []wax.PublicKey, lookup RoleLookup) (bool, error) {
	for _, r := range acceptedRoles(role) {
		auth, err := lookup(account, r)
		if err != nil {
			return false, err
		}
		nested := nestedRole(r)
		_, ok, err := Satisfied(auth, signers, func(name string) (*wax.Authority, error) {
			return lookup(name, nested)
		}, MaxSigCheckDepth)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Missing is one authority a transaction's signatures do not satisfy.
type Missing struct {
	Account string
	Role    Role
}

func (m Missing) String() string { return m.Account + "/" + string(m.Role) }

// VerifyTransaction recovers the signing keys of tx and checks each required
// authority. It returns the unsatisfied ones and, if any, an error wrapping
// ErrMissingAuthority.
func VerifyTransaction(tx *wax.Transaction, chain wax.ChainID, lookup RoleLookup) ([]Missing, error) {
	signers, err := tx.SignatureKeys(chain)
	if err != nil {
		return nil, err
	}
	required := tx.RequiredAuthorities()

	var missing []Missing
	check := func(accounts []string, role Role) error {
		for _, account := range accounts {
			ok, err := AccountSatisfied(account, role, signers, lookup)
			if err != nil {
				return err
			}
			if !ok {
				missing = append(missing, Missing{Account: account, Role: role})
			}
		}
		return nil
	}
	if err := check(required.Owner, Owner); err != nil {
		return nil, err
	}
	if err := check(required.Active, Active); err != nil {
		return nil, err
	}
	if err := check(required.Posting, Posting); err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = m.String()
		}
		return missing, fmt.Errorf("%w: %s", ErrMissingAuthority, strings.Join(names, ", "))
	}
	return nil, nil
}
