// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package authority

import (
	"errors"
	"fmt"

	"github.com/aplane-algo/clive/internal/wax"
)

// Authority holds every role of one account.
type Authority struct {
	Account string

	owner   *RoleRegular
	active  *RoleRegular
	posting *RoleRegular
	memo    *RoleMemo
}

// New builds an editable authority for account from its on-chain roles.
func New(account string, owner, active, posting *wax.Authority, memo wax.PublicKey) *Authority {
	return &Authority{
		Account: account,
		owner:   NewRoleRegular(Owner, owner),
		active:  NewRoleRegular(Active, active),
		posting: NewRoleRegular(Posting, posting),
		memo:    NewRoleMemo(memo),
	}
}

// Regular returns a weighted role.
func (a *Authority) Regular(r Role) (*RoleRegular, error) {
	switch r {
	case Owner:
		return a.owner, nil
	case Active:
		return a.active, nil
	case Posting:
		return a.posting, nil
	}
	return nil, fmt.Errorf("%w: %q is not a weighted role", ErrUnknownRole, r)
}

// Memo returns the memo role.
func (a *Authority) Memo() *RoleMemo { return a.memo }

// Compound groups the given weighted roles, or all of them when none are given.
func (a *Authority) Compound(roles ...Role) (*CompoundRegular, error) {
	if len(roles) == 0 {
		roles = RegularRoles
	}
	group := make([]*RoleRegular, 0, len(roles))
	for _, r := range roles {
		reg, err := a.Regular(r)
		if err != nil {
			return nil, err
		}
		group = append(group, reg)
	}
	return NewCompoundRegular(group...), nil
}

// Changed reports whether any role was edited.
func (a *Authority) Changed() bool {
	return a.owner.Changed() || a.active.Changed() || a.posting.Changed() || a.memo.Changed()
}

// ChangedRoles lists the edited roles.
func (a *Authority) ChangedRoles() []Role {
	var out []Role
	for _, r := range []*RoleRegular{a.owner, a.active, a.posting} {
		if r.Changed() {
			out = append(out, r.role)
		}
	}
	if a.memo.Changed() {
		out = append(out, Memo)
	}
	return out
}

// Reset discards every edit.
func (a *Authority) Reset() {
	a.owner.Reset()
	a.active.Reset()
	a.posting.Reset()
	a.memo.Reset()
}

// Validate checks every edited role.
func (a *Authority) Validate() error {
	var errs []error
	for _, r := range []*RoleRegular{a.owner, a.active, a.posting} {
		if r.Changed() {
			if err := r.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// BuildUpdate returns an account_update2 carrying only the changed roles.
func (a *Authority) BuildUpdate() (*wax.AccountUpdate2Operation, error) {
	if !a.Changed() {
		return nil, fmt.Errorf("%w for %s", ErrNothingChanged, a.Account)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	op := &wax.AccountUpdate2Operation{Account: a.Account}
	if a.owner.Changed() {
		op.Owner = a.owner.Authority()
	}
	if a.active.Changed() {
		op.Active = a.active.Authority()
	}
	if a.posting.Changed() {
		op.Posting = a.posting.Authority()
	}
	if a.memo.Changed() {
		key := a.memo.Key()
		op.MemoKey = &key
	}
	return op, nil
}
