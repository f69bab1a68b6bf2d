// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package profile

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aplane-algo/clive/internal/wax"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"alice", true},
		{"Work-2.backup_1", true},
		{"", false},
		{".hidden", false},
		{"a/b", false},
		{"with space", false},
		{strings.Repeat("x", MaxNameLength), true},
		{strings.Repeat("x", MaxNameLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidName) {
				t.Errorf("error = %v, want ErrInvalidName", err)
			}
		})
	}
}

func TestProfile_WorkingAccount(t *testing.T) {
	p, err := New("main")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Working(); !errors.Is(err, ErrNoWorkingAccount) {
		t.Errorf("Working on new profile: error = %v", err)
	}
	if err := p.SetWorkingAccount("Alice"); !errors.Is(err, wax.ErrInvalidAccountName) {
		t.Errorf("SetWorkingAccount(Alice): error = %v", err)
	}

	if err := p.Watch("bob"); err != nil {
		t.Fatal(err)
	}
	if err := p.SetWorkingAccount("alice"); err != nil {
		t.Fatal(err)
	}
	if err := p.SetWorkingAccount("bob"); err != nil {
		t.Fatal(err)
	}

	if got, _ := p.Working(); got != "bob" {
		t.Errorf("Working = %q, want bob", got)
	}
	if diff := cmp.Diff([]string{"alice"}, p.WatchedAccounts); diff != "" {
		t.Errorf("watched mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bob", "alice"}, p.TrackedAccounts()); diff != "" {
		t.Errorf("tracked mismatch (-want +got):\n%s", diff)
	}
	if !p.IsKnown("alice") || !p.IsKnown("bob") {
		t.Error("working accounts are not known")
	}
}

func TestProfile_WatchAndKnown(t *testing.T) {
	p, _ := New("main")
	_ = p.SetWorkingAccount("alice")

	if err := p.Watch("alice"); !errors.Is(err, ErrAccountTracked) {
		t.Errorf("Watch(working): error = %v", err)
	}
	if err := p.Watch("carol"); err != nil {
		t.Fatal(err)
	}
	if err := p.Watch("carol"); !errors.Is(err, ErrAccountTracked) {
		t.Errorf("Watch twice: error = %v", err)
	}
	if err := p.Unwatch("dave"); !errors.Is(err, ErrNotTracked) {
		t.Errorf("Unwatch(untracked): error = %v", err)
	}
	if err := p.Unwatch("carol"); err != nil {
		t.Fatal(err)
	}

	if err := p.AddKnown("zed", "bob", "x"); !errors.Is(err, wax.ErrInvalidAccountName) {
		t.Errorf("AddKnown with bad name: error = %v", err)
	}
	if p.IsKnown("zed") {
		t.Error("AddKnown is not all-or-nothing")
	}
	if err := p.AddKnown("zed", "bob", "bob"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alice", "bob", "zed"}, p.KnownAccounts); diff != "" {
		t.Errorf("known mismatch (-want +got):\n%s", diff)
	}
	if err := p.RemoveKnown("bob"); err != nil {
		t.Fatal(err)
	}
	if p.IsKnown("bob") {
		t.Error("bob still known after RemoveKnown")
	}
}

func TestProfile_Clone(t *testing.T) {
	p, _ := New("main")
	_ = p.SetWorkingAccount("alice")
	c := p.Clone()
	_ = c.Watch("bob")
	_ = c.AddKnown("carol")

	if len(p.WatchedAccounts) != 0 || p.IsKnown("carol") {
		t.Error("clone shares lists with the original")
	}
	if c.Keys == p.Keys {
		t.Error("clone shares the key manager")
	}
}
