// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"errors"
	"testing"
)

func TestValidateAccountName(t *testing.T) {
	valid := []string{"alice", "gtg", "hive.fund", "a-b-c", "user123", "abc.def.ghi", "sixteen-chars-xx"}
	for _, name := range valid {
		if err := ValidateAccountName(name); err != nil {
			t.Errorf("ValidateAccountName(%q) = %v", name, err)
		}
	}
	invalid := []string{"", "ab", "Alice", "1abc", "abc-", "a--b", "abc.de", "seventeen-chars-x", "ab_c", ".abc", "abc."}
	for _, name := range invalid {
		if err := ValidateAccountName(name); !errors.Is(err, ErrInvalidAccountName) {
			t.Errorf("ValidateAccountName(%q) = %v, want ErrInvalidAccountName", name, err)
		}
	}
}
