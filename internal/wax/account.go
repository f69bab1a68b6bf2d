// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"errors"
	"fmt"
	"strings"
)

// Account name length limits.
const (
	MinAccountNameLength = 3
	MaxAccountNameLength = 16
)

// ErrInvalidAccountName is returned by ValidateAccountName.
var ErrInvalidAccountName = errors.New("invalid account name")

// ValidateAccountName applies the chain's account naming rules: dot separated
// segments of at least three characters, each starting with a letter, ending
// with a letter or digit, made of lowercase letters, digits and single hyphens.
func ValidateAccountName(name string) error {
	if len(name) < MinAccountNameLength || len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: %q must be %d to %d characters", ErrInvalidAccountName, name, MinAccountNameLength, MaxAccountNameLength)
	}
	for _, segment := range strings.Split(name, ".") {
		if len(segment) < MinAccountNameLength {
			return fmt.Errorf("%w: %q has a segment shorter than %d", ErrInvalidAccountName, name, MinAccountNameLength)
		}
		if c := segment[0]; c < 'a' || c > 'z' {
			return fmt.Errorf("%w: %q segment must start with a letter", ErrInvalidAccountName, name)
		}
		if c := segment[len(segment)-1]; !isLowerAlnum(c) {
			return fmt.Errorf("%w: %q segment must end with a letter or digit", ErrInvalidAccountName, name)
		}
		for i := 1; i < len(segment)-1; i++ {
			c := segment[i]
			switch {
			case isLowerAlnum(c):
			case c == '-' && segment[i-1] != '-':
			default:
				return fmt.Errorf("%w: %q contains %q", ErrInvalidAccountName, name, c)
			}
		}
	}
	return nil
}

func isLowerAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
