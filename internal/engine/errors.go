// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"errors"
)

var (
	// ErrNoNode indicates the engine has no node configured
	ErrNoNode = errors.New("node not configured")

	// ErrNoWallet indicates the engine has no beekeeper wallet configured
	ErrNoWallet = errors.New("beekeeper wallet not configured")

	// ErrNoProfile indicates no profile is active
	ErrNoProfile = errors.New("no active profile")

	// ErrInvalidAmount indicates an amount of the wrong symbol or sign
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnknownKey indicates a key reference that is neither an alias nor a key
	ErrUnknownKey = errors.New("unknown key")

	// ErrNothingToClaim indicates an account without reward balances
	ErrNothingToClaim = errors.New("no rewards to claim")

	// ErrAlreadyVoted indicates a witness vote that is already cast
	ErrAlreadyVoted = errors.New("witness already voted")

	// ErrNotVoted indicates removing a witness vote that was never cast
	ErrNotVoted = errors.New("witness not voted")

	// ErrTooManyWitnessVotes indicates the account used all its witness votes
	ErrTooManyWitnessVotes = errors.New("witness vote limit reached")

	// ErrInvalidJSON indicates a custom_json payload that does not parse
	ErrInvalidJSON = errors.New("invalid json payload")

	// ErrInvalidPercent indicates a withdraw route share above 100%
	ErrInvalidPercent = errors.New("invalid percent")
)
