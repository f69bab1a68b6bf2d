// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import "errors"

var (
	// ErrTransactionAlreadySigned indicates signing a signed transaction without multisign or unsign
	ErrTransactionAlreadySigned = errors.New("transaction is already signed; use multisign to add a signature or unsign to replace")

	// ErrTransactionNotSigned indicates a broadcast of an unsigned transaction
	ErrTransactionNotSigned = errors.New("transaction is not signed")

	// ErrMultipleSignModes indicates more than one signing mode was requested
	ErrMultipleSignModes = errors.New("only one signing mode may be used")

	// ErrConflictingOptions indicates options that cannot be combined
	ErrConflictingOptions = errors.New("conflicting transaction options")

	// ErrNoKeyAvailable indicates autosign found no usable key
	ErrNoKeyAvailable = errors.New("no key available for autosign")

	// ErrTooManyKeys indicates autosign found more than one usable key
	ErrTooManyKeys = errors.New("more than one key available for autosign; choose one explicitly")

	// ErrKeyNotInWallet indicates an explicit signing key the wallet does not hold
	ErrKeyNotInWallet = errors.New("key not present in wallet")

	// ErrNothingToDo indicates a transaction run without operations or a transaction
	ErrNothingToDo = errors.New("no operations and no transaction given")

	// ErrUnknownFormat indicates an unrecognised transaction file format
	ErrUnknownFormat = errors.New("unknown transaction file format")
)
