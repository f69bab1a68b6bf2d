// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package beekeeper

import (
	"errors"
	"strings"

	"github.com/aplane-algo/clive/internal/protocol"
)

var (
	// ErrWalletLocked is returned when an operation needs an unlocked wallet.
	ErrWalletLocked = errors.New("wallet is locked")

	// ErrNoSession is returned when a call is made without an open session.
	ErrNoSession = errors.New("no beekeeper session")

	// ErrWalletNotFound is returned when the named wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInvalidPassword is returned when unlock fails due to a wrong password.
	ErrInvalidPassword = errors.New("invalid wallet password")

	// ErrKeyNotFound is returned when the wallet does not hold the requested key.
	ErrKeyNotFound = errors.New("private key not found in wallet")
)

// classify maps beekeeper assertion messages onto sentinel errors.
func classify(err error) error {
	var rpcErr *protocol.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}
	detail := strings.ToLower(rpcErr.Detail() + " " + rpcErr.Message)
	switch {
	case strings.Contains(detail, "is locked"):
		return errors.Join(ErrWalletLocked, err)
	case strings.Contains(detail, "invalid password"):
		return errors.Join(ErrInvalidPassword, err)
	case strings.Contains(detail, "unable to open") || strings.Contains(detail, "does not exist"):
		return errors.Join(ErrWalletNotFound, err)
	case strings.Contains(detail, "not found in") || strings.Contains(detail, "public key not found"):
		return errors.Join(ErrKeyNotFound, err)
	case strings.Contains(detail, "token"):
		return errors.Join(ErrNoSession, err)
	}
	return err
}
