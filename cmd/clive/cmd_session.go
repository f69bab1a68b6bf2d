// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"github.com/spf13/cobra"
)

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the wallet for this session",
		Long: `Unlock the beekeeper wallet. In the shell the wallet stays unlocked
until "lock" or the beekeeper session timeout; the password is kept in
memory to unlock again after beekeeper locks the wallet on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			printer{a.out}.ok("Wallet %s unlocked", a.engine.Wallet.Name())
			return nil
		},
	}
}

func newLockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Lock the wallet and forget the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.engine.Lock(cmd.Context()); err != nil {
				return err
			}
			printer{a.out}.ok("Wallet %s locked", a.engine.Wallet.Name())
			return nil
		},
	}
}
