// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aplane-algo/clive/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the clive version",
		Args:        cobra.NoArgs,
		Annotations: noInit,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintln(a.out, "clive "+version.String())
			return err
		},
	}
}
