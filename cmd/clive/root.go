// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"github.com/spf13/cobra"
)

// annotationNoInit marks commands that run without config, profile or
// wallet.
const annotationNoInit = "clive.noinit"

var noInit = map[string]string{annotationNoInit: "true"}

type globalFlags struct {
	dataDir string
	profile string
	node    string
}

// newRootCmd builds a fresh command tree over a. The shell builds one per
// line so flag values never carry over.
func newRootCmd(a *app) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "clive",
		Short: "Hive command line wallet",
		Long: `clive manages Hive accounts from the command line.

Keys are held by a beekeeper wallet and referenced by alias from a profile.
Every transaction command can sign, save and broadcast its result; see
"clive process --help".

Run without arguments to start the interactive shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.applyFlags(flags)
			if skipInit(cmd) {
				return nil
			}
			return a.init()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.inShell {
				return cmd.Help()
			}
			return runShell(cmd.Context(), a)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.out)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.dataDir, "data-dir", "d", "", "data directory (default $CLIVE_DATA or ~/.clive)")
	pf.StringVar(&flags.profile, "profile", "", "profile to load instead of the default")
	pf.StringVar(&flags.node, "node", "", "node address, overriding profile and config")

	root.AddCommand(
		newShowCmd(a),
		newProcessCmd(a),
		newConfigureCmd(a),
		newUnlockCmd(a),
		newLockCmd(a),
		newShellCmd(a),
		newVersionCmd(a),
	)
	return root
}

// applyFlags copies global flags into a until it is initialized.
func (a *app) applyFlags(f globalFlags) {
	if a.engine != nil {
		return
	}
	if f.dataDir != "" {
		a.dataDir = f.dataDir
	}
	if f.profile != "" {
		a.profileName = f.profile
	}
	if f.node != "" {
		a.nodeAddress = f.node
	}
}

func skipInit(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoInit] == "true" {
			return true
		}
	}
	return false
}

// accountArg returns the optional account argument; empty means the
// working account.
func accountArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
