// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/engine"
	"github.com/aplane-algo/clive/internal/node"
)

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show account, node, profile and transaction state",
		Long: `Show read-only state. Account commands take an optional account name
and default to the profile's working account.`,
	}
	cmd.AddCommand(
		newShowBalancesCmd(a),
		newShowSavingsCmd(a),
		newShowHivePowerCmd(a),
		newShowGovernanceCmd(a),
		newShowAuthorityCmd(a),
		newShowStatusCmd(a),
		newShowProfileCmd(a),
		newShowKeysCmd(a),
		newShowNodeCmd(a),
		newShowKnownCmd(a),
		newShowTransactionCmd(a),
	)
	return cmd
}

func newShowBalancesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balances [account]",
		Short: "Liquid, savings, staked and reward balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.engine.Balances(cmd.Context(), accountArg(args))
			if err != nil {
				return err
			}
			printer{a.out}.balances(b)
			return nil
		},
	}
}

func newShowSavingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "savings [account]",
		Short: "Savings balances, HBD interest and pending withdrawals",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.engine.Savings(cmd.Context(), accountArg(args))
			if err != nil {
				return err
			}
			printer{a.out}.savings(s)
			return nil
		},
	}
}

func newShowHivePowerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "hive-power [account]",
		Aliases: []string{"hp"},
		Short:   "Owned, received and delegated Hive Power",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.engine.HivePower(cmd.Context(), accountArg(args))
			if err != nil {
				return err
			}
			printer{a.out}.hivePower(h)
			return nil
		},
	}
}

func newShowGovernanceCmd(a *app) *cobra.Command {
	var (
		witnesses int
		proposals int
		status    string
	)
	cmd := &cobra.Command{
		Use:   "governance [account]",
		Short: "Witness votes, proxy and proposal votes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := node.ProposalStatus(status)
			switch st {
			case node.ProposalsAll, node.ProposalsActive, node.ProposalsInactive, node.ProposalsVotable, node.ProposalsExpired:
			default:
				return fmt.Errorf("invalid proposal status %q", status)
			}
			g, err := a.engine.Governance(cmd.Context(), accountArg(args), command.GovernanceOptions{
				WitnessLimit:  witnesses,
				ProposalLimit: proposals,
				Status:        st,
			})
			if err != nil {
				return err
			}
			printer{a.out}.governance(g)
			return nil
		},
	}
	cmd.Flags().IntVar(&witnesses, "witnesses", 0, "witnesses to list by votes (0 for the default)")
	cmd.Flags().IntVar(&proposals, "proposals", 0, "proposals to list (0 for the default)")
	cmd.Flags().StringVar(&status, "status", string(node.ProposalsVotable), "proposal filter: all, active, inactive, votable, expired")
	return cmd
}

func newShowAuthorityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "authority [account]",
		Short: "Owner, active and posting authorities and the memo key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := a.engine.Authority(cmd.Context(), accountArg(args))
			if err != nil {
				return err
			}
			printer{a.out}.authority(auth)
			return nil
		},
	}
}

func newShowStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Node, wallet and profile summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer{a.out}.status(a.engine.Status(cmd.Context()))
			return nil
		},
	}
}

func newShowProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "The active profile",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			p := a.engine.Profile()
			if p == nil {
				return engine.ErrNoProfile
			}
			printer{a.out}.profile(p)
			return nil
		},
	}
}

func newShowKeysCmd(a *app) *cobra.Command {
	var wallet bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Profile keys, optionally compared with the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.engine.Profile()
			if p == nil {
				return engine.ErrNoProfile
			}
			out := printer{a.out}
			if !wallet {
				out.keys(p.Keys.All())
				return nil
			}
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			res, err := a.engine.SyncKeys(cmd.Context())
			if err != nil {
				return err
			}
			out.keySync(res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wallet, "wallet", false, "compare with the keys held by the wallet")
	return cmd
}

func newShowNodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "node",
		Short: "Chain id, version and head block of the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.engine.NodeInfo(cmd.Context())
			if err != nil {
				return err
			}
			printer{a.out}.nodeInfo(info)
			return nil
		},
	}
}

func newShowKnownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "known",
		Short: "Known accounts transfers may be sent to",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			p := a.engine.Profile()
			if p == nil {
				return engine.ErrNoProfile
			}
			out := printer{a.out}
			state := "disabled"
			if p.KnownAccountsEnabled {
				state = "enabled"
			}
			out.title("Known accounts")
			out.fields("Check", state, "Accounts", listOrNone(p.KnownAccounts))
			return nil
		},
	}
}

func newShowTransactionCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "transaction <file>",
		Short: "Decode a saved transaction and check its signatures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := command.ParseFormat(format)
			if err != nil {
				return err
			}
			tx, err := a.engine.LoadTransaction(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			out := printer{a.out}
			out.title("Transaction " + tx.ID())
			if err := out.json(tx); err != nil {
				return err
			}
			missing, err := a.engine.VerifyTransaction(cmd.Context(), tx)
			switch {
			case errors.Is(err, authority.ErrMissingAuthority):
				for _, m := range missing {
					out.warn("Missing signature: %s", m)
				}
			case err != nil:
				out.warn("Signatures not verified: %v", err)
			default:
				out.ok("All required authorities are satisfied")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "file format: json or binary (default by extension)")
	return cmd
}
