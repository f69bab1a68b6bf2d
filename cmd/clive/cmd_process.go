// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/engine"
	"github.com/aplane-algo/clive/internal/wax"
)

// txFlags are the signing, saving and broadcasting options shared by every
// transaction command.
type txFlags struct {
	signWith   []string
	autoSign   bool
	multisign  bool
	unsign     bool
	saveFile   string
	saveFormat string
	broadcast  bool
	force      bool
	expiration time.Duration
}

func (f *txFlags) register(cmd *cobra.Command) {
	fl := cmd.PersistentFlags()
	fl.StringSliceVar(&f.signWith, "sign-with", nil, "sign with these key aliases or public keys")
	fl.BoolVar(&f.autoSign, "autosign", false, "sign with whichever profile keys the transaction needs")
	fl.BoolVar(&f.multisign, "multisign", false, "append signatures to an already signed transaction")
	fl.BoolVar(&f.unsign, "unsign", false, "drop existing signatures first")
	fl.StringVar(&f.saveFile, "save-file", "", "save the transaction to this file")
	fl.StringVar(&f.saveFormat, "save-format", "", "save format: json or binary (default by extension)")
	fl.BoolVar(&f.broadcast, "broadcast", false, "broadcast the signed transaction")
	fl.BoolVar(&f.force, "force", false, "skip the known accounts check")
	fl.DurationVar(&f.expiration, "expiration", 0, "expiration past head block time (default from config)")
}

// options converts the flags, unlocking the wallet when signing is asked for.
func (f *txFlags) options(ctx context.Context, a *app) (engine.TxOptions, error) {
	format, err := command.ParseFormat(f.saveFormat)
	if err != nil {
		return engine.TxOptions{}, err
	}
	opts := engine.TxOptions{
		SignWith:   f.signWith,
		AutoSign:   f.autoSign,
		Multisign:  f.multisign,
		Unsign:     f.unsign,
		SavePath:   f.saveFile,
		SaveFormat: format,
		Broadcast:  f.broadcast,
		Force:      f.force,
		Expiration: f.expiration,
	}
	if opts.AutoSign || len(opts.SignWith) > 0 {
		if err := a.unlock(ctx); err != nil {
			return engine.TxOptions{}, err
		}
	}
	return opts, nil
}

// txRunner builds one operation-producing engine call into a RunE.
type txRunner func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error)

func (f *txFlags) runE(a *app, run txRunner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		opts, err := f.options(cmd.Context(), a)
		if err != nil {
			return err
		}
		res, err := run(cmd.Context(), args, opts)
		if err != nil {
			return err
		}
		return printer{a.out}.result(res)
	}
}

func newProcessCmd(a *app) *cobra.Command {
	var (
		flags txFlags
		from  string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Build, sign, save and broadcast transactions",
		Long: `Build a transaction and act on it. Without --sign-with or --autosign the
transaction is left unsigned; without --save-file or --broadcast it is printed.

Amounts are written "1.000 HIVE", "1.000HIVE" or as two arguments 1.000 HIVE.
--from defaults to the profile's working account.`,
	}
	flags.register(cmd)
	cmd.PersistentFlags().StringVar(&from, "from", "", "account the operation is performed for")

	cmd.AddCommand(
		newTransferCmd(a, &flags, &from),
		newRecurrentTransferCmd(a, &flags, &from),
		newSavingsCmd(a, &flags, &from),
		newPowerUpCmd(a, &flags, &from),
		newPowerDownCmd(a, &flags, &from),
		newCancelPowerDownCmd(a, &flags, &from),
		newDelegateCmd(a, &flags, &from),
		newWithdrawRouteCmd(a, &flags, &from),
		newVoteWitnessCmd(a, &flags, &from),
		newProxyCmd(a, &flags, &from),
		newVoteProposalCmd(a, &flags, &from),
		newClaimRewardsCmd(a, &flags, &from),
		newCustomJSONCmd(a, &flags, &from),
		newAuthorityCmd(a, &flags, &from),
		newProcessTransactionCmd(a, &flags),
	)
	return cmd
}

func newTransferCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var memo string
	cmd := &cobra.Command{
		Use:   "transfer <to> <amount> [symbol]",
		Short: "Transfer HIVE or HBD",
		Args:  cobra.RangeArgs(2, 3),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			amount, err := parseAmount(args[1:]...)
			if err != nil {
				return nil, err
			}
			return a.engine.Transfer(ctx, engine.TransferParams{From: *from, To: args[0], Amount: amount, Memo: memo}, opts)
		}),
	}
	cmd.Flags().StringVar(&memo, "memo", "", "transfer memo")
	return cmd
}

func newRecurrentTransferCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var (
		memo       string
		recurrence uint16
		executions uint16
	)
	cmd := &cobra.Command{
		Use:   "recurrent-transfer <to> <amount> [symbol]",
		Short: "Schedule repeated transfers; a zero amount cancels",
		Args:  cobra.RangeArgs(2, 3),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			amount, err := parseAmount(args[1:]...)
			if err != nil {
				return nil, err
			}
			return a.engine.RecurrentTransfer(ctx, engine.RecurrentTransferParams{
				TransferParams: engine.TransferParams{From: *from, To: args[0], Amount: amount, Memo: memo},
				Recurrence:     recurrence,
				Executions:     executions,
			}, opts)
		}),
	}
	cmd.Flags().StringVar(&memo, "memo", "", "transfer memo")
	cmd.Flags().Uint16Var(&recurrence, "recurrence", engine.MinRecurrence, "hours between transfers")
	cmd.Flags().Uint16Var(&executions, "executions", engine.MinExecutions, "number of transfers")
	return cmd
}

func newSavingsCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Move funds into or out of savings",
	}

	var depositTo, depositMemo string
	deposit := &cobra.Command{
		Use:   "deposit <amount> [symbol]",
		Short: "Deposit into savings",
		Args:  cobra.RangeArgs(1, 2),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			amount, err := parseAmount(args...)
			if err != nil {
				return nil, err
			}
			return a.engine.SavingsDeposit(ctx, engine.SavingsParams{From: *from, To: depositTo, Amount: amount, Memo: depositMemo}, opts)
		}),
	}
	deposit.Flags().StringVar(&depositTo, "to", "", "savings owner (default the sender)")
	deposit.Flags().StringVar(&depositMemo, "memo", "", "memo")

	var (
		withdrawTo, withdrawMemo string
		requestID                int64
	)
	withdraw := &cobra.Command{
		Use:   "withdraw <amount> [symbol]",
		Short: "Withdraw from savings after the three day delay",
		Args:  cobra.RangeArgs(1, 2),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			amount, err := parseAmount(args...)
			if err != nil {
				return nil, err
			}
			params := engine.SavingsParams{From: *from, To: withdrawTo, Amount: amount, Memo: withdrawMemo}
			if requestID >= 0 {
				if requestID > math.MaxUint32 {
					return nil, fmt.Errorf("invalid request id %d", requestID)
				}
				id := uint32(requestID)
				params.RequestID = &id
			}
			return a.engine.SavingsWithdraw(ctx, params, opts)
		}),
	}
	withdraw.Flags().StringVar(&withdrawTo, "to", "", "recipient (default the sender)")
	withdraw.Flags().StringVar(&withdrawMemo, "memo", "", "memo")
	withdraw.Flags().Int64Var(&requestID, "request-id", -1, "request id (default the next free one)")

	cancel := &cobra.Command{
		Use:   "cancel <request-id>",
		Short: "Cancel a pending savings withdrawal",
		Args:  cobra.ExactArgs(1),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			id, err := parseRequestID(args[0])
			if err != nil {
				return nil, err
			}
			return a.engine.CancelSavingsWithdrawal(ctx, *from, id, opts)
		}),
	}

	cmd.AddCommand(deposit, withdraw, cancel)
	return cmd
}

func newPowerUpCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "power-up <amount> [symbol]",
		Short: "Convert HIVE into Hive Power",
		Args:  cobra.RangeArgs(1, 2),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			amount, err := parseAmount(args...)
			if err != nil {
				return nil, err
			}
			return a.engine.PowerUp(ctx, *from, to, amount, opts)
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "account receiving the Hive Power (default the sender)")
	return cmd
}

func newPowerDownCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	return &cobra.Command{
		Use:   "power-down <amount> [symbol]",
		Short: "Start a power down of HP or VESTS",
		Args:  cobra.RangeArgs(1, 2),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			amount, err := parseAmount(args...)
			if err != nil {
				return nil, err
			}
			return a.engine.PowerDown(ctx, *from, amount, opts)
		}),
	}
}

func newCancelPowerDownCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-power-down",
		Short: "Stop an ongoing power down",
		Args:  cobra.NoArgs,
		RunE: flags.runE(a, func(ctx context.Context, _ []string, opts engine.TxOptions) (*command.PerformResult, error) {
			return a.engine.CancelPowerDown(ctx, *from, opts)
		}),
	}
}

func newDelegateCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delegate <delegatee> <amount> [symbol]",
		Short: "Delegate Hive Power; a zero amount removes the delegation",
		Args:  cobra.RangeArgs(2, 3),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			amount, err := parseAmount(args[1:]...)
			if err != nil {
				return nil, err
			}
			return a.engine.Delegate(ctx, *from, args[0], amount, opts)
		}),
	}
}

func newWithdrawRouteCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var autoVest bool
	cmd := &cobra.Command{
		Use:   "withdraw-route <to> <percent>",
		Short: "Route a share of the power down to another account",
		Args:  cobra.ExactArgs(2),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			percent, err := parsePercent(args[1])
			if err != nil {
				return nil, err
			}
			return a.engine.SetWithdrawRoute(ctx, *from, args[0], percent, autoVest, opts)
		}),
	}
	cmd.Flags().BoolVar(&autoVest, "auto-vest", false, "power up the routed HIVE again")
	return cmd
}

func newVoteWitnessCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var unvote bool
	cmd := &cobra.Command{
		Use:   "vote-witness <witness>",
		Short: "Approve or remove approval of a witness",
		Args:  cobra.ExactArgs(1),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			return a.engine.VoteWitness(ctx, *from, args[0], !unvote, opts)
		}),
	}
	cmd.Flags().BoolVar(&unvote, "unvote", false, "remove the vote")
	return cmd
}

func newProxyCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var clearProxy bool
	cmd := &cobra.Command{
		Use:   "proxy <account>",
		Short: "Delegate governance votes to a proxy",
		Args: func(cmd *cobra.Command, args []string) error {
			if clearProxy {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			return a.engine.SetProxy(ctx, *from, accountArg(args), opts)
		}),
	}
	cmd.Flags().BoolVar(&clearProxy, "clear", false, "remove the proxy")
	return cmd
}

func newVoteProposalCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var unvote bool
	cmd := &cobra.Command{
		Use:   "vote-proposal <id>...",
		Short: "Approve or remove approval of DHF proposals",
		Args:  cobra.MinimumNArgs(1),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid proposal id %q", arg)
				}
				ids = append(ids, id)
			}
			return a.engine.VoteProposals(ctx, *from, ids, !unvote, opts)
		}),
	}
	cmd.Flags().BoolVar(&unvote, "unvote", false, "remove the votes")
	return cmd
}

func newClaimRewardsCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	return &cobra.Command{
		Use:   "claim-rewards",
		Short: "Claim all pending author and curation rewards",
		Args:  cobra.NoArgs,
		RunE: flags.runE(a, func(ctx context.Context, _ []string, opts engine.TxOptions) (*command.PerformResult, error) {
			return a.engine.ClaimRewards(ctx, *from, opts)
		}),
	}
}

func newCustomJSONCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	var (
		active    bool
		authorize []string
	)
	cmd := &cobra.Command{
		Use:   "custom-json <id> <json>",
		Short: "Broadcast application defined JSON",
		Args:  cobra.ExactArgs(2),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			accounts := authorize
			if len(accounts) == 0 && *from != "" {
				accounts = []string{*from}
			}
			return a.engine.CustomJSON(ctx, engine.CustomJSONParams{
				ID:       args[0],
				JSON:     args[1],
				Accounts: accounts,
				Active:   active,
			}, opts)
		}),
	}
	cmd.Flags().BoolVar(&active, "active", false, "require active instead of posting authority")
	cmd.Flags().StringSliceVar(&authorize, "authorize", nil, "accounts authorizing the operation (default --from)")
	return cmd
}

func newAuthorityCmd(a *app, flags *txFlags, from *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authority",
		Short: "Edit owner, active and posting authorities or the memo key",
		Long: `Edit an account's authority. Entries are public keys or account names.
Only the roles that changed are sent in the account_update2 operation.`,
	}

	// edit wraps a change of one regular role.
	edit := func(run func(r *authority.RoleRegular, args []string) error) func(*cobra.Command, []string) error {
		return flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			role, err := authority.ParseRole(args[0])
			if err != nil {
				return nil, err
			}
			return a.engine.UpdateAuthority(ctx, *from, func(auth *authority.Authority) error {
				r, err := auth.Regular(role)
				if err != nil {
					return err
				}
				return run(r, args[1:])
			}, opts)
		})
	}

	var addWeight uint16
	add := &cobra.Command{
		Use:   "add <role> <key-or-account>",
		Short: "Add an entry to a role",
		Args:  cobra.ExactArgs(2),
		RunE: edit(func(r *authority.RoleRegular, args []string) error {
			return r.Add(args[0], addWeight)
		}),
	}
	add.Flags().Uint16Var(&addWeight, "weight", 1, "entry weight")

	remove := &cobra.Command{
		Use:   "remove <role> <key-or-account>",
		Short: "Remove an entry from a role",
		Args:  cobra.ExactArgs(2),
		RunE: edit(func(r *authority.RoleRegular, args []string) error {
			return r.Remove(args[0])
		}),
	}

	var replaceWeight uint16
	replace := &cobra.Command{
		Use:   "replace <role> <old> <new>",
		Short: "Replace an entry, keeping its weight unless --weight is given",
		Args:  cobra.ExactArgs(3),
		RunE: edit(func(r *authority.RoleRegular, args []string) error {
			return r.Replace(args[0], args[1], replaceWeight)
		}),
	}
	replace.Flags().Uint16Var(&replaceWeight, "weight", 0, "weight of the new entry (0 keeps the old weight)")

	threshold := &cobra.Command{
		Use:   "threshold <role> <weight>",
		Short: "Set the weight threshold of a role",
		Args:  cobra.ExactArgs(2),
		RunE: edit(func(r *authority.RoleRegular, args []string) error {
			n, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid threshold %q", args[0])
			}
			return r.SetThreshold(uint32(n))
		}),
	}

	memo := &cobra.Command{
		Use:   "memo <public-key>",
		Short: "Replace the memo key",
		Args:  cobra.ExactArgs(1),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			key, err := a.engine.ResolveKey(args[0])
			if err != nil {
				return nil, err
			}
			return a.engine.UpdateAuthority(ctx, *from, func(auth *authority.Authority) error {
				return auth.Memo().Replace(key)
			}, opts)
		}),
	}

	cmd.AddCommand(add, remove, replace, threshold, memo)
	return cmd
}

func newProcessTransactionCmd(a *app, flags *txFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "transaction <file>",
		Short: "Sign, save or broadcast a saved transaction",
		Args:  cobra.ExactArgs(1),
		RunE: flags.runE(a, func(ctx context.Context, args []string, opts engine.TxOptions) (*command.PerformResult, error) {
			f, err := command.ParseFormat(format)
			if err != nil {
				return nil, err
			}
			tx, err := a.engine.LoadTransaction(ctx, args[0], f)
			if err != nil {
				return nil, err
			}
			return a.engine.ProcessTransaction(ctx, tx, opts)
		}),
	}
	cmd.Flags().StringVar(&format, "format", "", "file format: json or binary (default by extension)")
	return cmd
}

// parseAmount accepts "1.000 HIVE", "1.000HIVE" or amount and symbol as two
// arguments.
func parseAmount(args ...string) (wax.Asset, error) {
	s := strings.TrimSpace(strings.Join(args, " "))
	if !strings.ContainsAny(s, " \t") {
		if i := strings.IndexFunc(s, unicode.IsLetter); i > 0 {
			s = s[:i] + " " + s[i:]
		}
	}
	return wax.ParseAsset(s)
}

// parsePercent converts "25", "25.5" or "25.50%" to basis points.
func parsePercent(s string) (uint16, error) {
	v := strings.TrimSuffix(strings.TrimSpace(s), "%")
	whole, frac, _ := strings.Cut(v, ".")
	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q", engine.ErrInvalidPercent, s)
	}
	frac += strings.Repeat("0", 2-len(frac))
	bp, err := strconv.ParseUint(whole+frac, 10, 16)
	if err != nil || bp > engine.MaxRoutePercent {
		return 0, fmt.Errorf("%w: %q", engine.ErrInvalidPercent, s)
	}
	return uint16(bp), nil
}

func parseRequestID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid request id %q", s)
	}
	return uint32(id), nil
}
