// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aplane-algo/clive/internal/crypto"
	"github.com/aplane-algo/clive/internal/engine"
	"github.com/aplane-algo/clive/internal/keys"
	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

func newConfigureCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Manage profiles, tracked accounts, keys and configuration",
	}
	cmd.AddCommand(
		newProfileCmd(a),
		newWorkingAccountCmd(a),
		newWatchedCmd(a),
		newKnownCmd(a),
		newKeyCmd(a),
		newWalletCmd(a),
		newConfigureNodeCmd(a),
		newConfigInitCmd(a),
		newConfigShowCmd(a),
		newConfigReferenceCmd(a),
	)
	return cmd
}

// editProfile applies edit to the active profile and reports success.
func (a *app) editProfile(done string, edit func(*profile.Profile) error) error {
	if err := a.engine.UpdateProfile(edit); err != nil {
		return err
	}
	printer{a.out}.ok("%s", done)
	return nil
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create, list, select and delete profiles",
	}

	var (
		working    string
		setDefault bool
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := profile.New(args[0])
			if err != nil {
				return err
			}
			if working != "" {
				if err := p.SetWorkingAccount(working); err != nil {
					return err
				}
			}
			if err := a.store.Create(p); err != nil {
				return err
			}
			// The first profile becomes the default.
			_, noDefault := a.store.Default()
			if setDefault || noDefault != nil {
				if err := a.store.SetDefault(p.Name); err != nil {
					return err
				}
			}
			if a.engine.Profile() == nil {
				a.engine.SetProfile(p)
			}
			printer{a.out}.ok("Created profile %s", p.Name)
			return nil
		},
	}
	create.Flags().StringVar(&working, "working-account", "", "working account of the new profile")
	create.Flags().BoolVar(&setDefault, "default", false, "make it the default profile")

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			names, err := a.store.List()
			if err != nil {
				return err
			}
			def, _ := a.store.Default()
			active := ""
			if p := a.engine.Profile(); p != nil {
				active = p.Name
			}
			rows := make([][]string, 0, len(names))
			for _, n := range names {
				rows = append(rows, []string{n, check(n == def), check(n == active)})
			}
			printer{a.out}.table([]string{"Profile", "Default", "Active"}, rows)
			return nil
		},
	}

	use := &cobra.Command{
		Use:   "use <name>",
		Short: "Make a profile the default and activate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := a.store.Load(args[0])
			if err != nil {
				return err
			}
			if err := a.store.SetDefault(p.Name); err != nil {
				return err
			}
			a.engine.SetProfile(p)
			printer{a.out}.ok("Using profile %s", p.Name)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile; wallet keys are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if p := a.engine.Profile(); p != nil && p.Name == args[0] {
				return fmt.Errorf("profile %s is active; switch profiles first", p.Name)
			}
			if err := a.store.Delete(args[0]); err != nil {
				return err
			}
			printer{a.out}.ok("Deleted profile %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, list, use, del)
	return cmd
}

func newWorkingAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "working-account <account>",
		Short: "Set the account commands act on by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.editProfile("Working account is now "+args[0], func(p *profile.Profile) error {
				return p.SetWorkingAccount(args[0])
			})
		},
	}
}

func newWatchedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watched",
		Short: "Manage watched accounts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <account>",
			Short: "Watch an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.editProfile("Watching "+args[0], func(p *profile.Profile) error {
					return p.Watch(args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "remove <account>",
			Short: "Stop watching an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.editProfile("Stopped watching "+args[0], func(p *profile.Profile) error {
					return p.Unwatch(args[0])
				})
			},
		},
	)
	return cmd
}

func newKnownCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "known",
		Short: "Manage accounts transfers may be sent to",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <account>...",
			Short: "Mark accounts as known",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.editProfile(fmt.Sprintf("Added %d known account(s)", len(args)), func(p *profile.Profile) error {
					return p.AddKnown(args...)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <account>",
			Short: "Forget a known account",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.editProfile("Removed known account "+args[0], func(p *profile.Profile) error {
					return p.RemoveKnown(args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "enable",
			Short: "Refuse broadcasts to unknown accounts",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.editProfile("Known account check enabled", func(p *profile.Profile) error {
					p.KnownAccountsEnabled = true
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Allow broadcasts to any account",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.editProfile("Known account check disabled", func(p *profile.Profile) error {
					p.KnownAccountsEnabled = false
					return nil
				})
			},
		},
	)
	return cmd
}

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage profile keys and the wallet keys behind them",
	}

	importCmd := &cobra.Command{
		Use:   "import <alias>",
		Short: "Import a private key (prompted, not echoed) into the wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			wif, err := a.readSecret("Private key (WIF): ")
			if err != nil {
				return err
			}
			defer crypto.ZeroBytes(wif)
			k, err := a.engine.ImportKey(cmd.Context(), args[0], string(bytes.TrimSpace(wif)))
			if err != nil {
				return err
			}
			printer{a.out}.ok("Imported %s", k)
			return nil
		},
	}

	var backup string
	generate := &cobra.Command{
		Use:   "generate <alias>",
		Short: "Generate a key in the wallet, optionally sealing a backup first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			var passphrase []byte
			if backup != "" {
				var err error
				passphrase, err = a.newPassphrase()
				if err != nil {
					return err
				}
				defer crypto.ZeroBytes(passphrase)
			}
			k, err := a.engine.GenerateKey(cmd.Context(), args[0], backup, passphrase)
			if err != nil {
				return err
			}
			out := printer{a.out}
			out.ok("Generated %s", k)
			if backup != "" {
				out.line("Backup written to %s", backup)
			}
			return nil
		},
	}
	generate.Flags().StringVar(&backup, "backup", "", "write an encrypted backup of the private key to this file")

	restore := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Import keys from an encrypted backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			passphrase, err := a.readSecret("Backup passphrase: ")
			if err != nil {
				return err
			}
			defer crypto.ZeroBytes(passphrase)
			restored, err := a.engine.RestoreKeys(cmd.Context(), args[0], passphrase)
			if err != nil {
				return err
			}
			out := printer{a.out}
			if len(restored) == 0 {
				out.line("All keys in the backup are already tracked")
				return nil
			}
			for _, k := range restored {
				out.ok("Restored %s", k)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <alias> <public-key>",
		Short: "Track a public key without its private key",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			key, err := wax.ParsePublicKey(args[1])
			if err != nil {
				return err
			}
			return a.editProfile("Added key "+args[0], func(p *profile.Profile) error {
				return p.Keys.Add(keys.PublicKeyAliased{Alias: args[0], Value: key})
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename <old-alias> <new-alias>",
		Short: "Rename a key alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.editProfile("Renamed "+args[0]+" to "+args[1], func(p *profile.Profile) error {
				return p.Keys.Rename(args[0], args[1])
			})
		},
	}

	var fromWallet bool
	remove := &cobra.Command{
		Use:   "remove <alias-or-key>",
		Short: "Stop tracking a key, optionally deleting it from the wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromWallet {
				if err := a.unlock(cmd.Context()); err != nil {
					return err
				}
			}
			k, err := a.engine.RemoveKey(cmd.Context(), args[0], fromWallet)
			if err != nil {
				return err
			}
			printer{a.out}.ok("Removed %s", k)
			return nil
		},
	}
	remove.Flags().BoolVar(&fromWallet, "from-wallet", false, "also delete the private key from the wallet")

	track := &cobra.Command{
		Use:   "track",
		Short: "Track every wallet key the profile does not know yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			added, err := a.engine.TrackWalletKeys(cmd.Context())
			if err != nil {
				return err
			}
			out := printer{a.out}
			if len(added) == 0 {
				out.line("No untracked wallet keys")
				return nil
			}
			for _, k := range added {
				out.ok("Tracking %s", k)
			}
			return nil
		},
	}

	cmd.AddCommand(importCmd, generate, restore, add, rename, remove, track)
	return cmd
}

// newPassphrase prompts twice for a backup passphrase.
func (a *app) newPassphrase() ([]byte, error) {
	first, err := a.readSecret("Backup passphrase: ")
	if err != nil {
		return nil, err
	}
	second, err := a.readSecret("Repeat passphrase: ")
	if err != nil {
		crypto.ZeroBytes(first)
		return nil, err
	}
	defer crypto.ZeroBytes(second)
	if len(first) == 0 || !bytes.Equal(first, second) {
		crypto.ZeroBytes(first)
		return nil, errors.New("passphrases are empty or do not match")
	}
	return first, nil
}

func newWalletCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the beekeeper wallet",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the wallet with a new password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.engine.Wallet == nil {
				return engine.ErrNoWallet
			}
			pw, err := a.password(cmd.Context())
			if err != nil {
				return err
			}
			defer crypto.ZeroBytes(pw)
			if a.cfg.PasswordCommand == nil {
				again, err := a.readSecret("Repeat password: ")
				if err != nil {
					return err
				}
				defer crypto.ZeroBytes(again)
				if !bytes.Equal(pw, again) {
					return errors.New("passwords do not match")
				}
			}
			if err := a.engine.Wallet.Create(cmd.Context(), pw); err != nil {
				return err
			}
			printer{a.out}.ok("Created wallet %s", a.engine.Wallet.Name())
			return nil
		},
	})
	return cmd
}

func newConfigureNodeCmd(a *app) *cobra.Command {
	var chainID string
	cmd := &cobra.Command{
		Use:   "node <url>",
		Short: "Store a node address in the profile (used from the next start)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if chainID != "" {
				if _, err := wax.ParseChainID(chainID); err != nil {
					return err
				}
			}
			probe := util.DefaultConfig()
			probe.NodeAddress = args[0]
			if err := probe.Validate(); err != nil {
				return err
			}
			return a.editProfile("Profile node set to "+args[0], func(p *profile.Profile) error {
				p.NodeAddress = args[0]
				if chainID != "" {
					p.ChainID = chainID
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&chainID, "chain-id", "", "chain id of the node's network")
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		nodeAddress string
		beekeeper   string
		walletName  string
		force       bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write config.yaml with defaults into the data directory",
		Args:        cobra.NoArgs,
		Annotations: noInit,
		RunE: func(*cobra.Command, []string) error {
			dir := util.GetDataDir(a.dataDir)
			if dir == "" {
				return errors.New("cannot determine data directory; use -d or set CLIVE_DATA")
			}
			path := util.GetConfigPath(dir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			cfg := util.DefaultConfig()
			if nodeAddress != "" {
				cfg.NodeAddress = nodeAddress
			}
			if beekeeper != "" {
				cfg.BeekeeperAddress = beekeeper
			}
			cfg.WalletName = walletName
			if err := util.SaveConfig(dir, cfg); err != nil {
				return err
			}
			printer{a.out}.ok("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&nodeAddress, "node-address", "", "Hive API node URL")
	cmd.Flags().StringVar(&beekeeper, "beekeeper", "", "beekeeper URL (http:// or unix://)")
	cmd.Flags().StringVar(&walletName, "wallet-name", "", "beekeeper wallet name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.yaml")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the configuration",
		Args:        cobra.NoArgs,
		Annotations: noInit,
		RunE: func(*cobra.Command, []string) error {
			dir := util.GetDataDir(a.dataDir)
			if dir == "" {
				return errors.New("cannot determine data directory; use -d or set CLIVE_DATA")
			}
			util.DisplayConfig(a.out, dir)
			return nil
		},
	}
}

func newConfigReferenceCmd(a *app) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:         "reference",
		Short:       "List every config.yaml key and environment variable",
		Args:        cobra.NoArgs,
		Annotations: noInit,
		RunE: func(*cobra.Command, []string) error {
			fields := util.ConfigReference()
			env := util.EnvironmentReference()
			if markdown {
				writeMarkdownReference(a.out, fields, env)
				return nil
			}
			out := printer{a.out}
			rows := make([][]string, 0, len(fields))
			for _, f := range fields {
				rows = append(rows, []string{f.Key, f.Type, f.Default, f.Description})
			}
			out.title("config.yaml")
			out.table([]string{"Key", "Type", "Default", "Description"}, rows)
			rows = make([][]string, 0, len(env))
			for _, e := range env {
				rows = append(rows, []string{e.Name, e.Description})
			}
			out.title("Environment")
			out.table([]string{"Variable", "Description"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print markdown tables")
	return cmd
}

func writeMarkdownReference(w io.Writer, fields []util.ConfigField, env []util.EnvVar) {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }
	p("# Configuration Reference\n\n")
	p("File: `config.yaml` in the data directory (`-d`, `CLIVE_DATA` or `~/.clive`)\n\n")
	p("| Key | Type | Default | Description |\n")
	p("|-----|------|---------|-------------|\n")
	for _, f := range fields {
		p("| `%s` | %s | `%s` | %s |\n", f.Key, f.Type, f.Default, f.Description)
	}
	p("\n## Environment Variables\n\n")
	p("| Variable | Description |\n")
	p("|----------|-------------|\n")
	for _, e := range env {
		p("| `%s` | %s |\n", e.Name, e.Description)
	}
}
