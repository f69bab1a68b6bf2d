// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/shell"
	"github.com/aplane-algo/clive/internal/util"
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)

// shellCategories places commands in the shell's help listing. Commands
// not listed here are not offered in the shell.
var shellCategories = map[string]string{
	"show":      shell.CategoryAccount,
	"process":   shell.CategoryTransaction,
	"configure": shell.CategoryConfig,
	"unlock":    shell.CategoryKeys,
	"lock":      shell.CategoryKeys,
	"version":   shell.CategoryConfig,

	// Shortcuts for process subcommands.
	"transfer":           shell.CategoryTransfer,
	"recurrent-transfer": shell.CategoryTransfer,
	"savings":            shell.CategoryTransfer,
	"power-up":           shell.CategoryHivePower,
	"power-down":         shell.CategoryHivePower,
	"cancel-power-down":  shell.CategoryHivePower,
	"delegate":           shell.CategoryHivePower,
	"withdraw-route":     shell.CategoryHivePower,
	"vote-witness":       shell.CategoryGovernance,
	"proxy":              shell.CategoryGovernance,
	"vote-proposal":      shell.CategoryGovernance,
	"claim-rewards":      shell.CategoryAccount,
	"custom-json":        shell.CategoryTransaction,
	"authority":          shell.CategoryKeys,
	"transaction":        shell.CategoryTransaction,

	// Shortcuts for configure subcommands.
	"profile":         shell.CategoryProfile,
	"working-account": shell.CategoryProfile,
	"watched":         shell.CategoryProfile,
	"known":           shell.CategoryProfile,
	"key":             shell.CategoryKeys,
	"wallet":          shell.CategoryKeys,
	"node":            shell.CategoryConfig,
}

// flattened are the parents whose subcommands are also reachable without
// the parent name in the shell.
var flattened = []string{"process", "configure"}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Long: `Start an interactive prompt with history and tab completion. Every
command is available without the "clive" prefix; process and configure
subcommands may also be typed directly, e.g. "transfer bob 1.000 HIVE".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.inShell {
				return errors.New("already in the shell")
			}
			return runShell(cmd.Context(), a)
		},
	}
}

func runShell(ctx context.Context, a *app) error {
	if err := a.init(); err != nil {
		return err
	}
	a.inShell = true
	defer func() { a.inShell = false }()

	reg, err := newShellRegistry(a)
	if err != nil {
		return err
	}
	sh, err := shell.New(reg, a.out)
	if err != nil {
		return err
	}
	sh.Prompt = a.prompt
	sh.Footer = a.footer

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.engine.Profile() != nil {
		err := a.engine.WatchProfile(watchCtx, func(p *profile.Profile, err error) {
			if err == nil {
				printer{a.out}.warn("\nProfile %s changed on disk and was reloaded", p.Name)
			}
		})
		if err != nil {
			util.Warn("profile changes will not be picked up", "error", err)
		}
	}

	reader, closeReader, err := a.lineReader(reg)
	if err != nil {
		return err
	}
	defer closeReader()

	out := printer{a.out}
	out.title("clive shell")
	out.line("Type 'help' for commands, 'exit' to leave.")
	return sh.Run(ctx, reader)
}

// lineReader uses readline on a terminal and plain line reads otherwise.
func (a *app) lineReader(reg *shell.Registry) (shell.LineReader, func(), error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { // #nosec G115 - file descriptors are small integers
		rl, err := readline.NewEx(&readline.Config{
			Prompt:            "clive> ",
			HistoryFile:       filepath.Join(a.dataDir, "history"),
			HistoryLimit:      1000,
			AutoComplete:      shell.NewCompleter(reg),
			InterruptPrompt:   "^C",
			EOFPrompt:         "exit",
			HistorySearchFold: true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize readline: %w", err)
		}
		return rl, func() { _ = rl.Close() }, nil
	}
	return shell.NewBasicReader(a.in, nil), func() {}, nil
}

// newShellRegistry exposes the cobra tree to the shell. Each line runs on a
// freshly built tree. Top-level commands win over flattened subcommands of
// the same name, so "show" stays the top-level show.
func newShellRegistry(a *app) (*shell.Registry, error) {
	reg := shell.NewRegistry()
	root := newRootCmd(a)
	for _, c := range root.Commands() {
		if err := registerCobra(reg, a, c, []string{c.Name()}); err != nil {
			return nil, err
		}
	}
	for _, c := range root.Commands() {
		if !slices.Contains(flattened, c.Name()) {
			continue
		}
		for _, sub := range c.Commands() {
			if nameTaken(reg, sub) {
				continue
			}
			if err := registerCobra(reg, a, sub, []string{c.Name(), sub.Name()}); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func nameTaken(reg *shell.Registry, c *cobra.Command) bool {
	for _, name := range append([]string{c.Name()}, c.Aliases...) {
		if _, ok := reg.Lookup(name); ok {
			return true
		}
	}
	return false
}

func registerCobra(reg *shell.Registry, a *app, c *cobra.Command, path []string) error {
	category, ok := shellCategories[c.Name()]
	if !ok || c.Hidden {
		return nil
	}
	long := c.Long
	if c.HasAvailableSubCommands() {
		long = strings.TrimSpace(long + "\n\nSubcommands: " + strings.Join(subcommandNames(c), ", "))
	}
	usage := c.Use
	if c.HasAvailableSubCommands() {
		usage = c.Name() + " <subcommand>"
	}
	return reg.Register(&shell.Command{
		Name:        c.Name(),
		Aliases:     c.Aliases,
		Usage:       usage,
		Description: c.Short,
		LongHelp:    long,
		Category:    category,
		Handler: func(ctx context.Context, args []string) error {
			return a.execute(ctx, append(slices.Clone(path), args...))
		},
		Complete: func(args []string) []string {
			return a.complete(c, args)
		},
	})
}

// execute runs one command line on a fresh tree.
func (a *app) execute(ctx context.Context, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// complete suggests subcommand names, then flags and tracked accounts for
// the command reached by args.
func (a *app) complete(c *cobra.Command, args []string) []string {
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		sub := findSub(c, arg)
		if sub == nil {
			break
		}
		c = sub
	}
	if c.HasAvailableSubCommands() {
		return subcommandNames(c)
	}

	var out []string
	if p := a.engine.Profile(); p != nil {
		out = append(out, p.TrackedAccounts()...)
		for _, k := range p.KnownAccounts {
			if !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	visit := func(f *pflag.Flag) {
		if !f.Hidden {
			out = append(out, "--"+f.Name)
		}
	}
	c.NonInheritedFlags().VisitAll(visit)
	c.InheritedFlags().VisitAll(visit)
	return out
}

func findSub(c *cobra.Command, name string) *cobra.Command {
	for _, sub := range c.Commands() {
		if sub.Name() == name || slices.Contains(sub.Aliases, name) {
			return sub
		}
	}
	return nil
}

func subcommandNames(c *cobra.Command) []string {
	var names []string
	for _, sub := range c.Commands() {
		if sub.IsAvailableCommand() {
			names = append(names, sub.Name())
		}
	}
	return names
}

func (a *app) prompt() string {
	label := "clive"
	if p := a.engine.Profile(); p != nil {
		label = p.Name
		if p.WorkingAccount != "" {
			label += "@" + p.WorkingAccount
		}
	}
	state := ""
	if a.engine.Wallet != nil {
		state = " " + warnStyle.Render("[locked]")
		if ok, err := a.engine.Wallet.IsUnlocked(context.Background()); err == nil && ok {
			state = " " + okStyle.Render("[unlocked]")
		}
	}
	return promptStyle.Render(label) + state + "> "
}

func (a *app) footer() string {
	p := a.engine.Profile()
	if p == nil {
		return "No profile loaded. Create one with: profile create <name> --working-account <account>"
	}
	return fmt.Sprintf("Profile: %s (working account %s)", p.Name, valueOr(p.WorkingAccount, "none"))
}
