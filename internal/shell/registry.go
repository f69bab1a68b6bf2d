// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package shell implements the interactive clive prompt: a command registry,
// line tokenizer, tab completion and the read-eval loop.
package shell

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Command represents a shell command with metadata
type Command struct {
	Name        string   // Primary command name
	Aliases     []string // Alternative names (e.g., "q" for "quit")
	Usage       string   // Usage string: "transfer <to> <amount> [flags]"
	Description string   // One-line description
	LongHelp    string   // Multi-line detailed help (optional)
	Category    string
	Handler     Handler

	// Complete suggests values for the next argument given the arguments
	// typed so far. Optional.
	Complete func(args []string) []string
}

// Handler executes a command with the tokens that followed its name.
type Handler func(ctx context.Context, args []string) error

// Category constants for organizing commands
const (
	CategoryAccount     = "Account"
	CategoryTransfer    = "Transfers"
	CategoryHivePower   = "Hive Power"
	CategoryGovernance  = "Governance"
	CategoryTransaction = "Transactions"
	CategoryKeys        = "Keys"
	CategoryProfile     = "Profile"
	CategoryConfig      = "Configuration"
	CategoryShell       = "Shell"
)

// categoryOrder is the order ShowHelp lists categories in. Unlisted
// categories follow alphabetically.
var categoryOrder = []string{
	CategoryAccount,
	CategoryTransfer,
	CategoryHivePower,
	CategoryGovernance,
	CategoryTransaction,
	CategoryKeys,
	CategoryProfile,
	CategoryConfig,
	CategoryShell,
}

type Registry struct {
	commands map[string]*Command
	primary  []*Command
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		primary:  make([]*Command, 0),
	}
}

// Register adds cmd under its name and aliases. A name or alias that is
// already taken leaves the registry unchanged.
func (r *Registry) Register(cmd *Command) error {
	if cmd.Name == "" {
		return fmt.Errorf("command has no name")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q has no handler", cmd.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("command %q already registered", existing.Name)
	}
	for _, alias := range cmd.Aliases {
		if existing, exists := r.commands[alias]; exists || alias == cmd.Name {
			name := cmd.Name
			if existing != nil {
				name = existing.Name
			}
			return fmt.Errorf("alias %q conflicts with existing command %q", alias, name)
		}
	}

	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.commands[alias] = cmd
	}
	r.primary = append(r.primary, cmd)
	return nil
}

func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns commands in registration order.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Command, len(r.primary))
	copy(result, r.primary)
	return result
}

// Names returns every name and alias, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ByCategory() map[string][]*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make(map[string][]*Command)
	for _, cmd := range r.primary {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}

	for _, cmds := range categories {
		sort.Slice(cmds, func(i, j int) bool {
			return cmds[i].Name < cmds[j].Name
		})
	}

	return categories
}

// categories returns the category names present, in display order.
func (r *Registry) categories() []string {
	present := r.ByCategory()
	var out []string
	for _, c := range categoryOrder {
		if _, ok := present[c]; ok {
			out = append(out, c)
			delete(present, c)
		}
	}
	rest := make([]string, 0, len(present))
	for c := range present {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(out, rest...)
}
