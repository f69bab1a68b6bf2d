// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func nop(context.Context, []string) error { return nil }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	cmd := &Command{
		Name:        "balances",
		Aliases:     []string{"b"},
		Usage:       "balances [account]",
		Description: "Show balances",
		Category:    CategoryAccount,
		Handler:     nop,
	}
	if err := r.Register(cmd); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, name := range []string{"balances", "b"} {
		got, ok := r.Lookup(name)
		if !ok {
			t.Errorf("Lookup(%q) not found", name)
			continue
		}
		if got.Name != "balances" {
			t.Errorf("Lookup(%q) name = %v, want balances", name, got.Name)
		}
	}
}

func TestRegistry_Register_Conflicts(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
	}{
		{"duplicate name", &Command{Name: "transfer", Handler: nop}},
		{"alias of existing", &Command{Name: "other", Aliases: []string{"t"}, Handler: nop}},
		{"name equals existing alias", &Command{Name: "t", Handler: nop}},
		{"alias equals own name", &Command{Name: "self", Aliases: []string{"self"}, Handler: nop}},
		{"no name", &Command{Handler: nop}},
		{"no handler", &Command{Name: "nothing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			_ = r.Register(&Command{Name: "transfer", Aliases: []string{"t"}, Handler: nop})
			if err := r.Register(tt.cmd); err == nil {
				t.Fatal("Register() expected error")
			}
			if n := len(r.All()); n != 1 {
				t.Errorf("failed Register() changed the registry: %d commands", n)
			}
			if tt.cmd.Name != "" && tt.cmd.Name != "transfer" && tt.cmd.Name != "t" {
				if _, ok := r.Lookup(tt.cmd.Name); ok {
					t.Errorf("failed Register() left %q registered", tt.cmd.Name)
				}
			}
		})
	}
}

func TestRegistry_NamesAndCategories(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Command{Name: "transfer", Category: CategoryTransfer, Handler: nop})
	_ = r.Register(&Command{Name: "status", Aliases: []string{"st"}, Category: CategoryAccount, Handler: nop})
	_ = r.Register(&Command{Name: "balances", Category: CategoryAccount, Handler: nop})
	_ = r.Register(&Command{Name: "extra", Category: "Zeta", Handler: nop})

	if got, want := strings.Join(r.Names(), ","), "balances,extra,st,status,transfer"; got != want {
		t.Errorf("Names() = %s, want %s", got, want)
	}

	byCat := r.ByCategory()
	account := byCat[CategoryAccount]
	if len(account) != 2 || account[0].Name != "balances" || account[1].Name != "status" {
		t.Errorf("ByCategory()[Account] not sorted: %v", account)
	}

	if got, want := strings.Join(r.categories(), ","), "Account,Transfers,Zeta"; got != want {
		t.Errorf("categories() = %s, want %s", got, want)
	}
}

func TestShowHelp(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Command{
		Name:        "transfer",
		Aliases:     []string{"send"},
		Usage:       "transfer <to> <amount>",
		Description: "Send HIVE or HBD",
		Category:    CategoryTransfer,
		LongHelp:    "Amounts use three decimals.\n",
		Handler:     nop,
	})

	var buf bytes.Buffer
	ShowHelp(&buf, r, "Profile: main")
	out := buf.String()
	for _, want := range []string{"Transfers:", "transfer <to> <amount>", "(aliases: send)", "Profile: main"} {
		if !strings.Contains(out, want) {
			t.Errorf("ShowHelp() output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	cmd, _ := r.Lookup("send")
	ShowCommandHelp(&buf, cmd)
	out = buf.String()
	for _, want := range []string{"Command: transfer", "Aliases: send", "Details:\nAmounts use three decimals."} {
		if !strings.Contains(out, want) {
			t.Errorf("ShowCommandHelp() output missing %q:\n%s", want, out)
		}
	}
}
