// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aplane-algo/clive/internal/engine"
	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/testutil"
	"github.com/aplane-algo/clive/internal/util"
)

type cliEnv struct {
	dir  string
	out  *bytes.Buffer
	mock *testutil.MockNode
	bk   *testutil.MockBeekeeper
	app  *app
}

// newCLIEnv writes a config pointing at a mock node and beekeeper. alice's
// authorities are the single key held by wallet "clive".
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{
		dir:  t.TempDir(),
		out:  &bytes.Buffer{},
		mock: testutil.NewMockNode(t),
		bk:   testutil.NewMockBeekeeper(t),
	}
	key := testutil.TestKey(t, 1)
	env.bk.AddWallet("clive", "pw", key)
	env.mock.AddAccount("alice", key.PublicKey(), "100.000 HIVE")
	env.mock.AddAccount("bob", testutil.TestKey(t, 2).PublicKey(), "0.000 HIVE")

	cfg := util.DefaultConfig()
	cfg.NodeAddress = env.mock.URL()
	cfg.BeekeeperAddress = env.bk.URL()
	cfg.WalletName = "clive"
	if err := util.SaveConfig(env.dir, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	env.app = env.newApp("")
	return env
}

func (env *cliEnv) newApp(input string) *app {
	a := newApp(strings.NewReader(input), env.out)
	a.dataDir = env.dir
	a.readSecret = func(string) ([]byte, error) { return []byte("pw"), nil }
	return a
}

// exec runs one command line and returns its output.
func (env *cliEnv) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	env.out.Reset()
	err := env.app.execute(context.Background(), args)
	return env.out.String(), err
}

func (env *cliEnv) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := env.exec(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// withProfile creates profile main working on alice with the wallet key
// tracked and bob known.
func (env *cliEnv) withProfile(t *testing.T) {
	t.Helper()
	env.mustExec(t, "configure", "profile", "create", "main", "--working-account", "alice")
	env.mustExec(t, "configure", "known", "add", "bob")
	env.mustExec(t, "configure", "key", "track")
}

func TestRun_ExitCodes(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"version"}, strings.NewReader(""), &out, &errOut); code != 0 {
		t.Fatalf("version exit code = %d, stderr %q", code, errOut.String())
	}
	if !strings.HasPrefix(out.String(), "clive ") {
		t.Errorf("version output = %q", out.String())
	}

	out.Reset()
	errOut.Reset()
	if code := run([]string{"--no-such-flag"}, strings.NewReader(""), &out, &errOut); code != 1 {
		t.Errorf("bad flag exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "Error:") {
		t.Errorf("stderr = %q, want an error line", errOut.String())
	}
}

func TestConfigureInitAndShow(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	a := newApp(strings.NewReader(""), &out)
	defer a.close()

	execute := func(args ...string) error {
		root := newRootCmd(a)
		root.SetArgs(append([]string{"-d", dir}, args...))
		return root.ExecuteContext(context.Background())
	}

	if err := execute("configure", "init", "--node-address", "https://node.example", "--wallet-name", "w1"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if err := execute("configure", "init"); err == nil {
		t.Error("second init without --force succeeded")
	}
	if err := execute("configure", "init", "--force", "--node-address", "https://node.example"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	out.Reset()
	if err := execute("configure", "show"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out.String(), "https://node.example") {
		t.Errorf("show output = %q", out.String())
	}
	out.Reset()
	if err := execute("configure", "reference", "--markdown"); err != nil {
		t.Fatalf("reference: %v", err)
	}
	if !strings.Contains(out.String(), "| `node_address` | string |") || !strings.Contains(out.String(), "CLIVE_DATA") {
		t.Errorf("reference output = %q", out.String())
	}

	if a.engine != nil {
		t.Error("configure commands initialized the engine")
	}
}

func TestProfileLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	defer env.app.close()

	if _, err := env.exec(t, "show", "profile"); !errors.Is(err, engine.ErrNoProfile) {
		t.Fatalf("show profile without profile: %v", err)
	}

	env.withProfile(t)
	out := env.mustExec(t, "show", "profile")
	if !strings.Contains(out, "alice") {
		t.Errorf("profile output = %q", out)
	}

	env.mustExec(t, "configure", "profile", "create", "spare")
	out = env.mustExec(t, "configure", "profile", "list")
	if !strings.Contains(out, "main") || !strings.Contains(out, "spare") {
		t.Errorf("list output = %q", out)
	}
	if _, err := env.exec(t, "configure", "profile", "delete", "main"); err == nil {
		t.Error("deleting the active profile succeeded")
	}
	env.mustExec(t, "configure", "profile", "delete", "spare")

	store := profile.NewStore(filepath.Join(env.dir, "profiles"))
	p, err := store.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if p.Name != "main" || p.WorkingAccount != "alice" {
		t.Errorf("default profile = %s working on %s", p.Name, p.WorkingAccount)
	}
	if len(p.Keys.All()) != 1 {
		t.Errorf("tracked keys = %d, want 1", len(p.Keys.All()))
	}
}

func TestShowBalances(t *testing.T) {
	env := newCLIEnv(t)
	defer env.app.close()
	env.withProfile(t)

	out := env.mustExec(t, "show", "balances")
	if !strings.Contains(out, "Balances of alice") || !strings.Contains(out, "100.000 HIVE") {
		t.Errorf("balances output = %q", out)
	}
	out = env.mustExec(t, "show", "balances", "bob")
	if !strings.Contains(out, "Balances of bob") {
		t.Errorf("balances output = %q", out)
	}
}

func TestProcessTransfer(t *testing.T) {
	env := newCLIEnv(t)
	defer env.app.close()
	env.withProfile(t)

	out := env.mustExec(t, "process", "transfer", "bob", "1.000", "HIVE", "--autosign", "--broadcast")
	if !strings.Contains(out, "Broadcast transaction") {
		t.Errorf("transfer output = %q", out)
	}
	if n := len(env.mock.Broadcasts()); n != 1 {
		t.Fatalf("broadcasts = %d, want 1", n)
	}

	if _, err := env.exec(t, "process", "transfer", "carol", "1.000HIVE", "--autosign", "--broadcast"); !errors.Is(err, profile.ErrUnknownAccount) {
		t.Errorf("transfer to unknown account: %v", err)
	}
	if n := len(env.mock.Broadcasts()); n != 1 {
		t.Errorf("broadcasts = %d after rejected transfer", n)
	}

	// Unsent transactions are printed instead.
	out = env.mustExec(t, "process", "transfer", "bob", "2.000 HBD")
	if !strings.Contains(out, "not broadcast") {
		t.Errorf("unsent transfer output = %q", out)
	}
}

func TestProcessSaveAndShowTransaction(t *testing.T) {
	env := newCLIEnv(t)
	defer env.app.close()
	env.withProfile(t)

	file := filepath.Join(t.TempDir(), "tx.json")
	env.mustExec(t, "process", "transfer", "bob", "1.000 HIVE", "--save-file", file)
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("transaction not saved: %v", err)
	}

	out := env.mustExec(t, "show", "transaction", file)
	if !strings.Contains(out, "Missing signature: alice/active") {
		t.Errorf("unsigned transaction output = %q", out)
	}

	env.mustExec(t, "process", "transaction", file, "--autosign", "--save-file", file)
	out = env.mustExec(t, "show", "transaction", file)
	if !strings.Contains(out, "All required authorities are satisfied") {
		t.Errorf("signed transaction output = %q", out)
	}
}

func TestShell(t *testing.T) {
	env := newCLIEnv(t)
	env.withProfile(t)
	env.app.close()

	script := strings.Join([]string{
		"show balances",
		"transfer bob 1.000 HIVE --autosign --broadcast",
		"no-such-command",
		"help",
		"exit",
		"show status",
	}, "\n") + "\n"
	a := env.newApp(script)
	defer a.close()
	env.out.Reset()

	if err := runShell(context.Background(), a); err != nil {
		t.Fatalf("runShell: %v", err)
	}
	out := env.out.String()
	for _, want := range []string{"Balances of alice", "Broadcast transaction", "Error: ", "Transfers"} {
		if !strings.Contains(out, want) {
			t.Errorf("shell output lacks %q", want)
		}
	}
	if strings.Contains(out, "Chain id") {
		t.Error("shell kept reading after exit")
	}
	if n := len(env.mock.Broadcasts()); n != 1 {
		t.Errorf("broadcasts = %d, want 1", n)
	}
	if a.inShell {
		t.Error("inShell still set after the shell returned")
	}
}

func TestShellRegistry_TopLevelWins(t *testing.T) {
	env := newCLIEnv(t)
	defer env.app.close()

	reg, err := newShellRegistry(env.app)
	if err != nil {
		t.Fatalf("newShellRegistry: %v", err)
	}
	for name := range shellCategories {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("%s not registered", name)
		}
	}
	show, _ := reg.Lookup("show")
	if !strings.Contains(show.LongHelp, "Subcommands: ") || !strings.Contains(show.LongHelp, "balances") {
		t.Errorf("show resolved to the wrong command:\n%s", show.LongHelp)
	}
}

func TestShellCompletion(t *testing.T) {
	env := newCLIEnv(t)
	defer env.app.close()
	env.withProfile(t)

	reg, err := newShellRegistry(env.app)
	if err != nil {
		t.Fatalf("newShellRegistry: %v", err)
	}
	for _, name := range []string{"show", "process", "transfer", "power-up", "profile", "key"} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("%s not registered", name)
		}
	}
	if _, ok := reg.Lookup("completion"); ok {
		t.Error("cobra completion command exposed in the shell")
	}

	show, _ := reg.Lookup("show")
	if got := show.Complete(nil); !containsAll(got, "balances", "transaction") {
		t.Errorf("show completions = %v", got)
	}
	transfer, _ := reg.Lookup("transfer")
	if got := transfer.Complete(nil); !containsAll(got, "alice", "bob", "--memo", "--broadcast") {
		t.Errorf("transfer completions = %v", got)
	}
}

func containsAll(list []string, want ...string) bool {
	for _, w := range want {
		found := false
		for _, s := range list {
			if s == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{[]string{"1.000 HIVE"}, "1.000 HIVE", false},
		{[]string{"1.000HIVE"}, "1.000 HIVE", false},
		{[]string{"2.500", "HBD"}, "2.500 HBD", false},
		{[]string{"HIVE"}, "", true},
		{[]string{""}, "", true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, "_"), func(t *testing.T) {
			got, err := parseAmount(tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAmount(%q) = %s, want error", tt.args, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmount(%q): %v", tt.args, err)
			}
			if got.String() != tt.want {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.args, got, tt.want)
			}
		})
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"25", 2500, false},
		{"25.5", 2550, false},
		{"25.50%", 2550, false},
		{"0", 0, false},
		{"100", 10000, false},
		{"100.01", 0, true},
		{".5", 0, true},
		{"1.234", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePercent(tt.in)
			if tt.wantErr {
				if !errors.Is(err, engine.ErrInvalidPercent) {
					t.Errorf("parsePercent(%q) = %d, %v; want ErrInvalidPercent", tt.in, got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("parsePercent(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
			}
		})
	}
}
