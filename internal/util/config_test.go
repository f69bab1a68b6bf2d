// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Overlay(t *testing.T) {
	dir := writeConfig(t, `
node_address: https://node.example
transaction_expiration: 5m
password_command:
  argv: [bin/pw]
log:
  file: clive.log
`)
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NodeAddress != "https://node.example" {
		t.Errorf("NodeAddress = %q", cfg.NodeAddress)
	}
	if cfg.TransactionExpiration != 5*time.Minute {
		t.Errorf("TransactionExpiration = %s", cfg.TransactionExpiration)
	}
	if cfg.BeekeeperAddress != DefaultConfig().BeekeeperAddress {
		t.Errorf("unset BeekeeperAddress = %q, want default", cfg.BeekeeperAddress)
	}
	if want := filepath.Join(dir, "clive.log"); cfg.Log.File != want {
		t.Errorf("Log.File = %q, want %q", cfg.Log.File, want)
	}
	if want := filepath.Join(dir, "bin/pw"); cfg.PasswordCommand.Argv[0] != want {
		t.Errorf("password argv[0] = %q, want %q", cfg.PasswordCommand.Argv[0], want)
	}
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("Log.MaxBackups = %d, want default 3", cfg.Log.MaxBackups)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unix beekeeper", func(c *Config) { c.BeekeeperAddress = "unix:///run/beekeeper.sock" }, ""},
		{"unix node", func(c *Config) { c.NodeAddress = "unix:///run/node.sock" }, "unix sockets are not supported"},
		{"no node", func(c *Config) { c.NodeAddress = "" }, "node_address is required"},
		{"bad scheme", func(c *Config) { c.BeekeeperAddress = "ftp://host" }, "scheme must be"},
		{"missing host", func(c *Config) { c.NodeAddress = "https://" }, "missing host"},
		{"bad chain id", func(c *Config) { c.ChainID = "zz" }, "invalid chain_id"},
		{"expiration too long", func(c *Config) { c.TransactionExpiration = 2 * time.Hour }, "transaction_expiration"},
		{"zero expiration", func(c *Config) { c.TransactionExpiration = 0 }, "transaction_expiration"},
		{"negative refresh", func(c *Config) { c.NodeRefresh = -time.Second }, "node_refresh"},
		{"empty password argv", func(c *Config) { c.PasswordCommand = &PasswordCommandConfig{} }, "password_command.argv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "node_address: [")); err == nil {
		t.Error("malformed yaml accepted")
	}
	if _, err := LoadConfig(writeConfig(t, "node_address: ftp://x\n")); err == nil {
		t.Error("invalid node address accepted")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := DefaultConfig()
	cfg.WalletName = "w1"
	cfg.SessionTimeout = time.Hour
	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	cfg.NodeAddress = ""
	if err := SaveConfig(dir, cfg); err == nil {
		t.Error("SaveConfig accepted an invalid config")
	}
}

func TestGetDataDir(t *testing.T) {
	t.Setenv("CLIVE_DATA", "/from/env")
	if got := GetDataDir("/from/flag"); got != "/from/flag" {
		t.Errorf("flag: got %q", got)
	}
	if got := GetDataDir(""); got != "/from/env" {
		t.Errorf("env: got %q", got)
	}
	t.Setenv("CLIVE_DATA", "")
	t.Setenv("HOME", "/home/u")
	if got := GetDataDir(""); got != filepath.Join("/home/u", ".clive") {
		t.Errorf("home: got %q", got)
	}
}

func TestDisplayConfig(t *testing.T) {
	dir := writeConfig(t, "wallet_name: w1\n")
	var buf bytes.Buffer
	DisplayConfig(&buf, dir)
	for _, want := range []string{"Wallet:       w1", "Password:     interactive prompt", DefaultConfig().NodeAddress} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	DisplayConfig(&buf, writeConfig(t, "node_address: ftp://x\n"))
	if !strings.Contains(buf.String(), "Error:") {
		t.Errorf("invalid config not reported:\n%s", buf.String())
	}
}

func TestConfigReference(t *testing.T) {
	fields := ConfigReference()
	byKey := make(map[string]ConfigField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	tests := []struct {
		key, typ, def string
	}{
		{"node_address", "string", "https://api.hive.blog"},
		{"transaction_expiration", "duration", "30m"},
		{"password_command", "object", "(none)"},
		{"password_command.argv", "[]string", "(none)"},
		{"password_command.env", "map[string]string", "(none)"},
		{"log.max_backups", "int", "3"},
	}
	for _, tt := range tests {
		f, ok := byKey[tt.key]
		if !ok {
			t.Errorf("%s missing from reference", tt.key)
			continue
		}
		if f.Type != tt.typ || f.Default != tt.def {
			t.Errorf("%s = %s default %s, want %s default %s", tt.key, f.Type, f.Default, tt.typ, tt.def)
		}
		if f.Description == "" || f.Description == "(no description)" {
			t.Errorf("%s has no description", tt.key)
		}
	}
	if len(EnvironmentReference()) == 0 {
		t.Error("no environment variables documented")
	}
}
