// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/clive/internal/wax"
)

// PasswordCommandConfig declares an external helper that prints the wallet password.
type PasswordCommandConfig struct {
	Argv []string          `yaml:"argv" description:"Helper command and arguments (argv[0] absolute or relative to data dir)"`
	Env  map[string]string `yaml:"env" description:"Environment passed to the helper (nothing is inherited)"`
}

// LogConfig holds optional log file settings.
type LogConfig struct {
	File       string `yaml:"file" description:"Log file path (relative to data dir); empty logs to stdout"`
	MaxSizeMB  int    `yaml:"max_size_mb" description:"Rotate after this many megabytes" default:"10"`
	MaxBackups int    `yaml:"max_backups" description:"Rotated files to keep" default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" description:"Days to keep rotated files" default:"28"`
}

// Config holds clive configuration settings
type Config struct {
	NodeAddress           string        `yaml:"node_address" description:"Hive API node URL" default:"https://api.hive.blog"`
	BeekeeperAddress      string        `yaml:"beekeeper_address" description:"Beekeeper URL (http:// or unix://)" default:"http://127.0.0.1:6666"`
	ChainID               string        `yaml:"chain_id" description:"Chain id used when the node does not report one"`
	Profile               string        `yaml:"profile" description:"Profile loaded at startup (empty = default marker)"`
	WalletName            string        `yaml:"wallet_name" description:"Beekeeper wallet name (defaults to the profile name)"`
	TransactionExpiration time.Duration `yaml:"transaction_expiration" description:"Expiration added to head block time" default:"30m"`
	NodeRefresh           time.Duration `yaml:"node_refresh" description:"Cached node info lifetime" default:"3s"`
	RequestTimeout        time.Duration `yaml:"request_timeout" description:"Per-request RPC timeout" default:"10s"`
	SessionTimeout        time.Duration `yaml:"session_timeout" description:"Beekeeper unlock timeout" default:"15m"`

	PasswordCommand *PasswordCommandConfig `yaml:"password_command" description:"External password helper (omit to prompt)"`
	Log             LogConfig              `yaml:"log" description:"Log output settings"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		NodeAddress:           "https://api.hive.blog",
		BeekeeperAddress:      "http://127.0.0.1:6666",
		ChainID:               wax.MainnetChainIDHex,
		TransactionExpiration: 30 * time.Minute,
		NodeRefresh:           3 * time.Second,
		RequestTimeout:        10 * time.Second,
		SessionTimeout:        15 * time.Minute,
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// MaxTransactionExpiration is the protocol limit for expiration past head block time.
const MaxTransactionExpiration = time.Hour

// GetDataDir returns the data directory.
// Resolution order: -d flag > CLIVE_DATA env var > ~/.clive
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv("CLIVE_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".clive")
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// ResolvePath resolves a relative path against baseDir.
func ResolvePath(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads config.yaml from dataDir and resolves relative paths against it.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}
	config.Log.File = ResolvePath(config.Log.File, dataDir)
	if config.PasswordCommand != nil && len(config.PasswordCommand.Argv) > 0 {
		config.PasswordCommand.Argv[0] = ResolvePath(config.PasswordCommand.Argv[0], dataDir)
	}
	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path.
// An empty path or a missing file yields the defaults.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks addresses, the chain id, and durations.
func (c *Config) Validate() error {
	if err := validateAddress("node_address", c.NodeAddress, false); err != nil {
		return err
	}
	if err := validateAddress("beekeeper_address", c.BeekeeperAddress, true); err != nil {
		return err
	}
	if c.ChainID != "" {
		if _, err := wax.ParseChainID(c.ChainID); err != nil {
			return fmt.Errorf("invalid chain_id in config: %w", err)
		}
	}
	if c.TransactionExpiration <= 0 || c.TransactionExpiration > MaxTransactionExpiration {
		return fmt.Errorf("transaction_expiration must be in (0, %s], got %s", MaxTransactionExpiration, c.TransactionExpiration)
	}
	if c.NodeRefresh < 0 {
		return fmt.Errorf("node_refresh must not be negative")
	}
	if c.PasswordCommand != nil && len(c.PasswordCommand.Argv) == 0 {
		return fmt.Errorf("password_command.argv is required when password_command is present")
	}
	return nil
}

func validateAddress(field, address string, allowUnix bool) error {
	if address == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, address, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("invalid %s %q: missing host", field, address)
		}
	case "unix":
		if !allowUnix {
			return fmt.Errorf("invalid %s %q: unix sockets are not supported here", field, address)
		}
		if u.Path == "" {
			return fmt.Errorf("invalid %s %q: missing socket path", field, address)
		}
	default:
		return fmt.Errorf("invalid %s %q: scheme must be http, https or unix", field, address)
	}
	return nil
}

// ChainIDValue returns the parsed chain id, falling back to mainnet.
func (c *Config) ChainIDValue() wax.ChainID {
	if id, err := wax.ParseChainID(c.ChainID); err == nil {
		return id
	}
	return wax.MainnetChainID
}

// SaveConfig writes config.yaml into dataDir.
func SaveConfig(dataDir string, config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(GetConfigPath(dataDir), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DisplayConfig writes the configuration found in dataDir to w.
func DisplayConfig(w io.Writer, dataDir string) {
	config, err := LoadConfig(dataDir)

	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }
	p("Current Configuration:\n")
	p("=====================\n")
	p("Data dir:     %s\n", dataDir)
	p("Config file:  %s\n", GetConfigPath(dataDir))
	if err != nil {
		p("Error:        %v\n\n", err)
		return
	}
	p("Node:         %s\n", config.NodeAddress)
	p("Beekeeper:    %s\n", config.BeekeeperAddress)
	p("Chain id:     %s\n", config.ChainID)
	if config.Profile != "" {
		p("Profile:      %s\n", config.Profile)
	} else {
		p("Profile:      (default)\n")
	}
	if config.WalletName != "" {
		p("Wallet:       %s\n", config.WalletName)
	}
	p("Expiration:   %s\n", config.TransactionExpiration)
	p("Node refresh: %s\n", config.NodeRefresh)
	p("Timeouts:     request %s, session %s\n", config.RequestTimeout, config.SessionTimeout)
	if config.PasswordCommand != nil {
		p("Password:     %s\n", config.PasswordCommand.Argv[0])
	} else {
		p("Password:     interactive prompt\n")
	}
	if config.Log.File != "" {
		p("Log file:     %s\n", config.Log.File)
	}
	p("\n")
}
