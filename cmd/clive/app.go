// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/aplane-algo/clive/internal/beekeeper"
	"github.com/aplane-algo/clive/internal/crypto"
	"github.com/aplane-algo/clive/internal/engine"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/profile"
	"github.com/aplane-algo/clive/internal/transport"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

// defaultWalletName is used when neither config nor profile names a wallet.
const defaultWalletName = "clive"

// app is the state shared by every command of one process, including all
// lines of an interactive shell.
type app struct {
	// Flags
	dataDir     string
	profileName string
	nodeAddress string

	in  io.Reader
	out io.Writer

	// readSecret prompts for a hidden value. Replaced in tests.
	readSecret func(prompt string) ([]byte, error)

	cfg       util.Config
	store     *profile.Store
	engine    *engine.Engine
	logCloser io.Closer
	inShell   bool
}

func newApp(in io.Reader, out io.Writer) *app {
	a := &app{in: in, out: out}
	a.readSecret = a.promptSecret
	return a
}

// init loads config, profile, node and wallet once per process.
func (a *app) init() error {
	if a.engine != nil {
		return nil
	}

	dir := util.GetDataDir(a.dataDir)
	if dir == "" {
		return fmt.Errorf("cannot determine data directory; use -d or set CLIVE_DATA")
	}
	a.dataDir = dir

	cfg, err := util.LoadConfig(dir)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.logCloser = util.InitLogger(util.LogFileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	a.store = profile.NewStore(filepath.Join(dir, "profiles"))
	p, err := a.loadProfile()
	if err != nil {
		return err
	}

	nodeAddress, chainID := cfg.NodeAddress, cfg.ChainIDValue()
	if p != nil {
		if p.NodeAddress != "" {
			nodeAddress = p.NodeAddress
		}
		if p.ChainID != "" {
			if id, err := wax.ParseChainID(p.ChainID); err == nil {
				chainID = id
			}
		}
	}
	if a.nodeAddress != "" {
		nodeAddress = a.nodeAddress
	}

	nodeRPC, err := transport.New(nodeAddress, transport.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return err
	}
	bkRPC, err := transport.New(cfg.BeekeeperAddress, transport.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return err
	}

	walletName := cfg.WalletName
	if walletName == "" && p != nil {
		walletName = p.Name
	}
	if walletName == "" {
		walletName = defaultWalletName
	}

	opts := []engine.EngineOption{
		engine.WithNode(node.New(nodeRPC, node.WithRefreshInterval(cfg.NodeRefresh), node.WithChainID(chainID))),
		engine.WithWallet(beekeeper.NewWallet(beekeeper.NewClient(bkRPC), walletName, beekeeper.WithSessionTimeout(cfg.SessionTimeout))),
		engine.WithExpiration(cfg.TransactionExpiration),
	}
	if p != nil {
		opts = append(opts, engine.WithProfile(p, a.store))
	}
	eng, err := engine.NewEngine(opts...)
	if err != nil {
		return err
	}
	eng.Store = a.store
	a.engine = eng
	util.Debug("clive initialized", "data_dir", dir, "node", nodeAddress, "wallet", walletName)
	return nil
}

// loadProfile resolves the profile: --profile flag, then config, then the
// default marker. Running without any profile is allowed.
func (a *app) loadProfile() (*profile.Profile, error) {
	name := a.profileName
	if name == "" {
		name = a.cfg.Profile
	}
	if name == "" {
		p, err := a.store.LoadDefault()
		if errors.Is(err, profile.ErrNoDefault) {
			return nil, nil
		}
		return p, err
	}
	p, err := a.store.Load(name)
	if errors.Is(err, profile.ErrProfileNotFound) {
		util.Warn("profile not found", "profile", name)
		return nil, nil
	}
	return p, err
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// password obtains the wallet password from password_command or a prompt.
// The caller zeroes the returned slice.
func (a *app) password(ctx context.Context) ([]byte, error) {
	var (
		pw  []byte
		err error
	)
	if a.cfg.PasswordCommand != nil {
		pw, err = util.RunPasswordCommand(ctx, a.cfg.PasswordCommand)
	} else {
		pw, err = a.readSecret("Wallet password: ")
	}
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, fmt.Errorf("empty password")
	}
	return pw, nil
}

// unlock opens the wallet unless this process already holds an unlocked
// session.
func (a *app) unlock(ctx context.Context) error {
	if a.engine.Wallet == nil {
		return engine.ErrNoWallet
	}
	if ok, err := a.engine.Wallet.IsUnlocked(ctx); err == nil && ok {
		return nil
	}
	pw, err := a.password(ctx)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(pw)
	return a.engine.Unlock(ctx, pw)
}

// promptSecret reads a line from the terminal without echo.
func (a *app) promptSecret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd()) // #nosec G115 - file descriptors are small integers
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal; configure password_command for non-interactive use")
	}
	_, _ = fmt.Fprint(a.out, prompt)
	secret, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(a.out)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return secret, nil
}
