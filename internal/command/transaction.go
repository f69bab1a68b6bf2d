// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aplane-algo/clive/internal/fsutil"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/util"
	"github.com/aplane-algo/clive/internal/wax"
)

const (
	// DefaultExpiration is added to the head block time of a new transaction.
	DefaultExpiration = 30 * time.Minute

	// MaxExpiration is the protocol limit past head block time.
	MaxExpiration = time.Hour
)

// Build creates an unsigned transaction with TaPoS from the head block.
type Build struct {
	WithResult[*wax.Transaction]

	Chain      Chain
	Operations []wax.Operation
	Expiration time.Duration
}

func (b *Build) Execute(ctx context.Context) error {
	if len(b.Operations) == 0 {
		return ErrNothingToDo
	}
	expiration := b.Expiration
	if expiration == 0 {
		expiration = DefaultExpiration
	}
	if expiration < 0 || expiration > MaxExpiration {
		return fmt.Errorf("expiration must be in (0, %s], got %s", MaxExpiration, expiration)
	}

	info, err := b.Chain.BasicInfo(ctx)
	if err != nil {
		return err
	}
	if !info.Online {
		return fmt.Errorf("%w: cannot reference a current head block", node.ErrOffline)
	}
	tx := wax.NewTransaction(b.Operations...)
	if err := tx.SetTaPoS(info.DGPO.HeadBlockID, info.DGPO.Time, expiration); err != nil {
		return err
	}
	b.setResult(tx)
	return nil
}

// Sign adds signatures made with explicit keys.
type Sign struct {
	WithResult[*wax.Transaction]

	Signer      Signer
	Transaction *wax.Transaction
	ChainID     wax.ChainID
	Keys        []wax.PublicKey
	Multisign   bool
}

func (s *Sign) Execute(ctx context.Context) error {
	if len(s.Keys) == 0 {
		return fmt.Errorf("%w: no signing key given", ErrNoKeyAvailable)
	}
	if s.Transaction.IsSigned() && !s.Multisign {
		return ErrTransactionAlreadySigned
	}

	held, err := s.Signer.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range s.Keys {
		if !containsKey(held, key) {
			return fmt.Errorf("%w: %s", ErrKeyNotInWallet, key)
		}
	}

	tx := s.Transaction.Clone()
	digest := tx.SigDigest(s.ChainID)
	for _, key := range s.Keys {
		sig, err := s.Signer.Sign(ctx, digest, key)
		if err != nil {
			return fmt.Errorf("sign with %s: %w", key, err)
		}
		if !tx.AddSignature(sig) {
			util.Debug("signature already present", "key", key.String())
		}
	}
	util.Debug("signed transaction", "id", tx.ID(), "signatures", len(tx.Signatures))
	s.setResult(tx)
	return nil
}

// AutoSign signs with the only key both the wallet and the candidates hold.
type AutoSign struct {
	WithResult[*wax.Transaction]

	Signer      Signer
	Transaction *wax.Transaction
	ChainID     wax.ChainID
	// Candidates restricts the choice, usually to the profile keys.
	// Nil means every wallet key.
	Candidates []wax.PublicKey
	Multisign  bool
}

func (a *AutoSign) Execute(ctx context.Context) error {
	if a.Transaction.IsSigned() && !a.Multisign {
		return ErrTransactionAlreadySigned
	}
	held, err := a.Signer.Keys(ctx)
	if err != nil {
		return err
	}
	available := held
	if a.Candidates != nil {
		available = nil
		for _, key := range a.Candidates {
			if containsKey(held, key) && !containsKey(available, key) {
				available = append(available, key)
			}
		}
	}
	switch len(available) {
	case 0:
		return ErrNoKeyAvailable
	case 1:
	default:
		return fmt.Errorf("%w (%d keys)", ErrTooManyKeys, len(available))
	}

	sign := &Sign{
		Signer:      a.Signer,
		Transaction: a.Transaction,
		ChainID:     a.ChainID,
		Keys:        available,
		Multisign:   a.Multisign,
	}
	if err := sign.Execute(ctx); err != nil {
		return err
	}
	a.setResult(sign.ResultOrNil())
	return nil
}

// UnSign removes every signature.
type UnSign struct {
	WithResult[*wax.Transaction]

	Transaction *wax.Transaction
}

func (u *UnSign) Execute(context.Context) error {
	tx := u.Transaction.Clone()
	tx.ClearSignatures()
	u.setResult(tx)
	return nil
}

// Broadcast submits a signed transaction and stores its id.
type Broadcast struct {
	WithResult[string]

	Chain       Chain
	Transaction *wax.Transaction
}

func (b *Broadcast) Execute(ctx context.Context) error {
	if !b.Transaction.IsSigned() {
		return ErrTransactionNotSigned
	}
	if err := b.Chain.BroadcastTransaction(ctx, b.Transaction); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	id := b.Transaction.ID()
	util.Debug("broadcast transaction", "id", id)
	b.setResult(id)
	return nil
}

// Format is a transaction file encoding.
type Format string

const (
	FormatAuto   Format = ""
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
)

// BinaryExtension selects the binary format when the format is automatic.
const BinaryExtension = ".bin"

// ParseFormat parses a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatJSON, FormatBinary:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// resolve picks the format for path.
func (f Format) resolve(path string) Format {
	if f != FormatAuto {
		return f
	}
	if strings.EqualFold(filepath.Ext(path), BinaryExtension) {
		return FormatBinary
	}
	return FormatJSON
}

// EncodeTransaction serializes tx in format f (automatic means JSON).
func EncodeTransaction(tx *wax.Transaction, f Format) ([]byte, error) {
	switch f {
	case FormatBinary:
		return tx.PackSigned(), nil
	case FormatAuto, FormatJSON:
		data, err := json.MarshalIndent(tx, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// DecodeTransaction parses data in format f. Automatic detects JSON by its
// leading brace.
func DecodeTransaction(data []byte, f Format) (*wax.Transaction, error) {
	if f == FormatAuto {
		f = FormatBinary
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			f = FormatJSON
		}
	}
	switch f {
	case FormatBinary:
		return wax.DecodeTransaction(data)
	case FormatJSON:
		var tx wax.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return nil, fmt.Errorf("invalid transaction json: %w", err)
		}
		return &tx, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// SaveTransaction writes a transaction to a file.
type SaveTransaction struct {
	WithResult[string]

	Transaction *wax.Transaction
	Path        string
	Format      Format
}

func (s *SaveTransaction) Execute(context.Context) error {
	if s.Path == "" {
		return fmt.Errorf("save path is required")
	}
	data, err := EncodeTransaction(s.Transaction, s.Format.resolve(s.Path))
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(s.Path, data); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	s.setResult(s.Path)
	return nil
}

// Load reads a transaction saved by SaveTransaction or another wallet.
type Load struct {
	WithResult[*wax.Transaction]

	Path   string
	Format Format
}

func (l *Load) Execute(context.Context) error {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	f := l.Format
	if f == FormatAuto && strings.EqualFold(filepath.Ext(l.Path), BinaryExtension) {
		f = FormatBinary
	}
	tx, err := DecodeTransaction(data, f)
	if err != nil {
		return fmt.Errorf("load %s: %w", l.Path, err)
	}
	if len(tx.Operations) == 0 {
		return fmt.Errorf("load %s: %w", l.Path, ErrNothingToDo)
	}
	l.setResult(tx)
	return nil
}

func containsKey(keys []wax.PublicKey, key wax.PublicKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
