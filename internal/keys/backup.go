// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aplane-algo/clive/internal/crypto"
	"github.com/aplane-algo/clive/internal/fsutil"
	"github.com/aplane-algo/clive/internal/wax"
)

// backupVersion is the plaintext layout version inside the sealed envelope.
const backupVersion = 1

type backupEntry struct {
	Alias  string        `json:"alias"`
	WIF    string        `json:"wif"`
	Public wax.PublicKey `json:"public_key"`
}

type backupFile struct {
	Version   int           `json:"version"`
	CreatedAt string        `json:"created_at"`
	Keys      []backupEntry `json:"keys"`
}

// WriteBackup seals keys with passphrase and writes them to path.
func WriteBackup(path string, keys []PrivateKeyAliased, passphrase []byte) error {
	if len(keys) == 0 {
		return fmt.Errorf("no keys to back up")
	}
	file := backupFile{Version: backupVersion, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	for _, k := range keys {
		file.Keys = append(file.Keys, backupEntry{Alias: k.Alias, WIF: k.Value, Public: k.Public})
	}
	plaintext, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	defer crypto.ZeroBytes(plaintext)

	sealed, err := crypto.Seal(plaintext, passphrase)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, sealed); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// ReadBackup opens a backup file and verifies every key against its stored
// public key.
func ReadBackup(path string, passphrase []byte) ([]PrivateKeyAliased, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if !crypto.IsSealed(data) {
		return nil, fmt.Errorf("%s is not a sealed key backup", path)
	}
	plaintext, err := crypto.Open(data, passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(plaintext)

	var file backupFile
	if err := json.Unmarshal(plaintext, &file); err != nil {
		return nil, fmt.Errorf("failed to parse backup: %w", err)
	}
	if file.Version != backupVersion {
		return nil, fmt.Errorf("unsupported backup version %d", file.Version)
	}

	out := make([]PrivateKeyAliased, 0, len(file.Keys))
	for _, e := range file.Keys {
		priv, err := wax.ParseWIF(e.WIF)
		if err != nil {
			return nil, fmt.Errorf("backup entry %q: %w", e.Alias, err)
		}
		public := priv.PublicKey()
		priv.Zero()
		if public != e.Public {
			return nil, fmt.Errorf("backup entry %q: private key does not match %s", e.Alias, e.Public)
		}
		out = append(out, PrivateKeyAliased{Alias: e.Alias, Value: e.WIF, Public: public})
	}
	return out, nil
}

// Generate creates a fresh private key queued for import under alias.
func (m *KeyManager) Generate(alias string) (PrivateKeyAliased, error) {
	priv, err := wax.NewPrivateKey()
	if err != nil {
		return PrivateKeyAliased{}, err
	}
	defer priv.Zero()
	return m.SetToImport(alias, priv.WIF())
}
