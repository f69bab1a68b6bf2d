// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package profile

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aplane-algo/clive/internal/fsutil"
	"github.com/aplane-algo/clive/internal/util"
)

const (
	// Extension is the file extension of stored profiles.
	Extension = ".profile"

	keyFileName     = ".profile_key"
	defaultFileName = ".default"
	keyLength       = 32
	formatVersion   = 1
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
	ErrTampered        = errors.New("profile integrity check failed")
	ErrNoDefault       = errors.New("no default profile")
)

// signedFile is the on-disk envelope around a profile.
type signedFile struct {
	Version int    `json:"version"`
	Data    string `json:"data"` // base64 of the profile JSON
	HMAC    string `json:"hmac"` // hex HMAC-SHA256 of Data's bytes
}

// Store keeps profiles as signed files in one directory.
type Store struct {
	dir string

	mu  sync.Mutex
	key []byte
}

// NewStore returns a store rooted at dir. Nothing is created until first use.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path of the named profile.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Extension)
}

// signingKey loads the store key, creating it on first use.
func (s *Store) signingKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.key, nil
	}

	keyFile := filepath.Join(s.dir, keyFileName)
	key, err := os.ReadFile(keyFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		key = make([]byte, keyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate profile key: %w", err)
		}
		if err := fsutil.MkdirAll(s.dir); err != nil {
			return nil, fmt.Errorf("failed to create profile directory: %w", err)
		}
		if err := fsutil.WriteFile(keyFile, key); err != nil {
			return nil, fmt.Errorf("failed to write profile key: %w", err)
		}
		util.Debug("created profile key", "path", keyFile)
	case err != nil:
		return nil, fmt.Errorf("failed to read profile key: %w", err)
	case len(key) != keyLength:
		return nil, fmt.Errorf("invalid profile key length: expected %d bytes, got %d", keyLength, len(key))
	}
	s.key = key
	return key, nil
}

func sign(data, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(data []byte, signatureHex string, key []byte) error {
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("%w: invalid HMAC format", ErrTampered)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), signature) {
		return ErrTampered
	}
	return nil
}

// Save writes p, replacing any stored profile of the same name.
func (s *Store) Save(p *Profile) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	key, err := s.signingKey()
	if err != nil {
		return err
	}

	data, err := json.Marshal(p.toFile())
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	out, err := json.MarshalIndent(signedFile{
		Version: formatVersion,
		Data:    base64.StdEncoding.EncodeToString(data),
		HMAC:    sign(data, key),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal signed profile: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.Path(p.Name), out); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", p.Name, err)
	}
	util.Debug("saved profile", "name", p.Name)
	return nil
}

// Create saves a new profile and fails if one of that name exists.
func (s *Store) Create(p *Profile) error {
	if s.Exists(p.Name) {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
	}
	return s.Save(p)
}

// Load reads and verifies the named profile.
func (s *Store) Load(name string) (*Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", name, err)
	}
	key, err := s.signingKey()
	if err != nil {
		return nil, err
	}

	var signed signedFile
	if err := json.Unmarshal(raw, &signed); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", name, err)
	}
	if signed.Version != formatVersion {
		return nil, fmt.Errorf("profile %s: unsupported version %d", name, signed.Version)
	}
	data, err := base64.StdEncoding.DecodeString(signed.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bad data encoding", ErrTampered, name)
	}
	if err := verify(data, signed.HMAC, key); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}

	var f profileFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %s: %w", name, err)
	}
	if f.Name != name {
		return nil, fmt.Errorf("%w: %s holds profile %q", ErrTampered, s.Path(name), f.Name)
	}
	return f.toProfile()
}

// Exists reports whether the named profile is stored.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// List returns the stored profile names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), Extension)
		if !ok || e.IsDir() || ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the named profile. Deleting the default profile clears the
// default.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	def, _ := s.Default()
	err := os.Remove(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if err != nil {
		return err
	}
	if def == name {
		if err := os.Remove(filepath.Join(s.dir, defaultFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// SetDefault marks an existing profile as the default.
func (s *Store) SetDefault(name string) error {
	if !s.Exists(name) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return fsutil.WriteFileAtomic(filepath.Join(s.dir, defaultFileName), []byte(name+"\n"))
}

// Default returns the default profile name or ErrNoDefault.
func (s *Store) Default() (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, defaultFileName))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoDefault
	}
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(raw))
	if ValidateName(name) != nil || !s.Exists(name) {
		return "", ErrNoDefault
	}
	return name, nil
}

// LoadDefault loads the default profile.
func (s *Store) LoadDefault() (*Profile, error) {
	name, err := s.Default()
	if err != nil {
		return nil, err
	}
	return s.Load(name)
}
