// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package crypto holds secret-handling helpers: zeroable secure strings and
// the passphrase-sealed envelope used for key backup files.
package crypto

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// ZeroBytes clears b. The constant-time copy keeps the store from being
// optimized away.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}

// SecureString keeps a beekeeper password or session token in a private
// buffer until Destroy. A nil *SecureString is an empty secret.
type SecureString struct {
	mu   sync.RWMutex
	data []byte
}

// NewSecureStringFromBytes stores a copy of b, so the caller can wipe its own.
func NewSecureStringFromBytes(b []byte) *SecureString {
	s := &SecureString{}
	if len(b) > 0 {
		s.data = append(make([]byte, 0, len(b)), b...)
	}
	return s
}

// NewSecureString stores s, typically a token handed back by beekeeper.
func NewSecureString(s string) *SecureString {
	return NewSecureStringFromBytes([]byte(s))
}

// WithBytes runs fn on the stored bytes. The slice is only valid inside fn.
func (s *SecureString) WithBytes(fn func([]byte) error) error {
	if s == nil {
		return fn(nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// Reveal copies the secret into a string for JSON-RPC parameters. That copy
// is outside Destroy's reach.
func (s *SecureString) Reveal() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.data)
}

// Destroy wipes and drops the secret.
func (s *SecureString) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ZeroBytes(s.data)
	s.data = nil
}

// IsEmpty reports whether nothing is stored.
func (s *SecureString) IsEmpty() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data) == 0
}
