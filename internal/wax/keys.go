// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Hive key checksums are RIPEMD-160 by protocol
)

var (
	// ErrInvalidPublicKey indicates a malformed STM public key.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey indicates a malformed WIF private key.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidSignature indicates a malformed or unrecoverable signature.
	ErrInvalidSignature = errors.New("invalid signature")
)

// PublicKeyPrefix is the address prefix used on Hive mainnet.
const PublicKeyPrefix = "STM"

// wifVersion is the version byte prepended to private keys in WIF.
const wifVersion = 0x80

// PublicKey is a compressed secp256k1 public key.
type PublicKey [33]byte

// ParsePublicKey decodes an "STM..." public key and verifies its checksum.
func ParsePublicKey(s string) (PublicKey, error) {
	var key PublicKey
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, PublicKeyPrefix) {
		return key, fmt.Errorf("%w: missing %s prefix", ErrInvalidPublicKey, PublicKeyPrefix)
	}
	raw := base58.Decode(s[len(PublicKeyPrefix):])
	if len(raw) != len(key)+4 {
		return key, fmt.Errorf("%w: bad length", ErrInvalidPublicKey)
	}
	data, checksum := raw[:len(key)], raw[len(key):]
	if !bytes.Equal(ripemdChecksum(data), checksum) {
		return key, fmt.Errorf("%w: checksum mismatch", ErrInvalidPublicKey)
	}
	copy(key[:], data)
	return key, nil
}

// MustParsePublicKey is ParsePublicKey for constants and tests.
func MustParsePublicKey(s string) PublicKey {
	key, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return key
}

// String encodes the key with the STM prefix.
func (k PublicKey) String() string {
	raw := make([]byte, 0, len(k)+4)
	raw = append(raw, k[:]...)
	raw = append(raw, ripemdChecksum(k[:])...)
	return PublicKeyPrefix + base58.Encode(raw)
}

// IsZero reports whether this is the null key.
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// Less orders keys the way fc::flat_map orders public_key_type.
func (k PublicKey) Less(other PublicKey) bool {
	return bytes.Compare(k[:], other[:]) < 0
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ripemdChecksum(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data)
	return h.Sum(nil)[:4]
}

func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// PrivateKey is a secp256k1 private key.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// NewPrivateKey generates a random private key.
func NewPrivateKey() (*PrivateKey, error) {
	k, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// PrivateKeyFromBytes wraps a raw 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidPrivateKey, len(b))
	}
	k, _ := btcec.PrivKeyFromBytes(b)
	return &PrivateKey{key: k}, nil
}

// ParseWIF decodes a WIF-encoded private key and verifies its checksum.
func ParseWIF(wif string) (*PrivateKey, error) {
	raw := base58.Decode(strings.TrimSpace(wif))
	if len(raw) != 1+32+4 {
		return nil, fmt.Errorf("%w: bad length", ErrInvalidPrivateKey)
	}
	if raw[0] != wifVersion {
		return nil, fmt.Errorf("%w: unexpected version byte 0x%02x", ErrInvalidPrivateKey, raw[0])
	}
	payload, checksum := raw[:33], raw[33:]
	if !bytes.Equal(doubleSHA256(payload)[:4], checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidPrivateKey)
	}
	return PrivateKeyFromBytes(payload[1:])
}

// IsValidWIF reports whether s parses as a WIF private key.
func IsValidWIF(s string) bool {
	_, err := ParseWIF(s)
	return err == nil
}

// WIF encodes the key in wallet import format.
func (p *PrivateKey) WIF() string {
	payload := make([]byte, 0, 37)
	payload = append(payload, wifVersion)
	payload = append(payload, p.key.Serialize()...)
	payload = append(payload, doubleSHA256(payload)[:4]...)
	return base58.Encode(payload)
}

// Bytes returns the raw 32-byte scalar.
func (p *PrivateKey) Bytes() []byte {
	return p.key.Serialize()
}

// PublicKey derives the compressed public key.
func (p *PrivateKey) PublicKey() PublicKey {
	var key PublicKey
	copy(key[:], p.key.PubKey().SerializeCompressed())
	return key
}

// SignDigest produces a 65-byte compact recoverable signature over digest.
func (p *PrivateKey) SignDigest(digest [32]byte) Signature {
	var sig Signature
	copy(sig[:], ecdsa.SignCompact(p.key, digest[:], true))
	return sig
}

// Zero clears the private scalar.
func (p *PrivateKey) Zero() {
	if p.key != nil {
		p.key.Zero()
	}
}

// Signature is a compact recoverable signature: header byte, r, s.
type Signature [65]byte

// ParseSignature decodes a 130-character hex signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	b, err := hex.DecodeString(s)
	if err != nil {
		return sig, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(b) != len(sig) {
		return sig, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, len(sig), len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSignature(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RecoverPublicKey recovers the public key that produced sig over digest.
func RecoverPublicKey(digest [32]byte, sig Signature) (PublicKey, error) {
	var key PublicKey
	pub, _, err := ecdsa.RecoverCompact(sig[:], digest[:])
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	copy(key[:], pub.SerializeCompressed())
	return key, nil
}

func encodePublicKey(e *Encoder, k PublicKey) {
	e.Raw(k[:])
}

func decodePublicKey(d *Decoder) PublicKey {
	var k PublicKey
	copy(k[:], d.Raw(len(k)))
	return k
}
