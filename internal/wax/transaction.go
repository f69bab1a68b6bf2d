// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrTrailingData indicates bytes left over after decoding a transaction.
var ErrTrailingData = errors.New("trailing data after transaction")

// Transaction is a signed_transaction.
type Transaction struct {
	RefBlockNum    uint16      `json:"ref_block_num"`
	RefBlockPrefix uint32      `json:"ref_block_prefix"`
	Expiration     Time        `json:"expiration"`
	Operations     Operations  `json:"operations"`
	Extensions     Extensions  `json:"extensions"`
	Signatures     []Signature `json:"signatures"`
}

// NewTransaction creates an unsigned transaction over ops.
func NewTransaction(ops ...Operation) *Transaction {
	return &Transaction{Operations: append(Operations(nil), ops...)}
}

// MarshalJSON writes signatures as [] rather than null when unsigned.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	p := plain(*tx)
	if p.Signatures == nil {
		p.Signatures = []Signature{}
	}
	return json.Marshal(p)
}

// SetTaPoS fills ref_block_num/ref_block_prefix from a head block id
// and sets expiration relative to headTime.
func (tx *Transaction) SetTaPoS(headBlockID string, headTime Time, expiration time.Duration) error {
	num, prefix, err := TaPoS(headBlockID)
	if err != nil {
		return err
	}
	tx.RefBlockNum = num
	tx.RefBlockPrefix = prefix
	tx.Expiration = NewTime(headTime.Add(expiration))
	return nil
}

// Pack serializes the transaction without signatures.
func (tx *Transaction) Pack() []byte {
	e := NewEncoder()
	tx.encodeBody(e)
	return e.Bytes()
}

// PackSigned serializes the transaction including signatures.
func (tx *Transaction) PackSigned() []byte {
	e := NewEncoder()
	tx.encodeBody(e)
	e.Varint(uint64(len(tx.Signatures)))
	for _, sig := range tx.Signatures {
		e.Raw(sig[:])
	}
	return e.Bytes()
}

func (tx *Transaction) encodeBody(e *Encoder) {
	e.Uint16(tx.RefBlockNum)
	e.Uint32(tx.RefBlockPrefix)
	e.Time(tx.Expiration)
	e.Varint(uint64(len(tx.Operations)))
	for _, op := range tx.Operations {
		EncodeOperation(e, op)
	}
	e.EmptyExtensions()
}

// DecodeTransaction parses the output of PackSigned.
func DecodeTransaction(data []byte) (*Transaction, error) {
	d := NewDecoder(data)
	tx := &Transaction{
		RefBlockNum:    d.Uint16(),
		RefBlockPrefix: d.Uint32(),
		Expiration:     d.Time(),
	}
	n := d.Length()
	for i := 0; i < n && d.Err() == nil; i++ {
		if op := DecodeOperation(d); op != nil {
			tx.Operations = append(tx.Operations, op)
		}
	}
	d.EmptyExtensions()
	n = d.Length()
	for i := 0; i < n && d.Err() == nil; i++ {
		var sig Signature
		copy(sig[:], d.Raw(len(sig)))
		tx.Signatures = append(tx.Signatures, sig)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, d.Remaining())
	}
	return tx, nil
}

// ID is the hex of the first 20 bytes of sha256(Pack()).
func (tx *Transaction) ID() string {
	sum := sha256.Sum256(tx.Pack())
	return hex.EncodeToString(sum[:20])
}

// SigDigest is the digest every signature commits to.
func (tx *Transaction) SigDigest(chain ChainID) [32]byte {
	h := sha256.New()
	h.Write(chain[:])
	h.Write(tx.Pack())
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// IsSigned reports whether at least one signature is attached.
func (tx *Transaction) IsSigned() bool {
	return len(tx.Signatures) > 0
}

// AddSignature appends sig unless it is already present.
func (tx *Transaction) AddSignature(sig Signature) bool {
	for _, existing := range tx.Signatures {
		if existing == sig {
			return false
		}
	}
	tx.Signatures = append(tx.Signatures, sig)
	return true
}

// ClearSignatures removes all signatures.
func (tx *Transaction) ClearSignatures() {
	tx.Signatures = nil
}

// SignatureKeys recovers the public key of every attached signature.
func (tx *Transaction) SignatureKeys(chain ChainID) ([]PublicKey, error) {
	digest := tx.SigDigest(chain)
	keys := make([]PublicKey, 0, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		key, err := RecoverPublicKey(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// RequiredAuthorities aggregates the authorities all operations need.
func (tx *Transaction) RequiredAuthorities() RequiredAuths {
	var r RequiredAuths
	for _, op := range tx.Operations {
		op.RequiredAuthorities(&r)
	}
	return r
}

// Clone returns an independent copy. Operations are re-decoded from binary.
func (tx *Transaction) Clone() *Transaction {
	c, err := DecodeTransaction(tx.PackSigned())
	if err != nil {
		// Every registered operation round-trips; fall back to a shallow copy.
		shallow := *tx
		shallow.Operations = append(Operations(nil), tx.Operations...)
		shallow.Signatures = append([]Signature(nil), tx.Signatures...)
		return &shallow
	}
	return c
}
