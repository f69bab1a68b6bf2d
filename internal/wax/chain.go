// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package wax models the subset of the Hive protocol that clive needs:
// assets, keys, authorities, operations, and transactions, together with
// their legacy JSON and binary encodings and the signature digest.
//
// Signing itself is not done here; the wallet daemon (beekeeper) signs
// digests produced by Transaction.SigDigest.
package wax

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ChainID identifies the chain a transaction is signed for.
type ChainID [32]byte

// MainnetChainIDHex is the Hive mainnet chain id.
const MainnetChainIDHex = "beeab0de00000000000000000000000000000000000000000000000000000000"

// MainnetChainID is the parsed Hive mainnet chain id.
var MainnetChainID = mustParseChainID(MainnetChainIDHex)

// ParseChainID parses a 64-character hex chain id.
func ParseChainID(s string) (ChainID, error) {
	var id ChainID
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return id, fmt.Errorf("invalid chain id: %w", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("invalid chain id length: expected %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func mustParseChainID(s string) ChainID {
	id, err := ParseChainID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the hex form of the chain id.
func (c ChainID) String() string {
	return hex.EncodeToString(c[:])
}

// TimeFormat is the layout Hive uses for time_point_sec in JSON.
const TimeFormat = "2006-01-02T15:04:05"

// Time is a second-precision UTC timestamp (time_point_sec).
type Time struct {
	time.Time
}

// NewTime truncates t to seconds in UTC.
func NewTime(t time.Time) Time {
	return Time{t.UTC().Truncate(time.Second)}
}

// ParseTime parses a Hive JSON timestamp. A trailing "Z" is accepted.
func ParseTime(s string) (Time, error) {
	t, err := time.Parse(TimeFormat, strings.TrimSuffix(s, "Z"))
	if err != nil {
		return Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return Time{t.UTC()}, nil
}

func (t Time) String() string {
	return t.UTC().Format(TimeFormat)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TaPoS computes ref_block_num and ref_block_prefix from a block id.
// The block id is 20 bytes hex; its first four bytes are the big-endian block number.
func TaPoS(blockID string) (uint16, uint32, error) {
	b, err := hex.DecodeString(blockID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid block id: %w", err)
	}
	if len(b) != 20 {
		return 0, 0, fmt.Errorf("invalid block id length: expected 20 bytes, got %d", len(b))
	}
	num := binary.BigEndian.Uint32(b[0:4])
	prefix := binary.LittleEndian.Uint32(b[4:8])
	return uint16(num & 0xffff), prefix, nil // #nosec G115 - masked
}
