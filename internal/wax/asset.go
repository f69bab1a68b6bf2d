// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAsset indicates an asset string or object could not be parsed.
var ErrInvalidAsset = errors.New("invalid asset")

// ErrSymbolMismatch indicates arithmetic between assets of different symbols.
var ErrSymbolMismatch = errors.New("asset symbol mismatch")

// Symbol describes one of the Hive core assets.
type Symbol struct {
	Name      string // Display name ("HIVE")
	Precision uint8  // Decimal places
	NAI       string // Numerical asset identifier ("@@000000021")
	Legacy    string // Name used by the legacy binary layout ("STEEM")
}

var (
	SymbolHive  = Symbol{Name: "HIVE", Precision: 3, NAI: "@@000000021", Legacy: "STEEM"}
	SymbolHBD   = Symbol{Name: "HBD", Precision: 3, NAI: "@@000000013", Legacy: "SBD"}
	SymbolVests = Symbol{Name: "VESTS", Precision: 6, NAI: "@@000000037", Legacy: "VESTS"}
)

var symbols = []Symbol{SymbolHive, SymbolHBD, SymbolVests}

// LookupSymbol finds a symbol by display name, legacy name, or NAI.
func LookupSymbol(name string) (Symbol, bool) {
	upper := strings.ToUpper(name)
	for _, s := range symbols {
		if s.Name == upper || s.Legacy == upper || s.NAI == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Asset is an amount in the smallest unit of its symbol.
type Asset struct {
	Amount int64
	Symbol Symbol
}

// Hive returns an asset of amount base units of HIVE.
func Hive(amount int64) Asset { return Asset{Amount: amount, Symbol: SymbolHive} }

// HBD returns an asset of amount base units of HBD.
func HBD(amount int64) Asset { return Asset{Amount: amount, Symbol: SymbolHBD} }

// Vests returns an asset of amount base units of VESTS.
func Vests(amount int64) Asset { return Asset{Amount: amount, Symbol: SymbolVests} }

// ParseAsset parses a legacy asset string such as "1.000 HIVE".
// Fewer decimals than the symbol precision are padded; more are rejected.
func ParseAsset(s string) (Asset, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Asset{}, fmt.Errorf("%w: %q (expected '<amount> <symbol>')", ErrInvalidAsset, s)
	}
	sym, ok := LookupSymbol(fields[1])
	if !ok {
		return Asset{}, fmt.Errorf("%w: unknown symbol %q", ErrInvalidAsset, fields[1])
	}
	amount, err := parseFixed(fields[0], sym.Precision)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %q: %v", ErrInvalidAsset, s, err)
	}
	return Asset{Amount: amount, Symbol: sym}, nil
}

func parseFixed(s string, precision uint8) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("amount must be unsigned")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("multiple decimal points")
	}
	integer := parts[0]
	fraction := ""
	if len(parts) == 2 {
		fraction = parts[1]
	}
	if integer == "" {
		integer = "0"
	}
	if len(fraction) > int(precision) {
		return 0, fmt.Errorf("too many decimal places (max %d)", precision)
	}
	digits := integer + fraction + strings.Repeat("0", int(precision)-len(fraction))
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// String formats the asset in legacy form ("1.000 HIVE").
func (a Asset) String() string {
	return a.Decimal() + " " + a.Symbol.Name
}

// Decimal formats only the amount with the symbol precision.
func (a Asset) Decimal() string {
	neg := a.Amount < 0
	v := a.Amount
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	p := int(a.Symbol.Precision)
	if p > 0 {
		if len(digits) <= p {
			digits = strings.Repeat("0", p-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-p] + "." + digits[len(digits)-p:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// IsZero reports whether the amount is zero.
func (a Asset) IsZero() bool {
	return a.Amount == 0
}

// Add returns a+b. Both must share a symbol.
func (a Asset) Add(b Asset) (Asset, error) {
	if a.Symbol != b.Symbol {
		return Asset{}, fmt.Errorf("%w: %s + %s", ErrSymbolMismatch, a.Symbol.Name, b.Symbol.Name)
	}
	return Asset{Amount: a.Amount + b.Amount, Symbol: a.Symbol}, nil
}

// Sub returns a-b. Both must share a symbol.
func (a Asset) Sub(b Asset) (Asset, error) {
	if a.Symbol != b.Symbol {
		return Asset{}, fmt.Errorf("%w: %s - %s", ErrSymbolMismatch, a.Symbol.Name, b.Symbol.Name)
	}
	return Asset{Amount: a.Amount - b.Amount, Symbol: a.Symbol}, nil
}

// Cmp compares a and b: -1, 0, or +1. Both must share a symbol.
func (a Asset) Cmp(b Asset) (int, error) {
	if a.Symbol != b.Symbol {
		return 0, fmt.Errorf("%w: %s vs %s", ErrSymbolMismatch, a.Symbol.Name, b.Symbol.Name)
	}
	switch {
	case a.Amount < b.Amount:
		return -1, nil
	case a.Amount > b.Amount:
		return 1, nil
	}
	return 0, nil
}

// MarshalJSON encodes the asset as a legacy string.
func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// naiAsset is the HF26 JSON representation.
type naiAsset struct {
	Amount    string `json:"amount"`
	Precision uint8  `json:"precision"`
	NAI       string `json:"nai"`
}

// UnmarshalJSON accepts both the legacy string and the NAI object form.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseAsset(s)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}

	var n naiAsset
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAsset, string(data))
	}
	sym, ok := LookupSymbol(n.NAI)
	if !ok {
		return fmt.Errorf("%w: unknown nai %q", ErrInvalidAsset, n.NAI)
	}
	if n.Precision != sym.Precision {
		return fmt.Errorf("%w: precision %d does not match %s", ErrInvalidAsset, n.Precision, sym.Name)
	}
	amount, err := strconv.ParseInt(n.Amount, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: amount %q", ErrInvalidAsset, n.Amount)
	}
	*a = Asset{Amount: amount, Symbol: sym}
	return nil
}

// encodeAsset writes the legacy binary layout: int64 amount, uint8 precision,
// 7-byte zero-padded symbol name.
func encodeAsset(e *Encoder, a Asset) {
	e.Int64(a.Amount)
	e.Uint8(a.Symbol.Precision)
	var name [7]byte
	copy(name[:], a.Symbol.Legacy)
	e.Raw(name[:])
}

func decodeAsset(d *Decoder) Asset {
	amount := d.Int64()
	precision := d.Uint8()
	raw := d.Raw(7)
	if d.Err() != nil {
		return Asset{}
	}
	name := strings.TrimRight(string(raw), "\x00")
	sym, ok := LookupSymbol(name)
	if !ok || sym.Precision != precision {
		d.Fail(fmt.Errorf("%w: symbol %q precision %d", ErrInvalidAsset, name, precision))
		return Asset{}
	}
	return Asset{Amount: amount, Symbol: sym}
}
