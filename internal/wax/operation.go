// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownOperation indicates an operation name or id with no registered codec.
var ErrUnknownOperation = errors.New("unknown operation")

// Operation is a single Hive operation carried by a transaction.
type Operation interface {
	// OpName is the legacy operation name without the "_operation" suffix.
	OpName() string

	// OpID is the static_variant index in the protocol operation list.
	OpID() uint32

	encode(e *Encoder)
	decode(d *Decoder)

	// RequiredAuthorities adds the accounts whose authorities must sign.
	RequiredAuthorities(r *RequiredAuths)
}

// RequiredAuths collects accounts per authority level.
type RequiredAuths struct {
	Owner   []string
	Active  []string
	Posting []string
}

func (r *RequiredAuths) addOwner(names ...string)   { r.Owner = appendUnique(r.Owner, names...) }
func (r *RequiredAuths) addActive(names ...string)  { r.Active = appendUnique(r.Active, names...) }
func (r *RequiredAuths) addPosting(names ...string) { r.Posting = appendUnique(r.Posting, names...) }

// IsEmpty reports whether no authority is required.
func (r *RequiredAuths) IsEmpty() bool {
	return len(r.Owner) == 0 && len(r.Active) == 0 && len(r.Posting) == 0
}

// Accounts returns every account that appears at any level, sorted.
func (r *RequiredAuths) Accounts() []string {
	var all []string
	all = appendUnique(all, r.Owner...)
	all = appendUnique(all, r.Active...)
	all = appendUnique(all, r.Posting...)
	sort.Strings(all)
	return all
}

func appendUnique(list []string, names ...string) []string {
	for _, n := range names {
		found := false
		for _, existing := range list {
			if existing == n {
				found = true
				break
			}
		}
		if !found {
			list = append(list, n)
		}
	}
	return list
}

type opFactory func() Operation

// Registration happens from init only, so the maps need no locking.
var (
	opsByName = make(map[string]opFactory)
	opsByID   = make(map[uint32]opFactory)
)

func registerOperation(f opFactory) {
	op := f()
	if _, dup := opsByName[op.OpName()]; dup {
		panic("duplicate operation registration: " + op.OpName())
	}
	opsByName[op.OpName()] = f
	opsByID[op.OpID()] = f
}

// NewOperation instantiates an empty operation by name.
func NewOperation(name string) (Operation, error) {
	f, ok := opsByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return f(), nil
}

// OperationNames lists registered operation names, sorted.
func OperationNames() []string {
	names := make([]string, 0, len(opsByName))
	for name := range opsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EncodeOperation writes the static_variant tag followed by the operation body.
func EncodeOperation(e *Encoder, op Operation) {
	e.Varint(uint64(op.OpID()))
	op.encode(e)
}

// DecodeOperation reads one tagged operation.
func DecodeOperation(d *Decoder) Operation {
	id := d.Varint()
	if d.Err() != nil {
		return nil
	}
	f, ok := opsByID[uint32(id)] // #nosec G115 - unknown ids fail lookup
	if !ok || id > 0xffffffff {
		d.Fail(fmt.Errorf("%w: id %d", ErrUnknownOperation, id))
		return nil
	}
	op := f()
	op.decode(d)
	return op
}

// MarshalOperationJSON encodes an operation as a legacy [name, body] pair.
func MarshalOperationJSON(op Operation) ([]byte, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", op.OpName(), err)
	}
	name, _ := json.Marshal(op.OpName())
	return json.Marshal([2]json.RawMessage{name, body})
}

// UnmarshalOperationJSON decodes a legacy [name, body] pair or an HF26
// {"type": "<name>_operation", "value": {...}} object.
func UnmarshalOperationJSON(data []byte) (Operation, error) {
	var pair [2]json.RawMessage
	var name string
	var body json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return nil, fmt.Errorf("invalid operation name: %w", err)
		}
		body = pair[1]
	} else {
		var obj struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("invalid operation: %w", err)
		}
		name = trimOperationSuffix(obj.Type)
		body = obj.Value
	}

	op, err := NewOperation(name)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, op); err != nil {
		return nil, fmt.Errorf("invalid %s body: %w", name, err)
	}
	return op, nil
}

func trimOperationSuffix(s string) string {
	const suffix = "_operation"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// Operations is an ordered list with legacy JSON encoding.
type Operations []Operation

func (ops Operations) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ops))
	for _, op := range ops {
		b, err := MarshalOperationJSON(op)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (ops *Operations) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid operations: %w", err)
	}
	result := make(Operations, 0, len(raw))
	for i, r := range raw {
		op, err := UnmarshalOperationJSON(r)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		result = append(result, op)
	}
	*ops = result
	return nil
}
