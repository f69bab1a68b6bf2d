// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"encoding/json"
	"testing"
)

func TestAuthorityJSON(t *testing.T) {
	k1 := MustParsePublicKey("STM6PhSs6H49U1Lb6vz9GDtUF9RjtpFpkS6Rxm94LumQrnD1YqfSG")
	k2 := MustParsePublicKey("STM5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bu")

	a := NewAuthority(2)
	a.AccountAuths["zed"] = 1
	a.AccountAuths["amy"] = 1
	a.KeyAuths[k1] = 1
	a.KeyAuths[k2] = 2

	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	// 02 79... sorts before 02 c6...
	want := `{"weight_threshold":2,"account_auths":[["amy",1],["zed",1]],"key_auths":[["` +
		k2.String() + `",2],["` + k1.String() + `",1]]}`
	if string(b) != want {
		t.Errorf("Marshal =\n%s\nwant\n%s", b, want)
	}

	var back Authority
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(a) {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestAuthorityBinaryRoundTrip(t *testing.T) {
	a := SingleKeyAuthority(MustParsePublicKey(testPublicKey))
	a.AccountAuths["bob"] = 1

	e := NewEncoder()
	encodeOptionalAuthority(e, a)
	encodeOptionalAuthority(e, nil)

	d := NewDecoder(e.Bytes())
	got := decodeOptionalAuthority(d)
	none := decodeOptionalAuthority(d)
	if d.Err() != nil {
		t.Fatal(d.Err())
	}
	if !got.Equal(a) {
		t.Errorf("decoded %+v", got)
	}
	if none != nil {
		t.Errorf("expected nil optional authority")
	}
	if d.Remaining() != 0 {
		t.Errorf("%d bytes left", d.Remaining())
	}
}

func TestAuthorityWeights(t *testing.T) {
	a := NewAuthority(3)
	a.AccountAuths["bob"] = 1
	a.KeyAuths[MustParsePublicKey(testPublicKey)] = 1
	if !a.IsImpossible() {
		t.Error("threshold 3 with weight 2 should be impossible")
	}
	c := a.Clone()
	c.AccountAuths["carol"] = 1
	if a.IsImpossible() == c.IsImpossible() {
		t.Error("Clone shares maps with the original")
	}
	if c.TotalWeight() != 3 {
		t.Errorf("TotalWeight = %d", c.TotalWeight())
	}
}
