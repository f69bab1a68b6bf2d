// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleTransaction(t *testing.T) *Transaction {
	t.Helper()
	exp, err := ParseTime("2026-01-02T03:04:05")
	if err != nil {
		t.Fatal(err)
	}
	tx := NewTransaction(&TransferOperation{From: "alice", To: "bob", Amount: Hive(1000), Memo: "hi"})
	tx.RefBlockNum = 0x1234
	tx.RefBlockPrefix = 0xdeadbeef
	tx.Expiration = exp
	return tx
}

func TestTransactionPack(t *testing.T) {
	tx := sampleTransaction(t)

	const wantPack = "3412efbeaddea5355769010205616c69636503626f62e80300000000000003535445454d000002686900"
	if got := hex.EncodeToString(tx.Pack()); got != wantPack {
		t.Errorf("Pack = %s\nwant %s", got, wantPack)
	}
	if got := tx.ID(); got != "ddfb3dc78b2244cb67fad4ba2f49ee3ec309e036" {
		t.Errorf("ID = %s", got)
	}
	digest := tx.SigDigest(MainnetChainID)
	if got := hex.EncodeToString(digest[:]); got != "08f9402804b609f149eda743cd8d65fbf0c5f687219289341da0a5a0bb959213" {
		t.Errorf("SigDigest = %s", got)
	}
}

func TestTransactionBinaryRoundTrip(t *testing.T) {
	key, err := ParseWIF(testWIF)
	if err != nil {
		t.Fatal(err)
	}
	tx := sampleTransaction(t)
	tx.Operations = append(tx.Operations,
		&VoteOperation{Voter: "alice", Author: "bob", Permlink: "post", Weight: -5000},
		&UpdateProposalVotesOperation{Voter: "alice", ProposalIDs: []int64{3, 1, 3}, Approve: true},
		&AccountUpdate2Operation{Account: "alice", Posting: SingleKeyAuthority(key.PublicKey()), JSONMetadata: "{}"},
	)
	tx.AddSignature(key.SignDigest(tx.SigDigest(MainnetChainID)))

	decoded, err := DecodeTransaction(tx.PackSigned())
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}

	// flat_set encoding sorts and dedupes proposal ids
	tx.Operations[2].(*UpdateProposalVotesOperation).ProposalIDs = []int64{1, 3}
	if diff := cmp.Diff(tx.Operations, decoded.Operations, cmp.Comparer(func(a, b *Authority) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	if decoded.ID() != tx.ID() {
		t.Errorf("ID changed across round trip")
	}
	if len(decoded.Signatures) != 1 || decoded.Signatures[0] != tx.Signatures[0] {
		t.Errorf("signatures = %v", decoded.Signatures)
	}
}

func TestDecodeTransaction_Errors(t *testing.T) {
	tx := sampleTransaction(t)
	packed := tx.PackSigned()

	if _, err := DecodeTransaction(append(append([]byte(nil), packed...), 0x00)); !errors.Is(err, ErrTrailingData) {
		t.Errorf("trailing byte error = %v", err)
	}
	if _, err := DecodeTransaction(packed[:10]); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("truncated error = %v", err)
	}

	unknown := NewEncoder()
	unknown.Uint16(1)
	unknown.Uint32(2)
	unknown.Uint32(3)
	unknown.Varint(1)
	unknown.Varint(200)
	if _, err := DecodeTransaction(unknown.Bytes()); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("unknown op error = %v", err)
	}
}

func TestTransactionJSON(t *testing.T) {
	tx := sampleTransaction(t)
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"ref_block_num":4660,"ref_block_prefix":3735928559,"expiration":"2026-01-02T03:04:05",` +
		`"operations":[["transfer",{"from":"alice","to":"bob","amount":"1.000 HIVE","memo":"hi"}]],` +
		`"extensions":[],"signatures":[]}`
	if string(b) != want {
		t.Errorf("Marshal =\n%s\nwant\n%s", b, want)
	}

	var back Transaction
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID() != tx.ID() {
		t.Errorf("JSON round trip changed id")
	}
}

func TestTransactionJSON_HF26Operations(t *testing.T) {
	input := `{"ref_block_num":1,"ref_block_prefix":2,"expiration":"2026-01-02T03:04:05Z",` +
		`"operations":[{"type":"transfer_operation","value":{"from":"a","to":"b",` +
		`"amount":{"amount":"5","precision":3,"nai":"@@000000013"},"memo":""}}],` +
		`"extensions":[],"signatures":[]}`
	var tx Transaction
	if err := json.Unmarshal([]byte(input), &tx); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	op, ok := tx.Operations[0].(*TransferOperation)
	if !ok {
		t.Fatalf("operation type = %T", tx.Operations[0])
	}
	if op.Amount != HBD(5) {
		t.Errorf("amount = %v", op.Amount)
	}

	bad := `{"operations":[["no_such_op",{}]]}`
	if err := json.Unmarshal([]byte(bad), &tx); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("unknown op error = %v", err)
	}
}

func TestSignatureKeys(t *testing.T) {
	k1, _ := ParseWIF(testWIF)
	k2, _ := NewPrivateKey()
	tx := sampleTransaction(t)
	digest := tx.SigDigest(MainnetChainID)
	tx.AddSignature(k1.SignDigest(digest))
	tx.AddSignature(k2.SignDigest(digest))
	if tx.AddSignature(tx.Signatures[0]) {
		t.Error("duplicate signature was added")
	}

	keys, err := tx.SignatureKeys(MainnetChainID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]PublicKey{k1.PublicKey(), k2.PublicKey()}, keys); diff != "" {
		t.Errorf("keys mismatch:\n%s", diff)
	}

	tx.ClearSignatures()
	if tx.IsSigned() {
		t.Error("IsSigned after ClearSignatures")
	}
}

func TestRequiredAuthorities(t *testing.T) {
	owner := SingleKeyAuthority(MustParsePublicKey(testPublicKey))
	tests := []struct {
		name string
		op   Operation
		want RequiredAuths
	}{
		{"vote", &VoteOperation{Voter: "a"}, RequiredAuths{Posting: []string{"a"}}},
		{"transfer", &TransferOperation{From: "a"}, RequiredAuths{Active: []string{"a"}}},
		{"claim", &ClaimRewardBalanceOperation{Account: "a"}, RequiredAuths{Posting: []string{"a"}}},
		{"recovery", &ChangeRecoveryAccountOperation{AccountToRecover: "a"}, RequiredAuths{Owner: []string{"a"}}},
		{"custom json", &CustomJSONOperation{RequiredAuths: []string{"a"}, RequiredPostingAuths: []string{"b"}},
			RequiredAuths{Active: []string{"a"}, Posting: []string{"b"}}},
		{"account_update active", &AccountUpdateOperation{Account: "a"}, RequiredAuths{Active: []string{"a"}}},
		{"account_update owner", &AccountUpdateOperation{Account: "a", Owner: owner}, RequiredAuths{Owner: []string{"a"}}},
		{"account_update2 metadata only", &AccountUpdate2Operation{Account: "a", PostingJSONMetadata: "{}"},
			RequiredAuths{Posting: []string{"a"}}},
		{"account_update2 posting", &AccountUpdate2Operation{Account: "a", Posting: owner}, RequiredAuths{Active: []string{"a"}}},
		{"account_update2 owner", &AccountUpdate2Operation{Account: "a", Owner: owner, Posting: owner},
			RequiredAuths{Owner: []string{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RequiredAuths
			tt.op.RequiredAuthorities(&got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	tx := NewTransaction(&TransferOperation{From: "a"}, &VoteOperation{Voter: "a"}, &TransferOperation{From: "b"})
	r := tx.RequiredAuthorities()
	if diff := cmp.Diff([]string{"a", "b"}, r.Accounts()); diff != "" {
		t.Errorf("Accounts mismatch:\n%s", diff)
	}
}

func TestTaPoS(t *testing.T) {
	num, prefix, err := TaPoS("0000abcd1122334400000000000000000000000000")
	if err == nil {
		t.Fatalf("expected length error for 21-byte id, got %d %d", num, prefix)
	}

	num, prefix, err = TaPoS("0000abcd11223344000000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if num != 43981 || prefix != 1144201745 {
		t.Errorf("TaPoS = %d, %d", num, prefix)
	}

	tx := NewTransaction()
	head, _ := ParseTime("2026-01-01T00:00:00")
	if err := tx.SetTaPoS("0000abcd11223344000000000000000000000000", head, time.Minute); err != nil {
		t.Fatal(err)
	}
	if tx.Expiration.String() != "2026-01-01T00:01:00" {
		t.Errorf("expiration = %s", tx.Expiration)
	}
}

func TestOperationNames(t *testing.T) {
	names := OperationNames()
	if len(names) != 19 {
		t.Errorf("registered %d operations, want 19", len(names))
	}
	for _, name := range names {
		op, err := NewOperation(name)
		if err != nil {
			t.Fatal(err)
		}
		if op.OpName() != name {
			t.Errorf("NewOperation(%s).OpName() = %s", name, op.OpName())
		}
	}
}
