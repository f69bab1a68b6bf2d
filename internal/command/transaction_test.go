// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/protocol"
	"github.com/aplane-algo/clive/internal/testutil"
	"github.com/aplane-algo/clive/internal/wax"
)

func transferOp() wax.Operation {
	return &wax.TransferOperation{From: "alice", To: "bob", Amount: wax.Hive(1000), Memo: "hi"}
}

func build(t *testing.T, e *env) *wax.Transaction {
	t.Helper()
	tx, err := Run[*wax.Transaction](context.Background(), &Build{Chain: e.chain, Operations: []wax.Operation{transferOp()}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tx
}

func signerKeys(t *testing.T, tx *wax.Transaction) []wax.PublicKey {
	t.Helper()
	keys, err := tx.SignatureKeys(wax.MainnetChainID)
	if err != nil {
		t.Fatalf("SignatureKeys: %v", err)
	}
	return keys
}

func TestBuild(t *testing.T) {
	e := newEnv(t)
	tx := build(t, e)

	if tx.RefBlockNum != 0xabcd || tx.RefBlockPrefix != 0x44332211 {
		t.Errorf("TaPoS = (%#x, %#x)", tx.RefBlockNum, tx.RefBlockPrefix)
	}
	if got := tx.Expiration.String(); got != "2026-01-02T03:34:05" {
		t.Errorf("Expiration = %s, want head time + 30m", got)
	}
	if tx.IsSigned() {
		t.Error("built transaction is signed")
	}
}

func TestBuild_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := (&Build{Chain: e.chain}).Execute(ctx); !errors.Is(err, ErrNothingToDo) {
		t.Errorf("no operations: error = %v, want ErrNothingToDo", err)
	}
	tooLong := &Build{Chain: e.chain, Operations: []wax.Operation{transferOp()}, Expiration: 2 * time.Hour}
	if err := tooLong.Execute(ctx); err == nil {
		t.Error("expiration over one hour accepted")
	}

	e.mock.SetDown(true)
	down := &Build{Chain: e.chain, Operations: []wax.Operation{transferOp()}}
	if err := down.Execute(ctx); !errors.Is(err, node.ErrOffline) {
		t.Errorf("node down: error = %v, want ErrOffline", err)
	}
}

func TestSign(t *testing.T) {
	k1, k2 := testutil.TestKey(t, 1), testutil.TestKey(t, 2)
	e := newEnv(t, k1, k2)
	ctx := context.Background()
	tx := build(t, e)

	signed, err := Run[*wax.Transaction](ctx, &Sign{
		Signer: e.wallet, Transaction: tx, ChainID: wax.MainnetChainID,
		Keys: []wax.PublicKey{k1.PublicKey()},
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if tx.IsSigned() {
		t.Error("Sign modified its input")
	}
	if diff := cmp.Diff([]wax.PublicKey{k1.PublicKey()}, signerKeys(t, signed)); diff != "" {
		t.Errorf("signers mismatch (-want +got):\n%s", diff)
	}

	again := &Sign{Signer: e.wallet, Transaction: signed, ChainID: wax.MainnetChainID, Keys: []wax.PublicKey{k2.PublicKey()}}
	if err := again.Execute(ctx); !errors.Is(err, ErrTransactionAlreadySigned) {
		t.Fatalf("second Sign: error = %v, want ErrTransactionAlreadySigned", err)
	}

	multi, err := Run[*wax.Transaction](ctx, &Sign{
		Signer: e.wallet, Transaction: signed, ChainID: wax.MainnetChainID,
		Keys: []wax.PublicKey{k2.PublicKey(), k1.PublicKey()}, Multisign: true,
	})
	if err != nil {
		t.Fatalf("multisign: %v", err)
	}
	// k1 signs deterministically, so its second signature is deduplicated.
	if diff := cmp.Diff([]wax.PublicKey{k1.PublicKey(), k2.PublicKey()}, signerKeys(t, multi)); diff != "" {
		t.Errorf("multisign signers mismatch (-want +got):\n%s", diff)
	}
}

func TestSign_KeyNotInWallet(t *testing.T) {
	e := newEnv(t, testutil.TestKey(t, 1))
	stranger := testutil.TestKey(t, 9).PublicKey()
	s := &Sign{Signer: e.wallet, Transaction: build(t, e), ChainID: wax.MainnetChainID, Keys: []wax.PublicKey{stranger}}
	if err := s.Execute(context.Background()); !errors.Is(err, ErrKeyNotInWallet) {
		t.Errorf("error = %v, want ErrKeyNotInWallet", err)
	}
	if err := (&Sign{Signer: e.wallet, Transaction: build(t, e)}).Execute(context.Background()); !errors.Is(err, ErrNoKeyAvailable) {
		t.Errorf("no keys: error = %v, want ErrNoKeyAvailable", err)
	}
}

func TestAutoSign(t *testing.T) {
	k1, k2, k3 := testutil.TestKey(t, 1), testutil.TestKey(t, 2), testutil.TestKey(t, 3)

	tests := []struct {
		name       string
		wallet     []*wax.PrivateKey
		candidates []wax.PublicKey
		want       wax.PublicKey
		wantErr    error
	}{
		{name: "single wallet key", wallet: []*wax.PrivateKey{k1}, want: k1.PublicKey()},
		{name: "empty wallet", wantErr: ErrNoKeyAvailable},
		{name: "two wallet keys", wallet: []*wax.PrivateKey{k1, k2}, wantErr: ErrTooManyKeys},
		{
			name:       "candidates narrow to one",
			wallet:     []*wax.PrivateKey{k1, k2},
			candidates: []wax.PublicKey{k2.PublicKey(), k3.PublicKey()},
			want:       k2.PublicKey(),
		},
		{
			name:       "no candidate in wallet",
			wallet:     []*wax.PrivateKey{k1},
			candidates: []wax.PublicKey{k3.PublicKey()},
			wantErr:    ErrNoKeyAvailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, tt.wallet...)
			auto := &AutoSign{Signer: e.wallet, Transaction: build(t, e), ChainID: wax.MainnetChainID, Candidates: tt.candidates}
			err := auto.Execute(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AutoSign: %v", err)
			}
			tx, _ := auto.Result()
			if diff := cmp.Diff([]wax.PublicKey{tt.want}, signerKeys(t, tx)); diff != "" {
				t.Errorf("signers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnSign(t *testing.T) {
	k1 := testutil.TestKey(t, 1)
	e := newEnv(t, k1)
	signed, err := Run[*wax.Transaction](context.Background(), &AutoSign{Signer: e.wallet, Transaction: build(t, e), ChainID: wax.MainnetChainID})
	if err != nil {
		t.Fatal(err)
	}
	bare, err := Run[*wax.Transaction](context.Background(), &UnSign{Transaction: signed})
	if err != nil {
		t.Fatal(err)
	}
	if bare.IsSigned() || !signed.IsSigned() {
		t.Errorf("UnSign: result signed=%v, input signed=%v", bare.IsSigned(), signed.IsSigned())
	}
	if bare.ID() != signed.ID() {
		t.Error("UnSign changed the transaction id")
	}
}

func TestBroadcast(t *testing.T) {
	k1 := testutil.TestKey(t, 1)
	e := newEnv(t, k1)
	ctx := context.Background()
	tx := build(t, e)

	if err := (&Broadcast{Chain: e.chain, Transaction: tx}).Execute(ctx); !errors.Is(err, ErrTransactionNotSigned) {
		t.Fatalf("unsigned broadcast: error = %v, want ErrTransactionNotSigned", err)
	}
	if len(e.mock.Broadcasts()) != 0 {
		t.Fatal("unsigned transaction reached the node")
	}

	signed, err := Run[*wax.Transaction](ctx, &AutoSign{Signer: e.wallet, Transaction: tx, ChainID: wax.MainnetChainID})
	if err != nil {
		t.Fatal(err)
	}
	id, err := Run[string](ctx, &Broadcast{Chain: e.chain, Transaction: signed})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if id != signed.ID() {
		t.Errorf("id = %s, want %s", id, signed.ID())
	}
	sent := e.mock.Broadcasts()
	if len(sent) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(sent))
	}
	var onWire wax.Transaction
	if err := json.Unmarshal(sent[0], &onWire); err != nil {
		t.Fatal(err)
	}
	if onWire.ID() != id {
		t.Errorf("node received %s, want %s", onWire.ID(), id)
	}

	e.mock.RejectBroadcasts("missing required active authority")
	err = (&Broadcast{Chain: e.chain, Transaction: signed}).Execute(ctx)
	var rpcErr *protocol.RPCError
	if !errors.As(err, &rpcErr) || !strings.Contains(rpcErr.Detail(), "missing required active authority") {
		t.Errorf("rejected broadcast: error = %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	k1 := testutil.TestKey(t, 1)
	e := newEnv(t, k1)
	ctx := context.Background()
	signed, err := Run[*wax.Transaction](ctx, &AutoSign{Signer: e.wallet, Transaction: build(t, e), ChainID: wax.MainnetChainID})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		save     Format
		load     Format
		wantJSON bool
	}{
		{name: "json by extension", file: "tx.json", wantJSON: true},
		{name: "binary by extension", file: "tx.bin"},
		{name: "explicit binary, detected", file: "tx.dat", save: FormatBinary},
		{name: "json, any extension", file: "tx.txt", wantJSON: true},
		{name: "explicit on both sides", file: "tx.out", save: FormatBinary, load: FormatBinary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := (&SaveTransaction{Transaction: signed, Path: path, Format: tt.save}).Execute(ctx); err != nil {
				t.Fatalf("Save: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if isJSON := json.Valid(data); isJSON != tt.wantJSON {
				t.Errorf("saved json=%v, want %v", isJSON, tt.wantJSON)
			}

			loaded, err := Run[*wax.Transaction](ctx, &Load{Path: path, Format: tt.load})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(signed.PackSigned(), loaded.PackSigned()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	if err := (&Load{Path: filepath.Join(t.TempDir(), "missing.json")}).Execute(ctx); err == nil {
		t.Error("missing file loaded")
	}
	garbage := testutil.TempFile(t, []byte("{not json"))
	if err := (&Load{Path: garbage}).Execute(ctx); err == nil {
		t.Error("garbage loaded")
	}
	empty := testutil.TempFile(t, []byte(`{"ref_block_num":1,"ref_block_prefix":2,"expiration":"2026-01-01T00:00:00","operations":[],"extensions":[],"signatures":[]}`))
	if err := (&Load{Path: empty}).Execute(ctx); !errors.Is(err, ErrNothingToDo) {
		t.Errorf("empty transaction: error = %v, want ErrNothingToDo", err)
	}
	if _, err := ParseFormat("yaml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(yaml) error = %v", err)
	}
}
