// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package beekeeper

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/aplane-algo/clive/internal/testutil"
	"github.com/aplane-algo/clive/internal/transport"
	"github.com/aplane-algo/clive/internal/wax"
)

func newTestWallet(t *testing.T, bk *testutil.MockBeekeeper, name string, opts ...WalletOption) *Wallet {
	t.Helper()
	rpc, err := transport.New(bk.URL())
	if err != nil {
		t.Fatal(err)
	}
	return NewWallet(NewClient(rpc), name, opts...)
}

func TestWallet_UnlockSignLock(t *testing.T) {
	ctx := context.Background()
	key := testutil.TestKey(t, 1)
	bk := testutil.NewMockBeekeeper(t)
	bk.AddWallet("alice", "pw", key)

	w := newTestWallet(t, bk, "alice")
	if _, err := w.Sign(ctx, [32]byte{}, key.PublicKey()); !errors.Is(err, ErrWalletLocked) {
		t.Fatalf("Sign before unlock: error = %v, want ErrWalletLocked", err)
	}
	if err := w.Unlock(ctx, []byte("wrong")); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("Unlock wrong password: error = %v, want ErrInvalidPassword", err)
	}
	if err := w.Unlock(ctx, []byte("pw")); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	keys, err := w.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != key.PublicKey() {
		t.Errorf("Keys = %v, want [%s]", keys, key.PublicKey())
	}

	digest := sha256.Sum256([]byte("payload"))
	sig, err := w.Sign(ctx, digest, key.PublicKey())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	recovered, err := wax.RecoverPublicKey(digest, sig)
	if err != nil || recovered != key.PublicKey() {
		t.Errorf("recovered %s (%v), want %s", recovered, err, key.PublicKey())
	}

	if err := w.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Sign(ctx, digest, key.PublicKey()); !errors.Is(err, ErrWalletLocked) {
		t.Errorf("Sign after lock: error = %v, want ErrWalletLocked", err)
	}
}

func TestWallet_ReunlocksAfterAutoLock(t *testing.T) {
	ctx := context.Background()
	key := testutil.TestKey(t, 2)
	bk := testutil.NewMockBeekeeper(t)
	bk.AddWallet("alice", "pw", key)

	w := newTestWallet(t, bk, "alice")
	if err := w.Unlock(ctx, []byte("pw")); err != nil {
		t.Fatal(err)
	}
	bk.LockWallet("alice")
	if _, err := w.Keys(ctx); err != nil {
		t.Fatalf("Keys after auto-lock: %v", err)
	}

	bk.ExpireSessions()
	if _, err := w.Keys(ctx); err != nil {
		t.Fatalf("Keys after session loss: %v", err)
	}
}

func TestWallet_ImportRemoveHas(t *testing.T) {
	ctx := context.Background()
	bk := testutil.NewMockBeekeeper(t)
	w := newTestWallet(t, bk, "bob")
	if err := w.Create(ctx, []byte("pw")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	key := testutil.TestKey(t, 3)
	pub, err := w.Import(ctx, key.WIF())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if pub != key.PublicKey() {
		t.Errorf("Import returned %s, want %s", pub, key.PublicKey())
	}
	if has, err := w.Has(ctx, pub); err != nil || !has {
		t.Errorf("Has = %v, %v; want true", has, err)
	}
	if err := w.Remove(ctx, pub); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := w.Remove(ctx, pub); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("second Remove: error = %v, want ErrKeyNotFound", err)
	}
	if has, _ := w.Has(ctx, pub); has {
		t.Error("Has after Remove = true")
	}
}

func TestWallet_MissingWallet(t *testing.T) {
	bk := testutil.NewMockBeekeeper(t)
	w := newTestWallet(t, bk, "nobody")
	if err := w.Unlock(context.Background(), []byte("pw")); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("error = %v, want ErrWalletNotFound", err)
	}
}

func TestWallet_SessionTimeoutAndClose(t *testing.T) {
	ctx := context.Background()
	bk := testutil.NewMockBeekeeper(t)
	bk.AddWallet("alice", "pw")
	w := newTestWallet(t, bk, "alice", WithSessionTimeout(2*time.Minute))
	if err := w.Unlock(ctx, []byte("pw")); err != nil {
		t.Fatal(err)
	}
	token := w.token.Reveal()
	if got := bk.SessionTimeout(token); got != 120 {
		t.Errorf("session timeout = %d, want 120", got)
	}

	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !w.token.IsEmpty() || !w.password.IsEmpty() {
		t.Error("secrets not cleared on Close")
	}
	if _, err := w.EnsureUnlocked(ctx); !errors.Is(err, ErrWalletLocked) {
		t.Errorf("EnsureUnlocked after Close: error = %v, want ErrWalletLocked", err)
	}
	if n := bk.CallCount("beekeeper_api.close_session"); n != 1 {
		t.Errorf("close_session calls = %d, want 1", n)
	}
}

func TestParseKey(t *testing.T) {
	key := testutil.TestKey(t, 4).PublicKey()
	full := key.String()
	for _, s := range []string{full, full[len(wax.PublicKeyPrefix):]} {
		got, err := ParseKey(s)
		if err != nil || got != key {
			t.Errorf("ParseKey(%q) = %s, %v", s, got, err)
		}
	}
}
