package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestStoreRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	store, err := New(srv.Addr(), 0, "bot")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "trade:state", `{"open_trade":null}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !srv.Exists("bot:trade:state") {
		t.Fatalf("expected prefixed key in redis")
	}
	val, ok, err := store.Get(ctx, "trade:state")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if val != `{"open_trade":null}` {
		t.Fatalf("unexpected value %q", val)
	}
	if err := store.Delete(ctx, "trade:state"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := store.Get(ctx, "trade:state"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
}

func TestNewFailsWithoutServer(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()
	if _, err := New(addr, 0, ""); err == nil {
		t.Fatalf("expected ping failure")
	}
}
