package redis

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"bankdash/internal/storage"
)

func TestKeyPrefix(t *testing.T) {
	s := NewWithClient(nil, "")
	if got := s.key(storage.KeyAccounts); got != "bankdash:accounts" {
		t.Fatalf("unexpected key %q", got)
	}
	s = NewWithClient(nil, "test")
	if got := s.versionKey(); got != "test:__version" {
		t.Fatalf("unexpected version key %q", got)
	}
}

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty address")
	}
}

// Requires a running Redis; set BANKDASH_TEST_REDIS_ADDR=localhost:6379.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("BANKDASH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BANKDASH_TEST_REDIS_ADDR not set")
	}
	s, err := New(context.Background(), Config{Addr: addr, Prefix: "bankdash-test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIntegrationUpdateAtomic(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx storage.Tx) error {
		_ = tx.Set("a", 1)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var v int
	if found, _ := s.Get(ctx, "a", &v); found {
		t.Fatal("write leaked from failed update")
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := storage.Modify(ctx, s, "n", 0, func(n int) int { return n + 1 }); err != nil && !errors.Is(err, storage.ErrConflict) {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	got, err := storage.Load(ctx, s, "n", 0)
	if err != nil || got == 0 || got > 20 {
		t.Fatalf("unexpected counter %d (err=%v)", got, err)
	}
}
