package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"prospection_backend/platform/logger"
)

func testLog() *logger.Logger { return logger.New("development") }

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mini := miniredis.RunT(t)
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  NewRedis(mini.Addr(), "", 0),
	}
}

func TestGetOrSetCallsProducerOnce(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			calls := 0
			producer := func(ctx context.Context) (string, error) {
				calls++
				return "value", nil
			}

			for i := 0; i < 3; i++ {
				got, err := GetOrSet(context.Background(), store, testLog(), "k", time.Minute, producer)
				if err != nil {
					t.Fatalf("get %d failed: %v", i, err)
				}
				if got != "value" {
					t.Fatalf("unexpected value %q", got)
				}
			}
			if calls != 1 {
				t.Fatalf("expected 1 producer call, got %d", calls)
			}
		})
	}
}

func TestGetOrSetProducerErrorNotCached(t *testing.T) {
	store := NewMemory()
	boom := errors.New("boom")
	calls := 0
	producer := func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 42, nil
	}

	if _, err := GetOrSet(context.Background(), store, testLog(), "k", time.Minute, producer); !errors.Is(err, boom) {
		t.Fatalf("expected producer error, got %v", err)
	}
	got, err := GetOrSet(context.Background(), store, testLog(), "k", time.Minute, producer)
	if err != nil || got != 42 {
		t.Fatalf("expected retry to succeed, got %v, %v", got, err)
	}
}

func TestGetOrSetCachesAbsence(t *testing.T) {
	store := NewMemory()
	calls := 0
	producer := func(ctx context.Context) (*struct{ N int }, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		got, err := GetOrSet(context.Background(), store, testLog(), "absent", time.Minute, producer)
		if err != nil || got != nil {
			t.Fatalf("expected cached nil, got %v, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("a negative result must be cached too, got %d calls", calls)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("expected hit before expiry: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	mini := miniredis.RunT(t)
	store := NewRedis(mini.Addr(), "", 0)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mini.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestDeletePattern(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, key := range []string{"sirene:siret:1", "sirene:siren:2", "ban:search:q"} {
				if err := store.Set(ctx, key, []byte("v"), time.Minute); err != nil {
					t.Fatalf("set failed: %v", err)
				}
			}

			if err := store.DeletePattern(ctx, "sirene:*"); err != nil {
				t.Fatalf("delete pattern failed: %v", err)
			}

			for _, key := range []string{"sirene:siret:1", "sirene:siren:2"} {
				if _, err := store.Get(ctx, key); !errors.Is(err, ErrMiss) {
					t.Fatalf("expected %q evicted, got %v", key, err)
				}
			}
			if _, err := store.Get(ctx, "ban:search:q"); err != nil {
				t.Fatalf("unrelated namespace must survive: %v", err)
			}
		})
	}
}
