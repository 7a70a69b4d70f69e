package broadcast

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisDeduper(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	d := NewRedisDeduper(rc, time.Minute)
	ctx := context.Background()

	fresh, err := d.Add(ctx, "s1", "e1")
	if err != nil || !fresh {
		t.Fatalf("expected first add to be fresh, got %v %v", fresh, err)
	}
	fresh, err = d.Add(ctx, "s1", "e1")
	if err != nil || fresh {
		t.Fatalf("expected duplicate, got %v %v", fresh, err)
	}
	fresh, _ = d.Add(ctx, "s2", "e1")
	if !fresh {
		t.Fatalf("scopes must not share keys")
	}
	if ttl := m.TTL("s1:e1"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := d.Remove(ctx, "s1", "e1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if fresh, _ := d.Add(ctx, "s1", "e1"); !fresh {
		t.Fatalf("expected key to be fresh after remove")
	}

	m.FastForward(2 * time.Minute)
	if fresh, _ := d.Add(ctx, "s2", "e1"); !fresh {
		t.Fatalf("expected key to expire")
	}
}
