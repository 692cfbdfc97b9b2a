package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/smukkama/openweather-panel/internal/owm"
	"github.com/smukkama/openweather-panel/internal/pipeline"
)

func newStore(t *testing.T, ttl time.Duration) (*SnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSnapshotStore(client, ttl), mr
}

func TestSnapshotStore_Miss(t *testing.T) {
	store, _ := newStore(t, time.Hour)

	snap, err := store.Load(context.Background(), "1,2")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap != nil {
		t.Errorf("Expected nil snapshot on miss, got %+v", snap)
	}
}

func TestSnapshotStore_SaveLoad(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &pipeline.Snapshot{
		Current:   &owm.CurrentWeather{ID: 524901, Name: "Moscow", Main: owm.Main{Temp: -3.5}},
		CurrentAt: at,
	}
	if err := store.Save(ctx, "55.7522,37.6156", snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if ttl := mr.TTL(key("55.7522,37.6156")); ttl != time.Hour {
		t.Errorf("Expected TTL 1h, got %v", ttl)
	}

	got, err := store.Load(ctx, "55.7522,37.6156")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.Current == nil {
		t.Fatal("Expected snapshot with current weather")
	}
	if got.Current.Name != "Moscow" || got.Current.Main.Temp != -3.5 {
		t.Errorf("Unexpected current weather %+v", got.Current)
	}
	if !got.CurrentAt.Equal(at) {
		t.Errorf("Expected CurrentAt %v, got %v", at, got.CurrentAt)
	}
	if got.Forecast != nil {
		t.Error("Forecast should be absent")
	}
}

func TestSnapshotStore_Expiry(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "k", &pipeline.Snapshot{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	snap, err := store.Load(ctx, "k")
	if err != nil || snap != nil {
		t.Errorf("Expected expired snapshot to be gone, got %+v %v", snap, err)
	}
}

func TestSnapshotStore_DeleteAndKeys(t *testing.T) {
	store, _ := newStore(t, 0)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, k, &pipeline.Snapshot{}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("Expected [a c], got %v", keys)
	}
}

func TestSnapshotStore_CorruptPayload(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	mr.Set(key("bad"), "{not json")

	if _, err := store.Load(context.Background(), "bad"); err == nil {
		t.Error("Expected unmarshal error")
	}
}

func TestSnapshotStore_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()
	store := NewSnapshotStore(client, time.Hour)

	if _, err := store.Load(context.Background(), "k"); err == nil {
		t.Error("Expected error with Redis down")
	}
}
