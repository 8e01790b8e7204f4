package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/fraudscrape/internal/model"
)

func TestKey_StableAndDistinct(t *testing.T) {
	a := Key("fmp", "profile", "AAPL")
	b := Key("fmp", "profile", "AAPL")
	c := Key("fmp", "profileAAPL")

	if a != b {
		t.Errorf("expected stable key, got %s and %s", a, b)
	}
	if a == c {
		t.Errorf("expected part boundaries to matter")
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	if c := New(model.CacheConfig{Enabled: false}); c != nil {
		t.Errorf("expected nil cache when disabled, got %T", c)
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Minute}).(*MemoryCache); !ok {
		t.Errorf("expected memory cache without dir")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Minute, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Errorf("expected layered cache with dir")
	}
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, ok := c.Get("k")
	if !ok || string(val) != "v" {
		t.Errorf("expected v, got %q (found=%v)", val, ok)
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("live", []byte("a"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("stale", []byte("b"), time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if val, ok := c.Get("live"); !ok || string(val) != "a" {
		t.Errorf("expected live entry, got %q (found=%v)", val, ok)
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("expected stale entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.cache")); !os.IsNotExist(err) {
		t.Error("expected stale file to be removed")
	}
	if err := c.Delete("missing"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	// Written by an earlier run
	if err := NewDiskCache(dir, time.Hour).Set("k", []byte("from-disk"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	val, ok := c.Get("k")
	if !ok || string(val) != "from-disk" {
		t.Fatalf("expected disk hit, got %q (found=%v)", val, ok)
	}
	if val, ok := c.memory.Get("k"); !ok || string(val) != "from-disk" {
		t.Error("expected disk hit promoted to memory")
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	type profile struct {
		Symbol string `json:"symbol"`
	}
	if err := SetJSON(c, "p", []profile{{Symbol: "AAPL"}}); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var out []profile
	if !GetJSON(c, "p", &out) {
		t.Fatal("expected hit")
	}
	if len(out) != 1 || out[0].Symbol != "AAPL" {
		t.Errorf("unexpected value: %+v", out)
	}

	if GetJSON(nil, "p", &out) {
		t.Error("expected nil cache to miss")
	}
	if err := SetJSON(nil, "p", out); err != nil {
		t.Errorf("expected nil cache set to be a no-op, got %v", err)
	}
}
