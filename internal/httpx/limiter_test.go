package httpx

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_UnconfiguredHostUnlimited(t *testing.T) {
	limiter := NewLimiter()

	// Unpaced hosts never consult the context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 10; i++ {
		if err := limiter.Wait(ctx, "https://api.sec-api.io/mapping/cik/1"); err != nil {
			t.Fatalf("request %d should be allowed for unlimited host: %v", i, err)
		}
	}
}

func TestLimiter_HostRate(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetHostRate("financialmodelingprep.com", 0.1, 1) // very slow

	url := "https://financialmodelingprep.com/api/v3/profile/AAPL"
	wait := func(rawURL string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		return limiter.Wait(ctx, rawURL)
	}

	// First request passes (burst 1)
	if err := wait(url); err != nil {
		t.Errorf("first request should pass: %v", err)
	}

	// Second request would need ~10s
	if err := wait(url); err == nil {
		t.Errorf("second request should fail")
	}

	// Other host still unlimited
	if err := wait("https://api.sec-api.io"); err != nil {
		t.Errorf("other host should pass: %v", err)
	}
}

func TestLimiter_WaitPaces(t *testing.T) {
	limiter := NewLimiter()
	if err := limiter.SetURLRate("http://example.com", 20, 1); err != nil {
		t.Fatalf("SetURLRate failed: %v", err)
	}
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "http://example.com/x"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}

	// 3 requests at 20 rps with burst 1 take at least 2 intervals (100ms)
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected pacing of at least ~100ms, got %v", elapsed)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetHostRate("example.com", 0.01, 1)
	url := "http://example.com"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://example.com/foo")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}

	_, err = extractHost("::invalid")
	if err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
