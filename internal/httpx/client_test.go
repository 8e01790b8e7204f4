package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/fraudscrape/internal/model"
)

func testConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
	}
}

func TestClient_GetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %s", r.Header.Get("User-Agent"))
		}
		_, _ = fmt.Fprint(w, `{"ticker":"AAPL","cik":"320193"}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil)

	var out struct {
		Ticker string `json:"ticker"`
		CIK    string `json:"cik"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.Ticker != "AAPL" || out.CIK != "320193" {
		t.Errorf("Unexpected decode result: %+v", out)
	}
}

func TestClient_PostJSON_SendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %s", r.Header.Get("Content-Type"))
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil)

	var out map[string]string
	err := client.PostJSON(context.Background(), server.URL, map[string]string{"q": "hello"}, &out)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out["echo"] != "hello" {
		t.Errorf("Expected echo hello, got %q", out["echo"])
	}
}

func TestClient_StatusErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil)

	_, err := client.GetText(context.Background(), server.URL+"/profile?apikey=secret")
	if err == nil {
		t.Fatal("Expected error for 503, got nil")
	}
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Errorf("Expected StatusError 503, got %v", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("Error leaks API key: %s", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", attempts.Load())
	}
}

func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "not json")
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil)

	var out map[string]any
	if err := client.GetJSON(context.Background(), server.URL, &out); err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestClient_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 10
	client := NewClient(cfg, nil)

	text, err := client.GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(text) != 10 {
		t.Errorf("Expected body truncated to 10 bytes, got %d", len(text))
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.sec-api.io/mapping/cik/1?token=abc", "https://api.sec-api.io/mapping/cik/1?token=REDACTED"},
		{"https://financialmodelingprep.com/api/v3/profile/AAPL?apikey=abc", "https://financialmodelingprep.com/api/v3/profile/AAPL?apikey=REDACTED"},
		{"https://example.com/path?x=1", "https://example.com/path?x=1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RedactURL(tt.in); got != tt.want {
				t.Errorf("RedactURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestProxyFor(t *testing.T) {
	cfg := model.HTTPConfig{HTTPProxy: "http://proxy:8080", HTTPSProxy: "http://secure-proxy:8443"}
	proxy := proxyFor(cfg)

	req := httptest.NewRequest(http.MethodGet, "https://api.sec-api.io", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if u.Host != "secure-proxy:8443" {
		t.Errorf("Expected HTTPS proxy, got %s", u.Host)
	}

	req = httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	u, err = proxy(req)
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if u.Host != "proxy:8080" {
		t.Errorf("Expected HTTP proxy, got %s", u.Host)
	}
}
