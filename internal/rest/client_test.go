package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestGetReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(`[{"symbol":"BTCUSDT"}]`))
	}))
	defer server.Close()

	client := New(time.Second, 0, zap.NewNop())
	body, err := client.Get(context.Background(), server.URL+"/fapi/v1/premiumIndex")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != `[{"symbol":"BTCUSDT"}]` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestGetNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := New(time.Second, 0, nil)
	_, err := client.Get(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "http 429") {
		t.Fatalf("expected http 429 error, got %v", err)
	}
}

func TestGetTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := New(50*time.Millisecond, 0, nil)
	start := time.Now()
	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("expected timeout to bound the call, took %v", elapsed)
	}
}

func TestGetRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(time.Second, 10, nil)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 12; i++ {
		if _, err := client.Get(ctx, server.URL); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("expected limiter to pace requests beyond the burst, took %v", elapsed)
	}
}

func TestGetRateLimitHonoursContext(t *testing.T) {
	client := New(time.Second, 0.5, nil)
	client.limiter.AllowN(time.Now(), 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Get(ctx, "http://127.0.0.1:1"); err == nil {
		t.Fatalf("expected limiter wait to fail on context deadline")
	}
}
