package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"prospection_backend/platform/apperr"
	"prospection_backend/platform/cache"
	"prospection_backend/platform/logger"
	"prospection_backend/platform/ratelimit"
)

func testDeps() Deps {
	log := logger.New("development")
	return Deps{
		Cache:   cache.NewMemory(),
		Limiter: ratelimit.New(nil, log),
		Log:     log,
		Timeout: 2 * time.Second,
	}
}

func TestGetJSONRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	deps := testDeps()
	var out struct {
		OK bool `json:"ok"`
	}
	if err := deps.getJSON(context.Background(), "test", server.URL, nil, &out); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded payload")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestGetJSONGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	deps := testDeps()
	var out struct{}
	err := deps.getJSON(context.Background(), "test", server.URL, nil, &out)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got := calls.Load(); got != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, got)
	}
}

func TestGetJSONThrottlingKeepsQuotaKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	deps := testDeps()
	var out struct{}
	err := deps.getJSON(context.Background(), "test", server.URL, nil, &out)
	if !apperr.Is(err, apperr.KindQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
}

func TestGetJSONAuthFailureIsFinal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	deps := testDeps()
	var out struct{}
	err := deps.getJSON(context.Background(), "test", server.URL, nil, &out)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("auth failure must not retry, got %d attempts", got)
	}
}

func TestGetJSONNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	deps := testDeps()
	var out struct{}
	err := deps.getJSON(context.Background(), "test", server.URL, nil, &out)
	if !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestKey(t *testing.T) {
	got := Key(SourceBAN, "search", "10 rue de la paix", "5")
	want := "ban:search:10 rue de la paix:5"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
