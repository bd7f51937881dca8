package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

// stubLimiter records blocks in memory.
type stubLimiter struct {
	mu      sync.Mutex
	blocked map[park.Source]time.Time
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{blocked: map[park.Source]time.Time{}}
}

func (l *stubLimiter) CheckBlocked(_ context.Context, source park.Source) (bool, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, found := l.blocked[source]
	if !found || time.Now().After(until) {
		return false, time.Time{}, nil
	}
	return true, until, nil
}

func (l *stubLimiter) RecordBlock(_ context.Context, source park.Source, d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked[source] = time.Now().Add(d)
	return nil
}

func newTestClient(limiter ports.RateLimiter, attempts int) *Client {
	return NewClient(config.UpstreamConfig{
		Timeout:       5 * time.Second,
		RetryAttempts: attempts,
		DefaultBlock:  time.Minute,
	}, limiter, metrics.New())
}

func TestGetJSONDecodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Phantasialand"}`))
	}))
	defer server.Close()

	client := newTestClient(newStubLimiter(), 1)

	var out struct {
		Name string `json:"name"`
	}
	if err := client.GetJSON(context.Background(), park.SourceQueueTimes, server.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Name != "Phantasialand" {
		t.Fatalf("GetJSON() decoded name = %q", out.Name)
	}
}

func TestGetJSONRecordsBlockOn429(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	limiter := newStubLimiter()
	client := newTestClient(limiter, 5)

	var out any
	err := client.GetJSON(context.Background(), park.SourceQueueTimes, server.URL, nil, &out)
	if !errors.Is(err, ports.ErrProviderBlocked) {
		t.Fatalf("GetJSON() error = %v, want ErrProviderBlocked", err)
	}
	if requests != 1 {
		t.Fatalf("GetJSON() made %d requests after 429, want 1", requests)
	}

	blocked, until, err := limiter.CheckBlocked(context.Background(), park.SourceQueueTimes)
	if err != nil {
		t.Fatalf("CheckBlocked() error = %v", err)
	}
	if !blocked {
		t.Fatalf("GetJSON() must install the provider lock on 429")
	}
	if remaining := time.Until(until); remaining < 100*time.Second {
		t.Fatalf("GetJSON() lock window = %s, want Retry-After honored", remaining)
	}
}

func TestGetJSONFailsFastWhileBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached upstream while provider was blocked")
	}))
	defer server.Close()

	limiter := newStubLimiter()
	if err := limiter.RecordBlock(context.Background(), park.SourceQueueTimes, time.Minute); err != nil {
		t.Fatalf("RecordBlock() error = %v", err)
	}
	client := newTestClient(limiter, 3)

	var out any
	err := client.GetJSON(context.Background(), park.SourceQueueTimes, server.URL, nil, &out)
	if !errors.Is(err, ports.ErrProviderBlocked) {
		t.Fatalf("GetJSON() error = %v, want ErrProviderBlocked", err)
	}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(newStubLimiter(), 3)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.GetJSON(context.Background(), park.SourceQueueTimes, server.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if !out.OK || requests != 2 {
		t.Fatalf("GetJSON() ok=%v after %d requests, want recovery on retry", out.OK, requests)
	}
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(newStubLimiter(), 5)

	var out any
	if err := client.GetJSON(context.Background(), park.SourceQueueTimes, server.URL, nil, &out); err == nil {
		t.Fatalf("GetJSON() expected error for 404")
	}
	if requests != 1 {
		t.Fatalf("GetJSON() made %d requests for 404, want 1", requests)
	}
}

func TestRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}

	if got := retryAfter(resp, time.Minute); got != time.Minute {
		t.Fatalf("retryAfter(no header) = %s, want fallback", got)
	}

	resp.Header.Set("Retry-After", "90")
	if got := retryAfter(resp, time.Minute); got != 90*time.Second {
		t.Fatalf("retryAfter(seconds) = %s, want 90s", got)
	}

	resp.Header.Set("Retry-After", "garbage")
	if got := retryAfter(resp, time.Minute); got != time.Minute {
		t.Fatalf("retryAfter(garbage) = %s, want fallback", got)
	}
}
