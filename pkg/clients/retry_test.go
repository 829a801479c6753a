package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDoWithRetry_SucceedsWithoutRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) }))
	defer server.Close()

	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := DoWithRetry(context.Background(), server.Client(), req, DefaultRetryConfig())
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("expected 200 without error; got %v %d", err, resp.StatusCode)
	}
}

func TestDoWithRetry_RetriesOn500(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(500)
			return
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	cfg := DefaultRetryConfig()
	cfg.BaseDelay = 1 * time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond

	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := DoWithRetry(context.Background(), server.Client(), req, cfg)
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("expected eventual 200; got %v %d", err, resp.StatusCode)
	}
}

func TestDoWithRetry_RespectsContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { time.Sleep(50 * time.Millisecond); w.WriteHeader(200) }))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest("GET", server.URL, nil)
	cfg := DefaultRetryConfig()
	_, err := DoWithRetry(ctx, server.Client(), req, cfg)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline exceeded, got %v", err)
	}
}

func TestDoWithRetry_RetryOnNon200ExhaustsAttempts(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		Multiplier: 2.0,
		RetryFunc:  RetryOnNon200,
	}

	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := DoWithRetry(context.Background(), server.Client(), req, cfg)
	if err != nil {
		t.Fatalf("expected response, got error %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected final 404, got %d", resp.StatusCode)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}

func TestDoWithRetry_ReplaysRequestBody(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		bodies = append(bodies, string(buf[:n]))
		if len(bodies) < 2 {
			w.WriteHeader(500)
			return
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	cfg := DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond

	req, _ := http.NewRequest("POST", server.URL, io.NopCloser(strings.NewReader(`{"query":"q"}`)))
	resp, err := DoWithRetry(context.Background(), server.Client(), req, cfg)
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("expected eventual 200; got %v", err)
	}
	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Fatalf("expected identical body on each attempt, got %q", bodies)
	}
}
