package util

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\nCrawl-delay: 2\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("qbank/0.1 (+https://example.com)", 5*time.Second, "", "")

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/questoes/123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Error("Expected public path to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	allowed, _, err = checker.CanFetch(context.Background(), server.URL+"/private/page")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Error("Expected private path to be disallowed")
	}
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("qbank", 5*time.Second, "", "")
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Error("Expected everything to be allowed without robots.txt")
	}
}

func TestRobotsChecker_ServerErrorDisallows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	checker := NewRobotsChecker("qbank", 5*time.Second, "", "")
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/questoes/1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Error("Expected a 5xx robots.txt to disallow everything")
	}
}

func TestRobotsChecker_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	checker := NewRobotsChecker("qbank", time.Second, "", "")
	allowed, _, err := checker.CanFetch(context.Background(), url+"/questoes/1")
	if !errors.Is(err, ErrRobotsUnavailable) {
		t.Fatalf("Expected ErrRobotsUnavailable, got %v", err)
	}
	if !allowed {
		t.Error("Expected unavailable robots.txt to leave the decision to the caller")
	}
}

func TestRobotsChecker_CachesPerHost(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("qbank", 5*time.Second, "", "")
	for i := 0; i < 3; i++ {
		if _, _, err := checker.CanFetch(context.Background(), server.URL+"/questoes/1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", n)
	}
}

func TestProductToken(t *testing.T) {
	tests := map[string]string{
		"qbank/0.1 (+https://example.com)": "qbank",
		"qbank":                            "qbank",
		"":                                 "",
	}
	for in, want := range tests {
		if got := productToken(in); got != want {
			t.Errorf("productToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProxyFor(t *testing.T) {
	proxy := proxyFor("http://proxy:8080", "http://secure:8443")

	req, _ := http.NewRequest(http.MethodGet, "https://example.com/robots.txt", nil)
	got, err := proxy(req)
	if err != nil || got.Host != "secure:8443" {
		t.Errorf("Expected https proxy, got %v (%v)", got, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com/robots.txt", nil)
	got, err = proxy(req)
	if err != nil || got.Host != "proxy:8080" {
		t.Errorf("Expected http proxy, got %v (%v)", got, err)
	}
}
