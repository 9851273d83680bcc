package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests per host. The capture session uses it to space
// readiness polls and to honour robots.txt crawl delays.
type Limiter struct {
	limiters        map[string]*rate.Limiter
	mu              sync.RWMutex
	defaultInterval time.Duration
	defaultBurst    int
}

// NewLimiter creates a limiter allowing one event per interval per host
func NewLimiter(interval time.Duration, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiters:        make(map[string]*rate.Limiter),
		defaultInterval: interval,
		defaultBurst:    burst,
	}
}

// Wait blocks until the host of rawURL may be hit again
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}
	return l.getLimiter(host).Wait(ctx)
}

// Allow reports whether an event for rawURL may happen now
func (l *Limiter) Allow(rawURL string) bool {
	host, err := extractHost(rawURL)
	if err != nil {
		return false
	}
	return l.getLimiter(host).Allow()
}

// SetHostInterval overrides the pacing of one host. Intervals shorter than
// the default are ignored.
func (l *Limiter) SetHostInterval(host string, interval time.Duration) {
	if interval < l.defaultInterval {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[host] = rate.NewLimiter(every(interval), l.defaultBurst)
}

// getLimiter returns the rate limiter for a host
func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(every(l.defaultInterval), l.defaultBurst)
	l.limiters[host] = limiter
	return limiter
}

func every(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

// extractHost extracts the host from a URL
func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
