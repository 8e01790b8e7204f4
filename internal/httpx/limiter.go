package httpx

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces requests per host. Hosts without an explicit rate are
// unlimited.
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewLimiter creates an empty per-host limiter
func NewLimiter() *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetHostRate fixes the pace for one host. Burst 1 spaces requests evenly,
// e.g. 5 req/s means one request every 200ms.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// SetURLRate fixes the pace for the host of rawURL
func (l *Limiter) SetURLRate(rawURL string, requestsPerSecond float64, burst int) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}
	l.SetHostRate(host, requestsPerSecond, burst)
	return nil
}

// Wait blocks until a request to rawURL is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}

	limiter := l.get(host)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (l *Limiter) get(host string) *rate.Limiter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiters[host]
}

func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
