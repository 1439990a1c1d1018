package ratelimit

import (
	"sync"
	"time"
)

// IdleTimeout is how long an IP may stay silent before CleanupLoop
// forgets its bucket.
const IdleTimeout = 5 * time.Minute

// ipBucket is the allowance left to one client IP.
type ipBucket struct {
	allowance float64
	seen      time.Time
}

// Limiter caps how often each client IP may hit a rate-limited endpoint.
// Every IP starts with a full burst and regains perSec requests per second.
type Limiter struct {
	mu     sync.Mutex
	ips    map[string]*ipBucket
	perSec float64
	burst  float64 // 2× perSec, at least 1 so slow rates still admit a request
	now    func() time.Time
}

// New creates a limiter allowing perSec requests per IP, with bursts of
// up to twice that.
func New(perSec float64) *Limiter {
	return &Limiter{
		ips:    make(map[string]*ipBucket),
		perSec: perSec,
		burst:  max(perSec*2, 1),
		now:    time.Now,
	}
}

// Allow reports whether ip may make another request now, and if so
// charges it one request.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.ips[ip]
	if b == nil {
		b = &ipBucket{allowance: l.burst, seen: now}
		l.ips[ip] = b
	}
	l.refill(b, now)

	if b.allowance < 1 {
		return false
	}
	b.allowance--
	return true
}

// refill credits b for the time since the IP was last seen, capped at burst.
func (l *Limiter) refill(b *ipBucket, now time.Time) {
	if elapsed := now.Sub(b.seen); elapsed > 0 {
		b.allowance = min(b.allowance+elapsed.Seconds()*l.perSec, l.burst)
	}
	b.seen = now
}

// CleanupLoop periodically forgets idle IPs until done is closed.
func (l *Limiter) CleanupLoop(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.forgetIdle()
		case <-done:
			return
		}
	}
}

func (l *Limiter) forgetIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-IdleTimeout)
	for ip, b := range l.ips {
		if b.seen.Before(cutoff) {
			delete(l.ips, ip)
		}
	}
}
