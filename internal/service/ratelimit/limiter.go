package ratelimit

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "StockCast/pkg/http"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. Buckets idle longer than a full refill are dropped.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	now        func() time.Time
	lastSweep  time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		now:        time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *Limiter) sweep(now time.Time) {
	if l.refillRate <= 0 {
		return
	}
	idle := time.Duration(l.capacity / l.refillRate * float64(time.Second))
	if now.Sub(l.lastSweep) < idle {
		return
	}
	l.lastSweep = now
	for k, b := range l.m {
		if now.Sub(b.last) > idle {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the client IP's budget with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				wait := l.retryAfter()
				c.Response().Header().Set("Retry-After", strconv.Itoa(wait))
				return xhttp.AppErrorResponse(c,
					xhttp.TooManyRequestsError("rate limit exceeded").WithParam("retry_after_seconds", wait))
			}
			return next(c)
		}
	}
}

// retryAfter is the whole seconds needed to refill one token.
func (l *Limiter) retryAfter() int {
	if l.refillRate <= 0 {
		return 60
	}
	return int(math.Ceil(1 / l.refillRate))
}
