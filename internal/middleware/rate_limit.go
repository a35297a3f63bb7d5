package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	appctx "github.com/ligadigital/membercard/internal/context"
)

// RateLimiter implements a simple in-memory sliding-window rate limiter
type RateLimiter struct {
	mu       sync.RWMutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// Remaining returns the number of remaining requests for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	windowStart := time.Now().Add(-rl.window)
	count := 0
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			count++
		}
	}

	remaining := rl.limit - count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset returns the time when the rate limit resets for a key
func (rl *RateLimiter) Reset(key string) time.Time {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	requests := rl.requests[key]
	if len(requests) == 0 {
		return time.Now()
	}

	oldest := requests[0]
	for _, t := range requests {
		if t.Before(oldest) {
			oldest = t
		}
	}

	return oldest.Add(rl.window)
}

// cleanup periodically removes expired entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		windowStart := time.Now().Add(-rl.window)

		for key, requests := range rl.requests {
			var valid []time.Time
			for _, t := range requests {
				if t.After(windowStart) {
					valid = append(valid, t)
				}
			}
			if len(valid) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = valid
			}
		}
		rl.mu.Unlock()
	}
}

// ScanRateLimiter rate limits scan verification requests per scanner
type ScanRateLimiter struct {
	limiter *RateLimiter
	limit   int
}

// NewScanRateLimiter creates a rate limiter keyed by scanner id
func NewScanRateLimiter(limit int, window time.Duration) *ScanRateLimiter {
	return &ScanRateLimiter{
		limiter: NewRateLimiter(limit, window),
		limit:   limit,
	}
}

// RateLimitScan creates middleware that rate limits scan requests. It must
// sit behind the scanner auth middleware, which injects the scanner id.
func (rl *ScanRateLimiter) RateLimitScan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scannerID, ok := appctx.ExtractScannerID(r.Context())
		if !ok {
			// The auth middleware rejects unidentified scanners first.
			next.ServeHTTP(w, r)
			return
		}

		resetTime := rl.limiter.Reset(scannerID)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !rl.limiter.Allow(scannerID) {
			writeRateLimitError(w, resetTime)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.limiter.Remaining(scannerID)))

		next.ServeHTTP(w, r)
	})
}

// writeRateLimitError writes a 429 Too Many Requests response
func writeRateLimitError(w http.ResponseWriter, resetTime time.Time) {
	retryAfter := resetTime.Unix() - time.Now().Unix()
	if retryAfter < 0 {
		retryAfter = 0
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    "TOO_MANY_REQUESTS",
			"message": "Rate limit exceeded. Please try again later.",
			"details": map[string]interface{}{
				"retry_after": retryAfter,
			},
		},
		"timestamp": time.Now().UTC(),
	})
}
