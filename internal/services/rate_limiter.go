package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UploadRateLimiter implements per-client rate limiting for dataset uploads
type UploadRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*uploadClient
	perMinute int
	burst     int
}

type uploadClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUploadRateLimiter creates a new upload rate limiter
// perMinute: sustained uploads allowed per minute per client
// burst: uploads allowed in a short burst before throttling kicks in
func NewUploadRateLimiter(perMinute, burst int) *UploadRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &UploadRateLimiter{
		clients:   make(map[string]*uploadClient),
		perMinute: perMinute,
		burst:     burst,
	}
}

// Allow checks if an upload is allowed for the given client IP
func (rl *UploadRateLimiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.cleanupIdleClients(now)

	client, exists := rl.clients[clientIP]
	if !exists {
		client = &uploadClient{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.burst),
		}
		rl.clients[clientIP] = client
	}
	client.lastSeen = now

	return client.limiter.Allow()
}

// cleanupIdleClients drops limiters idle for more than ten minutes
func (rl *UploadRateLimiter) cleanupIdleClients(now time.Time) {
	if len(rl.clients) < 128 {
		return
	}

	cutoff := now.Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// GetStats returns rate limiter statistics
func (rl *UploadRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"tracked_clients": len(rl.clients),
		"per_minute":      rl.perMinute,
		"burst":           rl.burst,
	}
}

// Reset clears all rate limiting data
func (rl *UploadRateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.clients = make(map[string]*uploadClient)
}
