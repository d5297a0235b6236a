package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadRateLimiterBurst(t *testing.T) {
	rl := NewUploadRateLimiter(1, 3)

	// the burst is spent immediately, then the client is throttled
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d should pass", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestUploadRateLimiterPerClient(t *testing.T) {
	rl := NewUploadRateLimiter(1, 1)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// a different client has its own budget
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestUploadRateLimiterClampsConfig(t *testing.T) {
	rl := NewUploadRateLimiter(0, -5)

	stats := rl.GetStats()
	assert.Equal(t, 1, stats["per_minute"])
	assert.Equal(t, 1, stats["burst"])
}

func TestUploadRateLimiterReset(t *testing.T) {
	rl := NewUploadRateLimiter(1, 1)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	rl.Reset()
	assert.True(t, rl.Allow("10.0.0.1"))

	stats := rl.GetStats()
	assert.Equal(t, 1, stats["tracked_clients"])
}
