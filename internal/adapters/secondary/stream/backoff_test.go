package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first attempt", 0, time.Second},
		{"second attempt", 1, 2 * time.Second},
		{"third attempt", 2, 4 * time.Second},
		{"fourth attempt", 3, 8 * time.Second},
		{"fifth attempt", 4, 16 * time.Second},
		{"capped at max", 5, 30 * time.Second},
		{"stays capped", 12, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Delay(tt.attempt))
		})
	}
}

func TestRetryPolicy_Delay_CustomCap(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		MaxAttempts:  5,
	}

	assert.Equal(t, 500*time.Millisecond, policy.Delay(0))
	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 3*time.Second, policy.Delay(3))
	assert.Equal(t, 3*time.Second, policy.Delay(50))
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name     string
		code     int
		wasClean bool
		want     bool
	}{
		{"abnormal closure retries", 1006, false, true},
		{"server error retries", 1011, false, true},
		{"clean normal closure does not retry", 1000, true, false},
		{"clean going away does not retry", 1001, true, false},
		{"policy violation does not retry", 1008, false, false},
		{"custom auth code 4401 does not retry", 4401, false, false},
		{"custom auth code 4403 does not retry", 4403, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldRetry(tt.code, tt.wasClean))
		})
	}
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.False(t, policy.Exhausted(0))
	assert.False(t, policy.Exhausted(4))
	assert.True(t, policy.Exhausted(5))
	assert.True(t, policy.Exhausted(6))
}

func TestIsAuthClose(t *testing.T) {
	assert.True(t, IsAuthClose(1008))
	assert.True(t, IsAuthClose(4401))
	assert.True(t, IsAuthClose(4403))
	assert.False(t, IsAuthClose(1000))
	assert.False(t, IsAuthClose(1006))
}
