package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucket_Allow(t *testing.T) {
	// Create a bucket with capacity 5, refill rate 1 token/second
	tb := NewTokenBucket(5, 1.0)

	// Should allow 5 requests immediately (burst capacity)
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be denied (bucket empty)
	if tb.Allow() {
		t.Error("6th request should be denied")
	}

	// Wait 2 seconds for 2 tokens to refill
	time.Sleep(2 * time.Second)

	if !tb.Allow() {
		t.Error("Request after 2s should be allowed")
	}
	if !tb.Allow() {
		t.Error("2nd request after 2s should be allowed")
	}
	if tb.Allow() {
		t.Error("3rd request after 2s should be denied")
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	tb := NewTokenBucket(3, 1.0)

	for i := 0; i < 3; i++ {
		tb.Allow()
	}
	if tb.Allow() {
		t.Error("Bucket should be empty")
	}

	tb.Reset()

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Request %d should be allowed after reset", i+1)
		}
	}
}

func TestTokenBucket_Tokens(t *testing.T) {
	tb := NewTokenBucket(10, 1.0)

	if tokens := tb.Tokens(); tokens != 10.0 {
		t.Errorf("Expected 10 tokens, got %f", tokens)
	}

	tb.Allow()

	if tokens := tb.Tokens(); tokens != 9.0 {
		t.Errorf("Expected 9 tokens after one request, got %f", tokens)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	// Create limiter: 2 requests burst, 1 per second
	rl := NewRateLimiter(2, 1.0, 0)

	if !rl.Allow("key1") {
		t.Error("First request for key1 should be allowed")
	}
	if !rl.Allow("key1") {
		t.Error("Second request for key1 should be allowed")
	}
	if rl.Allow("key1") {
		t.Error("Third request for key1 should be denied")
	}

	// key2 has its own bucket
	if !rl.Allow("key2") {
		t.Error("First request for key2 should be allowed")
	}
	if !rl.Allow("key2") {
		t.Error("Second request for key2 should be allowed")
	}

	time.Sleep(1100 * time.Millisecond)

	if !rl.Allow("key1") {
		t.Error("Request after 1s should be allowed")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(1, 1.0, 0)

	rl.Allow("key1")
	if rl.Allow("key1") {
		t.Error("Second request should be denied")
	}

	rl.Reset("key1")

	if !rl.Allow("key1") {
		t.Error("Request after reset should be allowed")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(100, 100.0, 0)

	done := make(chan bool)
	numGoroutines := 10
	requestsPerGoroutine := 20

	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < requestsPerGoroutine; j++ {
				rl.Allow("concurrent-test")
			}
			done <- true
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}
}

func BenchmarkTokenBucket_Allow(b *testing.B) {
	tb := NewTokenBucket(1000000, 1000000.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb.Allow()
	}
}
