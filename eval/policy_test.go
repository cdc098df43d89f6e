package eval

import (
	"math/rand"
	"testing"
	"time"
)

func TestComputeBackoffBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := 10 * time.Millisecond
	maxDelay := 50 * time.Millisecond

	for attempt := 0; attempt < 10; attempt++ {
		d := computeBackoff(attempt, base, maxDelay, rng)
		if d < 0 {
			t.Fatalf("attempt %d: backoff %v should never be negative", attempt, d)
		}
		if d > maxDelay+base {
			t.Fatalf("attempt %d: backoff %v exceeds maxDelay+jitter bound %v", attempt, d, maxDelay+base)
		}
	}
}

func TestComputeBackoffGrowsWithAttempt(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := 10 * time.Millisecond

	// With no cap, the un-jittered component strictly doubles, so a
	// later attempt's floor (delay with zero jitter) exceeds an
	// earlier attempt's ceiling (delay with max jitter).
	d0 := computeBackoff(0, base, 0, rand.New(rand.NewSource(1)))
	d3 := computeBackoff(3, base, 0, rng)
	if d3 <= d0 {
		t.Errorf("backoff at attempt 3 (%v) should exceed attempt 0 (%v)", d3, d0)
	}
}

func TestComputeBackoffZeroBaseNoJitter(t *testing.T) {
	d := computeBackoff(2, 0, 0, nil)
	if d != 0 {
		t.Errorf("computeBackoff with zero base = %v, want 0", d)
	}
}
