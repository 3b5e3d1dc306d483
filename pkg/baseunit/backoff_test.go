package baseunit

import (
	"testing"
	"time"
)

func TestBackoffDefaultSequence(t *testing.T) {
	b := NewBackoff()

	// Expected sequence (without jitter): 1s, 2s, 4s, 8s, 16s, 32s, 60s, 60s...
	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}

	for i, exp := range expected {
		base := b.Current()
		_ = b.Next()
		if base != exp {
			t.Errorf("attempt %d: base = %v, want %v", i, base, exp)
		}
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff()

	for i := 0; i < 20; i++ {
		base := b.Current()
		delay := b.Next()
		maxDelay := base + time.Duration(float64(base)*JitterFactor)
		if delay < base || delay > maxDelay {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", i, delay, base, maxDelay)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: 10 * time.Millisecond, Max: time.Second})

	for i := 0; i < 5; i++ {
		b.Next()
	}
	if b.Attempts() != 5 {
		t.Errorf("attempts = %d, want 5", b.Attempts())
	}

	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("attempts after reset = %d, want 0", b.Attempts())
	}
	if b.Current() != 10*time.Millisecond {
		t.Errorf("current after reset = %v, want 10ms", b.Current())
	}
}

func TestBackoffCapsAtMax(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: time.Millisecond, Max: 4 * time.Millisecond})

	for i := 0; i < 10; i++ {
		b.Next()
	}
	if b.Current() != 4*time.Millisecond {
		t.Errorf("current = %v, want max 4ms", b.Current())
	}
}
