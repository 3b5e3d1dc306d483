package transport

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeepAliveSendsWhenIdle(t *testing.T) {
	var sent atomic.Int32
	stale := time.Now().Add(-time.Minute)

	ka := NewKeepAlive(
		KeepAliveConfig{IdleInterval: 30 * time.Second},
		func() error {
			sent.Add(1)
			return nil
		},
		func() time.Time { return stale },
	)

	ka.handleTick()

	if got := sent.Load(); got != 1 {
		t.Errorf("sent %d NoOps, want 1", got)
	}

	stats := ka.Stats()
	if stats.SentCount != 1 {
		t.Errorf("Stats().SentCount = %d, want 1", stats.SentCount)
	}
	if stats.LastSent.IsZero() {
		t.Error("Stats().LastSent is zero")
	}
}

func TestKeepAliveSkipsWhenActive(t *testing.T) {
	var sent atomic.Int32

	ka := NewKeepAlive(
		KeepAliveConfig{IdleInterval: 30 * time.Second},
		func() error {
			sent.Add(1)
			return nil
		},
		time.Now,
	)

	ka.handleTick()

	if got := sent.Load(); got != 0 {
		t.Errorf("sent %d NoOps, want 0", got)
	}
}

func TestKeepAliveIgnoresSendFailure(t *testing.T) {
	stale := time.Now().Add(-time.Minute)

	ka := NewKeepAlive(
		KeepAliveConfig{IdleInterval: 30 * time.Second},
		func() error { return ErrNotConnected },
		func() time.Time { return stale },
	)

	ka.handleTick()

	if stats := ka.Stats(); stats.SentCount != 0 {
		t.Errorf("Stats().SentCount = %d, want 0 after failed send", stats.SentCount)
	}
}

func TestKeepAliveStartStop(t *testing.T) {
	ka := NewKeepAlive(DefaultKeepAliveConfig(), func() error { return nil }, time.Now)

	if ka.IsRunning() {
		t.Error("IsRunning before Start = true, want false")
	}

	ka.Start(context.Background())
	if !ka.IsRunning() {
		t.Error("IsRunning after Start = false, want true")
	}

	// Double start is a no-op
	ka.Start(context.Background())

	ka.Stop()
	if ka.IsRunning() {
		t.Error("IsRunning after Stop = true, want false")
	}

	// Double stop does not panic
	ka.Stop()
}

func TestKeepAliveDisabled(t *testing.T) {
	ka := NewKeepAlive(KeepAliveConfig{IdleInterval: -1}, func() error { return nil }, time.Now)

	ka.Start(context.Background())
	if ka.IsRunning() {
		t.Error("keep-alive with negative interval should not start")
	}
}

func TestKeepAliveDefaultInterval(t *testing.T) {
	ka := NewKeepAlive(KeepAliveConfig{}, func() error { return nil }, time.Now)

	if ka.config.IdleInterval != DefaultIdleInterval {
		t.Errorf("IdleInterval = %v, want %v", ka.config.IdleInterval, DefaultIdleInterval)
	}
}
