package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive constants.
const (
	// DefaultIdleInterval is the idle period after which a NoOp is sent.
	// The base unit's ethernet adapter drops connections that stay
	// silent for too long.
	DefaultIdleInterval = 30 * time.Second

	// keepAliveTickInterval is how often idle time is checked.
	keepAliveTickInterval = 1 * time.Second
)

// KeepAliveConfig configures keep-alive behavior.
type KeepAliveConfig struct {
	// IdleInterval is the idle period after which a NoOp is sent.
	// Zero uses DefaultIdleInterval; negative disables keep-alive.
	IdleInterval time.Duration
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		IdleInterval: DefaultIdleInterval,
	}
}

// KeepAlive sends NoOp commands when a connection has been idle.
// Unlike a ping/pong scheme there is no response to track; the NoOp
// only exists to generate traffic.
type KeepAlive struct {
	config KeepAliveConfig

	// Callbacks
	sendNoOp     func() error
	lastActivity func() time.Time

	// State
	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	sentCount int
	lastSent  time.Time
}

// NewKeepAlive creates a new keep-alive manager.
func NewKeepAlive(config KeepAliveConfig, sendNoOp func() error, lastActivity func() time.Time) *KeepAlive {
	if config.IdleInterval == 0 {
		config.IdleInterval = DefaultIdleInterval
	}

	return &KeepAlive{
		config:       config,
		sendNoOp:     sendNoOp,
		lastActivity: lastActivity,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the keep-alive monitoring loop.
func (ka *KeepAlive) Start(ctx context.Context) {
	if ka.config.IdleInterval < 0 {
		return
	}

	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	ka.mu.Unlock()

	go ka.loop(ctx)
}

// Stop stops the keep-alive monitoring.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !ka.running {
		return
	}

	ka.running = false
	close(ka.stopCh)
}

// IsRunning returns true if keep-alive monitoring is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// Stats returns current keep-alive statistics.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return KeepAliveStats{
		SentCount: ka.sentCount,
		LastSent:  ka.lastSent,
	}
}

// KeepAliveStats contains keep-alive statistics.
type KeepAliveStats struct {
	SentCount int
	LastSent  time.Time
}

// loop is the main keep-alive monitoring loop.
func (ka *KeepAlive) loop(ctx context.Context) {
	ticker := time.NewTicker(keepAliveTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ka.stopCh:
			return
		case <-ticker.C:
			ka.handleTick()
		}
	}
}

// handleTick sends a NoOp if the connection has been idle long enough.
func (ka *KeepAlive) handleTick() {
	if time.Since(ka.lastActivity()) < ka.config.IdleInterval {
		return
	}

	if err := ka.sendNoOp(); err != nil {
		// Send failed; the read loop will surface the error.
		return
	}

	ka.mu.Lock()
	ka.sentCount++
	ka.lastSent = time.Now()
	ka.mu.Unlock()
}
