package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/log"
)

// ListenerConfig configures a listener for base units in TCP client mode.
type ListenerConfig struct {
	// Address to listen on (e.g., ":1680" or "127.0.0.1:1680").
	Address string

	// Logger for protocol logging (optional).
	Logger log.Logger

	// OnConnection is called when a base unit dials in. The receiver
	// owns the connection and normally hands it to Connection.Attach.
	OnConnection func(conn net.Conn)

	// OnError is called when an accept error occurs.
	OnError func(err error)
}

// Listener accepts connections from a base unit whose ethernet adapter
// is configured in TCP client mode. The adapter supports a single
// TCP connection, so an incoming connection while one is active
// replaces the old one.
type Listener struct {
	config   ListenerConfig
	listener net.Listener

	// Active connection, replaced on each accept
	active   net.Conn
	activeMu sync.Mutex

	// State
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewListener creates a new listener.
func NewListener(config ListenerConfig) (*Listener, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.OnConnection == nil {
		return nil, fmt.Errorf("OnConnection is required")
	}

	return &Listener{
		config: config,
	}, nil
}

// Start starts listening and begins accepting connections.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("listener already running")
	}

	l.ctx, l.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", l.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	l.listener = listener

	l.running.Store(true)

	l.wg.Add(1)
	go l.acceptLoop()

	return nil
}

// Stop stops the listener and closes the active connection.
func (l *Listener) Stop() error {
	if !l.running.Load() {
		return nil
	}

	l.running.Store(false)
	l.cancel()

	if l.listener != nil {
		l.listener.Close()
	}

	l.activeMu.Lock()
	if l.active != nil {
		l.active.Close()
		l.active = nil
	}
	l.activeMu.Unlock()

	l.wg.Wait()

	return nil
}

// Addr returns the listener's address.
func (l *Listener) Addr() net.Addr {
	if l.listener != nil {
		return l.listener.Addr()
	}
	return nil
}

// acceptLoop accepts incoming connections.
func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for l.running.Load() {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.running.Load() && l.config.OnError != nil {
				l.config.OnError(fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		l.activeMu.Lock()
		if l.active != nil {
			// Base unit reconnected; drop the stale connection.
			l.active.Close()
		}
		l.active = conn
		l.activeMu.Unlock()

		if l.config.Logger != nil {
			l.config.Logger.Log(log.Event{
				Timestamp:  time.Now(),
				Layer:      log.LayerTransport,
				Category:   log.CategoryState,
				RemoteAddr: conn.RemoteAddr().String(),
				StateChange: &log.StateChangeEvent{
					Entity:   log.StateEntityConnection,
					NewState: "ACCEPTED",
				},
			})
		}

		l.config.OnConnection(conn)
	}
}
