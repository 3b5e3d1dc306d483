package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lifesos-protocol/lifesos-go/pkg/log"
	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// Connection states.
type ConnectionState int

const (
	// StateDisconnected indicates no connection.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates connection in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateClosing indicates close in progress.
	StateClosing
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Connection errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectionClosed = errors.New("connection closed")
)

// ConnectionConfig configures a base unit connection.
type ConnectionConfig struct {
	// KeepAlive configuration.
	KeepAlive KeepAliveConfig

	// WriteTimeout is the timeout for write operations (0 = no timeout).
	WriteTimeout time.Duration

	// ReadBufferSize is the size of the read buffer (default: 1024).
	ReadBufferSize int

	// Logger for protocol logging (optional).
	Logger log.Logger
}

// DefaultConnectionConfig returns the default connection configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		KeepAlive:      DefaultKeepAliveConfig(),
		WriteTimeout:   5 * time.Second,
		ReadBufferSize: 1024,
	}
}

// ConnectionHandler handles connection events.
type ConnectionHandler interface {
	// OnFrame is called when a frame is decoded from the stream.
	OnFrame(frame *protocol.Frame)

	// OnStateChange is called when the connection state changes.
	OnStateChange(oldState, newState ConnectionState)

	// OnError is called when an error occurs. Decode errors are
	// recoverable and do not terminate the connection; read errors do.
	OnError(err error)
}

// Connection is a line-oriented TCP connection to a LifeSOS base unit.
// The base unit speaks plain ASCII text with no authentication at the
// transport level, so there is no handshake beyond the TCP connect.
type Connection struct {
	config  ConnectionConfig
	handler ConnectionHandler

	// Network connection
	conn net.Conn

	// Decoder state for the read loop
	decoder *protocol.Decoder

	// Keep-alive
	keepAlive    *KeepAlive
	lastActivity atomic.Int64

	// State
	state     atomic.Int32
	closeOnce sync.Once
	closeDone chan struct{}
	connID    string

	// Synchronization
	mu      sync.RWMutex
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewConnection creates a new connection (not yet connected).
func NewConnection(config ConnectionConfig, handler ConnectionHandler) *Connection {
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = 1024
	}

	c := &Connection{
		config:  config,
		handler: handler,
		decoder: protocol.NewDecoder(),
	}
	c.state.Store(int32(StateDisconnected))

	return c
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// ConnID returns the unique connection identifier.
// Empty until the first Connect or Attach.
func (c *Connection) ConnID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID
}

// Connect establishes a TCP connection to the specified address.
// Use when the base unit's ethernet adapter is in TCP server mode.
func (c *Connection) Connect(ctx context.Context, address string) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	c.notifyStateChange(StateDisconnected, StateConnecting)

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.notifyStateChange(StateConnecting, StateDisconnected)
		return fmt.Errorf("dial failed: %w", err)
	}

	c.attach(ctx, conn)
	return nil
}

// Attach adopts an already established network connection.
// Use when the base unit's ethernet adapter is in TCP client mode and
// has dialed in to a local listener.
func (c *Connection) Attach(ctx context.Context, conn net.Conn) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	c.notifyStateChange(StateDisconnected, StateConnecting)
	c.attach(ctx, conn)
	return nil
}

func (c *Connection) attach(ctx context.Context, conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connID = uuid.New().String()
	c.closeDone = make(chan struct{})
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.touch()
	c.startKeepAlive()

	go c.readLoop()

	c.state.Store(int32(StateConnected))
	c.notifyStateChange(StateConnecting, StateConnected)
}

// Send writes raw bytes to the base unit.
func (c *Connection) Send(data []byte) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	c.touch()
	c.logLine(log.DirectionOut, data)
	return nil
}

// Close closes the connection and waits for the read loop to finish.
// It is safe to call Close multiple times.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		currentState := c.State()
		if currentState == StateDisconnected {
			return
		}

		c.state.Store(int32(StateClosing))
		c.notifyStateChange(currentState, StateClosing)

		if c.keepAlive != nil {
			c.keepAlive.Stop()
		}
		if c.cancel != nil {
			c.cancel()
		}

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		done := c.closeDone
		c.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
		if done != nil {
			<-done
		}

		c.state.Store(int32(StateDisconnected))
		c.notifyStateChange(StateClosing, StateDisconnected)
	})

	return nil
}

// LocalAddr returns the local network address.
func (c *Connection) LocalAddr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn != nil {
		return c.conn.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote network address.
func (c *Connection) RemoteAddr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn != nil {
		return c.conn.RemoteAddr()
	}
	return nil
}

// LastActivity returns the time of the last send or receive.
func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

func (c *Connection) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// startKeepAlive begins idle monitoring. The base unit drops
// connections that stay silent, so a NoOp is written after the
// configured idle period.
func (c *Connection) startKeepAlive() {
	c.keepAlive = NewKeepAlive(
		c.config.KeepAlive,
		func() error {
			err := c.Send(protocol.EncodeCommand(protocol.NoOpCommand{}, ""))
			if err == nil {
				c.logControl()
			}
			return err
		},
		c.LastActivity,
	)
	c.keepAlive.Start(c.ctx)
}

// readLoop reads from the connection and decodes frames.
func (c *Connection) readLoop() {
	defer close(c.closeDone)

	buf := make([]byte, 0, c.config.ReadBufferSize)
	tmp := make([]byte, c.config.ReadBufferSize)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		n, err := conn.Read(tmp)
		if n > 0 {
			c.touch()
			buf = append(buf, tmp[:n]...)
			buf = c.drain(buf)
		}
		if err != nil {
			if c.State() == StateClosing || c.ctx.Err() != nil {
				return // Expected during close
			}
			c.handler.OnError(fmt.Errorf("read error: %w", err))
			c.teardown()
			return
		}
	}
}

// drain decodes as many frames as the buffer holds and returns the
// remaining undecoded bytes.
func (c *Connection) drain(buf []byte) []byte {
	for len(buf) > 0 {
		frame, consumed, err := c.decoder.Decode(buf)
		if err != nil {
			// Decode errors resynchronize at the next line. Report
			// and keep going.
			c.logDecodeError(err)
			c.handler.OnError(err)
			buf = buf[consumed:]
			continue
		}
		if consumed == 0 {
			break // Partial line, wait for more data
		}
		c.logLine(log.DirectionIn, buf[:consumed])
		buf = buf[consumed:]
		if frame != nil {
			c.handler.OnFrame(frame)
		}
	}

	// Compact so the backing array does not grow without bound.
	if len(buf) == 0 {
		return buf[:0]
	}
	remaining := make([]byte, len(buf), c.config.ReadBufferSize+len(buf))
	copy(remaining, buf)
	return remaining
}

// teardown force-closes after a fatal read error.
func (c *Connection) teardown() {
	currentState := c.State()

	if c.keepAlive != nil {
		c.keepAlive.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.state.Store(int32(StateDisconnected))
	if currentState != StateDisconnected {
		c.notifyStateChange(currentState, StateDisconnected)
	}
}

// notifyStateChange notifies the handler and logger of state changes.
func (c *Connection) notifyStateChange(oldState, newState ConnectionState) {
	if c.handler != nil {
		c.handler.OnStateChange(oldState, newState)
	}
	if c.config.Logger != nil {
		c.config.Logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.ConnID(),
			Layer:        log.LayerTransport,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: oldState.String(),
				NewState: newState.String(),
			},
		})
	}
}

const maxLoggedLine = 256

func (c *Connection) logLine(direction log.Direction, data []byte) {
	if c.config.Logger == nil {
		return
	}

	line := string(data)
	truncated := false
	if len(line) > maxLoggedLine {
		line = line[:maxLoggedLine]
		truncated = true
	}

	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnID(),
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remoteAddrString(),
		Line: &log.LineEvent{
			Size:      len(data),
			Data:      line,
			Truncated: truncated,
		},
	})
}

func (c *Connection) logControl() {
	if c.config.Logger == nil {
		return
	}

	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnID(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		RemoteAddr:   c.remoteAddrString(),
		Message: &log.MessageEvent{
			Type: log.MessageTypeCommand,
			Text: "!&",
		},
	})
}

func (c *Connection) logDecodeError(err error) {
	if c.config.Logger == nil {
		return
	}

	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerProtocol,
		Category:     log.CategoryError,
		RemoteAddr:   c.remoteAddrString(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerProtocol,
			Message: err.Error(),
			Context: "readLoop",
		},
	})
}

func (c *Connection) remoteAddrString() string {
	if addr := c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
