package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/log"
	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// Dispatcher errors.
var (
	ErrBusy           = errors.New("another command is in flight")
	ErrCommandTimeout = errors.New("command timed out")
	ErrCancelled      = errors.New("command cancelled")
	ErrSessionClosed  = errors.New("session is closed")
)

// DefaultCommandTimeout is the default time to wait for a response.
const DefaultCommandTimeout = 8 * time.Second

// Sender is the interface for writing encoded commands to the base unit.
type Sender interface {
	Send(data []byte) error
}

// EventHandler receives frames that are not the reply to an in-flight
// command: device events, contact id reports and unsolicited responses.
type EventHandler func(frame *protocol.Frame)

// Dispatcher serializes commands to the base unit and correlates each
// response with the command that triggered it. The protocol carries no
// message identifiers; the base unit answers one command at a time and
// replies echo the command name, so a single in-flight slot with
// name matching is the only correlation possible.
type Dispatcher struct {
	sender   Sender
	password string
	timeout  time.Duration
	logger   log.Logger
	connID   string

	mu      sync.Mutex
	pending *pendingCommand
	closed  bool

	handlerMu sync.RWMutex
	onEvent   EventHandler
}

type pendingCommand struct {
	cmd protocol.Command
	ch  chan protocol.Response
}

// Config configures a Dispatcher.
type Config struct {
	// Password appended to every command (usually empty).
	Password string

	// CommandTimeout is the time to wait for a response
	// (default: DefaultCommandTimeout).
	CommandTimeout time.Duration

	// Logger for protocol logging (optional).
	Logger log.Logger

	// ConnID tags log events with the connection identifier.
	ConnID string
}

// NewDispatcher creates a dispatcher writing to the given sender.
func NewDispatcher(sender Sender, config Config) *Dispatcher {
	if config.CommandTimeout == 0 {
		config.CommandTimeout = DefaultCommandTimeout
	}

	return &Dispatcher{
		sender:   sender,
		password: config.Password,
		timeout:  config.CommandTimeout,
		logger:   config.Logger,
		connID:   config.ConnID,
	}
}

// SetEventHandler sets the handler for unsolicited frames.
func (d *Dispatcher) SetEventHandler(handler EventHandler) {
	d.handlerMu.Lock()
	defer d.handlerMu.Unlock()
	d.onEvent = handler
}

// Execute sends a command and waits for its response. Only one command
// may be in flight at a time; a second concurrent call fails with
// ErrBusy rather than queueing.
func (d *Dispatcher) Execute(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	ch := make(chan protocol.Response, 1)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if d.pending != nil {
		d.mu.Unlock()
		return nil, ErrBusy
	}
	d.pending = &pendingCommand{cmd: cmd, ch: ch}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.pending != nil && d.pending.ch == ch {
			d.pending = nil
		}
		d.mu.Unlock()
	}()

	data := protocol.EncodeCommand(cmd, d.password)
	d.logCommand(cmd)

	if err := d.sender.Send(data); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(d.timeout):
		return nil, ErrCommandTimeout
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrCancelled
		}
		return resp, nil
	}
}

// HandleFrame routes a decoded frame. Responses matching the in-flight
// command complete it; everything else goes to the event handler.
func (d *Dispatcher) HandleFrame(frame *protocol.Frame) {
	if frame.Kind == protocol.FrameResponse && frame.Response != nil {
		d.logResponse(frame)

		d.mu.Lock()
		pending := d.pending
		if pending != nil && frame.Response.CommandName() == pending.cmd.Name() {
			d.pending = nil
			d.mu.Unlock()
			pending.ch <- frame.Response
			return
		}
		d.mu.Unlock()
	} else {
		d.logUnsolicited(frame)
	}

	d.handlerMu.RLock()
	handler := d.onEvent
	d.handlerMu.RUnlock()

	if handler != nil {
		handler(frame)
	}
}

// Close fails the in-flight command, if any. Further Execute calls
// return ErrSessionClosed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	if d.pending != nil {
		close(d.pending.ch)
		d.pending = nil
	}
}

func (d *Dispatcher) logCommand(cmd protocol.Command) {
	if d.logger == nil {
		return
	}

	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerSession,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type: log.MessageTypeCommand,
			Name: cmd.Name(),
			Text: protocol.MaskCommand(cmd, d.password),
		},
	})
}

func (d *Dispatcher) logResponse(frame *protocol.Frame) {
	if d.logger == nil {
		return
	}

	d.logger.Log(log.Event{
		Timestamp:    frame.ReceivedAt,
		ConnectionID: d.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type: log.MessageTypeResponse,
			Name: frame.Response.CommandName(),
			Text: frame.Raw,
		},
	})
}

func (d *Dispatcher) logUnsolicited(frame *protocol.Frame) {
	if d.logger == nil {
		return
	}

	msgType := log.MessageTypeDeviceEvent
	deviceID := ""
	switch frame.Kind {
	case protocol.FrameDeviceEvent:
		if frame.Event != nil {
			deviceID = frame.Event.DeviceIDString()
		}
	case protocol.FrameContactID:
		msgType = log.MessageTypeContactID
	default:
		return
	}

	d.logger.Log(log.Event{
		Timestamp:    frame.ReceivedAt,
		ConnectionID: d.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryMessage,
		DeviceID:     deviceID,
		Message: &log.MessageEvent{
			Type: msgType,
			Text: frame.Raw,
		},
	})
}
