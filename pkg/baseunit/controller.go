package baseunit

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/log"
	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
	"github.com/lifesos-protocol/lifesos-go/pkg/registry"
	"github.com/lifesos-protocol/lifesos-go/pkg/session"
	"github.com/lifesos-protocol/lifesos-go/pkg/transport"
)

// Controller errors.
var (
	ErrClosed           = errors.New("controller closed")
	ErrAlreadyStarted   = errors.New("controller already started")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrNotSpecialDevice = errors.New("device is not a special sensor")
)

// enumerateRetries is the number of attempts for each enumeration
// command. The serial link between the base unit and its ethernet
// adapter is unshielded and drops the odd response.
const enumerateRetries = 3

// Config configures a Controller.
type Config struct {
	// Host and Port of the base unit's ethernet adapter. Ignored in
	// listen mode.
	Host string
	Port int

	// Password appended to commands, empty when the base unit has none.
	Password string

	// ListenMode waits for the base unit to dial in instead of
	// connecting out. The ethernet adapter supports either direction.
	ListenMode    bool
	ListenAddress string

	// SkipEnumerateOnAccept goes straight to monitoring when a base
	// unit dials in, without walking the device inventory first.
	SkipEnumerateOnAccept bool

	// CommandTimeout is the time to wait for each command response.
	CommandTimeout time.Duration

	// Reconnect backoff. Zero values use the package defaults.
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration

	// MaxReconnectAttempts bounds consecutive failed attempts before
	// the controller gives up and closes (0 = unlimited).
	MaxReconnectAttempts int

	// SubscriptionBuffer is the per-subscriber channel capacity
	// (default: DefaultSubscriptionBuffer).
	SubscriptionBuffer int

	// Logger for protocol logging (optional).
	Logger log.Logger
}

// Controller owns one connection to one base unit and all the mutable
// state derived from it. Independent controllers never share state, so
// an application can monitor several base units side by side.
type Controller struct {
	config Config
	logger log.Logger

	registry *registry.Registry

	// Current session. Replaced on every reconnect.
	sessMu     sync.RWMutex
	conn       *transport.Connection
	dispatcher *session.Dispatcher

	listener *transport.Listener
	accepted chan net.Conn

	state atomic.Int32

	// Base unit fields, guarded by mu.
	mu         sync.Mutex
	romVersion string
	opMode     *protocol.OperationMode
	buState    *protocol.BaseUnitState
	exitDelay  *int
	entryDelay *int
	switches   map[protocol.SwitchNumber]*bool

	subsMu     sync.Mutex
	subs       map[*Subscription]struct{}
	subsClosed bool

	backoff *Backoff

	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewController creates a controller. Call Start to connect.
func NewController(config Config) *Controller {
	if config.Port == 0 {
		config.Port = protocol.DefaultPort
	}
	if config.CommandTimeout == 0 {
		config.CommandTimeout = session.DefaultCommandTimeout
	}
	if config.SubscriptionBuffer <= 0 {
		config.SubscriptionBuffer = DefaultSubscriptionBuffer
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	c := &Controller{
		config:   config,
		logger:   logger,
		registry: registry.NewRegistry(),
		switches: make(map[protocol.SwitchNumber]*bool),
		subs:     make(map[*Subscription]struct{}),
		backoff: NewBackoffWithConfig(BackoffConfig{
			Initial: config.ReconnectInitialDelay,
			Max:     config.ReconnectMaxDelay,
		}),
		accepted: make(chan net.Conn, 1),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// Start begins connecting. The context bounds the controller's life;
// cancelling it is equivalent to Close.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if c.State() == StateClosed {
		return ErrClosed
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	if c.config.ListenMode {
		listener, err := transport.NewListener(transport.ListenerConfig{
			Address:      c.config.ListenAddress,
			Logger:       c.logger,
			OnConnection: c.handleAccept,
		})
		if err != nil {
			return err
		}
		if err := listener.Start(c.ctx); err != nil {
			return err
		}
		c.listener = listener
		c.wg.Add(1)
		go c.runListen()
		return nil
	}

	c.wg.Add(1)
	go c.runDial()
	return nil
}

// Close shuts down the controller. Pending commands fail with
// session.ErrCancelled and every subscription channel is closed.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.setState(StateClosed)
		c.teardownSession()
		if c.listener != nil {
			c.listener.Stop()
		}
		c.closeSubs()
	})
	return nil
}

// State returns the current controller state.
func (c *Controller) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Available reports whether the controller is in the monitoring state
// and its data can be considered fresh.
func (c *Controller) Available() bool {
	return c.State() == StateMonitoring
}

// ListenAddr returns the bound address in listen mode, nil otherwise
// or before Start.
func (c *Controller) ListenAddr() net.Addr {
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// Snapshot returns an immutable view of the base unit state.
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// GetDevice returns a copy of the device with the given id.
func (c *Controller) GetDevice(deviceID uint32) (*registry.Device, bool) {
	return c.registry.Get(deviceID)
}

// Devices returns a copy of the device inventory, ordered by device id.
func (c *Controller) Devices() []*registry.Device {
	snap := c.registry.Snapshot()
	devices := make([]*registry.Device, 0, len(snap))
	for _, d := range snap {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].DeviceID < devices[j].DeviceID
	})
	return devices
}

// Subscribe registers a notification stream. A non-positive buffer uses
// the configured default.
func (c *Controller) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = c.config.SubscriptionBuffer
	}
	sub := &Subscription{
		ch:     make(chan Notification, buffer),
		cancel: c.cancelSub,
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.subsClosed {
		close(sub.ch)
		return sub
	}
	c.subs[sub] = struct{}{}
	return sub
}

func (c *Controller) cancelSub(sub *Subscription) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if _, ok := c.subs[sub]; ok {
		delete(c.subs, sub)
		close(sub.ch)
	}
}

func (c *Controller) publish(n Notification) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for sub := range c.subs {
		sub.publish(n)
	}
}

func (c *Controller) closeSubs() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.subsClosed {
		return
	}
	c.subsClosed = true
	for sub := range c.subs {
		delete(c.subs, sub)
		close(sub.ch)
	}
}

//
// Lifecycle
//

func (c *Controller) runDial() {
	defer c.wg.Done()

	address := net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
	for {
		if c.ctx.Err() != nil {
			return
		}
		c.setState(StateConnecting)

		conn, dispatcher, lost := c.newSession()
		if err := conn.Connect(c.ctx, address); err != nil {
			dispatcher.Close()
			if !c.backoffWait() {
				c.giveUp()
				return
			}
			continue
		}
		if !c.serve(conn, dispatcher, lost, true) {
			return
		}
		if !c.backoffWait() {
			c.giveUp()
			return
		}
	}
}

func (c *Controller) runListen() {
	defer c.wg.Done()

	for {
		c.setState(StateConnecting)
		select {
		case <-c.ctx.Done():
			return
		case netConn := <-c.accepted:
			conn, dispatcher, lost := c.newSession()
			if err := conn.Attach(c.ctx, netConn); err != nil {
				dispatcher.Close()
				netConn.Close()
				continue
			}
			if !c.serve(conn, dispatcher, lost, !c.config.SkipEnumerateOnAccept) {
				return
			}
		}
	}
}

func (c *Controller) handleAccept(conn net.Conn) {
	select {
	case c.accepted <- conn:
		return
	default:
	}
	// A newer connection supersedes one we have not picked up yet.
	select {
	case stale := <-c.accepted:
		stale.Close()
	default:
	}
	select {
	case c.accepted <- conn:
	default:
		conn.Close()
	}
}

// newSession builds a connection and dispatcher pair for one attempt.
// The returned channel fires when this session's transport drops; it
// belongs to the session so a loss can never be mistaken for a stale
// signal from an earlier one.
func (c *Controller) newSession() (*transport.Connection, *session.Dispatcher, <-chan struct{}) {
	handler := &connHandler{
		controller: c,
		lost:       make(chan struct{}, 1),
	}
	conn := transport.NewConnection(transport.ConnectionConfig{
		KeepAlive: transport.DefaultKeepAliveConfig(),
		Logger:    c.logger,
	}, handler)
	dispatcher := session.NewDispatcher(conn, session.Config{
		Password:       c.config.Password,
		CommandTimeout: c.config.CommandTimeout,
		Logger:         c.logger,
	})
	dispatcher.SetEventHandler(c.handleUnsolicited)
	handler.dispatcher = dispatcher
	return conn, dispatcher, handler.lost
}

// serve runs enumeration and monitoring on an established connection.
// Returns false when the controller is shutting down.
func (c *Controller) serve(conn *transport.Connection, dispatcher *session.Dispatcher, lost <-chan struct{}, enumerate bool) bool {
	c.installSession(conn, dispatcher)
	defer c.teardownSession()

	if enumerate {
		c.setState(StateEnumerating)
		c.registry.Reset()
		if err := c.enumerate(c.ctx); err != nil {
			return c.ctx.Err() == nil
		}
	}

	c.backoff.Reset()
	c.setState(StateMonitoring)

	select {
	case <-lost:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Controller) installSession(conn *transport.Connection, dispatcher *session.Dispatcher) {
	c.sessMu.Lock()
	c.conn = conn
	c.dispatcher = dispatcher
	c.sessMu.Unlock()
}

func (c *Controller) teardownSession() {
	c.sessMu.Lock()
	conn, dispatcher := c.conn, c.dispatcher
	c.conn, c.dispatcher = nil, nil
	c.sessMu.Unlock()

	if dispatcher != nil {
		dispatcher.Close()
	}
	if conn != nil {
		conn.Close()
	}
}

// backoffWait sits out the backoff delay. Returns false when the retry
// budget is exhausted or the controller is shutting down.
func (c *Controller) backoffWait() bool {
	if max := c.config.MaxReconnectAttempts; max > 0 && c.backoff.Attempts() >= max {
		return false
	}
	c.setState(StateReconnecting)

	select {
	case <-time.After(c.backoff.Next()):
		return true
	case <-c.ctx.Done():
		return false
	}
}

// giveUp is the terminal failure path when reconnect attempts are
// exhausted. The Closed transition is the final notification.
func (c *Controller) giveUp() {
	if c.ctx.Err() != nil {
		return
	}
	c.Close()
}

func (c *Controller) setState(newState ConnectionState) {
	oldState := ConnectionState(c.state.Swap(int32(newState)))
	if oldState == newState {
		return
	}

	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityController,
			OldState: oldState.String(),
			NewState: newState.String(),
		},
	})

	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(Notification{
		Kind:     KindConnectionState,
		State:    newState,
		Snapshot: snap,
		At:       time.Now(),
	})
}

func (c *Controller) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		State:       c.State(),
		ROMVersion:  c.romVersion,
		DeviceCount: c.registry.Count(),
		Switches:    make(map[protocol.SwitchNumber]*bool, len(c.switches)),
		At:          time.Now(),
	}
	if c.opMode != nil {
		mode := *c.opMode
		snap.OperationMode = &mode
	}
	if c.buState != nil {
		state := *c.buState
		snap.BaseUnitState = &state
	}
	if c.exitDelay != nil {
		v := *c.exitDelay
		snap.ExitDelay = &v
	}
	if c.entryDelay != nil {
		v := *c.entryDelay
		snap.EntryDelay = &v
	}
	for number, on := range c.switches {
		if on == nil {
			snap.Switches[number] = nil
			continue
		}
		v := *on
		snap.Switches[number] = &v
	}
	return snap
}

// mutate runs fn under the base unit lock and publishes one
// base-unit-changed notification when fn reports a change.
func (c *Controller) mutate(at time.Time, fn func() bool) {
	c.mu.Lock()
	changed := fn()
	var snap *Snapshot
	if changed {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if changed {
		c.publish(Notification{Kind: KindBaseUnitChanged, Snapshot: snap, At: at})
	}
}

//
// Connection events
//

// connHandler adapts one transport connection to the controller. A
// fresh handler is created per session so frames from a dying
// connection cannot reach a newer dispatcher.
type connHandler struct {
	controller *Controller
	dispatcher *session.Dispatcher
	lost       chan struct{}
}

func (h *connHandler) OnFrame(frame *protocol.Frame) {
	h.dispatcher.HandleFrame(frame)
}

func (h *connHandler) OnStateChange(oldState, newState transport.ConnectionState) {
	if newState != transport.StateDisconnected {
		return
	}
	select {
	case h.lost <- struct{}{}:
	default:
	}
}

func (h *connHandler) OnError(err error) {
	var protoErr *protocol.ProtocolError
	if errors.As(err, &protoErr) {
		// Already logged by the connection; decoding has resumed.
		return
	}
	h.controller.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
		},
	})
}
