package baseunit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
	"github.com/lifesos-protocol/lifesos-go/pkg/registry"
)

// NotificationKind discriminates the notifications a Controller emits.
type NotificationKind uint8

const (
	// KindConnectionState reports a controller state transition.
	KindConnectionState NotificationKind = iota

	// KindDeviceAdded reports a device first seen in the registry.
	KindDeviceAdded

	// KindDeviceChanged reports a device attribute change.
	KindDeviceChanged

	// KindDeviceRemoved reports a device deleted from the base unit.
	KindDeviceRemoved

	// KindBaseUnitChanged reports a change to the base unit itself:
	// operation mode, state, delays, ROM version or a switch.
	KindBaseUnitChanged

	// KindEvent carries a raw device event or contact id frame.
	KindEvent
)

func (k NotificationKind) String() string {
	switch k {
	case KindConnectionState:
		return "ConnectionState"
	case KindDeviceAdded:
		return "DeviceAdded"
	case KindDeviceChanged:
		return "DeviceChanged"
	case KindDeviceRemoved:
		return "DeviceRemoved"
	case KindBaseUnitChanged:
		return "BaseUnitChanged"
	case KindEvent:
		return "Event"
	default:
		return fmt.Sprintf("NotificationKind(%d)", uint8(k))
	}
}

// Notification is a single update delivered to subscribers. Only the
// fields relevant to the Kind are populated.
type Notification struct {
	Kind NotificationKind
	At   time.Time

	// State is set for KindConnectionState.
	State ConnectionState

	// Snapshot is set for KindConnectionState and KindBaseUnitChanged.
	Snapshot *Snapshot

	// Device is set for the device kinds.
	Device *registry.Device

	// Change is set for KindDeviceAdded and KindDeviceChanged.
	Change *registry.DeviceChange

	// Frame is set for KindEvent.
	Frame *protocol.Frame
}

// DefaultSubscriptionBuffer is the channel capacity used when Subscribe
// is called with a non-positive buffer size.
const DefaultSubscriptionBuffer = 64

// Subscription is a handle to a stream of notifications. Each
// subscription has its own bounded buffer; when it is full, further
// notifications are dropped for that subscriber and counted, so a slow
// consumer never blocks the read loop.
type Subscription struct {
	ch      chan Notification
	dropped atomic.Uint64

	once sync.Once

	// cancel removes the subscription from the controller and closes
	// the channel, serialized against publishers.
	cancel func(*Subscription)
}

// C returns the notification channel. It is closed when the
// subscription is cancelled or the controller closes.
func (s *Subscription) C() <-chan Notification {
	return s.ch
}

// Dropped returns the number of notifications dropped because the
// buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Cancel removes the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel(s)
	})
}

func (s *Subscription) publish(n Notification) {
	select {
	case s.ch <- n:
	default:
		s.dropped.Add(1)
	}
}
