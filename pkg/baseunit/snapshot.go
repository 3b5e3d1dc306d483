package baseunit

import (
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// Snapshot is an immutable view of the base unit's own state. Device
// state lives in the registry and is obtained through Devices.
type Snapshot struct {
	// State of the controller at the time of the snapshot.
	State ConnectionState

	// ROMVersion is the firmware version string, empty until read.
	ROMVersion string

	// OperationMode is nil until the initial mode query completes.
	OperationMode *protocol.OperationMode

	// BaseUnitState extends the operation mode with the away exit and
	// entry delay states.
	BaseUnitState *protocol.BaseUnitState

	// ExitDelay and EntryDelay are in seconds, nil until read.
	ExitDelay  *int
	EntryDelay *int

	// Switches maps each switch to its last known state. A nil value
	// means the state is unknown, for example when the switch query
	// returned an error.
	Switches map[protocol.SwitchNumber]*bool

	// DeviceCount is the number of devices in the registry.
	DeviceCount int

	At time.Time
}
