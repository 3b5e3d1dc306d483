package protocol

import (
	"fmt"
	"time"
)

// DefaultPort is the TCP port the base unit's ethernet adapter uses
// out of the box.
const DefaultPort = 1680

// Frame markers and command names used on the wire.
const (
	MarkerStart = '!'
	MarkerEnd   = '&'

	CmdClearStatus    = "l5"
	CmdDateTime       = "dt"
	CmdDevByIdxPrefix = "k"
	CmdDevicePrefix   = "i"
	CmdEntryDelay     = "l1"
	CmdEventLog       = "ev"
	CmdExitDelay      = "l0"
	CmdOpMode         = "n0"
	CmdROMVersion     = "vn"
	CmdSensorLog      = "et"
	CmdSwitchPrefix   = "s"

	// Marker the base unit appends to a response when a command failed
	// or addressed something that does not exist.
	ResponseError = "no"
)

// Action is the single character operation selector within a command.
type Action string

const (
	ActionNone Action = ""
	ActionGet  Action = "?"
	ActionSet  Action = "s"
	ActionAdd  Action = "l"
	ActionDel  Action = "k"
)

// Command is a request that can be issued to the base unit. Name identifies
// the command and is also used to associate the response, Action selects the
// operation and Args carries any operands in ASCII hex.
type Command interface {
	Name() string
	Action() Action
	Args() string
}

// EncodeCommand formats a command ready to be sent, appending the base
// unit password when one is configured.
func EncodeCommand(cmd Command, password string) []byte {
	s := string(MarkerStart) + cmd.Name() + string(cmd.Action()) + cmd.Args() +
		password + string(MarkerEnd)
	return []byte(s)
}

// MaskCommand formats a command for logging with the password replaced.
func MaskCommand(cmd Command, password string) string {
	masked := ""
	if password != "" {
		masked = "****"
	}
	return string(MarkerStart) + cmd.Name() + string(cmd.Action()) + cmd.Args() +
		masked + string(MarkerEnd)
}

// NoOpCommand does nothing. It is sent to keep an idle connection alive.
type NoOpCommand struct{}

func (NoOpCommand) Name() string   { return "" }
func (NoOpCommand) Action() Action { return ActionNone }
func (NoOpCommand) Args() string   { return "" }

// GetDateTimeCommand reads the base unit clock.
type GetDateTimeCommand struct{}

func (GetDateTimeCommand) Name() string   { return CmdDateTime }
func (GetDateTimeCommand) Action() Action { return ActionGet }
func (GetDateTimeCommand) Args() string   { return "" }

// SetDateTimeCommand sets the base unit clock.
type SetDateTimeCommand struct {
	// Value to set. The zero value means the current local time.
	Value time.Time
}

func (SetDateTimeCommand) Name() string   { return CmdDateTime }
func (SetDateTimeCommand) Action() Action { return ActionSet }

func (c SetDateTimeCommand) Args() string {
	value := c.Value
	if value.IsZero() {
		value = time.Now()
	}
	return fmt.Sprintf("%s%d%s",
		value.Format("060102"),
		int(value.Weekday()),
		value.Format("1504"))
}

// GetOpModeCommand reads the current operation mode.
type GetOpModeCommand struct{}

func (GetOpModeCommand) Name() string   { return CmdOpMode }
func (GetOpModeCommand) Action() Action { return ActionGet }
func (GetOpModeCommand) Args() string   { return "" }

// SetOpModeCommand changes the operation mode.
type SetOpModeCommand struct {
	Mode OperationMode
}

func (SetOpModeCommand) Name() string   { return CmdOpMode }
func (SetOpModeCommand) Action() Action { return ActionSet }
func (c SetOpModeCommand) Args() string { return ToASCIIHex(int(c.Mode), 1) }

// GetDeviceByIndexCommand reads an enrolled device by its position within
// a category. Used to walk the device inventory.
type GetDeviceByIndexCommand struct {
	Category DeviceCategory
	Index    int
}

func (c GetDeviceByIndexCommand) Name() string {
	return CmdDevByIdxPrefix + string(c.Category.Code)
}
func (GetDeviceByIndexCommand) Action() Action { return ActionGet }
func (c GetDeviceByIndexCommand) Args() string { return ToASCIIHex(c.Index, 2) }

// GetDeviceCommand reads an enrolled device by its zone assignment.
type GetDeviceCommand struct {
	Category    DeviceCategory
	GroupNumber uint8
	UnitNumber  uint8
}

func (c GetDeviceCommand) Name() string {
	return CmdDevicePrefix + string(c.Category.Code)
}
func (GetDeviceCommand) Action() Action { return ActionGet }
func (c GetDeviceCommand) Args() string {
	return ToASCIIHex(int(c.GroupNumber), 2) + ToASCIIHex(int(c.UnitNumber), 2)
}

// AddDeviceCommand puts the base unit into enrollment mode for a category,
// waiting for a new device to announce itself.
type AddDeviceCommand struct {
	Category DeviceCategory
}

func (c AddDeviceCommand) Name() string {
	return CmdDevicePrefix + string(c.Category.Code)
}
func (AddDeviceCommand) Action() Action { return ActionAdd }
func (AddDeviceCommand) Args() string   { return "" }

// ChangeDeviceCommand updates the zone and enable settings of an enrolled
// device, addressed by its index within the category.
type ChangeDeviceCommand struct {
	Category     DeviceCategory
	Index        int
	GroupNumber  uint8
	UnitNumber   uint8
	EnableStatus ESFlags
	Switches     SwitchFlags
}

func (c ChangeDeviceCommand) Name() string {
	return CmdDevicePrefix + string(c.Category.Code)
}
func (ChangeDeviceCommand) Action() Action { return ActionSet }
func (c ChangeDeviceCommand) Args() string {
	return ToASCIIHex(c.Index, 2) +
		ToASCIIHex(int(c.GroupNumber), 2) +
		ToASCIIHex(int(c.UnitNumber), 2) +
		ToASCIIHex(int(c.EnableStatus), 4) +
		ToASCIIHex(int(c.Switches), 4)
}

// ChangeSpecialDeviceCommand updates a special sensor, including its
// reporting behavior and alarm limits.
type ChangeSpecialDeviceCommand struct {
	ChangeDeviceCommand
	CurrentStatus    uint8
	DownCount        uint8
	MessageAttribute uint8
	CurrentReading   *float64
	HighLimit        *float64
	LowLimit         *float64
	SpecialStatus    SSFlags
}

func (c ChangeSpecialDeviceCommand) Args() string {
	return c.ChangeDeviceCommand.Args() +
		ToASCIIHex(int(c.CurrentStatus), 2) +
		ToASCIIHex(int(c.DownCount), 2) +
		ToASCIIHex(EncodeSpecialValue(c.MessageAttribute, c.CurrentReading), 2) +
		ToASCIIHex(EncodeSpecialValue(c.MessageAttribute, c.HighLimit), 2) +
		ToASCIIHex(EncodeSpecialValue(c.MessageAttribute, c.LowLimit), 2) +
		ToASCIIHex(int(c.SpecialStatus), 2)
}

// ChangeSpecial2DeviceCommand extends ChangeSpecialDeviceCommand with the
// control limits supported by newer special sensors.
type ChangeSpecial2DeviceCommand struct {
	ChangeSpecialDeviceCommand
	ControlHighLimit *float64
	ControlLowLimit  *float64
}

func (c ChangeSpecial2DeviceCommand) Args() string {
	return c.ChangeSpecialDeviceCommand.Args() +
		ToASCIIHex(EncodeSpecialValue(c.MessageAttribute, c.ControlHighLimit), 2) +
		ToASCIIHex(EncodeSpecialValue(c.MessageAttribute, c.ControlLowLimit), 2)
}

// DeleteDeviceCommand removes an enrolled device, addressed by its index
// within the category.
type DeleteDeviceCommand struct {
	Category DeviceCategory
	Index    int
}

func (c DeleteDeviceCommand) Name() string {
	return CmdDevicePrefix + string(c.Category.Code)
}
func (DeleteDeviceCommand) Action() Action { return ActionDel }
func (c DeleteDeviceCommand) Args() string { return ToASCIIHex(c.Index, 2) }

// ClearStatusCommand clears the alarm and warning LEDs and stops the siren.
type ClearStatusCommand struct{}

func (ClearStatusCommand) Name() string   { return CmdClearStatus }
func (ClearStatusCommand) Action() Action { return ActionNone }
func (ClearStatusCommand) Args() string   { return "" }

// GetROMVersionCommand reads the firmware version string.
type GetROMVersionCommand struct{}

func (GetROMVersionCommand) Name() string   { return CmdROMVersion }
func (GetROMVersionCommand) Action() Action { return ActionGet }
func (GetROMVersionCommand) Args() string   { return "" }

// GetExitDelayCommand reads the exit delay in seconds.
type GetExitDelayCommand struct{}

func (GetExitDelayCommand) Name() string   { return CmdExitDelay }
func (GetExitDelayCommand) Action() Action { return ActionGet }
func (GetExitDelayCommand) Args() string   { return "" }

// SetExitDelayCommand changes the exit delay. Delay is limited to a byte.
type SetExitDelayCommand struct {
	Seconds int
}

func (SetExitDelayCommand) Name() string   { return CmdExitDelay }
func (SetExitDelayCommand) Action() Action { return ActionSet }
func (c SetExitDelayCommand) Args() string { return ToASCIIHex(c.Seconds, 2) }

// GetEntryDelayCommand reads the entry delay in seconds.
type GetEntryDelayCommand struct{}

func (GetEntryDelayCommand) Name() string   { return CmdEntryDelay }
func (GetEntryDelayCommand) Action() Action { return ActionGet }
func (GetEntryDelayCommand) Args() string   { return "" }

// SetEntryDelayCommand changes the entry delay. Delay is limited to a byte.
type SetEntryDelayCommand struct {
	Seconds int
}

func (SetEntryDelayCommand) Name() string   { return CmdEntryDelay }
func (SetEntryDelayCommand) Action() Action { return ActionSet }
func (c SetEntryDelayCommand) Args() string { return ToASCIIHex(c.Seconds, 2) }

// GetEventLogCommand reads a single entry from the event log.
type GetEventLogCommand struct {
	Index int
}

func (GetEventLogCommand) Name() string   { return CmdEventLog }
func (GetEventLogCommand) Action() Action { return ActionGet }
func (c GetEventLogCommand) Args() string { return ToASCIIHex(c.Index, 3) }

// GetSensorLogCommand reads a single entry from the special sensor log.
type GetSensorLogCommand struct {
	Index int
}

func (GetSensorLogCommand) Name() string   { return CmdSensorLog }
func (GetSensorLogCommand) Action() Action { return ActionGet }
func (c GetSensorLogCommand) Args() string { return ToASCIIHex(c.Index, 3) }

// GetSwitchCommand reads the state of a switch.
type GetSwitchCommand struct {
	Number SwitchNumber
}

func (c GetSwitchCommand) Name() string {
	return CmdSwitchPrefix + ToASCIIHex(int(c.Number), 1)
}
func (GetSwitchCommand) Action() Action { return ActionGet }
func (GetSwitchCommand) Args() string   { return "" }

// SetSwitchCommand turns a switch on or off.
type SetSwitchCommand struct {
	Number SwitchNumber
	State  SwitchState
}

func (c SetSwitchCommand) Name() string {
	return CmdSwitchPrefix + ToASCIIHex(int(c.Number), 1)
}
func (SetSwitchCommand) Action() Action { return ActionSet }
func (c SetSwitchCommand) Args() string { return ToASCIIHex(int(c.State), 1) }
