package registry

import (
	"fmt"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// Device is the observed state of an enrolled device.
type Device struct {
	DeviceID  uint32
	Category  protocol.DeviceCategory
	Type      protocol.DeviceType
	TypeValue uint8

	// Index within the category on the base unit. Needed to delete the
	// device, and goes stale when devices above it are removed.
	Index    int
	HasIndex bool

	GroupNumber uint8
	UnitNumber  uint8

	MessageAttribute uint8
	Characteristics  protocol.DCFlags
	EnableStatus     protocol.ESFlags
	Switches         protocol.SwitchFlags

	RSSIDB   int
	RSSIBars int

	// IsClosed is the magnet sensor state. Nil for other device types.
	IsClosed *bool

	// Special holds the readings of special sensors. Nil for others.
	Special *SpecialState

	// Enrolled is false for devices only seen through events so far,
	// before enumeration has confirmed them.
	Enrolled bool

	// LastUpdated is when the most recently applied frame was received.
	LastUpdated time.Time
}

// SpecialState holds the readings and limits of a special sensor.
type SpecialState struct {
	CurrentReading *float64
	HighLimit      *float64
	LowLimit       *float64
	Status         protocol.SSFlags

	// Control limits only exist on LS-10 and LS-20 units.
	ControlHighLimit *float64
	ControlLowLimit  *float64
	HasControlLimits bool
}

// Zone is the group and unit the device is assigned to, e.g. "01-03".
func (d *Device) Zone() string {
	return fmt.Sprintf("%02x-%02x", d.GroupNumber, d.UnitNumber)
}

// DeviceIDString returns the device id in its 6 digit hex form.
func (d *Device) DeviceIDString() string {
	return fmt.Sprintf("%06x", d.DeviceID)
}

func (d *Device) String() string {
	return fmt.Sprintf("device %s (%s) zone %s", d.DeviceIDString(), d.Type, d.Zone())
}

// clone returns a deep copy.
func (d *Device) clone() *Device {
	c := *d
	c.IsClosed = cloneBool(d.IsClosed)
	if d.Special != nil {
		s := *d.Special
		s.CurrentReading = cloneFloat(d.Special.CurrentReading)
		s.HighLimit = cloneFloat(d.Special.HighLimit)
		s.LowLimit = cloneFloat(d.Special.LowLimit)
		s.ControlHighLimit = cloneFloat(d.Special.ControlHighLimit)
		s.ControlLowLimit = cloneFloat(d.Special.ControlLowLimit)
		c.Special = &s
	}
	return &c
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// categoryForType infers the category of a device first seen through an
// event, before enumeration has placed it. The grouping follows how the
// base unit enrolls each device type.
func categoryForType(t protocol.DeviceType) protocol.DeviceCategory {
	switch t {
	case protocol.DeviceTypeSmokeDetector, protocol.DeviceTypeGasDetector,
		protocol.DeviceTypeCODetector:
		return protocol.CategoryFire
	case protocol.DeviceTypeMedicalButton, protocol.DeviceTypeInactivityReport:
		return protocol.CategoryMedical
	case protocol.DeviceTypeRemoteController, protocol.DeviceTypeKeyPad,
		protocol.DeviceTypeXKeyPad:
		return protocol.CategoryController
	default:
		if t.HasSpecialReadings() {
			return protocol.CategorySpecial
		}
		return protocol.CategoryBurglar
	}
}
