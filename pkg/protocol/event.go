package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefixes of the unsolicited lines the base unit emits.
const (
	DeviceEventPrefix     = "MINPIC="
	unenrolledEventPrefix = "XINPIC="
	sensorLogEntryPrefix  = "[" + CmdSensorLog
	x10ErrorLine          = "X10 ERR"
)

// DeviceEvent is an unsolicited event from an enrolled device, such as a
// sensor trigger, heartbeat or low battery report.
type DeviceEvent struct {
	EventCodeValue uint16
	EventCode      DeviceEventCode
	TypeValue      uint8
	Type           DeviceType
	DeviceID       uint32

	MessageAttribute uint8
	Characteristics  DCFlags

	// Multi purpose field holding the RSSI reading and the magnet sensor
	// flag. Use RSSIDB, RSSIBars or IsClosed instead.
	CurrentStatus uint8

	// Only present for special sensors. The base unit appears to emit
	// whatever is left in its buffer for other device types, so the value
	// is only decoded when the event carries a reading.
	CurrentReading *float64
}

// RSSIDB is the received signal strength in dB.
func (e *DeviceEvent) RSSIDB() int { return rssiDB(e.CurrentStatus) }

// RSSIBars converts the signal strength into 0 to 4 bars.
func (e *DeviceEvent) RSSIBars() int { return rssiBars(e.CurrentStatus) }

// DeviceIDString returns the device id in its 6 digit hex form.
func (e *DeviceEvent) DeviceIDString() string { return fmt.Sprintf("%06x", e.DeviceID) }

// IsClosed reports the magnet sensor state. Nil for other device types.
func (e *DeviceEvent) IsClosed() *bool {
	if e.Type != DeviceTypeDoorMagnet {
		return nil
	}
	closed := e.CurrentStatus&0x01 != 0
	return &closed
}

func (e *DeviceEvent) String() string {
	return fmt.Sprintf("device %06x (%s): %s, rssi %d dB",
		e.DeviceID, e.Type, e.EventCode, e.RSSIDB())
}

// ParseDeviceEvent parses a MINPIC line into a DeviceEvent.
func ParseDeviceEvent(line string) (*DeviceEvent, error) {
	if !strings.HasPrefix(line, DeviceEventPrefix) {
		return nil, fmt.Errorf("not a device event line: %q", line)
	}
	if len(line) < 25 {
		return nil, fmt.Errorf("device event length %d is invalid", len(line))
	}
	hexAt := func(from, to int) (uint64, error) {
		return strconv.ParseUint(line[from:to], 16, 32)
	}
	eventCode, err := hexAt(7, 11)
	if err != nil {
		return nil, fmt.Errorf("invalid event code: %w", err)
	}
	typeValue, err := hexAt(11, 13)
	if err != nil {
		return nil, fmt.Errorf("invalid device type: %w", err)
	}
	deviceID, err := hexAt(13, 19)
	if err != nil {
		return nil, fmt.Errorf("invalid device id: %w", err)
	}
	messageAttr, err := hexAt(19, 21)
	if err != nil {
		return nil, fmt.Errorf("invalid message attribute: %w", err)
	}
	characteristics, err := hexAt(21, 23)
	if err != nil {
		return nil, fmt.Errorf("invalid device characteristics: %w", err)
	}
	currentStatus, err := hexAt(23, 25)
	if err != nil {
		return nil, fmt.Errorf("invalid current status: %w", err)
	}

	e := &DeviceEvent{
		EventCodeValue:   uint16(eventCode),
		EventCode:        DeviceEventCode(eventCode),
		TypeValue:        uint8(typeValue),
		Type:             DeviceType(typeValue),
		DeviceID:         uint32(deviceID),
		MessageAttribute: uint8(messageAttr),
		Characteristics:  DCFlags(characteristics),
		CurrentStatus:    uint8(currentStatus),
	}
	if len(line) > 27 {
		reading, err := hexAt(27, 29)
		if err != nil {
			return nil, fmt.Errorf("invalid current reading: %w", err)
		}
		e.CurrentReading = DecodeSpecialValue(e.MessageAttribute, int(reading))
	}
	return e, nil
}
