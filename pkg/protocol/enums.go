package protocol

import (
	"fmt"
	"strings"
)

// OperationMode is the arming mode of the base unit.
type OperationMode uint8

const (
	OperationModeDisarm  OperationMode = 0x0
	OperationModeHome    OperationMode = 0x1
	OperationModeAway    OperationMode = 0x2
	OperationModeMonitor OperationMode = 0x8
)

func (m OperationMode) String() string {
	switch m {
	case OperationModeDisarm:
		return "Disarm"
	case OperationModeHome:
		return "Home"
	case OperationModeAway:
		return "Away"
	case OperationModeMonitor:
		return "Monitor"
	default:
		return fmt.Sprintf("OperationMode(0x%x)", uint8(m))
	}
}

// IsValid reports whether the value is one of the modes the base unit accepts.
func (m OperationMode) IsValid() bool {
	switch m {
	case OperationModeDisarm, OperationModeHome, OperationModeAway, OperationModeMonitor:
		return true
	default:
		return false
	}
}

// BaseUnitState is the high level state of the base unit. It extends
// OperationMode with two transitional delay states that only exist on the
// client side, inferred from device events and Contact ID messages.
type BaseUnitState uint8

const (
	BaseUnitStateDisarm  BaseUnitState = 0x0
	BaseUnitStateHome    BaseUnitState = 0x1
	BaseUnitStateAway    BaseUnitState = 0x2
	BaseUnitStateMonitor BaseUnitState = 0x8

	BaseUnitStateAwayExitDelay  BaseUnitState = 0x10
	BaseUnitStateAwayEntryDelay BaseUnitState = 0x11
)

func (s BaseUnitState) String() string {
	switch s {
	case BaseUnitStateDisarm:
		return "Disarm"
	case BaseUnitStateHome:
		return "Home"
	case BaseUnitStateAway:
		return "Away"
	case BaseUnitStateMonitor:
		return "Monitor"
	case BaseUnitStateAwayExitDelay:
		return "AwayExitDelay"
	case BaseUnitStateAwayEntryDelay:
		return "AwayEntryDelay"
	default:
		return fmt.Sprintf("BaseUnitState(0x%x)", uint8(s))
	}
}

// BaseUnitStateForMode maps an operation mode onto the corresponding state.
func BaseUnitStateForMode(m OperationMode) BaseUnitState {
	return BaseUnitState(m)
}

// DeviceType identifies the hardware model of an enrolled device.
type DeviceType uint8

const (
	DeviceTypeHumidSensor      DeviceType = 0x01
	DeviceTypeHumidSensor2     DeviceType = 0x02
	DeviceTypeTempSensor       DeviceType = 0x03
	DeviceTypeTempSensor2      DeviceType = 0x04
	DeviceTypeFloodDetector    DeviceType = 0x05
	DeviceTypeFloodDetector2   DeviceType = 0x06
	DeviceTypeMedicalButton    DeviceType = 0x08
	DeviceTypeLightSensor      DeviceType = 0x0a
	DeviceTypeLightDetector    DeviceType = 0x0b
	DeviceTypeInactivityReport DeviceType = 0x0c
	DeviceTypeAnalogSensor     DeviceType = 0x0e
	DeviceTypeAnalogSensor2    DeviceType = 0x0f
	DeviceTypeRemoteController DeviceType = 0x10
	DeviceTypeCardReader       DeviceType = 0x12
	DeviceTypeKeyPad           DeviceType = 0x18
	DeviceTypeXKeyPad          DeviceType = 0x19
	DeviceTypeSmokeDetector    DeviceType = 0x20
	DeviceTypePressureSensor   DeviceType = 0x22
	DeviceTypePressureSensor2  DeviceType = 0x23
	DeviceTypeCODetector       DeviceType = 0x25
	DeviceTypeCO2Sensor        DeviceType = 0x26
	DeviceTypeCO2Sensor2       DeviceType = 0x27
	DeviceTypeACCurrentMeter   DeviceType = 0x28
	DeviceTypeACCurrentMeter2  DeviceType = 0x29
	DeviceTypeThreePhaseACMeter DeviceType = 0x2b
	DeviceTypeGasDetector      DeviceType = 0x30
	DeviceTypeDoorMagnet       DeviceType = 0x40
	DeviceTypeRepeater         DeviceType = 0x41
	DeviceTypeVibrationSensor  DeviceType = 0x42
	DeviceTypePIRSensor        DeviceType = 0x50
	DeviceTypeStatusIndicator  DeviceType = 0x56
	DeviceTypeRepeater2        DeviceType = 0x57
	DeviceTypeGlassBreakDetector DeviceType = 0x60
	DeviceTypeRemoteSiren      DeviceType = 0x70
	DeviceTypeBaseUnit         DeviceType = 0x80
	DeviceTypeRFBell           DeviceType = 0x90
	DeviceTypeRFSW             DeviceType = 0xa0
	DeviceTypeRWSWOnTime       DeviceType = 0xa1
	DeviceTypeRFSiren          DeviceType = 0xc0
	DeviceTypeRFSirenOnTime    DeviceType = 0xc1
)

var deviceTypeNames = map[DeviceType]string{
	DeviceTypeHumidSensor:       "HumidSensor",
	DeviceTypeHumidSensor2:      "HumidSensor2",
	DeviceTypeTempSensor:        "TempSensor",
	DeviceTypeTempSensor2:       "TempSensor2",
	DeviceTypeFloodDetector:     "FloodDetector",
	DeviceTypeFloodDetector2:    "FloodDetector2",
	DeviceTypeMedicalButton:     "MedicalButton",
	DeviceTypeLightSensor:       "LightSensor",
	DeviceTypeLightDetector:     "LightDetector",
	DeviceTypeInactivityReport:  "InactivityReport",
	DeviceTypeAnalogSensor:      "AnalogSensor",
	DeviceTypeAnalogSensor2:     "AnalogSensor2",
	DeviceTypeRemoteController:  "RemoteController",
	DeviceTypeCardReader:        "CardReader",
	DeviceTypeKeyPad:            "KeyPad",
	DeviceTypeXKeyPad:           "XKeyPad",
	DeviceTypeSmokeDetector:     "SmokeDetector",
	DeviceTypePressureSensor:    "PressureSensor",
	DeviceTypePressureSensor2:   "PressureSensor2",
	DeviceTypeCODetector:        "CODetector",
	DeviceTypeCO2Sensor:         "CO2Sensor",
	DeviceTypeCO2Sensor2:        "CO2Sensor2",
	DeviceTypeACCurrentMeter:    "ACCurrentMeter",
	DeviceTypeACCurrentMeter2:   "ACCurrentMeter2",
	DeviceTypeThreePhaseACMeter: "ThreePhaseACMeter",
	DeviceTypeGasDetector:       "GasDetector",
	DeviceTypeDoorMagnet:        "DoorMagnet",
	DeviceTypeRepeater:          "Repeater",
	DeviceTypeVibrationSensor:   "VibrationSensor",
	DeviceTypePIRSensor:         "PIRSensor",
	DeviceTypeStatusIndicator:   "StatusIndicator",
	DeviceTypeRepeater2:         "Repeater2",
	DeviceTypeGlassBreakDetector: "GlassBreakDetector",
	DeviceTypeRemoteSiren:       "RemoteSiren",
	DeviceTypeBaseUnit:          "BaseUnit",
	DeviceTypeRFBell:            "RFBell",
	DeviceTypeRFSW:              "RFSW",
	DeviceTypeRWSWOnTime:        "RWSWOnTime",
	DeviceTypeRFSiren:           "RFSiren",
	DeviceTypeRFSirenOnTime:     "RFSirenOnTime",
}

func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DeviceType(0x%02x)", uint8(t))
}

// IsKnown reports whether the type value is in the documented catalog.
// Unrecognized values are still carried through untouched.
func (t DeviceType) IsKnown() bool {
	_, ok := deviceTypeNames[t]
	return ok
}

// HasSpecialReadings reports whether devices of this type report analog
// readings and limit values in their extended fields.
func (t DeviceType) HasSpecialReadings() bool {
	switch t {
	case DeviceTypeHumidSensor, DeviceTypeHumidSensor2,
		DeviceTypeTempSensor, DeviceTypeTempSensor2,
		DeviceTypeFloodDetector, DeviceTypeFloodDetector2,
		DeviceTypeLightSensor, DeviceTypeLightDetector,
		DeviceTypeAnalogSensor, DeviceTypeAnalogSensor2,
		DeviceTypeACCurrentMeter, DeviceTypeACCurrentMeter2,
		DeviceTypeThreePhaseACMeter,
		DeviceTypePressureSensor, DeviceTypePressureSensor2,
		DeviceTypeCO2Sensor, DeviceTypeCO2Sensor2:
		return true
	default:
		return false
	}
}

// DeviceEventCode is the event reported by a device in a MINPIC line.
type DeviceEventCode uint16

const (
	DeviceEventButton       DeviceEventCode = 0x0a01
	DeviceEventAway         DeviceEventCode = 0x0a10
	DeviceEventDisarm       DeviceEventCode = 0x0a14
	DeviceEventHome         DeviceEventCode = 0x0a18
	DeviceEventHeartbeat    DeviceEventCode = 0x0a20
	DeviceEventReading      DeviceEventCode = 0x0a24
	DeviceEventPowerOnReset DeviceEventCode = 0x0a2a
	DeviceEventBatteryLow   DeviceEventCode = 0x0a30
	DeviceEventDisplay      DeviceEventCode = 0x0a33
	DeviceEventOpen         DeviceEventCode = 0x0a40
	DeviceEventClose        DeviceEventCode = 0x0a48
	DeviceEventTamper       DeviceEventCode = 0x0a50
	DeviceEventTrigger      DeviceEventCode = 0x0a58
	DeviceEventPanic        DeviceEventCode = 0x0a60
)

func (c DeviceEventCode) String() string {
	switch c {
	case DeviceEventButton:
		return "Button"
	case DeviceEventAway:
		return "Away"
	case DeviceEventDisarm:
		return "Disarm"
	case DeviceEventHome:
		return "Home"
	case DeviceEventHeartbeat:
		return "Heartbeat"
	case DeviceEventReading:
		return "Reading"
	case DeviceEventPowerOnReset:
		return "PowerOnReset"
	case DeviceEventBatteryLow:
		return "BatteryLow"
	case DeviceEventDisplay:
		return "Display"
	case DeviceEventOpen:
		return "Open"
	case DeviceEventClose:
		return "Close"
	case DeviceEventTamper:
		return "Tamper"
	case DeviceEventTrigger:
		return "Trigger"
	case DeviceEventPanic:
		return "Panic"
	default:
		return fmt.Sprintf("DeviceEventCode(0x%04x)", uint16(c))
	}
}

// DCFlags are the device characteristics reported during enrollment and
// in every device event.
type DCFlags uint8

const (
	DCRepeater    DCFlags = 0x80
	DCBaseUnit    DCFlags = 0x40
	DCTwoWay      DCFlags = 0x20
	DCSupervisory DCFlags = 0x10
	DCRFVoice     DCFlags = 0x08
)

func (f DCFlags) Has(flag DCFlags) bool { return f&flag != 0 }

func (f DCFlags) String() string {
	return flagString(uint16(f), []flagName{
		{uint16(DCRepeater), "Repeater"},
		{uint16(DCBaseUnit), "BaseUnit"},
		{uint16(DCTwoWay), "TwoWay"},
		{uint16(DCSupervisory), "Supervisory"},
		{uint16(DCRFVoice), "RFVoice"},
	})
}

// ESFlags are the enable settings of an enrolled device.
type ESFlags uint16

const (
	ESBypass     ESFlags = 0x8000
	ESDelay      ESFlags = 0x4000
	ESHour24     ESFlags = 0x2000
	ESHomeGuard  ESFlags = 0x1000
	ESPreWarning ESFlags = 0x0800
	ESAlarmSiren ESFlags = 0x0400
	ESBell       ESFlags = 0x0200
	ESLatchkey   ESFlags = 0x0100
	// ESInactivity shares the Latchkey bit. The meaning depends on the
	// device type.
	ESInactivity ESFlags = 0x0100
	ESTwoWay     ESFlags = 0x0020
	ESSupervised ESFlags = 0x0010
	ESRFVoice    ESFlags = 0x0008
	ESHomeAuto   ESFlags = 0x0004
)

func (f ESFlags) Has(flag ESFlags) bool { return f&flag != 0 }

func (f ESFlags) String() string {
	return flagString(uint16(f), []flagName{
		{uint16(ESBypass), "Bypass"},
		{uint16(ESDelay), "Delay"},
		{uint16(ESHour24), "Hour24"},
		{uint16(ESHomeGuard), "HomeGuard"},
		{uint16(ESPreWarning), "PreWarning"},
		{uint16(ESAlarmSiren), "AlarmSiren"},
		{uint16(ESBell), "Bell"},
		{uint16(ESLatchkey), "Latchkey"},
		{uint16(ESTwoWay), "TwoWay"},
		{uint16(ESSupervised), "Supervised"},
		{uint16(ESRFVoice), "RFVoice"},
		{uint16(ESHomeAuto), "HomeAuto"},
	})
}

// SSFlags are the status flags of a special sensor.
type SSFlags uint8

const (
	SSControlAlarm     SSFlags = 0x80
	SSHighLowOperation SSFlags = 0x40
	SSHighTriggered    SSFlags = 0x20
	SSLowTriggered     SSFlags = 0x10
	SSHighState        SSFlags = 0x08
	SSLowState         SSFlags = 0x04
)

func (f SSFlags) Has(flag SSFlags) bool { return f&flag != 0 }

func (f SSFlags) String() string {
	return flagString(uint16(f), []flagName{
		{uint16(SSControlAlarm), "ControlAlarm"},
		{uint16(SSHighLowOperation), "HighLowOperation"},
		{uint16(SSHighTriggered), "HighTriggered"},
		{uint16(SSLowTriggered), "LowTriggered"},
		{uint16(SSHighState), "HighState"},
		{uint16(SSLowState), "LowState"},
	})
}

// SwitchFlags mark which of the sixteen switches a device activates when
// triggered. Bit 15 is SW01 down to bit 0 for SW16.
type SwitchFlags uint16

const (
	SWF01 SwitchFlags = 0x8000
	SWF02 SwitchFlags = 0x4000
	SWF03 SwitchFlags = 0x2000
	SWF04 SwitchFlags = 0x1000
	SWF05 SwitchFlags = 0x0800
	SWF06 SwitchFlags = 0x0400
	SWF07 SwitchFlags = 0x0200
	SWF08 SwitchFlags = 0x0100
	SWF09 SwitchFlags = 0x0080
	SWF10 SwitchFlags = 0x0040
	SWF11 SwitchFlags = 0x0020
	SWF12 SwitchFlags = 0x0010
	SWF13 SwitchFlags = 0x0008
	SWF14 SwitchFlags = 0x0004
	SWF15 SwitchFlags = 0x0002
	SWF16 SwitchFlags = 0x0001
)

func (f SwitchFlags) Has(flag SwitchFlags) bool { return f&flag != 0 }

func (f SwitchFlags) String() string {
	if f == 0 {
		return "None"
	}
	var out []string
	for i := 0; i < 16; i++ {
		if f&(1<<(15-uint(i))) != 0 {
			out = append(out, fmt.Sprintf("SW%02d", i+1))
		}
	}
	return strings.Join(out, "|")
}

// SwitchNumber identifies one of the sixteen controllable switches.
// The wire values are scrambled relative to the display ordering.
type SwitchNumber uint8

const (
	Switch01 SwitchNumber = 0x6
	Switch02 SwitchNumber = 0x7
	Switch03 SwitchNumber = 0x4
	Switch04 SwitchNumber = 0x5
	Switch05 SwitchNumber = 0x8
	Switch06 SwitchNumber = 0x9
	Switch07 SwitchNumber = 0xa
	Switch08 SwitchNumber = 0xb
	Switch09 SwitchNumber = 0xe
	Switch10 SwitchNumber = 0xf
	Switch11 SwitchNumber = 0xc
	Switch12 SwitchNumber = 0xd
	Switch13 SwitchNumber = 0x0
	Switch14 SwitchNumber = 0x1
	Switch15 SwitchNumber = 0x2
	Switch16 SwitchNumber = 0x3
)

var switchNumberNames = map[SwitchNumber]string{
	Switch01: "SW01", Switch02: "SW02", Switch03: "SW03", Switch04: "SW04",
	Switch05: "SW05", Switch06: "SW06", Switch07: "SW07", Switch08: "SW08",
	Switch09: "SW09", Switch10: "SW10", Switch11: "SW11", Switch12: "SW12",
	Switch13: "SW13", Switch14: "SW14", Switch15: "SW15", Switch16: "SW16",
}

func (n SwitchNumber) String() string {
	if name, ok := switchNumberNames[n]; ok {
		return name
	}
	return fmt.Sprintf("SwitchNumber(0x%x)", uint8(n))
}

// AllSwitches lists the switch numbers in display order.
var AllSwitches = []SwitchNumber{
	Switch01, Switch02, Switch03, Switch04,
	Switch05, Switch06, Switch07, Switch08,
	Switch09, Switch10, Switch11, Switch12,
	Switch13, Switch14, Switch15, Switch16,
}

// SwitchState is the commanded state of a switch.
type SwitchState uint8

const (
	SwitchStateOn  SwitchState = 0x4
	SwitchStateOff SwitchState = 0xc
)

func (s SwitchState) String() string {
	switch s {
	case SwitchStateOn:
		return "On"
	case SwitchStateOff:
		return "Off"
	default:
		return fmt.Sprintf("SwitchState(0x%x)", uint8(s))
	}
}

type flagName struct {
	flag uint16
	name string
}

func flagString(value uint16, names []flagName) string {
	if value == 0 {
		return "None"
	}
	var out []string
	for _, n := range names {
		if value&n.flag != 0 {
			out = append(out, n.name)
		}
	}
	if len(out) == 0 {
		return fmt.Sprintf("0x%x", value)
	}
	return strings.Join(out, "|")
}
