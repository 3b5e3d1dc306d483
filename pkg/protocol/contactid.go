package protocol

import (
	"fmt"
	"strconv"
)

// ContactIDEventQualifier provides context for the type of event in a
// Contact ID message.
type ContactIDEventQualifier uint8

const (
	ContactIDQualifierEvent   ContactIDEventQualifier = 0x1 // new event or opening
	ContactIDQualifierRestore ContactIDEventQualifier = 0x3 // new restore or closing
	ContactIDQualifierRepeat  ContactIDEventQualifier = 0x6 // condition still present
)

func (q ContactIDEventQualifier) String() string {
	switch q {
	case ContactIDQualifierEvent:
		return "Event"
	case ContactIDQualifierRestore:
		return "Restore"
	case ContactIDQualifierRepeat:
		return "Repeat"
	default:
		return fmt.Sprintf("ContactIDEventQualifier(0x%x)", uint8(q))
	}
}

// ContactIDEventCategory is the hundreds group an event code belongs to.
type ContactIDEventCategory uint16

const (
	ContactIDCategoryAlarm       ContactIDEventCategory = 0x100
	ContactIDCategorySupervisory ContactIDEventCategory = 0x200
	ContactIDCategoryTrouble     ContactIDEventCategory = 0x300
	ContactIDCategoryOpenClose   ContactIDEventCategory = 0x400
	ContactIDCategoryBypass      ContactIDEventCategory = 0x500
	ContactIDCategoryTest        ContactIDEventCategory = 0x600
	ContactIDCategoryAutomation  ContactIDEventCategory = 0x900
)

func (c ContactIDEventCategory) String() string {
	switch c {
	case ContactIDCategoryAlarm:
		return "Alarm"
	case ContactIDCategorySupervisory:
		return "Supervisory"
	case ContactIDCategoryTrouble:
		return "Trouble"
	case ContactIDCategoryOpenClose:
		return "OpenClose_Access"
	case ContactIDCategoryBypass:
		return "Bypass_Disable"
	case ContactIDCategoryTest:
		return "Test_Misc"
	case ContactIDCategoryAutomation:
		return "Automation"
	default:
		return fmt.Sprintf("ContactIDEventCategory(0x%x)", uint16(c))
	}
}

// ContactIDEventCode is the type of event reported in a Contact ID message.
type ContactIDEventCode uint16

const (
	// Alarms
	ContactIDEventMedicalAlarm       ContactIDEventCode = 0x100
	ContactIDEventPersonalEmergency  ContactIDEventCode = 0x101
	ContactIDEventFailToReportIn     ContactIDEventCode = 0x102
	ContactIDEventFireAlarm          ContactIDEventCode = 0x110
	ContactIDEventSmokeAlarm         ContactIDEventCode = 0x111
	ContactIDEventWaterFlow          ContactIDEventCode = 0x113
	ContactIDEventHeat               ContactIDEventCode = 0x114
	ContactIDEventPanicAlarm         ContactIDEventCode = 0x120
	ContactIDEventDuress             ContactIDEventCode = 0x121
	ContactIDEventBurglarAlarm       ContactIDEventCode = 0x130
	ContactIDEventPerimeter          ContactIDEventCode = 0x131
	ContactIDEventInterior           ContactIDEventCode = 0x132
	ContactIDEventHour24Burglar      ContactIDEventCode = 0x133
	ContactIDEventEntryExit          ContactIDEventCode = 0x134
	ContactIDEventBurglarSensorTamper ContactIDEventCode = 0x137
	ContactIDEventGeneralAlarm       ContactIDEventCode = 0x140
	ContactIDEventGasDetected        ContactIDEventCode = 0x151
	ContactIDEventWaterLeakage       ContactIDEventCode = 0x154
	ContactIDEventHighTemp           ContactIDEventCode = 0x158
	ContactIDEventLowTemp            ContactIDEventCode = 0x159
	ContactIDEventCODetected         ContactIDEventCode = 0x162
	ContactIDEventHighLimitAlarm     ContactIDEventCode = 0x168
	ContactIDEventLowLimitAlarm      ContactIDEventCode = 0x169

	// Troubles
	ContactIDEventSystemTrouble      ContactIDEventCode = 0x300
	ContactIDEventACPowerLoss        ContactIDEventCode = 0x301
	ContactIDEventBaseUnitLowBattery ContactIDEventCode = 0x302
	ContactIDEventSystemReset        ContactIDEventCode = 0x305
	ContactIDEventSensorTrouble      ContactIDEventCode = 0x380
	ContactIDEventLossOfSupervision  ContactIDEventCode = 0x381
	ContactIDEventSensorTamper       ContactIDEventCode = 0x383
	ContactIDEventRFLowBattery       ContactIDEventCode = 0x384

	// Open/close and access
	ContactIDEventAway           ContactIDEventCode = 0x400
	ContactIDEventOCByUser       ContactIDEventCode = 0x401
	ContactIDEventRemoteArmDisarm ContactIDEventCode = 0x407
	ContactIDEventAwayQuickArm   ContactIDEventCode = 0x408
	ContactIDEventWrongCodeEntry ContactIDEventCode = 0x461

	// Bypasses
	ContactIDEventZoneSensorBypass ContactIDEventCode = 0x570
	ContactIDEventDisarm           ContactIDEventCode = 0x573
	ContactIDEventHome             ContactIDEventCode = 0x574

	// Test and misc
	ContactIDEventPeriodicTestReport ContactIDEventCode = 0x602
	ContactIDEventMotionStop         ContactIDEventCode = 0x617
	ContactIDEventTriggerMonitor     ContactIDEventCode = 0x618
	ContactIDEventMonitorMode        ContactIDEventCode = 0x619
	ContactIDEventInactivityAlarm    ContactIDEventCode = 0x641
	ContactIDEventDoorOpenMonitor    ContactIDEventCode = 0x648
	ContactIDEventDoorCloseMonitor   ContactIDEventCode = 0x649

	// Automation
	ContactIDEventSwitchOnOff       ContactIDEventCode = 0x901
	ContactIDEventHighLimitOperation ContactIDEventCode = 0x912
	ContactIDEventLowLimitOperation  ContactIDEventCode = 0x913
)

var contactIDEventNames = map[ContactIDEventCode]string{
	ContactIDEventMedicalAlarm:        "MedicalAlarm",
	ContactIDEventPersonalEmergency:   "PersonalEmergency",
	ContactIDEventFailToReportIn:      "FailToReportIn",
	ContactIDEventFireAlarm:           "FireAlarm",
	ContactIDEventSmokeAlarm:          "SmokeAlarm",
	ContactIDEventWaterFlow:           "WaterFlow",
	ContactIDEventHeat:                "Heat",
	ContactIDEventPanicAlarm:          "PanicAlarm",
	ContactIDEventDuress:              "Duress",
	ContactIDEventBurglarAlarm:        "BurglarAlarm",
	ContactIDEventPerimeter:           "Perimeter",
	ContactIDEventInterior:            "Interior",
	ContactIDEventHour24Burglar:       "Hour24Burglar",
	ContactIDEventEntryExit:           "EntryExit",
	ContactIDEventBurglarSensorTamper: "BurglarSensorTampered",
	ContactIDEventGeneralAlarm:        "GeneralAlarm",
	ContactIDEventGasDetected:         "GasDetected",
	ContactIDEventWaterLeakage:        "WaterLeakage",
	ContactIDEventHighTemp:            "HighTemp",
	ContactIDEventLowTemp:             "LowTemp",
	ContactIDEventCODetected:          "CarbonMonoxideDetected",
	ContactIDEventHighLimitAlarm:      "HighLimitAlarm",
	ContactIDEventLowLimitAlarm:       "LowLimitAlarm",
	ContactIDEventSystemTrouble:       "SystemTrouble",
	ContactIDEventACPowerLoss:         "ACPowerLoss",
	ContactIDEventBaseUnitLowBattery:  "BaseUnitLowBattery",
	ContactIDEventSystemReset:         "SystemReset",
	ContactIDEventSensorTrouble:       "SensorTrouble",
	ContactIDEventLossOfSupervision:   "LossOfSupervision_RF",
	ContactIDEventSensorTamper:        "SensorTamper",
	ContactIDEventRFLowBattery:        "RFLowBattery",
	ContactIDEventAway:                "Away",
	ContactIDEventOCByUser:            "OCByUser",
	ContactIDEventRemoteArmDisarm:     "RemoteArmDisarm",
	ContactIDEventAwayQuickArm:        "Away_QuickArm",
	ContactIDEventWrongCodeEntry:      "WrongCodeEntry",
	ContactIDEventZoneSensorBypass:    "ZoneSensorBypass",
	ContactIDEventDisarm:              "Disarm",
	ContactIDEventHome:                "Home",
	ContactIDEventPeriodicTestReport:  "PeriodicTestReport",
	ContactIDEventMotionStop:          "MotionStop",
	ContactIDEventTriggerMonitor:      "Trigger_Monitor",
	ContactIDEventMonitorMode:         "MonitorMode",
	ContactIDEventInactivityAlarm:     "InactivityAlarm",
	ContactIDEventDoorOpenMonitor:     "DoorOpen_Monitor",
	ContactIDEventDoorCloseMonitor:    "DoorClose_Monitor",
	ContactIDEventSwitchOnOff:         "SwitchOnOff",
	ContactIDEventHighLimitOperation:  "HighLimitOperation",
	ContactIDEventLowLimitOperation:   "LowLimitOperation",
}

func (c ContactIDEventCode) String() string {
	if name, ok := contactIDEventNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ContactIDEventCode(0x%03x)", uint16(c))
}

// Category is the hundreds group the event code belongs to.
func (c ContactIDEventCode) Category() ContactIDEventCategory {
	return ContactIDEventCategory(c & 0xf00)
}

// ContactID is an alarm report using the Ademco Contact ID protocol. The
// base unit emits these for events it would report to a monitoring station.
type ContactID struct {
	// AccountNumber identifies this alarm panel to the receiver.
	AccountNumber uint16

	// MessageType is 0x18 (preferred) or 0x98 (optional).
	MessageType uint8

	QualifierValue int
	Qualifier      ContactIDEventQualifier
	EventCodeValue int
	EventCode      ContactIDEventCode

	Category DeviceCategory

	// The Contact ID spec reserves three digits for zone or user. The
	// base unit uses the first for the device category index and the other
	// two for the unit number, or the user id for base unit events.
	GroupNumber uint8
	UnitNumber  uint8
	UserID      *int

	Checksum uint8
}

// EventCategory is the hundreds group of the event code.
func (c *ContactID) EventCategory() ContactIDEventCategory {
	return ContactIDEventCode(c.EventCodeValue).Category()
}

// Zone is the group and unit of the originating device, or empty for
// events reported by the base unit itself.
func (c *ContactID) Zone() string {
	if c.Category == CategoryBaseUnit {
		return ""
	}
	return zoneString(c.GroupNumber, c.UnitNumber)
}

// ParseContactID parses the 16 hex digits of a Contact ID message,
// verifying the checksum. The enclosing parentheses must already be
// stripped.
func ParseContactID(text string) (*ContactID, error) {
	if len(text) != 16 {
		return nil, fmt.Errorf("contact id message length %d is invalid", len(text))
	}

	// Every digit contributes its value to the checksum, except zero
	// which counts as ten. The total must be divisible by fifteen.
	sum := 0
	for i := 0; i < len(text); i++ {
		digit, err := strconv.ParseUint(text[i:i+1], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("contact id message contains invalid digit %q", text[i])
		}
		if digit == 0 {
			sum += 10
		} else {
			sum += int(digit)
		}
	}
	if sum%15 != 0 {
		return nil, fmt.Errorf("contact id message checksum failure")
	}

	account, _ := strconv.ParseUint(text[0:4], 16, 16)
	messageType, _ := strconv.ParseUint(text[4:6], 16, 8)
	if messageType != 0x18 && messageType != 0x98 {
		return nil, fmt.Errorf("contact id message type 0x%02x is invalid", messageType)
	}
	qualifier, _ := strconv.ParseUint(text[6:7], 16, 8)
	eventCode, _ := strconv.ParseUint(text[7:10], 16, 16)
	groupPartition, _ := strconv.ParseUint(text[10:12], 16, 8)
	categoryIndex, _ := strconv.ParseUint(text[12:13], 16, 8)
	zoneUser, _ := strconv.ParseUint(text[13:15], 16, 8)
	checksum, _ := strconv.ParseUint(text[15:16], 16, 8)

	category, ok := CategoryByIndex(int(categoryIndex))
	if !ok {
		return nil, fmt.Errorf("contact id message has invalid category index %d", categoryIndex)
	}

	c := &ContactID{
		AccountNumber:  uint16(account),
		MessageType:    uint8(messageType),
		QualifierValue: int(qualifier),
		Qualifier:      ContactIDEventQualifier(qualifier),
		EventCodeValue: int(eventCode),
		EventCode:      ContactIDEventCode(eventCode),
		Category:       category,
		Checksum:       uint8(checksum),
	}
	if category == CategoryBaseUnit {
		if zoneUser != 0 {
			user := int(zoneUser)
			c.UserID = &user
		}
	} else {
		c.GroupNumber = uint8(groupPartition)
		c.UnitNumber = uint8(zoneUser)
	}
	return c, nil
}
