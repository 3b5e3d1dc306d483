package baseunit

import (
	"context"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
	"github.com/lifesos-protocol/lifesos-go/pkg/registry"
)

// handleUnsolicited receives every frame that is not the reply to an
// in-flight command: device events, contact id reports, and responses
// the base unit pushes on its own (a keypad changing the mode, for
// example).
func (c *Controller) handleUnsolicited(frame *protocol.Frame) {
	at := frame.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}

	switch frame.Kind {
	case protocol.FrameResponse:
		c.applyResponse(frame.Response, at)
	case protocol.FrameDeviceEvent:
		c.handleDeviceEvent(frame, at)
	case protocol.FrameContactID:
		c.handleContactID(frame, at)
	}
}

// applyResponse folds a response into the controller state. Both
// command replies and unsolicited responses come through here.
func (c *Controller) applyResponse(resp protocol.Response, at time.Time) {
	switch r := resp.(type) {
	case *protocol.ROMVersionResponse:
		c.mutate(at, func() bool {
			if c.romVersion == r.Version {
				return false
			}
			c.romVersion = r.Version
			return true
		})

	case *protocol.OpModeResponse:
		c.mutate(at, func() bool {
			return c.setModeLocked(r.Mode, protocol.BaseUnitStateForMode(r.Mode))
		})

	case *protocol.DelayResponse:
		c.mutate(at, func() bool {
			target := &c.entryDelay
			if r.Name == protocol.CmdExitDelay {
				target = &c.exitDelay
			}
			if *target != nil && **target == r.Seconds {
				return false
			}
			seconds := r.Seconds
			*target = &seconds
			return true
		})

	case *protocol.DeviceInfoResponse:
		c.notifyDeviceChange(c.registry.ApplyInfo(r, at))

	case *protocol.DeviceAddedResponse:
		// The enrollment response is too thin to build a device from;
		// query the full info out of band.
		go c.fetchNewDevice(r.Category, r.Index)

	case *protocol.DeviceChangedResponse:
		c.notifyDeviceChange(c.registry.ApplySettings(&r.DeviceSettingsResponse, at))

	case *protocol.DeviceSettingsResponse:
		c.notifyDeviceChange(c.registry.ApplySettings(r, at))

	case *protocol.SwitchResponse:
		c.mutate(at, func() bool {
			return c.setSwitchLocked(r.Number, r.On())
		})
	}
}

// fetchNewDevice pulls the full info for a freshly enrolled device.
func (c *Controller) fetchNewDevice(category protocol.DeviceCategory, index int) {
	if c.ctx == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.config.CommandTimeout*enumerateRetries)
	defer cancel()
	_, _ = c.execRetry(ctx, protocol.GetDeviceByIndexCommand{
		Category: category,
		Index:    index,
	})
}

func (c *Controller) notifyDeviceChange(change *registry.DeviceChange) {
	if change == nil {
		return
	}
	kind := KindDeviceChanged
	if change.Created {
		kind = KindDeviceAdded
	}
	c.publish(Notification{
		Kind:   kind,
		Device: change.Device,
		Change: change,
		At:     change.At,
	})
}

// handleDeviceEvent merges a MINPIC event into the registry and infers
// base unit state changes from remote controller and sensor activity.
func (c *Controller) handleDeviceEvent(frame *protocol.Frame, at time.Time) {
	ev := frame.Event

	c.notifyDeviceChange(c.registry.ApplyEvent(ev, at))
	device, _ := c.registry.Get(ev.DeviceID)

	c.mutate(at, func() bool {
		return c.inferFromDeviceEventLocked(ev, device)
	})

	c.publish(Notification{Kind: KindEvent, Frame: frame, At: at})
}

// inferFromDeviceEventLocked applies the mode changes a device event
// implies. Caller holds the base unit lock.
func (c *Controller) inferFromDeviceEventLocked(ev *protocol.DeviceEvent, device *registry.Device) bool {
	switch ev.EventCode {
	case protocol.DeviceEventAway:
		if c.opMode != nil && *c.opMode == protocol.OperationModeAway {
			return false
		}
		// A remote controller arming to Away takes effect after the
		// exit delay when the controller has the delay flag set.
		if device != nil &&
			device.Category == protocol.CategoryController &&
			device.EnableStatus&protocol.ESBypass == 0 &&
			device.EnableStatus&protocol.ESDelay != 0 &&
			c.exitDelay != nil && *c.exitDelay > 0 {
			return c.setStateOnlyLocked(protocol.BaseUnitStateAwayExitDelay)
		}
		return c.setModeLocked(protocol.OperationModeAway, protocol.BaseUnitStateAway)

	case protocol.DeviceEventHome:
		return c.setModeLocked(protocol.OperationModeHome, protocol.BaseUnitStateHome)

	case protocol.DeviceEventDisarm:
		return c.setModeLocked(protocol.OperationModeDisarm, protocol.BaseUnitStateDisarm)

	case protocol.DeviceEventTrigger, protocol.DeviceEventOpen:
		// A tripped burglar sensor with the delay flag starts the
		// entry delay instead of sounding the alarm immediately.
		if c.opMode != nil && *c.opMode == protocol.OperationModeAway &&
			device != nil &&
			device.Category == protocol.CategoryBurglar &&
			device.EnableStatus&protocol.ESBypass == 0 &&
			device.EnableStatus&protocol.ESDelay != 0 &&
			device.EnableStatus&protocol.ESInactivity == 0 &&
			c.entryDelay != nil && *c.entryDelay > 0 {
			return c.setStateOnlyLocked(protocol.BaseUnitStateAwayEntryDelay)
		}
		return false

	default:
		return false
	}
}

// handleContactID tracks mode changes reported through Contact ID.
func (c *Controller) handleContactID(frame *protocol.Frame, at time.Time) {
	ci := frame.ContactID

	c.mutate(at, func() bool {
		switch ci.EventCode {
		case protocol.ContactIDEventAway, protocol.ContactIDEventAwayQuickArm:
			return c.setModeLocked(protocol.OperationModeAway, protocol.BaseUnitStateAway)
		case protocol.ContactIDEventHome:
			return c.setModeLocked(protocol.OperationModeHome, protocol.BaseUnitStateHome)
		case protocol.ContactIDEventDisarm:
			return c.setModeLocked(protocol.OperationModeDisarm, protocol.BaseUnitStateDisarm)
		case protocol.ContactIDEventMonitorMode:
			return c.setModeLocked(protocol.OperationModeMonitor, protocol.BaseUnitStateMonitor)
		}

		// An alarm during the entry delay means the delay expired;
		// the base unit is back in plain Away state.
		if ci.EventCode.Category() == protocol.ContactIDCategoryAlarm &&
			ci.Qualifier == protocol.ContactIDQualifierEvent &&
			c.buState != nil && *c.buState == protocol.BaseUnitStateAwayEntryDelay {
			return c.setStateOnlyLocked(protocol.BaseUnitStateAway)
		}
		return false
	})

	c.publish(Notification{Kind: KindEvent, Frame: frame, At: at})
}

// setModeLocked updates both the operation mode and the derived state.
// Caller holds the base unit lock.
func (c *Controller) setModeLocked(mode protocol.OperationMode, state protocol.BaseUnitState) bool {
	changed := false
	if c.opMode == nil || *c.opMode != mode {
		m := mode
		c.opMode = &m
		changed = true
	}
	if c.setStateOnlyLocked(state) {
		changed = true
	}
	return changed
}

func (c *Controller) setStateOnlyLocked(state protocol.BaseUnitState) bool {
	if c.buState != nil && *c.buState == state {
		return false
	}
	s := state
	c.buState = &s
	return true
}

func (c *Controller) setSwitchLocked(number protocol.SwitchNumber, on *bool) bool {
	old, known := c.switches[number]
	if known && old == nil && on == nil {
		return false
	}
	if old != nil && on != nil && *old == *on {
		return false
	}
	if on == nil {
		c.switches[number] = nil
		return known && old != nil
	}
	v := *on
	c.switches[number] = &v
	return true
}
