package baseunit

import (
	"context"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// SetOperationMode arms, disarms or switches the base unit to
// monitoring. The mode change is confirmed by the response; the
// matching unsolicited event updates the snapshot as well.
func (c *Controller) SetOperationMode(ctx context.Context, mode protocol.OperationMode) error {
	_, err := c.exec(ctx, protocol.SetOpModeCommand{Mode: mode})
	return err
}

// ClearStatus clears the alarm, warning and low battery indicators on
// the base unit display.
func (c *Controller) ClearStatus(ctx context.Context) error {
	_, err := c.exec(ctx, protocol.ClearStatusCommand{})
	return err
}

// SetDateTime sets the base unit clock. The zero time means now.
func (c *Controller) SetDateTime(ctx context.Context, value time.Time) error {
	_, err := c.exec(ctx, protocol.SetDateTimeCommand{Value: value})
	return err
}

// SetSwitch turns a switch on or off.
func (c *Controller) SetSwitch(ctx context.Context, number protocol.SwitchNumber, on bool) error {
	state := protocol.SwitchStateOff
	if on {
		state = protocol.SwitchStateOn
	}
	_, err := c.exec(ctx, protocol.SetSwitchCommand{Number: number, State: state})
	return err
}

// GetEventLog reads one entry from the event log. Returns nil without
// error when the index is past the end of the log.
func (c *Controller) GetEventLog(ctx context.Context, index int) (*protocol.EventLogResponse, error) {
	resp, err := c.exec(ctx, protocol.GetEventLogCommand{Index: index})
	if err != nil {
		return nil, err
	}
	if entry, ok := resp.(*protocol.EventLogResponse); ok {
		return entry, nil
	}
	return nil, nil
}

// GetSensorLog reads one entry from the special sensor log. Returns nil
// without error when the index is past the end of the log.
func (c *Controller) GetSensorLog(ctx context.Context, index int) (*protocol.SensorLogResponse, error) {
	resp, err := c.exec(ctx, protocol.GetSensorLogCommand{Index: index})
	if err != nil {
		return nil, err
	}
	if entry, ok := resp.(*protocol.SensorLogResponse); ok {
		return entry, nil
	}
	return nil, nil
}

// AddDevice puts the base unit into enrollment mode for a category. The
// base unit pushes the enrollment result as an unsolicited response
// once a device announces itself.
func (c *Controller) AddDevice(ctx context.Context, category protocol.DeviceCategory) error {
	_, err := c.exec(ctx, protocol.AddDeviceCommand{Category: category})
	return err
}

// ChangeDevice updates the zone assignment and enable settings of an
// enrolled device. Special sensors keep their current limits; use
// ChangeSpecialDevice to change those too.
func (c *Controller) ChangeDevice(ctx context.Context, deviceID uint32,
	group, unit uint8, enableStatus protocol.ESFlags, switches protocol.SwitchFlags) error {

	device, ok := c.registry.Get(deviceID)
	if !ok {
		return ErrDeviceNotFound
	}
	if device.Special != nil {
		sp := device.Special
		return c.ChangeSpecialDevice(ctx, deviceID, group, unit, enableStatus, switches,
			sp.Status, sp.HighLimit, sp.LowLimit, sp.ControlHighLimit, sp.ControlLowLimit)
	}

	info, err := c.locate(ctx, device.Category, device.GroupNumber, device.UnitNumber)
	if err != nil {
		return err
	}
	resp, err := c.exec(ctx, protocol.ChangeDeviceCommand{
		Category:     device.Category,
		Index:        info.Index,
		GroupNumber:  group,
		UnitNumber:   unit,
		EnableStatus: enableStatus,
		Switches:     switches,
	})
	if err != nil {
		return err
	}
	if _, notFound := resp.(*protocol.DeviceNotFoundResponse); notFound {
		return ErrDeviceNotFound
	}
	return nil
}

// ChangeSpecialDevice updates a special sensor, including its alarm
// limits. Control limits are only sent when the sensor supports them.
func (c *Controller) ChangeSpecialDevice(ctx context.Context, deviceID uint32,
	group, unit uint8, enableStatus protocol.ESFlags, switches protocol.SwitchFlags,
	specialStatus protocol.SSFlags, highLimit, lowLimit, controlHighLimit, controlLowLimit *float64) error {

	device, ok := c.registry.Get(deviceID)
	if !ok {
		return ErrDeviceNotFound
	}
	if device.Special == nil {
		return ErrNotSpecialDevice
	}

	info, err := c.locate(ctx, device.Category, device.GroupNumber, device.UnitNumber)
	if err != nil {
		return err
	}

	special := protocol.ChangeSpecialDeviceCommand{
		ChangeDeviceCommand: protocol.ChangeDeviceCommand{
			Category:     device.Category,
			Index:        info.Index,
			GroupNumber:  group,
			UnitNumber:   unit,
			EnableStatus: enableStatus,
			Switches:     switches,
		},
		CurrentStatus:    info.CurrentStatus,
		DownCount:        info.DownCount,
		MessageAttribute: info.MessageAttribute,
		CurrentReading:   info.CurrentReading,
		HighLimit:        highLimit,
		LowLimit:         lowLimit,
		SpecialStatus:    specialStatus,
	}

	var cmd protocol.Command = special
	if info.HasControlLimits {
		cmd = protocol.ChangeSpecial2DeviceCommand{
			ChangeSpecialDeviceCommand: special,
			ControlHighLimit:           controlHighLimit,
			ControlLowLimit:            controlLowLimit,
		}
	}
	resp, err := c.exec(ctx, cmd)
	if err != nil {
		return err
	}
	if _, notFound := resp.(*protocol.DeviceNotFoundResponse); notFound {
		return ErrDeviceNotFound
	}
	return nil
}

// DeleteDevice removes an enrolled device from the base unit and the
// registry.
func (c *Controller) DeleteDevice(ctx context.Context, deviceID uint32) error {
	device, ok := c.registry.Get(deviceID)
	if !ok {
		return ErrDeviceNotFound
	}

	info, err := c.locate(ctx, device.Category, device.GroupNumber, device.UnitNumber)
	if err != nil {
		return err
	}
	resp, err := c.exec(ctx, protocol.DeleteDeviceCommand{
		Category: device.Category,
		Index:    info.Index,
	})
	if err != nil {
		return err
	}
	if _, deleted := resp.(*protocol.DeviceDeletedResponse); !deleted {
		return ErrDeviceNotFound
	}

	if removed, ok := c.registry.Delete(deviceID); ok {
		c.publish(Notification{Kind: KindDeviceRemoved, Device: removed, At: time.Now()})
	}
	return nil
}

// locate queries a device by zone to get its current index. Indexes go
// stale whenever a lower-indexed device is deleted, so the device
// commands always resolve the index fresh.
func (c *Controller) locate(ctx context.Context, category protocol.DeviceCategory,
	group, unit uint8) (*protocol.DeviceInfoResponse, error) {

	resp, err := c.exec(ctx, protocol.GetDeviceCommand{
		Category:    category,
		GroupNumber: group,
		UnitNumber:  unit,
	})
	if err != nil {
		return nil, err
	}
	info, ok := resp.(*protocol.DeviceInfoResponse)
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return info, nil
}
