package registry

import (
	"sync"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// FieldChange records a single attribute change.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// DeviceChange describes what an applied frame changed.
type DeviceChange struct {
	DeviceID uint32

	// Created is true when the frame introduced an unseen device.
	Created bool

	// Fields lists the attributes that actually changed value.
	// Empty for Created changes.
	Fields []FieldChange

	// Device is a deep copy of the device after the change.
	Device *Device

	At time.Time
}

// Registry is the inventory of enrolled devices. It is mutated only by
// the frame delivery path; external readers get deep copies.
type Registry struct {
	mu      sync.RWMutex
	devices map[uint32]*Device
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[uint32]*Device),
	}
}

// ApplyInfo merges a device info response. Returns nil when the frame
// is stale (not newer than the stored state) or changed nothing.
func (r *Registry) ApplyInfo(resp *protocol.DeviceInfoResponse, at time.Time) *DeviceChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[resp.DeviceID]
	if !exists {
		d = &Device{DeviceID: resp.DeviceID}
		r.devices[resp.DeviceID] = d
	} else if !at.After(d.LastUpdated) {
		return nil
	}

	cs := &changeSet{}
	setField(cs, "category", &d.Category, resp.Category)
	setField(cs, "type", &d.Type, resp.Type)
	setField(cs, "type_value", &d.TypeValue, resp.TypeValue)
	if resp.HasIndex {
		setField(cs, "index", &d.Index, resp.Index)
		d.HasIndex = true
	}
	setField(cs, "group_number", &d.GroupNumber, resp.GroupNumber)
	setField(cs, "unit_number", &d.UnitNumber, resp.UnitNumber)
	setField(cs, "message_attribute", &d.MessageAttribute, resp.MessageAttribute)
	setField(cs, "characteristics", &d.Characteristics, resp.Characteristics)
	setField(cs, "enable_status", &d.EnableStatus, resp.EnableStatus)
	setField(cs, "switches", &d.Switches, resp.Switches)
	setField(cs, "rssi_db", &d.RSSIDB, resp.RSSIDB())
	setField(cs, "rssi_bars", &d.RSSIBars, resp.RSSIBars())
	setPtrBool(cs, "is_closed", &d.IsClosed, resp.IsClosed())

	if resp.HasSpecialFields {
		if d.Special == nil {
			d.Special = &SpecialState{}
		}
		setPtrFloat(cs, "current_reading", &d.Special.CurrentReading, resp.CurrentReading)
		setPtrFloat(cs, "high_limit", &d.Special.HighLimit, resp.HighLimit)
		setPtrFloat(cs, "low_limit", &d.Special.LowLimit, resp.LowLimit)
		setField(cs, "special_status", &d.Special.Status, resp.SpecialStatus)
		if resp.HasControlLimits {
			setPtrFloat(cs, "control_high_limit", &d.Special.ControlHighLimit, resp.ControlHighLimit)
			setPtrFloat(cs, "control_low_limit", &d.Special.ControlLowLimit, resp.ControlLowLimit)
			d.Special.HasControlLimits = true
		}
	}

	d.Enrolled = true
	d.LastUpdated = at

	return r.change(d, !exists, cs, at)
}

// ApplySettings merges an add or change settings response. The response
// carries no device id, so the device is located by category and index.
// Special sensor values stay encoded in the response and are decoded
// here using the message attribute already known for the device.
func (r *Registry) ApplySettings(resp *protocol.DeviceSettingsResponse, at time.Time) *DeviceChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.findByIndex(resp.Category, resp.Index)
	if d == nil {
		return nil
	}
	if !at.After(d.LastUpdated) {
		return nil
	}

	cs := &changeSet{}
	setField(cs, "group_number", &d.GroupNumber, resp.GroupNumber)
	setField(cs, "unit_number", &d.UnitNumber, resp.UnitNumber)
	setField(cs, "enable_status", &d.EnableStatus, resp.EnableStatus)
	setField(cs, "switches", &d.Switches, resp.Switches)

	if resp.HasSpecialFields {
		if d.Special == nil {
			d.Special = &SpecialState{}
		}
		setPtrFloat(cs, "high_limit", &d.Special.HighLimit,
			protocol.DecodeSpecialValue(d.MessageAttribute, resp.HighLimitEncoded))
		setPtrFloat(cs, "low_limit", &d.Special.LowLimit,
			protocol.DecodeSpecialValue(d.MessageAttribute, resp.LowLimitEncoded))
		setField(cs, "special_status", &d.Special.Status, resp.SpecialStatus)
		if resp.HasControlLimits {
			setPtrFloat(cs, "control_high_limit", &d.Special.ControlHighLimit,
				protocol.DecodeSpecialValue(d.MessageAttribute, resp.ControlHighLimitEncoded))
			setPtrFloat(cs, "control_low_limit", &d.Special.ControlLowLimit,
				protocol.DecodeSpecialValue(d.MessageAttribute, resp.ControlLowLimitEncoded))
			d.Special.HasControlLimits = true
		}
	}

	d.LastUpdated = at

	return r.change(d, false, cs, at)
}

// ApplyEvent merges a device event. An unseen device id creates a
// provisional entry with its category inferred from the device type;
// enumeration later fills in the rest.
func (r *Registry) ApplyEvent(ev *protocol.DeviceEvent, at time.Time) *DeviceChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[ev.DeviceID]
	if !exists {
		d = &Device{
			DeviceID: ev.DeviceID,
			Category: categoryForType(ev.Type),
		}
		r.devices[ev.DeviceID] = d
	} else if !at.After(d.LastUpdated) {
		return nil
	}

	cs := &changeSet{}
	setField(cs, "type", &d.Type, ev.Type)
	setField(cs, "type_value", &d.TypeValue, ev.TypeValue)
	setField(cs, "message_attribute", &d.MessageAttribute, ev.MessageAttribute)
	setField(cs, "characteristics", &d.Characteristics, ev.Characteristics)
	setField(cs, "rssi_db", &d.RSSIDB, ev.RSSIDB())
	setField(cs, "rssi_bars", &d.RSSIBars, ev.RSSIBars())
	setPtrBool(cs, "is_closed", &d.IsClosed, ev.IsClosed())

	if ev.CurrentReading != nil {
		if d.Special == nil {
			d.Special = &SpecialState{}
		}
		setPtrFloat(cs, "current_reading", &d.Special.CurrentReading, ev.CurrentReading)
	}

	d.LastUpdated = at

	return r.change(d, !exists, cs, at)
}

// Delete removes a device. Returns a copy of the removed device when it
// existed.
func (r *Registry) Delete(deviceID uint32) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[deviceID]
	if !exists {
		return nil, false
	}
	delete(r.devices, deviceID)

	// Indexes above the removed device shift down on the base unit.
	for _, other := range r.devices {
		if other.Category == d.Category && other.HasIndex && d.HasIndex && other.Index > d.Index {
			other.Index--
		}
	}

	return d.clone(), true
}

// Get returns a copy of the device with the given id.
func (r *Registry) Get(deviceID uint32) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.devices[deviceID]
	if !exists {
		return nil, false
	}
	return d.clone(), true
}

// GetByZone returns a copy of the device at the given category and zone.
func (r *Registry) GetByZone(category protocol.DeviceCategory, group, unit uint8) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		if d.Category == category && d.GroupNumber == group && d.UnitNumber == unit {
			return d.clone(), true
		}
	}
	return nil, false
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Snapshot returns a deep copy of the full inventory.
func (r *Registry) Snapshot() map[uint32]*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[uint32]*Device, len(r.devices))
	for id, d := range r.devices {
		snap[id] = d.clone()
	}
	return snap
}

// Reset drops all devices. Used when re-enumerating after a reconnect.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[uint32]*Device)
}

// findByIndex locates a device by category index. Caller holds the lock.
func (r *Registry) findByIndex(category protocol.DeviceCategory, index int) *Device {
	for _, d := range r.devices {
		if d.Category == category && d.HasIndex && d.Index == index {
			return d
		}
	}
	return nil
}

// change builds the DeviceChange result. Caller holds the lock.
func (r *Registry) change(d *Device, created bool, cs *changeSet, at time.Time) *DeviceChange {
	if !created && len(cs.fields) == 0 {
		return nil
	}
	c := &DeviceChange{
		DeviceID: d.DeviceID,
		Created:  created,
		Device:   d.clone(),
		At:       at,
	}
	if !created {
		c.Fields = cs.fields
	}
	return c
}

// changeSet collects field updates, recording only actual changes.
type changeSet struct {
	fields []FieldChange
}

func (c *changeSet) record(field string, old, new any) {
	c.fields = append(c.fields, FieldChange{Field: field, Old: old, New: new})
}

// setField assigns value to dst, recording the change when the value
// differs.
func setField[T comparable](c *changeSet, field string, dst *T, value T) {
	if *dst == value {
		return
	}
	c.record(field, *dst, value)
	*dst = value
}

func setPtrBool(c *changeSet, field string, dst **bool, value *bool) {
	if value == nil {
		return
	}
	if *dst != nil && **dst == *value {
		return
	}
	var old any
	if *dst != nil {
		old = **dst
	}
	c.record(field, old, *value)
	v := *value
	*dst = &v
}

func setPtrFloat(c *changeSet, field string, dst **float64, value *float64) {
	switch {
	case *dst == nil && value == nil:
		return
	case *dst != nil && value != nil && **dst == *value:
		return
	}
	var old, new any
	if *dst != nil {
		old = **dst
	}
	if value != nil {
		new = *value
		v := *value
		*dst = &v
	} else {
		*dst = nil
	}
	c.record(field, old, new)
}
