package registry

import (
	"testing"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

func infoResponse(deviceID uint32) *protocol.DeviceInfoResponse {
	return &protocol.DeviceInfoResponse{
		Name:             "kb",
		Category:         protocol.CategoryBurglar,
		Index:            0,
		HasIndex:         true,
		TypeValue:        0x40,
		Type:             protocol.DeviceTypeDoorMagnet,
		DeviceID:         deviceID,
		MessageAttribute: 0x01,
		GroupNumber:      0x01,
		UnitNumber:       0x02,
		EnableStatus:     protocol.ESAlarmSiren | protocol.ESBell,
		CurrentStatus:    0x65,
	}
}

func TestApplyInfoCreatesDevice(t *testing.T) {
	r := NewRegistry()
	at := time.Now()

	change := r.ApplyInfo(infoResponse(0x123456), at)
	if change == nil {
		t.Fatal("expected a change")
	}
	if !change.Created {
		t.Error("expected Created to be set")
	}
	if len(change.Fields) != 0 {
		t.Errorf("created change should carry no field diffs, got %d", len(change.Fields))
	}
	if change.DeviceID != 0x123456 {
		t.Errorf("device id = %06x, want 123456", change.DeviceID)
	}

	d, ok := r.Get(0x123456)
	if !ok {
		t.Fatal("device not stored")
	}
	if d.Category != protocol.CategoryBurglar {
		t.Errorf("category = %v, want Burglar", d.Category)
	}
	if d.Type != protocol.DeviceTypeDoorMagnet {
		t.Errorf("type = %v, want DoorMagnet", d.Type)
	}
	if d.Zone() != "01-02" {
		t.Errorf("zone = %q, want 01-02", d.Zone())
	}
	if d.RSSIDB != 0x65-0x40 {
		t.Errorf("rssi = %d, want %d", d.RSSIDB, 0x65-0x40)
	}
	if d.IsClosed == nil || !*d.IsClosed {
		t.Error("magnet sensor should read closed")
	}
	if !d.Enrolled {
		t.Error("device from an info response should be enrolled")
	}
	if !d.LastUpdated.Equal(at) {
		t.Errorf("last updated = %v, want %v", d.LastUpdated, at)
	}
}

func TestApplyInfoDiffsChangedFields(t *testing.T) {
	r := NewRegistry()
	at := time.Now()
	r.ApplyInfo(infoResponse(0x123456), at)

	resp := infoResponse(0x123456)
	resp.EnableStatus |= protocol.ESBypass
	change := r.ApplyInfo(resp, at.Add(time.Second))
	if change == nil {
		t.Fatal("expected a change")
	}
	if change.Created {
		t.Error("second apply should not report Created")
	}
	if len(change.Fields) != 1 {
		t.Fatalf("fields = %v, want exactly one", change.Fields)
	}
	f := change.Fields[0]
	if f.Field != "enable_status" {
		t.Errorf("field = %q, want enable_status", f.Field)
	}
	if f.New != resp.EnableStatus {
		t.Errorf("new value = %v, want %v", f.New, resp.EnableStatus)
	}
}

func TestApplyInfoReplayIsNoOp(t *testing.T) {
	r := NewRegistry()
	at := time.Now()

	if change := r.ApplyInfo(infoResponse(0x123456), at); change == nil {
		t.Fatal("first apply should report the creation")
	}
	if change := r.ApplyInfo(infoResponse(0x123456), at); change != nil {
		t.Errorf("replay with the same timestamp should be a no-op, got %+v", change)
	}
}

func TestApplyInfoIgnoresStaleFrame(t *testing.T) {
	r := NewRegistry()
	at := time.Now()
	r.ApplyInfo(infoResponse(0x123456), at)

	stale := infoResponse(0x123456)
	stale.GroupNumber = 0x09
	if change := r.ApplyInfo(stale, at.Add(-time.Minute)); change != nil {
		t.Errorf("stale frame should be dropped, got %+v", change)
	}
	d, _ := r.Get(0x123456)
	if d.GroupNumber != 0x01 {
		t.Errorf("stale frame mutated the device: group = %02x", d.GroupNumber)
	}
}

func TestApplyInfoUnchangedReturnsNil(t *testing.T) {
	r := NewRegistry()
	at := time.Now()
	r.ApplyInfo(infoResponse(0x123456), at)

	if change := r.ApplyInfo(infoResponse(0x123456), at.Add(time.Second)); change != nil {
		t.Errorf("identical values should yield no change, got %+v", change)
	}
}

func TestApplyEventCreatesProvisionalDevice(t *testing.T) {
	tests := []struct {
		name string
		typ  protocol.DeviceType
		want protocol.DeviceCategory
	}{
		{"smoke detector", protocol.DeviceTypeSmokeDetector, protocol.CategoryFire},
		{"remote controller", protocol.DeviceTypeRemoteController, protocol.CategoryController},
		{"temp sensor", protocol.DeviceTypeTempSensor, protocol.CategorySpecial},
		{"door magnet", protocol.DeviceTypeDoorMagnet, protocol.CategoryBurglar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			ev := &protocol.DeviceEvent{
				Type:          tt.typ,
				DeviceID:      0xabcdef,
				CurrentStatus: 0x60,
			}
			change := r.ApplyEvent(ev, time.Now())
			if change == nil || !change.Created {
				t.Fatalf("expected a creation, got %+v", change)
			}
			d, _ := r.Get(0xabcdef)
			if d.Category != tt.want {
				t.Errorf("inferred category = %v, want %v", d.Category, tt.want)
			}
			if d.Enrolled {
				t.Error("event-discovered device should not be marked enrolled")
			}
		})
	}
}

func TestApplyEventUpdatesReading(t *testing.T) {
	r := NewRegistry()
	at := time.Now()

	reading := 21.5
	ev := &protocol.DeviceEvent{
		Type:           protocol.DeviceTypeTempSensor,
		DeviceID:       0x555555,
		CurrentStatus:  0x60,
		CurrentReading: &reading,
	}
	r.ApplyEvent(ev, at)

	next := 22.0
	ev2 := &protocol.DeviceEvent{
		Type:           protocol.DeviceTypeTempSensor,
		DeviceID:       0x555555,
		CurrentStatus:  0x60,
		CurrentReading: &next,
	}
	change := r.ApplyEvent(ev2, at.Add(time.Second))
	if change == nil {
		t.Fatal("expected a change")
	}
	if len(change.Fields) != 1 || change.Fields[0].Field != "current_reading" {
		t.Fatalf("fields = %v, want current_reading only", change.Fields)
	}
	d, _ := r.Get(0x555555)
	if d.Special == nil || d.Special.CurrentReading == nil || *d.Special.CurrentReading != 22.0 {
		t.Errorf("reading not applied: %+v", d.Special)
	}
}

func TestApplySettingsLocatesByIndex(t *testing.T) {
	r := NewRegistry()
	at := time.Now()

	resp := infoResponse(0x123456)
	resp.Category = protocol.CategorySpecial
	resp.Type = protocol.DeviceTypeTempSensor
	resp.Index = 3
	resp.MessageAttribute = 0x00
	r.ApplyInfo(resp, at)

	settings := &protocol.DeviceSettingsResponse{
		Name:             "es",
		Category:         protocol.CategorySpecial,
		Index:            3,
		GroupNumber:      0x04,
		UnitNumber:       0x05,
		HighLimitEncoded: 0x1e,
		LowLimitEncoded:  0x80,
		HasSpecialFields: true,
	}
	change := r.ApplySettings(settings, at.Add(time.Second))
	if change == nil {
		t.Fatal("expected a change")
	}
	d, _ := r.Get(0x123456)
	if d.GroupNumber != 0x04 || d.UnitNumber != 0x05 {
		t.Errorf("zone not applied: %s", d.Zone())
	}
	if d.Special == nil || d.Special.HighLimit == nil || *d.Special.HighLimit != 30 {
		t.Errorf("high limit not decoded: %+v", d.Special)
	}
	if d.Special.LowLimit != nil {
		t.Errorf("0x80 is the null marker, got %v", *d.Special.LowLimit)
	}
}

func TestApplySettingsUnknownIndex(t *testing.T) {
	r := NewRegistry()
	settings := &protocol.DeviceSettingsResponse{
		Name:     "bs",
		Category: protocol.CategoryBurglar,
		Index:    7,
	}
	if change := r.ApplySettings(settings, time.Now()); change != nil {
		t.Errorf("settings for an unknown index should be dropped, got %+v", change)
	}
}

func TestDeleteShiftsIndexes(t *testing.T) {
	r := NewRegistry()
	at := time.Now()
	for i, id := range []uint32{0x111111, 0x222222, 0x333333} {
		resp := infoResponse(id)
		resp.Index = i
		r.ApplyInfo(resp, at)
	}

	removed, ok := r.Delete(0x111111)
	if !ok {
		t.Fatal("delete failed")
	}
	if removed.DeviceID != 0x111111 {
		t.Errorf("removed id = %06x", removed.DeviceID)
	}

	second, _ := r.Get(0x222222)
	third, _ := r.Get(0x333333)
	if second.Index != 0 || third.Index != 1 {
		t.Errorf("indexes after delete = %d, %d, want 0, 1", second.Index, third.Index)
	}

	if _, ok := r.Delete(0x111111); ok {
		t.Error("second delete of the same device should fail")
	}
}

func TestGetByZone(t *testing.T) {
	r := NewRegistry()
	r.ApplyInfo(infoResponse(0x123456), time.Now())

	d, ok := r.GetByZone(protocol.CategoryBurglar, 0x01, 0x02)
	if !ok || d.DeviceID != 0x123456 {
		t.Fatalf("zone lookup failed: %+v", d)
	}
	if _, ok := r.GetByZone(protocol.CategoryFire, 0x01, 0x02); ok {
		t.Error("wrong category should not match")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	r := NewRegistry()
	r.ApplyInfo(infoResponse(0x123456), time.Now())

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	snap[0x123456].GroupNumber = 0xff

	d, _ := r.Get(0x123456)
	if d.GroupNumber == 0xff {
		t.Error("mutating a snapshot leaked into the registry")
	}
}

func TestReset(t *testing.T) {
	r := NewRegistry()
	r.ApplyInfo(infoResponse(0x123456), time.Now())
	r.Reset()
	if r.Count() != 0 {
		t.Errorf("count after reset = %d", r.Count())
	}
}
