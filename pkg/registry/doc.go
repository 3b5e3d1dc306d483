// Package registry tracks the devices enrolled on a base unit.
//
// The registry is populated two ways. Enumeration walks every category
// with device queries and feeds the full info responses through
// ApplyInfo. Between enumerations, device events and settings responses
// keep it current through ApplyEvent and ApplySettings.
//
// Every apply call returns a DeviceChange describing what actually
// changed, or nil when the frame was stale or changed nothing. Frames
// are stale when their timestamp is not strictly newer than the stored
// state, so replaying a frame is a no-op. This makes the delivery path
// safe to retry.
//
// Readers always receive deep copies. The registry never hands out a
// pointer into its own state.
package registry
