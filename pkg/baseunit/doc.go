// Package baseunit is the top level interface to a LifeSOS base unit.
//
// A Controller owns one connection, the device registry and every piece
// of state derived from the wire. Starting a controller connects (or,
// in listen mode, waits for the base unit to dial in), walks the device
// inventory, then settles into monitoring. A transport failure in any
// phase moves the controller to reconnecting and the inventory walk is
// repeated after the next successful connect, so subscribers never see
// stale device state presented as fresh.
//
//	ctrl := baseunit.NewController(baseunit.Config{Host: "192.168.1.100"})
//	sub := ctrl.Subscribe(0)
//	ctrl.Start(ctx)
//	for n := range sub.C() {
//	    ...
//	}
//
// Notifications are delivered in wire order. Each subscription has its
// own bounded buffer and a slow subscriber only loses its own
// notifications, never anyone else's and never the read loop's time.
package baseunit
