// Package transport provides the TCP transport to a LifeSOS base unit.
//
// The transport layer handles:
//   - TCP connections to the base unit's ethernet adapter
//   - Accumulating the byte stream and decoding it into frames
//   - Keep-alive NoOps so the adapter does not drop idle connections
//   - Connection state management
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   ASCII lines (protocol pkg)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The serial-to-ethernet adapter in the base unit relays raw serial
// traffic with no authentication or encryption of its own, and places
// CR/LF pairs at arbitrary points in the stream. The read loop buffers
// incoming bytes and feeds them to a protocol.Decoder, which
// resynchronizes on the next separator after a corrupt line.
//
// # Connection Modes
//
// The adapter can run in TCP server mode, where this library dials out
// (Connection.Connect), or TCP client mode, where the base unit dials
// in to a local Listener and the accepted net.Conn is adopted with
// Connection.Attach. The adapter supports one connection at a time in
// either mode.
//
// # Keep-Alive
//
// After 30 seconds without traffic a NoOp command ("!&") is written.
// The base unit echoes it back, which the decoder treats as traffic
// and discards.
package transport
