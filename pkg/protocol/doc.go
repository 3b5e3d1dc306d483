// Package protocol implements the LifeSOS wire format.
//
// The base unit speaks a line oriented ASCII protocol over TCP. Three kinds
// of inbound frames exist:
//
//   - Responses: '!' ... '&', replies to commands issued by this client or
//     any other client connected through the same adapter
//   - Device events: 'MINPIC=' lines from enrolled devices
//   - Contact ID: '(' 16 hex digits ')', alarm reports in the Ademco
//     Contact ID format
//
// Commands are framed the same way as responses: marker, command name, an
// action character, arguments, optional password, end marker.
//
// # Hex Variants
//
// Command arguments use an ASCII hex variant where the six characters after
// '9' stand in for a to f ("0123456789:;<=>?"). Responses use regular hex
// when reporting a queried value but mirror back ASCII hex after a set.
// FromASCIIHex accepts both.
//
// # Line Separation
//
// CR and LF appear somewhat randomly at the start or end of messages. The
// Decoder buffers partial lines and treats any run of CR/LF as a separator.
package protocol
