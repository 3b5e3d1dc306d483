// Package session provides command/response correlation for a base
// unit connection.
//
// The LifeSOS protocol has no message identifiers. The base unit
// processes one command at a time and its reply echoes the two
// character command name, so the Dispatcher holds a single in-flight
// slot and matches responses by name. A second Execute while one is
// pending fails with ErrBusy; callers that need retries or queueing
// layer them on top (see the baseunit package).
//
// Frames that are not the reply to the in-flight command - device
// events, contact id reports and responses nobody asked for - are
// passed to the event handler. Unsolicited responses matter: the base
// unit broadcasts an operation mode response to every connection when
// the mode changes from a keypad or remote.
package session
