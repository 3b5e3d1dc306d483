package protocol

import (
	"fmt"
	"strings"
	"time"
)

// FrameKind discriminates the three kinds of inbound frames.
type FrameKind uint8

const (
	FrameResponse FrameKind = iota
	FrameDeviceEvent
	FrameContactID
)

func (k FrameKind) String() string {
	switch k {
	case FrameResponse:
		return "Response"
	case FrameDeviceEvent:
		return "DeviceEvent"
	case FrameContactID:
		return "ContactID"
	default:
		return fmt.Sprintf("FrameKind(%d)", uint8(k))
	}
}

// Frame is a single decoded unit from the inbound byte stream. Exactly one
// of Response, Event or ContactID is set, matching Kind.
type Frame struct {
	Kind       FrameKind
	Raw        string
	ReceivedAt time.Time

	Response  Response
	Event     *DeviceEvent
	ContactID *ContactID
}

// ProtocolError reports a line that was recognized as a frame but failed
// validation or parsing. The decoder has already advanced past it.
type ProtocolError struct {
	Raw    string
	Reason error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %q: %v", e.Raw, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Reason }

// MaxLineLength bounds the length of a single unterminated line before the
// decoder gives up on finding a terminator and discards the buffer.
const MaxLineLength = 1024

// Decoder scans the inbound byte stream for frames. The base unit places
// CR and LF somewhat randomly at the start or end of each message, so the
// stream is treated as lines separated by any run of CR/LF and classified
// by their leading characters.
type Decoder struct {
	maxLine int
}

func NewDecoder() *Decoder {
	return &Decoder{maxLine: MaxLineLength}
}

// Decode scans buf for the next frame. It returns the decoded frame and
// the number of bytes consumed. A nil frame with nil error means more data
// is needed; consumed may still be positive when separators or ignorable
// lines were skipped. A ProtocolError also reports consumed bytes so the
// caller can drop the corrupted line and continue with the rest.
func (d *Decoder) Decode(buf []byte) (*Frame, int, error) {
	consumed := 0
	for {
		// Skip line separators.
		for consumed < len(buf) && (buf[consumed] == '\r' || buf[consumed] == '\n') {
			consumed++
		}
		start := consumed
		end := start
		for end < len(buf) && buf[end] != '\r' && buf[end] != '\n' {
			end++
		}
		if end == len(buf) {
			// No terminator yet; wait for more data unless the line has
			// grown beyond any sane frame size.
			if end-start > d.maxLine {
				return nil, len(buf), &ProtocolError{
					Raw:    string(buf[start:min(start+64, end)]),
					Reason: fmt.Errorf("unterminated line exceeds %d bytes", d.maxLine),
				}
			}
			return nil, consumed, nil
		}
		line := string(buf[start:end])
		consumed = end
		if line == "" {
			continue
		}
		if !isASCIILine(line) {
			// Garbage bytes, typically from a faulty cable between the
			// base unit and the serial-ethernet adapter.
			return nil, consumed, &ProtocolError{
				Raw:    line,
				Reason: fmt.Errorf("line contains non-ASCII bytes"),
			}
		}

		frame, err := classifyLine(line)
		if err != nil {
			return nil, consumed, &ProtocolError{Raw: line, Reason: err}
		}
		if frame == nil {
			continue
		}
		frame.ReceivedAt = time.Now()
		return frame, consumed, nil
	}
}

// classifyLine decides what a complete line is. Nil with nil error means
// the line carries nothing of interest and is dropped.
func classifyLine(line string) (*Frame, error) {
	switch {
	case strings.HasPrefix(line, string(MarkerStart)) && strings.HasSuffix(line, string(MarkerEnd)):
		resp, err := ParseResponse(line)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			// Reply to a keep-alive; nothing to deliver.
			return nil, nil
		}
		return &Frame{Kind: FrameResponse, Raw: line, Response: resp}, nil

	case strings.HasPrefix(line, DeviceEventPrefix):
		event, err := ParseDeviceEvent(line)
		if err != nil {
			return nil, err
		}
		return &Frame{Kind: FrameDeviceEvent, Raw: line, Event: event}, nil

	// Events from devices that are not enrolled, and display events from
	// the base unit. Neither is of interest.
	case strings.HasPrefix(line, unenrolledEventPrefix):
		return nil, nil

	case strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")"):
		contactID, err := ParseContactID(line[1 : len(line)-1])
		if err != nil {
			return nil, err
		}
		return &Frame{Kind: FrameContactID, Raw: line, ContactID: contactID}, nil

	// New sensor log entry; superfluous since device events already carry
	// this information.
	case strings.HasPrefix(line, sensorLogEntryPrefix) && strings.HasSuffix(line, "]"):
		return nil, nil

	// Failure to trigger an X10 switch.
	case line == x10ErrorLine:
		return nil, nil

	default:
		// Anything unrecognized is dropped.
		return nil, nil
	}
}

func isASCIILine(line string) bool {
	for i := 0; i < len(line); i++ {
		if line[i] > 0x7f {
			return false
		}
	}
	return true
}
