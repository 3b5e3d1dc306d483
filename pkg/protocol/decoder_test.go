package protocol

import (
	"errors"
	"strings"
	"testing"
)

func decodeAll(t *testing.T, d *Decoder, data string) ([]*Frame, []error) {
	t.Helper()
	buf := []byte(data)
	var frames []*Frame
	var errs []error
	for {
		frame, n, err := d.Decode(buf)
		buf = buf[n:]
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame == nil {
			return frames, errs
		}
		frames = append(frames, frame)
	}
}

func TestDecoderClassifiesFrames(t *testing.T) {
	d := NewDecoder()
	data := "!n08&\r\n" +
		"MINPIC=0a5850123456001064\r\n" +
		"(123418140001003c)\r\n"
	frames, errs := decodeAll(t, d, data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[0].Kind != FrameResponse {
		t.Errorf("frame 0 kind = %v", frames[0].Kind)
	}
	if _, ok := frames[0].Response.(*OpModeResponse); !ok {
		t.Errorf("frame 0 response = %T", frames[0].Response)
	}
	if frames[1].Kind != FrameDeviceEvent || frames[1].Event == nil {
		t.Errorf("frame 1 = %+v", frames[1])
	}
	if frames[2].Kind != FrameContactID || frames[2].ContactID == nil {
		t.Errorf("frame 2 = %+v", frames[2])
	}
	for _, f := range frames {
		if f.ReceivedAt.IsZero() {
			t.Error("frame missing receive timestamp")
		}
	}
}

func TestDecoderPartialInput(t *testing.T) {
	d := NewDecoder()
	full := "!vn1.0.26&\r\n"
	for cut := 1; cut < len(full)-1; cut++ {
		buf := []byte(full[:cut])
		frame, n, err := d.Decode(buf)
		if err != nil {
			t.Fatalf("cut %d: unexpected error: %v", cut, err)
		}
		if frame != nil {
			t.Fatalf("cut %d: got frame before terminator", cut)
		}
		// Only separators may have been consumed.
		if n != 0 {
			t.Fatalf("cut %d: consumed %d bytes of incomplete line", cut, n)
		}
	}
	frame, _, err := d.Decode([]byte(full))
	if err != nil || frame == nil {
		t.Fatalf("complete line: frame = %v, err = %v", frame, err)
	}
}

func TestDecoderSeparatorPlacement(t *testing.T) {
	// CR/LF can show up at the start or the end of messages, alone or
	// doubled up.
	d := NewDecoder()
	data := "\r\n!n08&" + "\n\r" + "\r\nMINPIC=0a5850123456001064" + "\r\r\n"
	frames, errs := decodeAll(t, d, data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
}

func TestDecoderSkipsIgnorableLines(t *testing.T) {
	d := NewDecoder()
	data := "!&\r\n" + // keep-alive reply
		"XINPIC=0a5850123456001064\r\n" + // device not enrolled
		"[et0104281430e200f]\r\n" + // sensor log entry
		"X10 ERR\r\n" +
		"AT+Z\r\n" + // adapter chatter
		"!n08&\r\n"
	frames, errs := decodeAll(t, d, data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(frames) != 1 || frames[0].Kind != FrameResponse {
		t.Fatalf("got %d frames", len(frames))
	}
}

func TestDecoderRecoversAfterCorruptFrame(t *testing.T) {
	d := NewDecoder()
	data := "(123418140001003d)\r\n" + // checksum failure
		"MINPIC=zz\r\n" + // malformed device event
		"!n08&\r\n"
	frames, errs := decodeAll(t, d, data)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	for _, err := range errs {
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			t.Errorf("error %v is not a ProtocolError", err)
		}
	}
	if len(frames) != 1 || frames[0].Kind != FrameResponse {
		t.Fatalf("corrupt frames must not stall decoding; got %d frames", len(frames))
	}
}

func TestDecoderSurvivesTruncatedResponses(t *testing.T) {
	d := NewDecoder()
	data := "!k&\r\n" + // device response with no body
		"!i&\r\n" +
		"!n0&\r\n" + // opmode with the mode digit missing
		"!kb?00&\r\n" // command echo, parses as a short device line
	frames, errs := decodeAll(t, d, data)
	if len(frames) != 0 {
		t.Fatalf("got %d frames from truncated lines, want 0", len(frames))
	}
	if len(errs) != 4 {
		t.Fatalf("got %d errors, want 4: %v", len(errs), errs)
	}
	for _, err := range errs {
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			t.Errorf("error %v is not a ProtocolError", err)
		}
	}

	frames, errs = decodeAll(t, d, "!n08&\r\n")
	if len(errs) != 0 || len(frames) != 1 {
		t.Fatalf("decoder did not recover: %d frames, %v", len(frames), errs)
	}
}

func TestDecoderRejectsGarbageBytes(t *testing.T) {
	d := NewDecoder()
	data := "!n0\xff8&\r\n!n08&\r\n"
	frames, errs := decodeAll(t, d, data)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
}

func TestDecoderOversizeLine(t *testing.T) {
	d := NewDecoder()
	buf := []byte(strings.Repeat("x", MaxLineLength+1))
	_, n, err := d.Decode(buf)
	if err == nil {
		t.Fatal("expected error for oversize unterminated line")
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
}
