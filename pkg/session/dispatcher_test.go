package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// fakeSender records everything sent and optionally replies.
type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, string(data))
	return nil
}

func (s *fakeSender) lastSent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1]
}

func responseFrame(t *testing.T, raw string) *protocol.Frame {
	t.Helper()
	resp, err := protocol.ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse(%q) failed: %v", raw, err)
	}
	return &protocol.Frame{
		Kind:       protocol.FrameResponse,
		Raw:        raw,
		ReceivedAt: time.Now(),
		Response:   resp,
	}
}

func TestExecuteCorrelatesResponse(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{})

	done := make(chan struct{})
	var resp protocol.Response
	var execErr error

	go func() {
		defer close(done)
		resp, execErr = d.Execute(context.Background(), protocol.GetROMVersionCommand{})
	}()

	// Wait for the command to hit the wire, then reply.
	waitFor(t, func() bool { return sender.lastSent() == "!vn?&" })
	d.HandleFrame(responseFrame(t, "!vn1.0.26&"))

	<-done
	if execErr != nil {
		t.Fatalf("Execute failed: %v", execErr)
	}
	rom, ok := resp.(*protocol.ROMVersionResponse)
	if !ok {
		t.Fatalf("response type = %T, want *protocol.ROMVersionResponse", resp)
	}
	if rom.Version != "1.0.26" {
		t.Errorf("version = %q, want %q", rom.Version, "1.0.26")
	}
}

func TestExecuteAppendsPassword(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{Password: "1234"})

	go d.Execute(context.Background(), protocol.ClearStatusCommand{})

	waitFor(t, func() bool { return sender.lastSent() == "!l51234&" })
	d.HandleFrame(responseFrame(t, "!l5&"))
}

func TestExecuteRejectsConcurrentCommand(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{})

	go d.Execute(context.Background(), protocol.GetROMVersionCommand{})
	waitFor(t, func() bool { return sender.lastSent() == "!vn?&" })

	if _, err := d.Execute(context.Background(), protocol.ClearStatusCommand{}); err != ErrBusy {
		t.Errorf("concurrent Execute = %v, want ErrBusy", err)
	}

	d.HandleFrame(responseFrame(t, "!vn1.0.26&"))
}

func TestExecuteTimesOut(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{CommandTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := d.Execute(context.Background(), protocol.GetROMVersionCommand{})
	if err != ErrCommandTimeout {
		t.Fatalf("Execute = %v, want ErrCommandTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took far longer than configured")
	}

	// The slot must be free again.
	go d.Execute(context.Background(), protocol.ClearStatusCommand{})
	waitFor(t, func() bool { return sender.lastSent() == "!l5&" })
	d.HandleFrame(responseFrame(t, "!l5&"))
}

func TestExecuteContextCancel(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := d.Execute(ctx, protocol.GetROMVersionCommand{}); err != context.Canceled {
		t.Errorf("Execute = %v, want context.Canceled", err)
	}
}

func TestMismatchedResponseGoesToEventHandler(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{CommandTimeout: 100 * time.Millisecond})

	events := make(chan *protocol.Frame, 1)
	d.SetEventHandler(func(frame *protocol.Frame) { events <- frame })

	done := make(chan error, 1)
	go func() {
		_, err := d.Execute(context.Background(), protocol.GetROMVersionCommand{})
		done <- err
	}()
	waitFor(t, func() bool { return sender.lastSent() == "!vn?&" })

	// A mode change broadcast arrives while vn is pending.
	d.HandleFrame(responseFrame(t, "!n01&"))

	select {
	case frame := <-events:
		if _, ok := frame.Response.(*protocol.OpModeResponse); !ok {
			t.Errorf("event frame response type = %T, want *protocol.OpModeResponse", frame.Response)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unsolicited frame")
	}

	if err := <-done; err != ErrCommandTimeout {
		t.Errorf("pending command = %v, want ErrCommandTimeout", err)
	}
}

func TestUnsolicitedFramesRouted(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{})

	events := make(chan *protocol.Frame, 4)
	d.SetEventHandler(func(frame *protocol.Frame) { events <- frame })

	event, err := protocol.ParseDeviceEvent("MINPIC=0a5850123456001064")
	if err != nil {
		t.Fatalf("ParseDeviceEvent failed: %v", err)
	}
	d.HandleFrame(&protocol.Frame{
		Kind:       protocol.FrameDeviceEvent,
		Raw:        "MINPIC=0a5850123456001064",
		ReceivedAt: time.Now(),
		Event:      event,
	})

	select {
	case frame := <-events:
		if frame.Kind != protocol.FrameDeviceEvent {
			t.Errorf("frame kind = %v, want %v", frame.Kind, protocol.FrameDeviceEvent)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for device event")
	}
}

func TestCloseFailsPendingCommand(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := d.Execute(context.Background(), protocol.GetROMVersionCommand{})
		done <- err
	}()
	waitFor(t, func() bool { return sender.lastSent() == "!vn?&" })

	d.Close()

	select {
	case err := <-done:
		if err != ErrCancelled {
			t.Errorf("pending Execute = %v, want ErrCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pending command to fail")
	}

	if _, err := d.Execute(context.Background(), protocol.ClearStatusCommand{}); err != ErrSessionClosed {
		t.Errorf("Execute after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSendErrorPropagates(t *testing.T) {
	sender := &fakeSender{err: context.DeadlineExceeded}
	d := NewDispatcher(sender, Config{})

	if _, err := d.Execute(context.Background(), protocol.GetROMVersionCommand{}); err != context.DeadlineExceeded {
		t.Errorf("Execute = %v, want sender error", err)
	}

	// Slot must be released after a send failure.
	sender.err = nil
	go d.Execute(context.Background(), protocol.ClearStatusCommand{})
	waitFor(t, func() bool { return sender.lastSent() == "!l5&" })
	d.HandleFrame(responseFrame(t, "!l5&"))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
