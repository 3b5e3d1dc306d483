package log

import (
	"testing"
	"time"
)

// captureLogger keeps every event it receives, in order.
type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(event Event) {
	c.events = append(c.events, event)
}

func TestNoopLoggerAcceptsAnyPayload(t *testing.T) {
	var logger NoopLogger

	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "6a1f0d2e",
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
	}
	logger.Log(event)

	event.Line = &LineEvent{Size: 20, Data: "MINPIC=0a5840123456011064"}
	logger.Log(event)

	event.Line = nil
	event.Message = &MessageEvent{Type: MessageTypeCommand, Name: "n0", Text: "!n0s2****&"}
	logger.Log(event)

	event.Message = nil
	event.StateChange = &StateChangeEvent{Entity: StateEntityController, NewState: "MONITORING"}
	logger.Log(event)

	event.StateChange = nil
	event.Error = &ErrorEventData{Layer: LayerTransport, Message: "connection reset"}
	logger.Log(event)
}

func TestMultiLoggerFansOut(t *testing.T) {
	first := &captureLogger{}
	second := &captureLogger{}
	multi := NewMultiLogger(first, second)

	events := []Event{
		{ConnectionID: "conn-a", Direction: DirectionOut, Layer: LayerProtocol, Category: CategoryMessage},
		{ConnectionID: "conn-a", Direction: DirectionIn, Layer: LayerProtocol, Category: CategoryMessage,
			DeviceID: "123456"},
	}
	for _, e := range events {
		multi.Log(e)
	}

	for name, sink := range map[string]*captureLogger{"first": first, "second": second} {
		if len(sink.events) != len(events) {
			t.Fatalf("%s logger: got %d events, want %d", name, len(sink.events), len(events))
		}
		if sink.events[1].DeviceID != "123456" {
			t.Errorf("%s logger: device id = %q", name, sink.events[1].DeviceID)
		}
	}
}

func TestMultiLoggerWithNoSinks(t *testing.T) {
	NewMultiLogger().Log(Event{ConnectionID: "conn-a"})
}
