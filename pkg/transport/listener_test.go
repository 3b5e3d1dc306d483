package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestListenerRequiresConfig(t *testing.T) {
	if _, err := NewListener(ListenerConfig{}); err == nil {
		t.Error("expected error for missing address")
	}
	if _, err := NewListener(ListenerConfig{Address: ":0"}); err == nil {
		t.Error("expected error for missing OnConnection")
	}
}

func TestListenerAcceptsConnection(t *testing.T) {
	accepted := make(chan net.Conn, 1)

	listener, err := NewListener(ListenerConfig{
		Address:      "127.0.0.1:0",
		OnConnection: func(conn net.Conn) { accepted <- conn },
	})
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer listener.Stop()

	conn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection callback")
	}
}

func TestListenerReplacesStaleConnection(t *testing.T) {
	accepted := make(chan net.Conn, 2)

	listener, err := NewListener(ListenerConfig{
		Address:      "127.0.0.1:0",
		OnConnection: func(conn net.Conn) { accepted <- conn },
	})
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer listener.Stop()

	first, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("first dial failed: %v", err)
	}
	defer first.Close()
	<-accepted

	second, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("second dial failed: %v", err)
	}
	defer second.Close()
	<-accepted

	// The first connection should have been closed by the listener.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := first.Read(buf); err == nil {
		t.Error("expected first connection to be closed after replacement")
	}
}

func TestListenerDoubleStart(t *testing.T) {
	listener, err := NewListener(ListenerConfig{
		Address:      "127.0.0.1:0",
		OnConnection: func(net.Conn) {},
	})
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer listener.Stop()

	if err := listener.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestListenerStopWithoutStart(t *testing.T) {
	listener, err := NewListener(ListenerConfig{
		Address:      "127.0.0.1:0",
		OnConnection: func(net.Conn) {},
	})
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	if err := listener.Stop(); err != nil {
		t.Errorf("Stop without Start failed: %v", err)
	}
}
