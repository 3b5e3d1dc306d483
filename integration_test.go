package lifesos_test

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/baseunit"
	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

// fakePanel emulates the TCP side of a base unit's ethernet adapter.
// It answers enumeration and switch commands and can push unsolicited
// lines to every connected client.
type fakePanel struct {
	t  *testing.T
	ln net.Listener

	mu    sync.Mutex
	conns []net.Conn
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	p := &fakePanel{t: t, ln: ln}
	go p.acceptLoop()
	t.Cleanup(func() {
		p.ln.Close()
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, conn := range p.conns {
			conn.Close()
		}
	})
	return p
}

func (p *fakePanel) port() int {
	return p.ln.Addr().(*net.TCPAddr).Port
}

// dial connects out to a listening controller, the way a base unit
// configured for client mode would.
func (p *fakePanel) dial(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	p.track(conn)
	return nil
}

// push sends an unsolicited line to every connected client.
func (p *fakePanel) push(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.conns {
		conn.Write([]byte(line + "\r\n"))
	}
}

func (p *fakePanel) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.track(conn)
	}
}

func (p *fakePanel) track(conn net.Conn) {
	p.mu.Lock()
	p.conns = append(p.conns, conn)
	p.mu.Unlock()
	go p.serve(conn)
}

func (p *fakePanel) serve(conn net.Conn) {
	buf := make([]byte, 1)
	var cmd []byte
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
		cmd = append(cmd, buf[0])
		if buf[0] != '&' {
			continue
		}
		reply := p.respond(string(cmd))
		cmd = cmd[:0]
		if reply == "" {
			continue
		}
		if _, err := conn.Write([]byte(reply + "\r\n")); err != nil {
			return
		}
	}
}

func (p *fakePanel) respond(cmd string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(cmd, "!"), "&")
	switch {
	case inner == "":
		return ""
	case strings.HasPrefix(inner, "vn"):
		return "!vn1.0.26&"
	case strings.HasPrefix(inner, "n0s"):
		return "!n0s" + inner[3:4] + "&"
	case strings.HasPrefix(inner, "n0"):
		return "!n00&"
	case strings.HasPrefix(inner, "l0"):
		return "!l010&"
	case strings.HasPrefix(inner, "l1"):
		return "!l110&"
	case inner == "kb?00":
		// One burglar sensor, a door magnet in zone 01-02.
		return "!kb401234560110000102060000006510&"
	case strings.HasPrefix(inner, "k") && len(inner) >= 2:
		return "!k" + inner[1:2] + "no&"
	case strings.HasPrefix(inner, "s") && len(inner) >= 3 && inner[2] == 's':
		return "!" + inner[0:2] + "s" + inner[3:4] + "&"
	case strings.HasPrefix(inner, "s") && len(inner) >= 2:
		return "!s" + inner[1:2] + "c&"
	default:
		p.t.Logf("fake panel: unhandled command %q", cmd)
		return ""
	}
}

func waitFor(t *testing.T, sub *baseunit.Subscription, match func(baseunit.Notification) bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n, ok := <-sub.C():
			if !ok {
				t.Fatal("subscription closed")
			}
			if match(n) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for notification")
		}
	}
}

func waitMonitoring(t *testing.T, sub *baseunit.Subscription) {
	t.Helper()
	waitFor(t, sub, func(n baseunit.Notification) bool {
		return n.Kind == baseunit.KindConnectionState && n.State == baseunit.StateMonitoring
	})
}

func TestE2E_MonitorEventsAndCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	panel := newFakePanel(t)
	controller := baseunit.NewController(baseunit.Config{
		Host:                  "127.0.0.1",
		Port:                  panel.port(),
		CommandTimeout:        2 * time.Second,
		ReconnectInitialDelay: 10 * time.Millisecond,
	})
	sub := controller.Subscribe(256)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer controller.Close()

	waitMonitoring(t, sub)

	snap := controller.Snapshot()
	if snap.ROMVersion != "1.0.26" {
		t.Errorf("rom version = %q", snap.ROMVersion)
	}
	if snap.DeviceCount != 1 {
		t.Errorf("device count = %d, want 1", snap.DeviceCount)
	}

	// An unsolicited sensor trigger reaches subscribers and bumps the
	// device state.
	panel.push("MINPIC=0a5840123456011064")
	waitFor(t, sub, func(n baseunit.Notification) bool {
		return n.Kind == baseunit.KindEvent && n.Frame != nil && n.Frame.Event != nil &&
			n.Frame.Event.DeviceID == 0x123456
	})

	// An arm report over Contact ID moves the tracked mode.
	panel.push("(123418140001003c)")
	waitFor(t, sub, func(n baseunit.Notification) bool {
		if n.Kind != baseunit.KindBaseUnitChanged || n.Snapshot == nil {
			return false
		}
		m := n.Snapshot.OperationMode
		return m != nil && *m == protocol.OperationModeAway
	})

	// Command round trip.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := controller.SetSwitch(ctx, protocol.Switch01, true); err != nil {
		t.Fatalf("set switch: %v", err)
	}
	on, ok := controller.Snapshot().Switches[protocol.Switch01]
	if !ok || on == nil || !*on {
		t.Errorf("switch 1 = %v, want on", on)
	}
}

func TestE2E_ListenMode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	panel := newFakePanel(t)
	controller := baseunit.NewController(baseunit.Config{
		ListenMode:     true,
		ListenAddress:  "127.0.0.1:0",
		CommandTimeout: 2 * time.Second,
	})
	sub := controller.Subscribe(256)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer controller.Close()

	addr := controller.ListenAddr()
	if addr == nil {
		t.Fatal("no listen address after start")
	}

	// The base unit dials in; the controller enumerates it as usual.
	if err := panel.dial(addr.String()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitMonitoring(t, sub)

	if _, ok := controller.GetDevice(0x123456); !ok {
		t.Error("device missing after enumeration over inbound connection")
	}
}
