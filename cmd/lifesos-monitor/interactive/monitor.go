// Package interactive provides the interactive command-line interface
// for lifesos-monitor.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/lifesos-protocol/lifesos-go/pkg/baseunit"
	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

const commandTimeout = 10 * time.Second

// Monitor handles interactive mode for lifesos-monitor.
type Monitor struct {
	controller *baseunit.Controller
	rl         *readline.Instance
}

// New creates a new interactive monitor handler.
func New(controller *baseunit.Controller) (*Monitor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lifesos> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Monitor{controller: controller, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (m *Monitor) Stdout() io.Writer {
	return m.rl.Stdout()
}

// Run starts the interactive command loop.
func (m *Monitor) Run(ctx context.Context, cancel context.CancelFunc) {
	defer m.rl.Close()

	m.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := m.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			m.printHelp()

		case "status":
			m.cmdStatus()

		case "devices", "list", "ls":
			m.cmdDevices()

		case "mode":
			m.cmdMode(ctx, args)

		case "clear":
			m.cmdClear(ctx)

		case "switch", "sw":
			m.cmdSwitch(ctx, args)

		case "datetime":
			m.cmdDateTime(ctx)

		case "eventlog":
			m.cmdEventLog(ctx, args)

		case "sensorlog":
			m.cmdSensorLog(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(m.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (m *Monitor) printHelp() {
	fmt.Fprintln(m.rl.Stdout(), `
LifeSOS Monitor Commands:
  status              - Show connection state and base unit snapshot
  devices             - List enrolled devices
  mode <m>            - Set operation mode: disarm, home, away, monitor
  clear               - Clear the alarm and warning status
  switch <n> <on|off> - Operate switch n (1-16)
  datetime            - Sync the base unit clock to local time
  eventlog [n]        - Show the last n event log entries (default 10)
  sensorlog [n]       - Show the last n sensor log entries (default 10)
  quit                - Exit`)
}

func (m *Monitor) cmdStatus() {
	out := m.rl.Stdout()
	snap := m.controller.Snapshot()

	fmt.Fprintf(out, "Connection:  %s\n", snap.State)
	if snap.ROMVersion != "" {
		fmt.Fprintf(out, "ROM version: %s\n", snap.ROMVersion)
	}
	if snap.BaseUnitState != nil {
		fmt.Fprintf(out, "State:       %s\n", snap.BaseUnitState)
	} else if snap.OperationMode != nil {
		fmt.Fprintf(out, "Mode:        %s\n", snap.OperationMode)
	}
	if snap.ExitDelay != nil {
		fmt.Fprintf(out, "Exit delay:  %ds\n", *snap.ExitDelay)
	}
	if snap.EntryDelay != nil {
		fmt.Fprintf(out, "Entry delay: %ds\n", *snap.EntryDelay)
	}
	fmt.Fprintf(out, "Devices:     %d\n", snap.DeviceCount)

	if len(snap.Switches) > 0 {
		var numbers []protocol.SwitchNumber
		for number := range snap.Switches {
			numbers = append(numbers, number)
		}
		sort.Slice(numbers, func(i, j int) bool {
			return numbers[i].String() < numbers[j].String()
		})
		var on []string
		for _, number := range numbers {
			if state := snap.Switches[number]; state != nil && *state {
				on = append(on, number.String())
			}
		}
		if len(on) == 0 {
			fmt.Fprintln(out, "Switches:    all off")
		} else {
			fmt.Fprintf(out, "Switches on: %s\n", strings.Join(on, ", "))
		}
	}
}

func (m *Monitor) cmdDevices() {
	out := m.rl.Stdout()
	devices := m.controller.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(out, "No devices.")
		return
	}

	fmt.Fprintf(out, "%-8s %-10s %-20s %-6s %-5s %s\n",
		"ID", "CATEGORY", "TYPE", "ZONE", "RSSI", "STATE")
	for _, d := range devices {
		state := ""
		switch {
		case !d.Enrolled:
			state = "unconfirmed"
		case d.IsClosed != nil && *d.IsClosed:
			state = "closed"
		case d.IsClosed != nil:
			state = "open"
		case d.Special != nil && d.Special.CurrentReading != nil:
			state = fmt.Sprintf("reading %g", *d.Special.CurrentReading)
		}
		fmt.Fprintf(out, "%-8s %-10s %-20s %-6s %-5d %s\n",
			d.DeviceIDString(), d.Category, d.Type, d.Zone(), d.RSSIBars, state)
	}
}

func (m *Monitor) cmdMode(ctx context.Context, args []string) {
	out := m.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: mode <disarm|home|away|monitor>")
		return
	}

	var mode protocol.OperationMode
	switch strings.ToLower(args[0]) {
	case "disarm":
		mode = protocol.OperationModeDisarm
	case "home":
		mode = protocol.OperationModeHome
	case "away":
		mode = protocol.OperationModeAway
	case "monitor":
		mode = protocol.OperationModeMonitor
	default:
		fmt.Fprintf(out, "Unknown mode: %s\n", args[0])
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := m.controller.SetOperationMode(opCtx, mode); err != nil {
		fmt.Fprintf(out, "Failed to set mode: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Mode set to %s.\n", mode)
}

func (m *Monitor) cmdClear(ctx context.Context) {
	out := m.rl.Stdout()
	opCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := m.controller.ClearStatus(opCtx); err != nil {
		fmt.Fprintf(out, "Failed to clear status: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Status cleared.")
}

func (m *Monitor) cmdSwitch(ctx context.Context, args []string) {
	out := m.rl.Stdout()
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: switch <n> <on|off>")
		return
	}

	index, err := strconv.Atoi(args[0])
	if err != nil || index < 1 || index > len(protocol.AllSwitches) {
		fmt.Fprintf(out, "Switch number must be 1-%d.\n", len(protocol.AllSwitches))
		return
	}
	number := protocol.AllSwitches[index-1]

	var on bool
	switch strings.ToLower(args[1]) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		fmt.Fprintln(out, "Usage: switch <n> <on|off>")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := m.controller.SetSwitch(opCtx, number, on); err != nil {
		fmt.Fprintf(out, "Failed to set switch: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s set to %s.\n", number, args[1])
}

func (m *Monitor) cmdDateTime(ctx context.Context) {
	out := m.rl.Stdout()
	now := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := m.controller.SetDateTime(opCtx, now); err != nil {
		fmt.Fprintf(out, "Failed to set date/time: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Base unit clock set to %s.\n", now.Format("2006-01-02 15:04"))
}

func (m *Monitor) cmdEventLog(ctx context.Context, args []string) {
	out := m.rl.Stdout()
	count := m.logCount(args)
	if count < 0 {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, commandTimeout*2)
	defer cancel()

	// Entry 0 reveals the index of the newest entry; walk backwards
	// from there.
	first, err := m.controller.GetEventLog(opCtx, 0)
	if err != nil {
		fmt.Fprintf(out, "Failed to read event log: %v\n", err)
		return
	}
	if first == nil {
		fmt.Fprintln(out, "Event log is empty.")
		return
	}

	last := first.LastIndex
	for i := 0; i < count; i++ {
		index := last - i
		if index < 0 {
			break
		}
		entry, err := m.controller.GetEventLog(opCtx, index)
		if err != nil {
			fmt.Fprintf(out, "Failed to read entry %d: %v\n", index, err)
			return
		}
		if entry == nil {
			break
		}
		when := fmt.Sprintf("%02d-%02d %02d:%02d",
			entry.LoggedMonth, entry.LoggedDay, entry.LoggedHour, entry.LoggedMinute)
		if zone := entry.Zone(); zone != "" {
			fmt.Fprintf(out, "%s  %s (%s) zone %s\n", when, entry.EventCode, entry.Qualifier, zone)
		} else {
			fmt.Fprintf(out, "%s  %s (%s)\n", when, entry.EventCode, entry.Qualifier)
		}
	}
}

func (m *Monitor) cmdSensorLog(ctx context.Context, args []string) {
	out := m.rl.Stdout()
	count := m.logCount(args)
	if count < 0 {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, commandTimeout*2)
	defer cancel()

	first, err := m.controller.GetSensorLog(opCtx, 0)
	if err != nil {
		fmt.Fprintf(out, "Failed to read sensor log: %v\n", err)
		return
	}
	if first == nil {
		fmt.Fprintln(out, "Sensor log is empty.")
		return
	}

	last := first.LastIndex
	for i := 0; i < count; i++ {
		index := last - i
		if index < 0 {
			break
		}
		entry, err := m.controller.GetSensorLog(opCtx, index)
		if err != nil {
			fmt.Fprintf(out, "Failed to read entry %d: %v\n", index, err)
			return
		}
		if entry == nil {
			break
		}
		reading := "no reading"
		if entry.Reading != nil {
			reading = fmt.Sprintf("reading %g", *entry.Reading)
		}
		fmt.Fprintf(out, "%02d %02d:%02d  zone %s, %s\n",
			entry.LoggedDay, entry.LoggedHour, entry.LoggedMinute, entry.Zone(), reading)
	}
}

// logCount parses the optional entry count argument. Returns -1 after
// printing an error for unusable input.
func (m *Monitor) logCount(args []string) int {
	if len(args) == 0 {
		return 10
	}
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Fprintln(m.rl.Stdout(), "Entry count must be a positive number.")
		return -1
	}
	return count
}
