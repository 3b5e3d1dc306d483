// Command lifesos-monitor connects to a LifeSOS base unit and follows
// everything it reports: mode changes, sensor events, alarms and the
// enrolled device inventory.
//
// Usage:
//
//	lifesos-monitor [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-host string        Base unit address
//	-port int           Base unit port (default 1680)
//	-password string    Base unit password
//	-listen string      Listen address; wait for the base unit to dial in
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-log-file string    Protocol log file (CBOR format)
//	-interactive        Enable interactive command mode
//
// Examples:
//
//	# Follow a base unit on the local network
//	lifesos-monitor -host 192.168.1.100
//
//	# Interactive mode with a protocol log for later inspection
//	lifesos-monitor -host 192.168.1.100 -interactive -log-file protocol.log
//
//	# Wait for the base unit to dial in
//	lifesos-monitor -listen :1680
//
// Interactive Commands:
//
//	status              - Show connection state and base unit snapshot
//	devices             - List enrolled devices
//	mode <m>            - Set operation mode: disarm, home, away, monitor
//	clear               - Clear the alarm and warning status
//	switch <n> <on|off> - Operate a switch
//	datetime            - Sync the base unit clock to local time
//	eventlog [n]        - Show the last n event log entries
//	quit                - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lifesos-protocol/lifesos-go/cmd/lifesos-monitor/interactive"
	"github.com/lifesos-protocol/lifesos-go/pkg/baseunit"
	"github.com/lifesos-protocol/lifesos-go/pkg/config"
	"github.com/lifesos-protocol/lifesos-go/pkg/log"
	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
)

var flags struct {
	ConfigFile  string
	Host        string
	Port        int
	Password    string
	Listen      string
	LogLevel    string
	LogFile     string
	Interactive bool
}

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.Host, "host", "", "Base unit address")
	flag.IntVar(&flags.Port, "port", 0, "Base unit port")
	flag.StringVar(&flags.Password, "password", "", "Base unit password")
	flag.StringVar(&flags.Listen, "listen", "", "Listen address; wait for the base unit to dial in")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.LogFile, "log-file", "", "Protocol log file (CBOR format)")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}

	setupLogging(cfg.LogLevel)

	protocolLogger, closeLogger, err := buildLogger(cfg)
	if err != nil {
		stdlog.Fatalf("Failed to open protocol log: %v", err)
	}
	defer closeLogger()

	controller := baseunit.NewController(baseunit.Config{
		Host:                  cfg.Host,
		Port:                  cfg.Port,
		Password:              cfg.Password,
		ListenMode:            cfg.ListenMode,
		ListenAddress:         cfg.ListenAddress,
		SkipEnumerateOnAccept: cfg.EnumerateOnAccept != nil && !*cfg.EnumerateOnAccept,
		CommandTimeout:        cfg.CommandTimeout.Value(),
		ReconnectInitialDelay: cfg.ReconnectInitialDelay.Value(),
		ReconnectMaxDelay:     cfg.ReconnectMaxDelay.Value(),
		MaxReconnectAttempts:  cfg.MaxReconnectAttempts,
		SubscriptionBuffer:    cfg.SubscriptionBuffer,
		Logger:                protocolLogger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		stdlog.Fatalf("Failed to start: %v", err)
	}
	defer controller.Close()

	if cfg.ListenMode {
		stdlog.Printf("Waiting for the base unit on %s", cfg.ListenAddress)
	} else {
		stdlog.Printf("Connecting to %s:%d", cfg.Host, cfg.Port)
	}

	sub := controller.Subscribe(cfg.SubscriptionBuffer)
	go printNotifications(sub)

	if flags.Interactive {
		console, err := interactive.New(controller)
		if err != nil {
			stdlog.Fatalf("Failed to create console: %v", err)
		}
		// Route log output through readline so the prompt survives.
		stdlog.SetOutput(console.Stdout())
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	stdlog.Println("Shutting down...")
}

// loadConfig merges the config file with command line overrides. Flags
// win over the file.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flags.ConfigFile != "" {
		loaded, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Host != "" {
		cfg.Host = flags.Host
	}
	if flags.Port != 0 {
		cfg.Port = flags.Port
	}
	if flags.Password != "" {
		cfg.Password = flags.Password
	}
	if flags.Listen != "" {
		cfg.ListenMode = true
		cfg.ListenAddress = flags.Listen
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		cfg.LogFile = flags.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string) {
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	switch level {
	case "debug":
		stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds | stdlog.Lshortfile)
	case "warn", "error":
		stdlog.SetFlags(stdlog.Ltime)
	}
}

// buildLogger assembles the protocol logger: a CBOR file when
// configured, plus console output at debug level.
func buildLogger(cfg *config.Config) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeLogger := func() {}

	if cfg.LogFile != "" {
		fileLogger, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fileLogger)
		closeLogger = func() { fileLogger.Close() }
	}
	if cfg.LogLevel == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeLogger, nil
	case 1:
		return loggers[0], closeLogger, nil
	default:
		return log.NewMultiLogger(loggers...), closeLogger, nil
	}
}

func printNotifications(sub *baseunit.Subscription) {
	for n := range sub.C() {
		switch n.Kind {
		case baseunit.KindConnectionState:
			stdlog.Printf("[STATE] %s", n.State)

		case baseunit.KindDeviceAdded:
			stdlog.Printf("[DEVICE] added: %s", n.Device)

		case baseunit.KindDeviceChanged:
			stdlog.Printf("[DEVICE] changed: %s", n.Device)

		case baseunit.KindDeviceRemoved:
			stdlog.Printf("[DEVICE] removed: %s", n.Device)

		case baseunit.KindBaseUnitChanged:
			stdlog.Printf("[BASEUNIT] %s", describeSnapshot(n.Snapshot))

		case baseunit.KindEvent:
			stdlog.Printf("[EVENT] %s", describeFrame(n.Frame))
		}
	}
}

func describeSnapshot(snap *baseunit.Snapshot) string {
	mode := "unknown"
	if snap.BaseUnitState != nil {
		mode = snap.BaseUnitState.String()
	} else if snap.OperationMode != nil {
		mode = snap.OperationMode.String()
	}
	return fmt.Sprintf("mode %s, %d devices", mode, snap.DeviceCount)
}

func describeFrame(frame *protocol.Frame) string {
	switch {
	case frame == nil:
		return "unknown"
	case frame.Event != nil:
		return frame.Event.String()
	case frame.ContactID != nil:
		ci := frame.ContactID
		if zone := ci.Zone(); zone != "" {
			return fmt.Sprintf("contact id %s (%s) zone %s", ci.EventCode, ci.Qualifier, zone)
		}
		return fmt.Sprintf("contact id %s (%s)", ci.EventCode, ci.Qualifier)
	default:
		return frame.Raw
	}
}
