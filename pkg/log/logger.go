package log

// Logger receives protocol events from the transport, decoder and
// controller layers. Implementations must be safe for concurrent use;
// Log is called from the connection read loop, so it should return
// quickly.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use, so a
// component that wants logging off can hold NoopLogger{} instead of a
// nil check at every call site.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// MultiLogger duplicates every event to a set of loggers, typically a
// FileLogger for later inspection with lifesos-log plus a SlogAdapter
// for the console.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a MultiLogger over the given loggers. Events
// are delivered in argument order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{sinks: loggers}
}

func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
)
