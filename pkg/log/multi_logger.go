package log

// MultiLogger fans each capture event out to several sinks, typically a
// FileLogger for the .alog file and a SlogAdapter for the console.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger combines sinks. Nil sinks are skipped, so optional sinks can
// be passed without checking them first.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of sinks.
func (m *MultiLogger) Len() int {
	return len(m.sinks)
}

// Log hands event to every sink in order.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
