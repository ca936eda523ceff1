package log

import (
	"time"

	"github.com/google/uuid"
)

// Logger receives capture events. Pass nil or NoopLogger to disable capture.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and should
	// not block; the bus loop calls Log inline.
	Log(event Event)
}

// NoopLogger discards all events.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Session stamps events with a session ID and a timestamp before handing
// them to the wrapped Logger. One session covers one process run.
type Session struct {
	id     string
	next   Logger
	nodeID func() uint16
}

// NewSession wraps next with a fresh random session ID. nodeID, if non-nil,
// fills Event.NodeID when the event does not carry one.
func NewSession(next Logger, nodeID func() uint16) *Session {
	if next == nil {
		next = NoopLogger{}
	}
	return &Session{id: uuid.NewString(), next: next, nodeID: nodeID}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Log stamps and forwards the event.
func (s *Session) Log(event Event) {
	if event.SessionID == "" {
		event.SessionID = s.id
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.NodeID == 0 && s.nodeID != nil {
		event.NodeID = s.nodeID()
	}
	s.next.Log(event)
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*Session)(nil)
)
