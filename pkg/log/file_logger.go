package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends capture events to an .alog file. It is safe for
// concurrent use, since transports with a background pump may log from
// their own goroutine.
type FileLogger struct {
	mu       sync.Mutex
	file     *os.File
	enc      *cbor.Encoder
	closed   bool
	failures int
}

// NewFileLogger opens path for appending, creating it with mode 0644. A
// restarted node adds a new session to the same file.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f, enc: NewEncoder(f)}, nil
}

// Log writes event. A failed write never reaches the bus; it is counted
// and reported by Failures.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.failures++
	}
}

// Failures returns how many events could not be written.
func (l *FileLogger) Failures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// Close closes the file. Later calls to Log are ignored and later calls to
// Close return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
