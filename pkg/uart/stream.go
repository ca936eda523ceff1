package uart

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// DefaultPumpSize is the default receive buffer of a PumpStream.
const DefaultPumpSize = 4096

// ErrStreamClosed indicates use of a closed PumpStream.
var ErrStreamClosed = errors.New("uart: stream closed")

// PumpStream turns a blocking io.ReadWriter into a Stream. A background
// goroutine reads into a bounded buffer; when the buffer is full the oldest
// bytes are dropped, which the decoder treats like line noise.
type PumpStream struct {
	rw   io.ReadWriter
	size int

	mu      sync.Mutex
	buf     []byte
	err     error
	started bool
	dropped uint64
	done    chan struct{}
}

// NewPumpStream wraps rw. size <= 0 selects DefaultPumpSize.
func NewPumpStream(rw io.ReadWriter, size int) *PumpStream {
	if size <= 0 {
		size = DefaultPumpSize
	}
	return &PumpStream{rw: rw, size: size, done: make(chan struct{})}
}

// Start launches the reader goroutine. Calling it again is a no-op.
func (s *PumpStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if s.started {
		return nil
	}
	s.started = true
	go s.pump()
	return nil
}

func (s *PumpStream) pump() {
	defer close(s.done)
	chunk := make([]byte, 256)
	for {
		n, err := s.rw.Read(chunk)
		s.mu.Lock()
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
			if over := len(s.buf) - s.size; over > 0 {
				s.buf = s.buf[over:]
				s.dropped += uint64(over)
			}
		}
		if err != nil {
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// Buffered returns the number of bytes ready to read.
func (s *PumpStream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// ReadByte returns the next buffered byte. It never blocks; with nothing
// buffered it returns the stream error or io.EOF.
func (s *PumpStream) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

// Write writes to the underlying stream.
func (s *PumpStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	closed := errors.Is(s.err, ErrStreamClosed)
	s.mu.Unlock()
	if closed {
		return 0, ErrStreamClosed
	}
	return s.rw.Write(p)
}

// Err returns the error that stopped the reader, if any.
func (s *PumpStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when the reader goroutine exits.
func (s *PumpStream) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many received bytes were discarded on overflow.
func (s *PumpStream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close closes the underlying stream if it is an io.Closer.
func (s *PumpStream) Close() error {
	s.mu.Lock()
	if s.err == nil {
		s.err = ErrStreamClosed
	}
	s.mu.Unlock()

	if c, ok := s.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// BufferStream is an in-memory Stream: reads come from In, writes go to
// Out. It is not safe for concurrent use and serves tools and tests.
type BufferStream struct {
	In  bytes.Buffer
	Out bytes.Buffer
}

// Buffered returns the number of unread input bytes.
func (b *BufferStream) Buffered() int { return b.In.Len() }

// ReadByte reads one input byte.
func (b *BufferStream) ReadByte() (byte, error) { return b.In.ReadByte() }

// Write appends to the output buffer.
func (b *BufferStream) Write(p []byte) (int, error) { return b.Out.Write(p) }

var (
	_ Stream  = (*PumpStream)(nil)
	_ Starter = (*PumpStream)(nil)
	_ Stream  = (*BufferStream)(nil)
)
