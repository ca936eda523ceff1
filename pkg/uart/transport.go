package uart

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	alog "github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/transport"
	"github.com/asysbus/asb-go/pkg/wire"
)

// Stream is a non-blocking byte stream. Buffered reports how many bytes
// ReadByte can return without blocking.
type Stream interface {
	io.Writer
	io.ByteReader
	Buffered() int
}

// Starter is implemented by streams that need to be started before use.
type Starter interface {
	Start() error
}

// Config configures a Transport.
type Config struct {
	// Name identifies the transport in logs (default "uart").
	Name string

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// Capture receives raw frame events. Nil disables capture.
	Capture alog.Logger
}

// Transport adapts a Stream to transport.Transport.
type Transport struct {
	stream  Stream
	config  Config
	dec     Decoder
	wbuf    []byte
	lastErr error
}

// NewTransport creates a UART transport on top of stream.
func NewTransport(stream Stream, config Config) *Transport {
	if stream == nil {
		panic("uart: nil stream")
	}
	if config.Name == "" {
		config.Name = "uart"
	}
	return &Transport{
		stream: stream,
		config: config,
		wbuf:   make([]byte, 0, MaxFrameLen+1),
	}
}

// Begin starts the stream if it needs starting. A plain stream is always
// ready.
func (t *Transport) Begin() error {
	if s, ok := t.stream.(Starter); ok {
		if err := s.Start(); err != nil {
			t.lastErr = fmt.Errorf("uart: start: %w", err)
			return t.lastErr
		}
	}
	t.lastErr = nil
	return nil
}

// Send validates the envelope and writes one frame.
func (t *Transport) Send(meta wire.Meta, payload []byte) bool {
	if len(payload) > wire.MaxPayload {
		t.lastErr = fmt.Errorf("%w: %d bytes", wire.ErrPayloadTooLong, len(payload))
		return false
	}
	if err := meta.Validate(); err != nil {
		t.lastErr = err
		t.debugLog("rejecting packet", "meta", meta.String(), "error", err)
		return false
	}
	if meta.Type != wire.TypeUnicast {
		meta.Port = wire.PortUnset
	}

	t.wbuf = AppendFrame(t.wbuf[:0], meta, payload)
	if _, err := t.stream.Write(t.wbuf); err != nil {
		t.lastErr = fmt.Errorf("uart: write: %w", err)
		return false
	}
	t.capture(t.wbuf, alog.DirectionOut)
	return true
}

// Receive drains buffered bytes into the decoder until one packet is
// complete or the stream has nothing more to give.
func (t *Transport) Receive(pkt *wire.Packet) bool {
	for t.stream.Buffered() > 0 {
		b, err := t.stream.ReadByte()
		if err != nil {
			t.lastErr = fmt.Errorf("uart: read: %w", err)
			return false
		}
		before := t.dec.stats.Resyncs
		p, ok := t.dec.Feed(b)
		if t.dec.stats.Resyncs != before {
			t.debugLog("frame resync", "resyncs", t.dec.stats.Resyncs)
		}
		if ok {
			*pkt = p
			t.capture(t.dec.Frame(), alog.DirectionIn)
			return true
		}
	}
	return false
}

// Stats returns the decoder counters.
func (t *Transport) Stats() Stats {
	return t.dec.Stats()
}

// LastError returns the error of the most recent failed operation.
func (t *Transport) LastError() error {
	return t.lastErr
}

// Name returns the configured transport name.
func (t *Transport) Name() string {
	return t.config.Name
}

func (t *Transport) capture(frame []byte, dir alog.Direction) {
	if t.config.Capture == nil {
		return
	}
	data := make([]byte, len(frame))
	copy(data, frame)
	t.config.Capture.Log(alog.Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     alog.LayerTransport,
		Category:  alog.CategoryFrame,
		Transport: t.config.Name,
		Frame: &alog.FrameEvent{
			Size: len(frame),
			Data: data,
		},
	})
}

func (t *Transport) debugLog(msg string, args ...any) {
	if t.config.Logger != nil {
		t.config.Logger.Debug(msg, append([]any{"transport", t.config.Name}, args...)...)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Transport     = (*Transport)(nil)
	_ transport.ErrorReporter = (*Transport)(nil)
	_ transport.Namer         = (*Transport)(nil)
)
