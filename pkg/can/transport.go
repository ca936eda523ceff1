package can

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/asysbus/asb-go/pkg/transport"
	"github.com/asysbus/asb-go/pkg/wire"
)

// Driver is the physical CAN controller.
type Driver interface {
	// Open initializes the controller.
	Open() error

	// Write queues one frame for transmission.
	Write(f Frame) error

	// Read returns the next received frame without blocking. ok is false
	// when no frame is available.
	Read() (f Frame, ok bool, err error)
}

// signals counts interrupts. It is the only state written from interrupt
// context; each interrupt-mode Transport remembers the count it last
// drained, so every transport sees every wake-up.
var signals atomic.Uint64

// Signal marks received data as pending. It is the only function intended
// to be called from an interrupt handler.
func Signal() {
	signals.Add(1)
}

// Config configures a Transport.
type Config struct {
	// Name identifies the transport in logs (default "can").
	Name string

	// Interrupt makes Receive poll the driver only after Signal.
	Interrupt bool

	// Layout is the identifier layout shared by every node on the bus.
	Layout Layout

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// Transport adapts a Driver to transport.Transport.
type Transport struct {
	driver  Driver
	config  Config
	seen    uint64
	lastErr error
}

// NewTransport creates a CAN transport on top of driver.
func NewTransport(driver Driver, config Config) *Transport {
	if driver == nil {
		panic("can: nil driver")
	}
	if config.Name == "" {
		config.Name = "can"
	}
	return &Transport{driver: driver, config: config}
}

// Begin opens the driver.
func (t *Transport) Begin() error {
	if err := t.driver.Open(); err != nil {
		t.lastErr = fmt.Errorf("can: open: %w", err)
		return t.lastErr
	}
	t.lastErr = nil
	return nil
}

// Send encodes the envelope into an extended identifier and writes one frame.
func (t *Transport) Send(meta wire.Meta, payload []byte) bool {
	if len(payload) > MaxDataLen {
		t.lastErr = fmt.Errorf("%w: %d bytes", wire.ErrPayloadTooLong, len(payload))
		return false
	}
	id, err := t.config.Layout.Encode(meta)
	if err != nil {
		t.lastErr = err
		t.debugLog("rejecting packet", "meta", meta.String(), "error", err)
		return false
	}

	f := Frame{ID: id &^ ExtendedFlag, Extended: true, Len: uint8(len(payload))}
	if err := f.Validate(); err != nil {
		t.lastErr = err
		t.debugLog("identifier does not fit", "meta", meta.String(), "layout", t.config.Layout.String(), "error", err)
		return false
	}
	copy(f.Data[:], payload)

	if err := t.driver.Write(f); err != nil {
		t.lastErr = fmt.Errorf("can: write: %w", err)
		return false
	}
	return true
}

// Receive reads at most one frame and decodes it. Standard (11-bit) frames
// belong to other protocols sharing the bus and are dropped, as are frames
// whose identifier decodes to an invalid envelope.
func (t *Transport) Receive(pkt *wire.Packet) bool {
	var seq uint64
	if t.config.Interrupt {
		seq = signals.Load()
		if seq == t.seen {
			return false
		}
	}

	f, ok, err := t.driver.Read()
	if err != nil {
		t.lastErr = fmt.Errorf("can: read: %w", err)
		return false
	}
	if !ok {
		// Drained up to seq. A Signal after the Load keeps us armed.
		t.seen = seq
		return false
	}
	if !f.Extended || f.Len > MaxDataLen {
		t.debugLog("dropping foreign frame", "frame", f.String())
		return false
	}

	meta := t.config.Layout.Decode(f.ID | ExtendedFlag)
	if err := meta.Validate(); err != nil {
		t.debugLog("dropping invalid frame", "frame", f.String(), "error", err)
		return false
	}

	pkt.Meta = meta
	pkt.Len = int8(f.Len)
	pkt.Data = f.Data
	return true
}

// Pending reports whether an interrupt arrived since this transport last
// found its driver empty.
func (t *Transport) Pending() bool {
	return signals.Load() != t.seen
}

// LastError returns the error of the most recent failed operation.
func (t *Transport) LastError() error {
	return t.lastErr
}

// Name returns the configured transport name.
func (t *Transport) Name() string {
	return t.config.Name
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
