package node

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/asysbus/asb-go/pkg/cfgblock"
	alog "github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/storage"
	"github.com/asysbus/asb-go/pkg/wire"
)

// Controller errors.
var (
	ErrNoFreeSlot     = errors.New("no free transport slot")
	ErrBeginFailed    = errors.New("transport begin failed")
	ErrInvalidSlot    = errors.New("invalid transport slot")
	ErrSlotEmpty      = errors.New("transport slot empty")
	ErrNoFreeHook     = errors.New("no free hook slot")
	ErrNoFreeModule   = errors.New("no free module slot")
	ErrModuleNotFound = errors.New("module not attached")
	ErrConfigLoad     = errors.New("module configuration load failed")
	ErrInvalidNodeID  = errors.New("invalid node id")
	ErrNoStorage      = errors.New("no configuration storage")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// SkipNone is the skip slot for locally originated sends.
const SkipNone = wire.OriginLocal

// BeginError reports a transport whose Begin failed. The slot it was
// offered has already been released.
type BeginError struct {
	Slot int
	Err  error
}

func (e *BeginError) Error() string {
	return fmt.Sprintf("transport begin failed on slot %d: %v", e.Slot, e.Err)
}

func (e *BeginError) Unwrap() error { return e.Err }

// Is matches ErrBeginFailed.
func (e *BeginError) Is(target error) bool { return target == ErrBeginFailed }

// Module is a stateful unit with persisted configuration. The controller
// owns its lifecycle: SetHost on attach, a configuration load, Process for
// every dispatched packet and Loop once per tick.
type Module interface {
	// ID identifies the module. IDs 1 to 14 own configuration blocks.
	ID() uint8

	// SetHost hands the module its controller.
	SetHost(h Host)

	// CfgRead loads the record whose block header is at addr.
	CfgRead(addr int) error

	// CfgReset drops all loaded configuration.
	CfgReset() error

	// CfgReserve prepares room for count records.
	CfgReserve(count int) error

	// Process handles one packet and reports whether it acted on it.
	Process(pkt wire.Packet) bool

	// Loop runs periodic work and reports whether it did anything.
	Loop() bool
}

// Host is the controller as seen by a module.
type Host interface {
	NodeID() uint16
	SendTo(typ wire.Type, target uint16, payload []byte) int
	SendPort(typ wire.Type, target uint16, port int8, payload []byte) int
	Allocator() *cfgblock.Allocator
	AttachModule(m Module) (int, error)
	DetachModule(id uint8) error
}

// Observer receives controller activity, typically for metrics. Calls
// happen on the controller goroutine and must not block.
type Observer interface {
	PacketReceived(slot int, pkt wire.Packet)
	PacketSent(slot int, pkt wire.Packet, ok bool)
	PacketRouted(pkt wire.Packet)
	HookFired(index int)
	ConfigFailed(module uint8)
}

type nopObserver struct{}

func (nopObserver) PacketReceived(int, wire.Packet)   {}
func (nopObserver) PacketSent(int, wire.Packet, bool) {}
func (nopObserver) PacketRouted(wire.Packet)          {}
func (nopObserver) HookFired(int)                     {}
func (nopObserver) ConfigFailed(uint8)                {}

// Config configures a Controller.
type Config struct {
	// NodeID is used when storage holds no valid node ID.
	NodeID uint16

	// Storage holds the configuration region. Nil disables configuration
	// loading and node ID persistence.
	Storage storage.Device

	// CfgStart and CfgStop bound the configuration region in Storage.
	CfgStart int
	CfgStop  int

	// BusNum, HookNum and ModNum size the slot tables.
	BusNum  int
	HookNum int
	ModNum  int

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// Capture receives bus events. Nil disables capture. A *log.Session is
	// used as is, so transports can share the controller's session.
	Capture alog.Logger

	// Observer receives activity callbacks. Nil disables them.
	Observer Observer
}

// DefaultConfig returns a Config with the standard table sizes.
func DefaultConfig() Config {
	return Config{
		BusNum:  6,
		HookNum: 16,
		ModNum:  16,
	}
}

// Validate checks the table sizes and the configuration region.
func (c *Config) Validate() error {
	if c.BusNum <= 0 || c.HookNum <= 0 || c.ModNum <= 0 {
		return fmt.Errorf("%w: table sizes must be positive", ErrInvalidConfig)
	}
	if c.Storage == nil {
		return nil
	}
	if c.CfgStart < 0 || c.CfgStop < c.CfgStart || c.CfgStop > c.Storage.Size() {
		return fmt.Errorf("%w: region [%d, %d) on %d-byte storage", ErrInvalidConfig, c.CfgStart, c.CfgStop, c.Storage.Size())
	}
	return nil
}
