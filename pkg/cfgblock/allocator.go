package cfgblock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asysbus/asb-go/pkg/storage"
)

// Layout constants.
const (
	// NodeIDSize is the size of the node ID record at the region start.
	NodeIDSize = 2

	// MaxClass is the largest size class.
	MaxClass = 15

	// MinModule and MaxModule bound the module IDs a header can carry.
	// Zero marks a freed block and 15 would let a class-15 header collide
	// with erased space.
	MinModule uint8 = 1
	MaxModule uint8 = 14

	headerErased byte = 0xFF
	headerZero   byte = 0x00
)

// Allocation errors.
var (
	// ErrBlockTooLarge indicates a record that no size class can hold.
	ErrBlockTooLarge = errors.New("cfgblock: record too large")

	// ErrRegionTooSmall indicates a region that cannot hold the record at all.
	ErrRegionTooSmall = errors.New("cfgblock: region too small")

	// ErrNoSpace indicates the scan reached the region end without a fit.
	ErrNoSpace = errors.New("cfgblock: no free block")

	// ErrInvalidModule indicates a module ID outside [MinModule, MaxModule].
	ErrInvalidModule = errors.New("cfgblock: invalid module id")

	// ErrInvalidRegion indicates a region that does not fit the device.
	ErrInvalidRegion = errors.New("cfgblock: invalid region")

	// ErrNotBlock indicates an address that does not hold an allocated block.
	ErrNotBlock = errors.New("cfgblock: not an allocated block")

	// ErrClassZero indicates a class-0 block, whose freed header would read
	// as erased space and hide every block after it.
	ErrClassZero = errors.New("cfgblock: class 0 blocks cannot be freed")
)

// Header packs a module ID and size class.
func Header(module, class uint8) byte {
	return module<<4 | class&0x0F
}

// BlockLen returns the total length of a block with the given header.
func BlockLen(header byte) int {
	return 1<<(header&0x0F) + 5
}

// SizeClass returns the smallest class whose block holds required bytes,
// header included.
func SizeClass(required int) (uint8, error) {
	for n := 0; n <= MaxClass; n++ {
		if 1<<n+5 >= required {
			return uint8(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %d bytes", ErrBlockTooLarge, required)
}

func isEnd(header byte) bool {
	return header == headerErased || header == headerZero
}

// Block describes one allocated record.
type Block struct {
	// Addr is the address of the header byte.
	Addr int

	// Module is the owner, zero when freed.
	Module uint8

	// Class is the size class.
	Class uint8
}

// Len returns the total block length.
func (b Block) Len() int {
	return 1<<b.Class + 5
}

// Data returns the address of the first payload byte.
func (b Block) Data() int {
	return b.Addr + 1
}

// Allocator manages blocks in [start, stop) of a device. It is not safe for
// concurrent use; the node controller owns it.
type Allocator struct {
	dev    storage.Device
	start  int
	stop   int
	logger *slog.Logger
}

// New creates an allocator over [start, stop) of dev. A region shorter than
// the node ID record is treated as empty.
func New(dev storage.Device, start, stop int, logger *slog.Logger) (*Allocator, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidRegion)
	}
	if start < 0 || stop > dev.Size() || stop < start {
		return nil, fmt.Errorf("%w: [%d, %d) on %d-byte device", ErrInvalidRegion, start, stop, dev.Size())
	}
	if stop < start+NodeIDSize {
		stop = start
	}
	return &Allocator{dev: dev, start: start, stop: stop, logger: logger}, nil
}

// Device returns the underlying storage device.
func (a *Allocator) Device() storage.Device {
	return a.dev
}

// Bounds returns the managed region.
func (a *Allocator) Bounds() (start, stop int) {
	return a.start, a.stop
}

// Empty reports whether the region holds no space at all.
func (a *Allocator) Empty() bool {
	return a.start == a.stop
}

// FindFreeBlock claims a block for a record of size payload bytes owned by
// module and returns the header address. Erased space is claimed by writing
// a new header. A freed block that is large enough is reused without being
// split; its header is rewritten with the new owner and its old class.
func (a *Allocator) FindFreeBlock(size int, module uint8) (int, error) {
	if module < MinModule || module > MaxModule {
		return 0, fmt.Errorf("%w: %d", ErrInvalidModule, module)
	}
	if a.Empty() {
		return 0, ErrRegionTooSmall
	}

	required := size + 1
	class, err := SizeClass(required)
	if err != nil {
		return 0, err
	}

	addr := a.start + NodeIDSize
	if a.stop-addr < required {
		return 0, fmt.Errorf("%w: %d bytes in [%d, %d)", ErrRegionTooSmall, required, addr, a.stop)
	}

	for addr+required <= a.stop {
		h, err := a.dev.ReadByteAt(addr)
		if err != nil {
			return 0, err
		}

		if isEnd(h) {
			if err := a.dev.WriteByteAt(addr, Header(module, class)); err != nil {
				return 0, err
			}
			a.debugLog("claimed block", "addr", addr, "module", module, "class", class)
			return addr, nil
		}

		blen := BlockLen(h)
		if h>>4 == 0 && blen >= required {
			if err := a.dev.WriteByteAt(addr, Header(module, h&0x0F)); err != nil {
				return 0, err
			}
			a.debugLog("reused block", "addr", addr, "module", module, "class", h&0x0F)
			return addr, nil
		}
		addr += blen
	}

	a.debugLog("no free block", "module", module, "size", size)
	return 0, fmt.Errorf("%w: %d bytes for module %d", ErrNoSpace, required, module)
}

// Free releases the block at addr by clearing its owner nibble.
func (a *Allocator) Free(addr int) error {
	b, err := a.blockAt(addr)
	if err != nil {
		return err
	}
	if b.Class == 0 {
		return fmt.Errorf("%w: 0x%04X", ErrClassZero, addr)
	}
	return a.dev.WriteByteAt(addr, Header(0, b.Class))
}

// blockAt checks that addr is the header of an allocated block.
func (a *Allocator) blockAt(addr int) (Block, error) {
	var found Block
	ok := false
	err := a.walk(func(b Block) bool {
		if b.Addr == addr {
			found, ok = b, true
			return false
		}
		return b.Addr < addr
	})
	if err != nil {
		return Block{}, err
	}
	if !ok || found.Module == 0 {
		return Block{}, fmt.Errorf("%w: 0x%04X", ErrNotBlock, addr)
	}
	return found, nil
}

// Blocks returns every block up to the end of the used area, freed ones
// included.
func (a *Allocator) Blocks() ([]Block, error) {
	var out []Block
	err := a.walk(func(b Block) bool {
		out = append(out, b)
		return true
	})
	return out, err
}

// Records returns the blocks owned by module in region order.
func (a *Allocator) Records(module uint8) ([]Block, error) {
	var out []Block
	err := a.walk(func(b Block) bool {
		if b.Module == module {
			out = append(out, b)
		}
		return true
	})
	return out, err
}

// Count returns how many blocks module owns.
func (a *Allocator) Count(module uint8) (int, error) {
	n := 0
	err := a.walk(func(b Block) bool {
		if b.Module == module {
			n++
		}
		return true
	})
	return n, err
}

// walk visits blocks from the region start until fn returns false, the
// used area ends or the region ends.
func (a *Allocator) walk(fn func(Block) bool) error {
	if a.Empty() {
		return nil
	}
	for addr := a.start + NodeIDSize; addr < a.stop; {
		h, err := a.dev.ReadByteAt(addr)
		if err != nil {
			return err
		}
		if isEnd(h) {
			return nil
		}
		b := Block{Addr: addr, Module: h >> 4, Class: h & 0x0F}
		if !fn(b) {
			return nil
		}
		addr += b.Len()
	}
	return nil
}

// ReadRecord copies a block's payload into dst.
func (a *Allocator) ReadRecord(b Block, dst []byte) error {
	if len(dst) > b.Len()-1 {
		return fmt.Errorf("%w: %d bytes into class %d", ErrBlockTooLarge, len(dst), b.Class)
	}
	return a.dev.Get(b.Data(), dst)
}

// WriteRecord claims a block for module and stores data as its payload.
func (a *Allocator) WriteRecord(module uint8, data []byte) (Block, error) {
	addr, err := a.FindFreeBlock(len(data), module)
	if err != nil {
		return Block{}, err
	}
	h, err := a.dev.ReadByteAt(addr)
	if err != nil {
		return Block{}, err
	}
	b := Block{Addr: addr, Module: module, Class: h & 0x0F}
	if err := a.dev.Put(b.Data(), data); err != nil {
		return Block{}, err
	}
	return b, nil
}

// NodeID reads the node ID record.
func (a *Allocator) NodeID() (uint16, error) {
	if a.Empty() {
		return 0xFFFF, ErrRegionTooSmall
	}
	var buf [NodeIDSize]byte
	if err := a.dev.Get(a.start, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// SetNodeID writes the node ID record.
func (a *Allocator) SetNodeID(id uint16) error {
	if a.Empty() {
		return ErrRegionTooSmall
	}
	var buf [NodeIDSize]byte
	binary.LittleEndian.PutUint16(buf[:], id)
	return a.dev.Put(a.start, buf[:])
}

func (a *Allocator) debugLog(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
