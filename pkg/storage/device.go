package storage

import (
	"errors"
	"fmt"
)

// Erased is the value of a never-written byte.
const Erased byte = 0xFF

// ErrOutOfRange indicates an access outside [0, Size()).
var ErrOutOfRange = errors.New("storage: address out of range")

// Device is a byte-addressable non-volatile store.
type Device interface {
	// Size returns the device capacity in bytes.
	Size() int

	// ReadByteAt returns the byte at addr.
	ReadByteAt(addr int) (byte, error)

	// WriteByteAt stores b at addr.
	WriteByteAt(addr int, b byte) error

	// Get copies len(dst) bytes starting at addr into dst.
	Get(addr int, dst []byte) error

	// Put stores src starting at addr.
	Put(addr int, src []byte) error
}

func checkRange(size, addr, n int) error {
	if addr < 0 || n < 0 || addr+n > size {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, addr, addr+n, size)
	}
	return nil
}

// Memory is a RAM-backed Device. It is not safe for concurrent use.
type Memory struct {
	data []byte
}

// NewMemory returns an erased device of the given size.
func NewMemory(size int) *Memory {
	data := make([]byte, size)
	for i := range data {
		data[i] = Erased
	}
	return &Memory{data: data}
}

// NewMemoryFrom returns a device holding a copy of image.
func NewMemoryFrom(image []byte) *Memory {
	return &Memory{data: append([]byte(nil), image...)}
}

// Size returns the capacity.
func (m *Memory) Size() int { return len(m.data) }

// ReadByteAt returns the byte at addr.
func (m *Memory) ReadByteAt(addr int) (byte, error) {
	if err := checkRange(len(m.data), addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// WriteByteAt stores b at addr.
func (m *Memory) WriteByteAt(addr int, b byte) error {
	if err := checkRange(len(m.data), addr, 1); err != nil {
		return err
	}
	m.data[addr] = b
	return nil
}

// Get copies bytes starting at addr into dst.
func (m *Memory) Get(addr int, dst []byte) error {
	if err := checkRange(len(m.data), addr, len(dst)); err != nil {
		return err
	}
	copy(dst, m.data[addr:])
	return nil
}

// Put stores src starting at addr.
func (m *Memory) Put(addr int, src []byte) error {
	if err := checkRange(len(m.data), addr, len(src)); err != nil {
		return err
	}
	copy(m.data[addr:], src)
	return nil
}

// Bytes returns a copy of the device contents.
func (m *Memory) Bytes() []byte {
	return append([]byte(nil), m.data...)
}

// Erase resets every byte to Erased.
func (m *Memory) Erase() {
	for i := range m.data {
		m.data[i] = Erased
	}
}

// Compile-time interface satisfaction check.
var _ Device = (*Memory)(nil)
