package can

import (
	"errors"
	"fmt"
)

// MaxDataLen is the payload limit of a classical CAN frame.
const MaxDataLen = 8

// Physical identifier limits.
const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF
)

var (
	// ErrInvalidLen indicates a data length above 8.
	ErrInvalidLen = errors.New("can: invalid data length")

	// ErrIDOverflow indicates an identifier that does not fit the
	// physical identifier field of the driver.
	ErrIDOverflow = errors.New("can: identifier exceeds physical field")
)

// Frame is a classical CAN data frame. ID never contains ExtendedFlag;
// Extended carries it.
type Frame struct {
	ID       uint32
	Extended bool
	Len      uint8
	Data     [MaxDataLen]byte
}

// Validate checks the length and, for hardware drivers, that ID fits the
// 11- or 29-bit identifier field.
func (f Frame) Validate() error {
	if f.Len > MaxDataLen {
		return fmt.Errorf("%w: %d", ErrInvalidLen, f.Len)
	}
	limit := uint32(maxStdID)
	if f.Extended {
		limit = maxExtID
	}
	if f.ID > limit {
		return fmt.Errorf("%w: 0x%08X", ErrIDOverflow, f.ID)
	}
	return nil
}

// Payload returns the valid data bytes.
func (f *Frame) Payload() []byte {
	n := f.Len
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return f.Data[:n]
}

// String renders the frame like candump.
func (f Frame) String() string {
	if f.Extended {
		return fmt.Sprintf("%08X#% X", f.ID, f.Payload())
	}
	return fmt.Sprintf("%03X#% X", f.ID, f.Payload())
}
