package can

import (
	"fmt"
	"strings"

	"github.com/asysbus/asb-go/pkg/wire"
)

// ExtendedFlag marks an identifier as a 29-bit extended identifier.
const ExtendedFlag uint32 = 0x80000000

// InvalidID is returned by EncodeID for envelopes that cannot be encoded.
const InvalidID uint32 = 0

const (
	typeMask   = 0x03
	portMask   = 0x1F
	groupMask  = 0xFFFF
	nodeIDMask = 0x7FF

	targetShift = 11
)

// Layout selects where the type and port fields sit in the identifier.
// Target and source positions are the same in both layouts.
type Layout uint8

const (
	// LayoutClassic puts the type in bits 28-29 and the port in bits 23-27.
	// A unicast packet sets bit 29, so it does not fit a 29-bit hardware
	// identifier; Frame.Validate rejects it with ErrIDOverflow.
	LayoutClassic Layout = iota

	// LayoutCompact puts the type in bits 27-28 and the port in bits 22-26.
	// Every valid envelope fits 29 bits. Nodes on one bus must agree on it.
	LayoutCompact
)

// ParseLayout parses "classic" or "compact". The empty string is classic.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "", "classic":
		return LayoutClassic, nil
	case "compact":
		return LayoutCompact, nil
	}
	return 0, fmt.Errorf("can: unknown identifier layout %q", s)
}

// String returns the layout name.
func (l Layout) String() string {
	if l == LayoutCompact {
		return "compact"
	}
	return "classic"
}

func (l Layout) shifts() (typeShift, portShift uint) {
	if l == LayoutCompact {
		return 27, 22
	}
	return 28, 23
}

// Encode packs the envelope into an identifier. Any addressing violation
// yields InvalidID and the reason; nothing partial is ever produced.
func (l Layout) Encode(m wire.Meta) (uint32, error) {
	if !m.Type.Valid() {
		return InvalidID, fmt.Errorf("%w: %d", wire.ErrInvalidType, m.Type)
	}
	typeShift, portShift := l.shifts()
	id := ExtendedFlag | uint32(m.Type)<<typeShift

	if m.Type == wire.TypeUnicast {
		if m.Target > wire.MaxNodeID {
			return InvalidID, fmt.Errorf("%w: 0x%04X", wire.ErrInvalidTarget, m.Target)
		}
		if m.Port < 0 || m.Port > wire.MaxPort {
			return InvalidID, fmt.Errorf("%w: %d", wire.ErrInvalidPort, m.Port)
		}
		id |= uint32(m.Port) << portShift
	}
	id |= uint32(m.Target) << targetShift

	if m.Source > wire.MaxNodeID {
		return InvalidID, fmt.Errorf("%w: 0x%04X", wire.ErrInvalidSource, m.Source)
	}
	id |= uint32(m.Source)

	return id, nil
}

// Decode is the inverse of Encode. The returned Meta has its Origin set to
// wire.OriginLocal; the controller stamps the real slot. The type is not
// checked, so callers validate the result.
func (l Layout) Decode(id uint32) wire.Meta {
	typeShift, portShift := l.shifts()
	m := wire.Meta{
		Type:   wire.Type((id >> typeShift) & typeMask),
		Source: uint16(id & nodeIDMask),
		Target: uint16((id >> targetShift) & groupMask),
		Port:   wire.PortUnset,
		Origin: wire.OriginLocal,
	}
	if m.Type == wire.TypeUnicast {
		m.Port = int8((id >> portShift) & portMask)
		m.Target &= nodeIDMask
	}
	return m
}

// EncodeID packs the envelope with LayoutClassic.
func EncodeID(m wire.Meta) (uint32, error) {
	return LayoutClassic.Encode(m)
}

// DecodeID unpacks an identifier with LayoutClassic.
func DecodeID(id uint32) wire.Meta {
	return LayoutClassic.Decode(id)
}
