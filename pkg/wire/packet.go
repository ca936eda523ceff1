package wire

import (
	"errors"
	"fmt"
)

// Type is the 2-bit packet type.
type Type uint8

const (
	// TypeBroadcast addresses every node.
	TypeBroadcast Type = 0x00
	// TypeMulticast addresses a group.
	TypeMulticast Type = 0x01
	// TypeUnicast addresses a single node and port.
	TypeUnicast Type = 0x02
	// typeReserved is the fourth wire value; it is never routable.
	typeReserved Type = 0x03
)

// String returns the packet type name.
func (t Type) String() string {
	switch t {
	case TypeBroadcast:
		return "BROADCAST"
	case TypeMulticast:
		return "MULTICAST"
	case TypeUnicast:
		return "UNICAST"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether t is one of the three routable packet types.
func (t Type) Valid() bool {
	return t < typeReserved
}

// Address limits.
const (
	// MinNodeID is the lowest valid node ID.
	MinNodeID uint16 = 0x0001

	// MaxNodeID is the highest valid node ID (11 bits).
	MaxNodeID uint16 = 0x07FF

	// MaxGroup is the highest broadcast/multicast target.
	MaxGroup uint16 = 0xFFFF

	// MaxPort is the highest unicast port (5 bits).
	MaxPort int8 = 0x1F

	// PortUnset marks a packet without a port (every non-unicast packet).
	PortUnset int8 = -1

	// OriginLocal marks a packet that was created on this node rather than
	// received from an attached transport.
	OriginLocal = -1

	// MaxPayload is the maximum number of payload bytes.
	MaxPayload = 8

	// LenInvalid marks an empty Packet value ("no packet").
	LenInvalid int8 = -1
)

// Addressing errors.
var (
	// ErrInvalidType indicates the reserved or an out-of-range packet type.
	ErrInvalidType = errors.New("invalid packet type")

	// ErrInvalidTarget indicates a target outside the range allowed for the type.
	ErrInvalidTarget = errors.New("invalid target address")

	// ErrInvalidSource indicates a source outside [0x0001, 0x07FF].
	ErrInvalidSource = errors.New("invalid source address")

	// ErrInvalidPort indicates a unicast port outside [0x00, 0x1F].
	ErrInvalidPort = errors.New("invalid port")

	// ErrPayloadTooLong indicates more than MaxPayload payload bytes.
	ErrPayloadTooLong = errors.New("payload too long")
)

// ValidNodeID reports whether id may be used as a node's own identity.
func ValidNodeID(id uint16) bool {
	return id >= MinNodeID && id <= MaxNodeID
}

// Meta is the packet envelope: everything except the payload.
type Meta struct {
	// Type is the packet type.
	Type Type

	// Target is a node ID for unicast, a group for broadcast/multicast.
	Target uint16

	// Source is the sending node. Zero means "this node" when sending.
	Source uint16

	// Port is the unicast port, PortUnset otherwise.
	Port int8

	// Origin is the controller slot the packet arrived on, or OriginLocal.
	// It never travels on the wire.
	Origin int
}

// Validate checks the addressing constraints shared by every transport.
// A zero Source is accepted; the controller substitutes the local node ID
// before handing a packet to a transport.
func (m Meta) Validate() error {
	if !m.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, m.Type)
	}
	if m.Type == TypeUnicast {
		if m.Target > MaxNodeID {
			return fmt.Errorf("%w: 0x%04X > 0x%03X", ErrInvalidTarget, m.Target, MaxNodeID)
		}
		if m.Port < 0 || m.Port > MaxPort {
			return fmt.Errorf("%w: %d", ErrInvalidPort, m.Port)
		}
	}
	if m.Source > MaxNodeID {
		return fmt.Errorf("%w: 0x%04X", ErrInvalidSource, m.Source)
	}
	return nil
}

// String renders the envelope for logs.
func (m Meta) String() string {
	if m.Type == TypeUnicast {
		return fmt.Sprintf("%s 0x%03X->0x%03X:%d", m.Type, m.Source, m.Target, m.Port)
	}
	return fmt.Sprintf("%s 0x%03X->0x%04X", m.Type, m.Source, m.Target)
}

// Packet is one addressed message.
type Packet struct {
	Meta Meta

	// Len is the number of valid bytes in Data, or LenInvalid.
	Len int8

	Data [MaxPayload]byte
}

// NewPacket builds a packet from meta and payload.
func NewPacket(meta Meta, payload []byte) (Packet, error) {
	if len(payload) > MaxPayload {
		return Packet{Len: LenInvalid}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(payload))
	}
	p := Packet{Meta: meta, Len: int8(len(payload))}
	copy(p.Data[:], payload)
	return p, nil
}

// None returns the "no packet" value.
func None() Packet {
	return Packet{Meta: Meta{Port: PortUnset, Origin: OriginLocal}, Len: LenInvalid}
}

// Valid reports whether p holds a packet (Len in 0..8).
func (p Packet) Valid() bool {
	return p.Len >= 0 && p.Len <= MaxPayload
}

// Payload returns the valid payload bytes. The slice aliases p.Data.
func (p *Packet) Payload() []byte {
	if !p.Valid() {
		return nil
	}
	return p.Data[:p.Len]
}

// Command returns the first payload byte and whether there is one.
func (p Packet) Command() (Command, bool) {
	if !p.Valid() || p.Len == 0 {
		return 0, false
	}
	return Command(p.Data[0]), true
}

// String renders the packet for logs.
func (p Packet) String() string {
	if !p.Valid() {
		return "<none>"
	}
	return fmt.Sprintf("%s [% X]", p.Meta, p.Data[:p.Len])
}
