package log

import (
	"time"

	"github.com/asysbus/asb-go/pkg/wire"
)

// Event represents a bus event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the capturing process run (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates packet flow relative to the node.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// NodeID is the local node ID at capture time.
	NodeID uint16 `cbor:"6,keyasint,omitempty"`

	// Transport is the name of the transport involved, if any.
	Transport string `cbor:"7,keyasint,omitempty"`

	// Slot is the transport slot index; nil for locally originated packets.
	Slot *int `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Raw transport bytes
	Packet      *PacketEvent      `cbor:"11,keyasint,omitempty"` // Decoded packet
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Slot lifecycle
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of packet flow.
type Direction uint8

const (
	// DirectionIn indicates a received packet.
	DirectionIn Direction = 0
	// DirectionOut indicates a transmitted packet.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the physical framing layer (raw bytes or CAN IDs).
	LayerTransport Layer = 0
	// LayerNode is the routing controller.
	LayerNode Layer = 1
	// LayerModule is the module layer.
	LayerModule Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerNode:
		return "NODE"
	case LayerModule:
		return "MODULE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates raw transport bytes.
	CategoryFrame Category = 0
	// CategoryPacket indicates a decoded packet.
	CategoryPacket Category = 1
	// CategoryState indicates a slot state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryPacket:
		return "PACKET"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// ID is the CAN identifier for CAN frames.
	ID uint32 `cbor:"3,keyasint,omitempty"`
}

// PacketEvent captures a decoded packet.
type PacketEvent struct {
	Type   wire.Type `cbor:"1,keyasint"`
	Target uint16    `cbor:"2,keyasint"`
	Source uint16    `cbor:"3,keyasint"`
	Port   int8      `cbor:"4,keyasint"`
	Data   []byte    `cbor:"5,keyasint,omitempty"`

	// Forwarded lists the transport slots the packet was relayed to.
	Forwarded []int `cbor:"6,keyasint,omitempty"`
}

// NewPacketEvent builds a PacketEvent from a packet.
func NewPacketEvent(p wire.Packet) *PacketEvent {
	ev := &PacketEvent{
		Type:   p.Meta.Type,
		Target: p.Meta.Target,
		Source: p.Meta.Source,
		Port:   p.Meta.Port,
	}
	if payload := p.Payload(); len(payload) > 0 {
		ev.Data = append([]byte(nil), payload...)
	}
	return ev
}

// Packet converts the event back into a wire packet. The origin is local.
func (e *PacketEvent) Packet() (wire.Packet, error) {
	return wire.NewPacket(wire.Meta{
		Type:   e.Type,
		Target: e.Target,
		Source: e.Source,
		Port:   e.Port,
		Origin: wire.OriginLocal,
	}, e.Data)
}

// StateChangeEvent captures slot lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// Index is the slot index of the entity.
	Index int `cbor:"2,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"3,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"4,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"5,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityTransport indicates a transport slot change.
	StateEntityTransport StateEntity = 0
	// StateEntityModule indicates a module slot change.
	StateEntityModule StateEntity = 1
	// StateEntityHook indicates a hook slot change.
	StateEntityHook StateEntity = 2
	// StateEntityNode indicates a node-wide change such as a new node ID.
	StateEntityNode StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityTransport:
		return "TRANSPORT"
	case StateEntityModule:
		return "MODULE"
	case StateEntityHook:
		return "HOOK"
	case StateEntityNode:
		return "NODE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
