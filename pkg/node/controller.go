package node

import (
	"fmt"
	"log/slog"

	"github.com/asysbus/asb-go/pkg/cfgblock"
	alog "github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/transport"
	"github.com/asysbus/asb-go/pkg/wire"
)

// Controller routes packets between attached transports and dispatches
// them to modules and hooks. It is not safe for concurrent use.
type Controller struct {
	config   Config
	nodeID   uint16
	alloc    *cfgblock.Allocator
	buses    []transport.Transport
	hooks    []hook
	modules  []Module
	capture  alog.Logger
	observer Observer
	logger   *slog.Logger
}

// New creates a controller. With storage configured, a valid node ID
// stored in the region takes precedence over config.NodeID.
func New(config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		config:   config,
		nodeID:   config.NodeID,
		buses:    make([]transport.Transport, config.BusNum),
		hooks:    make([]hook, config.HookNum),
		modules:  make([]Module, config.ModNum),
		observer: config.Observer,
		logger:   config.Logger,
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if s, ok := config.Capture.(*alog.Session); ok {
		c.capture = s
	} else if config.Capture != nil {
		c.capture = alog.NewSession(config.Capture, c.NodeID)
	}

	if config.Storage != nil {
		alloc, err := cfgblock.New(config.Storage, config.CfgStart, config.CfgStop, config.Logger)
		if err != nil {
			return nil, err
		}
		c.alloc = alloc
		if !alloc.Empty() {
			stored, err := alloc.NodeID()
			if err != nil {
				return nil, fmt.Errorf("read node id: %w", err)
			}
			if wire.ValidNodeID(stored) {
				c.nodeID = stored
			}
		}
	}

	c.debugLog("controller created", "node", c.nodeID)
	return c, nil
}

// NodeID returns the local node ID. It may be invalid before provisioning.
func (c *Controller) NodeID() uint16 {
	return c.nodeID
}

// SetNodeID changes the node ID and persists it when storage is configured.
func (c *Controller) SetNodeID(id uint16) error {
	if !wire.ValidNodeID(id) {
		return fmt.Errorf("%w: 0x%04X", ErrInvalidNodeID, id)
	}
	if c.alloc != nil && !c.alloc.Empty() {
		if err := c.alloc.SetNodeID(id); err != nil {
			return fmt.Errorf("persist node id: %w", err)
		}
	}
	old := c.nodeID
	c.nodeID = id
	c.captureState(alog.StateEntityNode, 0, fmt.Sprintf("0x%03X", old), fmt.Sprintf("0x%03X", id), "")
	return nil
}

// FirstBoot runs fn if the node has no valid ID yet and reports whether it
// ran. fn typically calls SetNodeID and writes initial configuration.
func (c *Controller) FirstBoot(fn func()) bool {
	if fn == nil || wire.ValidNodeID(c.nodeID) {
		return false
	}
	c.debugLog("running first boot")
	fn()
	return true
}

// Allocator returns the configuration allocator, or nil without storage.
func (c *Controller) Allocator() *cfgblock.Allocator {
	return c.alloc
}

// AttachTransport installs t into the first free slot, begins it and
// announces this node on it with a boot broadcast. A failed Begin releases
// the slot and returns a *BeginError.
func (c *Controller) AttachTransport(t transport.Transport) (int, error) {
	if t == nil {
		panic("node: nil transport")
	}

	slot := -1
	for i, b := range c.buses {
		if b == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, ErrNoFreeSlot
	}

	c.buses[slot] = t
	if err := t.Begin(); err != nil {
		c.buses[slot] = nil
		c.captureError(alog.LayerTransport, err.Error(), "begin "+transport.Name(t))
		return -1, &BeginError{Slot: slot, Err: err}
	}

	boot := wire.Meta{
		Type:   wire.TypeBroadcast,
		Target: 0,
		Source: c.nodeID,
		Port:   wire.PortUnset,
	}
	if !t.Send(boot, []byte{byte(wire.CmdBoot)}) {
		c.debugLog("boot announcement failed", "slot", slot, "error", transport.LastError(t))
	}

	c.debugLog("transport attached", "slot", slot, "name", transport.Name(t))
	c.captureState(alog.StateEntityTransport, slot, "", "attached", transport.Name(t))
	return slot, nil
}

// DetachTransport clears a transport slot.
func (c *Controller) DetachTransport(slot int) error {
	if slot < 0 || slot >= len(c.buses) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if c.buses[slot] == nil {
		return fmt.Errorf("%w: %d", ErrSlotEmpty, slot)
	}
	name := transport.Name(c.buses[slot])
	c.buses[slot] = nil

	c.debugLog("transport detached", "slot", slot, "name", name)
	c.captureState(alog.StateEntityTransport, slot, "attached", "detached", name)
	return nil
}

// Transport returns the transport in slot.
func (c *Controller) Transport(slot int) (transport.Transport, bool) {
	if slot < 0 || slot >= len(c.buses) || c.buses[slot] == nil {
		return nil, false
	}
	return c.buses[slot], true
}

// Slots returns the size of the transport table.
func (c *Controller) Slots() int {
	return len(c.buses)
}

// Send transmits a packet through every attached transport except skip
// and returns how many of them failed. A zero source becomes the local
// node ID. With skip set to SkipNone the packet counts as locally
// originated and is also dispatched locally after the fan-out.
func (c *Controller) Send(typ wire.Type, target, source uint16, port int8, payload []byte, skip int) int {
	if source == 0 {
		source = c.nodeID
	}
	meta := wire.Meta{Type: typ, Target: target, Source: source, Port: port, Origin: skip}

	pkt, pktErr := wire.NewPacket(meta, payload)
	errs := 0
	var sent []int

	for slot, t := range c.buses {
		if t == nil || slot == skip {
			continue
		}
		ok := t.Send(meta, payload)
		c.observer.PacketSent(slot, pkt, ok)
		if !ok {
			errs++
			err := transport.LastError(t)
			c.debugLog("send failed", "slot", slot, "meta", meta.String(), "error", err)
			if err != nil {
				c.captureError(alog.LayerTransport, err.Error(), fmt.Sprintf("send on slot %d", slot))
			}
			continue
		}
		sent = append(sent, slot)
	}

	if skip < 0 && pktErr == nil {
		c.capturePacket(alog.DirectionOut, pkt, sent)
		pkt.Meta.Origin = wire.OriginLocal
		c.dispatch(pkt)
	}
	return errs
}

// SendMeta sends payload with meta's addressing, skipping meta.Origin.
func (c *Controller) SendMeta(meta wire.Meta, payload []byte) int {
	return c.Send(meta.Type, meta.Target, meta.Source, meta.Port, payload, meta.Origin)
}

// SendTo sends a locally originated packet without a port.
func (c *Controller) SendTo(typ wire.Type, target uint16, payload []byte) int {
	return c.Send(typ, target, c.nodeID, wire.PortUnset, payload, SkipNone)
}

// SendPort sends a locally originated packet to a port.
func (c *Controller) SendPort(typ wire.Type, target uint16, port int8, payload []byte) int {
	return c.Send(typ, target, c.nodeID, port, payload, SkipNone)
}

// Receive polls the transports in slot order and handles the first packet
// found. The packet is dispatched locally and, when routing is set, flooded
// to every other transport. At most one packet is handled per call.
func (c *Controller) Receive(routing bool) (wire.Packet, bool) {
	for slot, t := range c.buses {
		if t == nil {
			continue
		}
		var pkt wire.Packet
		if !t.Receive(&pkt) {
			continue
		}
		pkt.Meta.Origin = slot

		c.observer.PacketReceived(slot, pkt)
		c.capturePacket(alog.DirectionIn, pkt, nil)
		c.dispatch(pkt)

		if routing {
			c.observer.PacketRouted(pkt)
			c.Send(pkt.Meta.Type, pkt.Meta.Target, pkt.Meta.Source, pkt.Meta.Port, pkt.Payload(), slot)
		}
		return pkt, true
	}
	return wire.None(), false
}

// Loop handles at most one inbound packet with routing enabled, then ticks
// every module once. It returns the packet handled, if any.
func (c *Controller) Loop() (wire.Packet, bool) {
	pkt, ok := c.Receive(true)
	for _, m := range c.modules {
		if m != nil {
			m.Loop()
		}
	}
	return pkt, ok
}

// dispatch runs protocol handling, then modules, then hooks.
func (c *Controller) dispatch(pkt wire.Packet) {
	if cmd, ok := pkt.Command(); ok && cmd == wire.CmdPing {
		c.answerPing(pkt)
	}

	for _, m := range c.modules {
		if m != nil {
			m.Process(pkt)
		}
	}

	for i, h := range c.hooks {
		if h.fn != nil && h.filter.Matches(pkt) {
			c.observer.HookFired(i)
			h.fn(pkt)
		}
	}
}

// answerPing replies to a unicast probe addressed to this node on the slot
// it arrived on. A probe this node sent to itself is answered locally.
func (c *Controller) answerPing(pkt wire.Packet) {
	if pkt.Meta.Type != wire.TypeUnicast || pkt.Meta.Target != c.nodeID {
		return
	}
	reply := wire.Meta{
		Type:   wire.TypeUnicast,
		Target: pkt.Meta.Source,
		Source: c.nodeID,
		Port:   pkt.Meta.Port,
		Origin: wire.OriginLocal,
	}
	payload := []byte{byte(wire.CmdPong)}

	if pkt.Meta.Origin < 0 {
		pong, err := wire.NewPacket(reply, payload)
		if err == nil {
			c.dispatch(pong)
		}
		return
	}

	t, ok := c.Transport(pkt.Meta.Origin)
	if !ok {
		return
	}
	ok = t.Send(reply, payload)
	if pong, err := wire.NewPacket(reply, payload); err == nil {
		c.observer.PacketSent(pkt.Meta.Origin, pong, ok)
	}
	if !ok {
		c.debugLog("pong failed", "slot", pkt.Meta.Origin, "error", transport.LastError(t))
	}
}

func (c *Controller) capturePacket(dir alog.Direction, pkt wire.Packet, forwarded []int) {
	if c.capture == nil {
		return
	}
	ev := alog.Event{
		Direction: dir,
		Layer:     alog.LayerNode,
		Category:  alog.CategoryPacket,
		Packet:    alog.NewPacketEvent(pkt),
	}
	ev.Packet.Forwarded = forwarded
	if pkt.Meta.Origin >= 0 {
		slot := pkt.Meta.Origin
		ev.Slot = &slot
		if t, ok := c.Transport(slot); ok {
			ev.Transport = transport.Name(t)
		}
	}
	c.capture.Log(ev)
}

func (c *Controller) captureState(entity alog.StateEntity, index int, oldState, newState, reason string) {
	if c.capture == nil {
		return
	}
	c.capture.Log(alog.Event{
		Layer:    alog.LayerNode,
		Category: alog.CategoryState,
		StateChange: &alog.StateChangeEvent{
			Entity:   entity,
			Index:    index,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Controller) captureError(layer alog.Layer, msg, context string) {
	if c.capture == nil {
		return
	}
	c.capture.Log(alog.Event{
		Layer:    layer,
		Category: alog.CategoryError,
		Error: &alog.ErrorEventData{
			Layer:   layer,
			Message: msg,
			Context: context,
		},
	})
}

func (c *Controller) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// Compile-time interface satisfaction check.
var _ Host = (*Controller)(nil)
