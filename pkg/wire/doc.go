// Package wire defines the packet model of the aSysBus field bus.
//
// A packet is a short addressed message: a metadata envelope (type, target,
// source, port) plus 0-8 payload bytes. The same model is carried by every
// transport; each transport maps it onto its own physical encoding (see the
// can and uart packages).
//
// # Addressing
//
// Node IDs live in [0x0001, 0x07FF]. Broadcast and multicast packets may
// address any 16-bit group in [0x0001, 0xFFFF]. Unicast packets address a
// node ID and carry a port in [0x00, 0x1F]; non-unicast packets carry the
// PortUnset sentinel.
//
// # Commands
//
// The first payload byte is, by convention, a Command. The node controller
// handles PING itself; every other command is interpreted by modules and hooks.
package wire
