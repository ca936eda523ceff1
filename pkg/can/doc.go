// Package can carries aSysBus packets over a CAN bus using 29-bit extended
// identifiers.
//
// The whole addressing envelope is packed into the arbitration identifier,
// leaving all eight data bytes for the payload. LayoutClassic is the
// reference layout:
//
//	bit 31     extended-frame flag
//	bits 28-29 packet type
//	bits 23-27 port (unicast only)
//	bits 11-27 target (11 bits for unicast, 16 bits otherwise)
//	bits 0-10  source node ID
//
// A unicast type sets bit 29, one past the physical field, so classic
// unicast frames cannot leave the node. LayoutCompact moves the type to bits
// 27-28 and the port to bits 22-26; target and source stay put and every
// packet fits. Transport.Send rejects classic unicast with ErrIDOverflow.
//
// Physical access goes through a Driver. VirtualBus is an in-process bus
// segment for simulation and tests; SocketCAN drives a Linux CAN interface.
// Both reject frames whose identifier does not fit.
//
// # Interrupts
//
// Controllers wired to an interrupt line call Signal from the interrupt
// handler. A Transport configured with Interrupt only polls its driver when
// Signal was called since it last found the driver empty. The signal count
// is process-wide because every transport of this kind shares one physical
// interrupt line.
package can
