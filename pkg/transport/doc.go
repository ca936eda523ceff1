// Package transport defines the contract every physical bus adapter
// implements to carry aSysBus packets.
//
// A transport is polled, never blocking: Receive returns false immediately
// when nothing complete is available, and Send reports success as a bool so
// the node controller can tally partial failures across several transports.
//
//	┌─────────────────────────────────────────┐
//	│             node.Controller             │
//	├───────────────┬────────────────┬────────┤
//	│ can.Transport │ uart.Transport │  ...   │
//	├───────────────┼────────────────┼────────┤
//	│  29-bit ID    │  ASCII-hex     │        │
//	│  + 0-8 data   │  SOH..EOT      │        │
//	└───────────────┴────────────────┴────────┘
package transport
