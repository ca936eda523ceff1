// Package cfgblock allocates configuration records inside a fixed region of
// a non-volatile storage device.
//
// The region [start, stop) begins with a two-byte node ID record. Blocks
// follow back to back. Each block is one header byte, module ID in the high
// nibble and size class n in the low nibble, and occupies 2^n+5 bytes in
// total. A header of 0xFF or 0x00 marks untouched space and ends the used
// part of the region; a header whose module nibble is zero marks a freed
// block that may be handed out again as-is.
//
// Blocks are never split or merged. The header byte is the only metadata,
// so a block's owner and extent can always be recovered from the device.
package cfgblock
