// Package uart carries aSysBus packets over a byte stream (serial line,
// pipe or TCP connection) as ASCII-hex frames.
//
// # Frame Format
//
//	SOH type US target US source US port US len STX (byte US)* EOT '\n'
//
// SOH=0x01, US=0x1F, STX=0x02, EOT=0x04. Numeric fields are upper-case hex
// without padding; an unset port is written as "FF". The trailing newline
// only makes captures line-oriented and is ignored by the decoder.
//
// # Resynchronization
//
// The Decoder is fed one byte at a time. Every SOH starts a fresh frame,
// bytes outside a frame are dropped, and a malformed or overlong frame is
// discarded up to the next SOH. Line noise can cost frames but never stalls
// the decoder or grows its buffer beyond MaxFrameLen bytes.
package uart
