package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/asysbus/asb-go/pkg/uart"
	"github.com/asysbus/asb-go/pkg/wire"
)

// encodePacket validates the envelope and returns the UART frame.
func encodePacket(meta wire.Meta, payload []byte) ([]byte, error) {
	if meta.Type != wire.TypeUnicast {
		meta.Port = wire.PortUnset
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	p, err := wire.NewPacket(meta, payload)
	if err != nil {
		return nil, err
	}
	return uart.EncodeFrame(p), nil
}

var controlNames = map[byte]string{
	uart.SOH: "<SOH>",
	uart.STX: "<STX>",
	uart.EOT: "<EOT>",
	uart.US:  "<US>",
	'\r':     "<CR>",
	'\n':     "<LF>",
}

// escapeFrame renders control bytes by name.
func escapeFrame(frame []byte) string {
	var b strings.Builder
	for _, c := range frame {
		if name, ok := controlNames[c]; ok {
			b.WriteString(name)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// describe renders one decoded packet.
func describe(p wire.Packet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s len=%d", p.Meta, p.Len)
	if p.Len > 0 {
		fmt.Fprintf(&b, " data=[% X]", p.Payload())
	}
	if d := wire.Describe(p); d != "" {
		b.WriteString(": ")
		b.WriteString(d)
	} else if cmd, ok := p.Command(); ok {
		b.WriteString(": ")
		b.WriteString(cmd.String())
	}
	return b.String()
}

// decodeStream feeds r through a UART decoder and writes one line per
// packet to w.
func decodeStream(r io.Reader, w io.Writer) (uart.Stats, error) {
	var dec uart.Decoder
	br := bufio.NewReader(r)
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			return dec.Stats(), nil
		}
		if err != nil {
			return dec.Stats(), err
		}
		if p, ok := dec.Feed(c); ok {
			if _, err := fmt.Fprintln(w, describe(p)); err != nil {
				return dec.Stats(), err
			}
		}
	}
}
