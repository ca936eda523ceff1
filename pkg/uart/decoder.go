package uart

import (
	"errors"

	"github.com/asysbus/asb-go/pkg/wire"
)

// Stats counts decoder outcomes since creation.
type Stats struct {
	// Frames is the number of packets decoded.
	Frames uint64

	// Resyncs is the number of partial or malformed frames discarded.
	Resyncs uint64

	// Noise is the number of bytes dropped outside any frame, not
	// counting line terminators.
	Noise uint64
}

var errMalformed = errors.New("malformed frame")

// Decoder turns a byte stream into packets. The zero value is ready to use.
type Decoder struct {
	buf   [MaxFrameLen]byte
	n     int
	stats Stats

	last  [MaxFrameLen]byte
	lastN int
}

// Feed consumes one byte and returns a packet when b completes a frame.
func (d *Decoder) Feed(b byte) (wire.Packet, bool) {
	if b == SOH {
		if d.n > 1 {
			d.stats.Resyncs++
		}
		d.buf[0] = SOH
		d.n = 1
		return wire.Packet{}, false
	}
	if d.n == 0 {
		if b != '\n' && b != '\r' {
			d.stats.Noise++
		}
		return wire.Packet{}, false
	}

	d.buf[d.n] = b
	d.n++

	if b == EOT && d.n >= MinFrameLen {
		pkt, used, err := parseFrame(d.buf[:d.n])
		if err != nil {
			d.resync()
			return wire.Packet{}, false
		}
		d.lastN = copy(d.last[:], d.buf[:used])
		d.consume(used)
		d.stats.Frames++
		return pkt, true
	}
	if d.n >= MaxFrameLen {
		d.resync()
	}
	return wire.Packet{}, false
}

// Decode feeds data and returns every packet completed by it.
func (d *Decoder) Decode(data []byte) []wire.Packet {
	var out []wire.Packet
	for _, b := range data {
		if pkt, ok := d.Feed(b); ok {
			out = append(out, pkt)
		}
	}
	return out
}

// Buffered returns the number of bytes held for an incomplete frame.
func (d *Decoder) Buffered() int {
	return d.n
}

// Frame returns the bytes of the most recently decoded frame exactly as
// they arrived, SOH through EOT. The slice is valid until the next Feed.
func (d *Decoder) Frame() []byte {
	return d.last[:d.lastN]
}

// Stats returns the decoder counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Reset drops any partial frame.
func (d *Decoder) Reset() {
	d.n = 0
}

// resync drops the current frame start and everything up to the next SOH.
func (d *Decoder) resync() {
	d.stats.Resyncs++
	next := 0
	for i := 1; i < d.n; i++ {
		if d.buf[i] == SOH {
			next = i
			break
		}
	}
	if next == 0 {
		d.n = 0
		return
	}
	d.consume(next)
}

// consume removes k bytes from the front of the buffer.
func (d *Decoder) consume(k int) {
	if k >= d.n {
		d.n = 0
		return
	}
	copy(d.buf[:], d.buf[k:d.n])
	d.n -= k
}

// frameParser walks one buffered frame.
type frameParser struct {
	buf []byte
	pos int
}

func (p *frameParser) expect(c byte) error {
	if p.pos >= len(p.buf) || p.buf[p.pos] != c {
		return errMalformed
	}
	p.pos++
	return nil
}

// field reads up to max hex digits terminated by term. It returns the
// number of digits read; zero digits is allowed and left to the caller.
func (p *frameParser) field(term byte, max int) (uint32, int, error) {
	var v uint32
	digits := 0
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		p.pos++
		if c == term {
			return v, digits, nil
		}
		nib, ok := hexValue(c)
		if !ok || digits == max {
			return 0, 0, errMalformed
		}
		v = v<<4 | uint32(nib)
		digits++
	}
	return 0, 0, errMalformed
}

// parseFrame decodes buf, which starts with SOH and ends with EOT. It
// returns the packet and the number of bytes it consumed.
func parseFrame(buf []byte) (wire.Packet, int, error) {
	p := &frameParser{buf: buf}
	if err := p.expect(SOH); err != nil {
		return wire.Packet{}, 0, err
	}

	var pkt wire.Packet
	pkt.Meta.Origin = wire.OriginLocal

	typ, n, err := p.field(US, 1)
	if err != nil || n != 1 {
		return wire.Packet{}, 0, errMalformed
	}
	pkt.Meta.Type = wire.Type(typ)

	target, n, err := p.field(US, 4)
	if err != nil || n == 0 {
		return wire.Packet{}, 0, errMalformed
	}
	pkt.Meta.Target = uint16(target)

	source, n, err := p.field(US, 4)
	if err != nil || n == 0 {
		return wire.Packet{}, 0, errMalformed
	}
	pkt.Meta.Source = uint16(source)

	port, n, err := p.field(US, 2)
	if err != nil {
		return wire.Packet{}, 0, err
	}
	if n == 0 || port > uint32(wire.MaxPort) {
		pkt.Meta.Port = wire.PortUnset
	} else {
		pkt.Meta.Port = int8(port)
	}

	length, n, err := p.field(STX, 1)
	if err != nil || n != 1 || length > wire.MaxPayload {
		return wire.Packet{}, 0, errMalformed
	}
	pkt.Len = int8(length)

	for i := 0; i < int(length); i++ {
		b, n, err := p.field(US, 2)
		if err != nil || n == 0 {
			return wire.Packet{}, 0, errMalformed
		}
		pkt.Data[i] = byte(b)
	}
	if err := p.expect(EOT); err != nil {
		return wire.Packet{}, 0, err
	}

	if err := pkt.Meta.Validate(); err != nil {
		return wire.Packet{}, 0, err
	}
	return pkt, p.pos, nil
}
