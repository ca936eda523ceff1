package uart

import (
	"github.com/asysbus/asb-go/pkg/wire"
)

// Control characters.
const (
	SOH byte = 0x01 // start of frame
	STX byte = 0x02 // start of payload
	EOT byte = 0x04 // end of frame
	US  byte = 0x1F // field separator
)

// Frame length limits, counted from SOH through EOT.
const (
	// MinFrameLen is the shortest buffer the decoder attempts to parse.
	MinFrameLen = 10

	// MaxFrameLen is the longest well-formed frame: 1-digit type, 4-digit
	// target, 3-digit source, 2-digit port, 1-digit length and eight
	// 2-digit payload bytes with their separators.
	MaxFrameLen = 1 + 1 + 1 + 4 + 1 + 3 + 1 + 2 + 1 + 1 + 1 + wire.MaxPayload*3 + 1
)

const hexDigits = "0123456789ABCDEF"

// appendHex appends v in upper-case hex without leading zeros.
func appendHex(dst []byte, v uint32) []byte {
	if v == 0 {
		return append(dst, '0')
	}
	var tmp [8]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = hexDigits[v&0x0F]
		v >>= 4
	}
	return append(dst, tmp[i:]...)
}

// hexValue returns the value of an ASCII hex digit.
func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// AppendFrame appends the wire form of one packet to dst. It does not
// validate; callers check meta and payload length first.
func AppendFrame(dst []byte, meta wire.Meta, payload []byte) []byte {
	dst = append(dst, SOH)
	dst = appendHex(dst, uint32(meta.Type))
	dst = append(dst, US)
	dst = appendHex(dst, uint32(meta.Target))
	dst = append(dst, US)
	dst = appendHex(dst, uint32(meta.Source))
	dst = append(dst, US)
	if meta.Port < 0 {
		dst = append(dst, 'F', 'F')
	} else {
		dst = appendHex(dst, uint32(meta.Port))
	}
	dst = append(dst, US)
	dst = appendHex(dst, uint32(len(payload)))
	dst = append(dst, STX)
	for _, b := range payload {
		dst = appendHex(dst, uint32(b))
		dst = append(dst, US)
	}
	return append(dst, EOT, '\n')
}

// EncodeFrame returns the wire form of p.
func EncodeFrame(p wire.Packet) []byte {
	return AppendFrame(make([]byte, 0, MaxFrameLen+1), p.Meta, p.Payload())
}
