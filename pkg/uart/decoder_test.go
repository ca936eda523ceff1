package uart

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asysbus/asb-go/pkg/wire"
)

func TestDecoderRoundTrip(t *testing.T) {
	metas := []wire.Meta{
		{Type: wire.TypeBroadcast, Target: 0x0000, Source: 0x001, Port: wire.PortUnset},
		{Type: wire.TypeMulticast, Target: 0xFFFF, Source: 0x7FF, Port: wire.PortUnset},
		{Type: wire.TypeUnicast, Target: 0x7FF, Source: 0x123, Port: 0},
		{Type: wire.TypeUnicast, Target: 0x001, Source: 0x456, Port: 0x1F},
	}
	payload := []byte{0x00, 0x01, 0x7F, 0x80, 0xAB, 0xFF, 0x10, 0x0F}

	for _, meta := range metas {
		for n := 0; n <= wire.MaxPayload; n++ {
			meta.Origin = wire.OriginLocal
			in := mustPacket(t, meta, payload[:n])

			var d Decoder
			out := d.Decode(EncodeFrame(in))

			require.Len(t, out, 1, "meta %s len %d", meta, n)
			assert.Equal(t, in, out[0], "meta %s len %d", meta, n)
			assert.Zero(t, d.Buffered())
		}
	}
}

func TestDecoderBackToBackFrames(t *testing.T) {
	a := mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 0x10, Source: 1, Port: wire.PortUnset, Origin: wire.OriginLocal}, []byte{0x70})
	b := mustPacket(t, wire.Meta{Type: wire.TypeUnicast, Target: 0x20, Source: 2, Port: 4, Origin: wire.OriginLocal}, []byte{0x71, 0x02})

	var stream []byte
	stream = append(stream, EncodeFrame(a)...)
	stream = append(stream, EncodeFrame(b)...)

	var d Decoder
	out := d.Decode(stream)
	require.Len(t, out, 2)
	assert.Equal(t, a, out[0])
	assert.Equal(t, b, out[1])
	assert.Equal(t, Stats{Frames: 2}, d.Stats())
}

func TestDecoderResyncsAfterCorruptFrame(t *testing.T) {
	good := mustPacket(t, wire.Meta{Type: wire.TypeUnicast, Target: 0x20, Source: 0x10, Port: 1, Origin: wire.OriginLocal}, []byte{0x70})

	// Separator after the target is missing.
	corrupt := []byte{SOH, '2', US, '1', '0', '2', '0', US, 'F', 'F', US, '1', STX, '7', '0', US, EOT, '\n'}

	var d Decoder
	out := d.Decode(append(corrupt, EncodeFrame(good)...))

	require.Len(t, out, 1)
	assert.Equal(t, good, out[0])
	assert.Equal(t, uint64(1), d.Stats().Resyncs)
	assert.LessOrEqual(t, d.Buffered(), MaxFrameLen)
}

func TestDecoderNewStartDiscardsPartial(t *testing.T) {
	good := mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 1, Source: 2, Port: wire.PortUnset, Origin: wire.OriginLocal}, nil)

	var d Decoder
	out := d.Decode(append([]byte{SOH, '0', US, '1', '2'}, EncodeFrame(good)...))

	require.Len(t, out, 1)
	assert.Equal(t, good, out[0])
	assert.Equal(t, uint64(1), d.Stats().Resyncs)
}

func TestDecoderBoundsRunawayFrame(t *testing.T) {
	var d Decoder
	d.Feed(SOH)
	for i := 0; i < 500; i++ {
		d.Feed('A')
		require.Less(t, d.Buffered(), MaxFrameLen)
	}
	assert.Positive(t, d.Stats().Resyncs)

	// Still usable afterwards.
	good := mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 5, Source: 6, Port: wire.PortUnset, Origin: wire.OriginLocal}, []byte{1})
	out := d.Decode(EncodeFrame(good))
	require.Len(t, out, 1)
	assert.Equal(t, good, out[0])
}

func TestDecoderCountsNoise(t *testing.T) {
	var d Decoder
	assert.Empty(t, d.Decode([]byte("hello\r\n")))
	assert.Equal(t, uint64(5), d.Stats().Noise)
	assert.Zero(t, d.Buffered())
}

func TestDecoderRejects(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"reserved type", []byte{SOH, '3', US, '1', US, '1', US, 'F', 'F', US, '0', STX, EOT}},
		{"two-digit type", []byte{SOH, '0', '0', US, '1', US, '1', US, 'F', 'F', US, '0', STX, EOT}},
		{"unicast without port", []byte{SOH, '2', US, '1', US, '1', US, 'F', 'F', US, '0', STX, EOT}},
		{"unicast target too large", []byte{SOH, '2', US, '8', '0', '0', US, '1', US, '1', US, '0', STX, EOT}},
		{"source too large", []byte{SOH, '0', US, '1', US, '8', '0', '0', US, 'F', 'F', US, '0', STX, EOT}},
		{"length too large", []byte{SOH, '0', US, '1', US, '1', US, 'F', 'F', US, '9', STX, EOT}},
		{"missing data byte", []byte{SOH, '0', US, '1', US, '1', US, 'F', 'F', US, '2', STX, '1', US, EOT}},
		{"non-hex digit", []byte{SOH, '0', US, 'G', US, '1', US, 'F', 'F', US, '0', STX, EOT}},
		{"three-digit data", []byte{SOH, '0', US, '1', US, '1', US, 'F', 'F', US, '1', STX, '1', '2', '3', US, EOT}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			assert.Empty(t, d.Decode(tt.frame))
			assert.Zero(t, d.Buffered())
		})
	}
}

func TestDecoderAcceptsLowerCase(t *testing.T) {
	frame := []byte{SOH, '0', US, 'f', 'f', US, 'a', US, 'f', 'f', US, '1', STX, 'a', 'b', US, EOT}

	var d Decoder
	out := d.Decode(frame)
	require.Len(t, out, 1)
	assert.Equal(t, uint16(0xFF), out[0].Meta.Target)
	assert.Equal(t, uint16(0xA), out[0].Meta.Source)
	assert.True(t, bytes.Equal([]byte{0xAB}, out[0].Payload()))
	assert.Equal(t, frame, d.Frame())
}
