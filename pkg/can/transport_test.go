package can

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asysbus/asb-go/pkg/wire"
)

func newPair(t *testing.T, interrupt bool) (*Transport, *Transport) {
	t.Helper()
	bus := NewVirtualBus(interrupt)
	a := NewTransport(bus.Port(), Config{Name: "a", Interrupt: interrupt, Layout: LayoutCompact})
	b := NewTransport(bus.Port(), Config{Name: "b", Interrupt: interrupt, Layout: LayoutCompact})
	require.NoError(t, a.Begin())
	require.NoError(t, b.Begin())
	return a, b
}

func TestTransportSendReceive(t *testing.T) {
	a, b := newPair(t, false)

	meta := wire.Meta{Type: wire.TypeUnicast, Target: 0x010, Source: 0x020, Port: 3}
	require.True(t, a.Send(meta, []byte{byte(wire.CmdPing)}))

	var pkt wire.Packet
	require.True(t, b.Receive(&pkt))
	assert.Equal(t, wire.TypeUnicast, pkt.Meta.Type)
	assert.Equal(t, uint16(0x010), pkt.Meta.Target)
	assert.Equal(t, uint16(0x020), pkt.Meta.Source)
	assert.Equal(t, int8(3), pkt.Meta.Port)
	assert.Equal(t, []byte{0x70}, pkt.Payload())

	// The sender never hears itself.
	assert.False(t, a.Receive(&pkt))
	assert.False(t, b.Receive(&pkt))
}

func TestTransportRejectsInvalidEnvelope(t *testing.T) {
	a, b := newPair(t, false)

	assert.False(t, a.Send(wire.Meta{Type: 3, Target: 1, Source: 1}, nil))
	assert.ErrorIs(t, a.LastError(), wire.ErrInvalidType)

	assert.False(t, a.Send(wire.Meta{Type: wire.TypeBroadcast, Target: 1, Source: 1}, make([]byte, 9)))
	assert.ErrorIs(t, a.LastError(), wire.ErrPayloadTooLong)

	var pkt wire.Packet
	assert.False(t, b.Receive(&pkt), "nothing may reach the bus")
}

func TestTransportDropsStandardFrames(t *testing.T) {
	bus := NewVirtualBus(false)
	raw := bus.Port()
	require.NoError(t, raw.Open())
	tr := NewTransport(bus.Port(), Config{})
	require.NoError(t, tr.Begin())

	require.NoError(t, raw.Write(Frame{ID: 0x123, Len: 1}))

	var pkt wire.Packet
	assert.False(t, tr.Receive(&pkt))
}

func TestTransportClassicUnicastDoesNotFit(t *testing.T) {
	bus := NewVirtualBus(false)
	a := NewTransport(bus.Port(), Config{Name: "a"})
	b := NewTransport(bus.Port(), Config{Name: "b"})
	require.NoError(t, a.Begin())
	require.NoError(t, b.Begin())

	unicast := wire.Meta{Type: wire.TypeUnicast, Target: 0x001, Source: 0x002, Port: 0}
	assert.False(t, a.Send(unicast, []byte{byte(wire.CmdPong)}))
	assert.ErrorIs(t, a.LastError(), ErrIDOverflow)

	multicast := wire.Meta{Type: wire.TypeMulticast, Target: 0xFFFF, Source: 0x7FF, Port: wire.PortUnset}
	require.True(t, a.Send(multicast, nil))

	var pkt wire.Packet
	require.True(t, b.Receive(&pkt))
	assert.Equal(t, wire.TypeMulticast, pkt.Meta.Type)
	assert.False(t, b.Receive(&pkt), "the unicast never reached the bus")
}

func TestTransportDropsReservedType(t *testing.T) {
	bus := NewVirtualBus(false)
	raw := bus.Port()
	require.NoError(t, raw.Open())
	tr := NewTransport(bus.Port(), Config{Layout: LayoutCompact})
	require.NoError(t, tr.Begin())

	require.NoError(t, raw.Write(Frame{ID: 3<<27 | 0x12<<11 | 0x34, Extended: true, Len: 1, Data: [8]byte{0x51}}))
	require.NoError(t, raw.Write(Frame{ID: 0x12<<11 | 0x34, Extended: true, Len: 1, Data: [8]byte{0x51}}))

	var pkt wire.Packet
	assert.False(t, tr.Receive(&pkt))
	require.True(t, tr.Receive(&pkt))
	assert.Equal(t, wire.TypeBroadcast, pkt.Meta.Type)
	assert.Equal(t, uint16(0x34), pkt.Meta.Source)
}

func TestTransportInterruptMode(t *testing.T) {
	a, b := newPair(t, true)

	var pkt wire.Packet
	b.Receive(&pkt)
	assert.False(t, b.Receive(&pkt))
	assert.False(t, b.Pending())

	meta := wire.Meta{Type: wire.TypeMulticast, Target: 0x100, Source: 0x001, Port: wire.PortUnset}
	require.True(t, a.Send(meta, []byte{0x51, 0x01}))
	require.True(t, a.Send(meta, []byte{0x51, 0x00}))
	assert.True(t, b.Pending())

	require.True(t, b.Receive(&pkt))
	assert.Equal(t, []byte{0x51, 0x01}, pkt.Payload())
	require.True(t, b.Receive(&pkt), "stays armed while frames remain")
	assert.Equal(t, []byte{0x51, 0x00}, pkt.Payload())
	assert.False(t, b.Receive(&pkt))
	assert.False(t, b.Pending())
}

func TestInterruptWakesEveryTransport(t *testing.T) {
	// Two nodes on separate interrupt-driven segments share the signal.
	otherBus, mineBus := NewVirtualBus(true), NewVirtualBus(true)
	other := NewTransport(otherBus.Port(), Config{Name: "other", Interrupt: true})
	mine := NewTransport(mineBus.Port(), Config{Name: "mine", Interrupt: true})
	tx := mineBus.Port()
	require.NoError(t, other.Begin())
	require.NoError(t, mine.Begin())
	require.NoError(t, tx.Open())

	// Catch up with signals raised before this test.
	var pkt wire.Packet
	other.Receive(&pkt)
	mine.Receive(&pkt)

	meta := wire.Meta{Type: wire.TypeBroadcast, Target: 0x001, Source: 0x002, Port: wire.PortUnset}
	id, err := EncodeID(meta)
	require.NoError(t, err)
	require.NoError(t, tx.Write(Frame{ID: id &^ ExtendedFlag, Extended: true, Len: 1, Data: [8]byte{0x21}}))

	assert.False(t, other.Receive(&pkt), "nothing queued for other")
	assert.False(t, other.Pending())
	require.True(t, mine.Receive(&pkt), "the wake-up was not consumed by other")
	assert.Equal(t, uint16(0x002), pkt.Meta.Source)
	assert.False(t, mine.Receive(&pkt))
}

type failingDriver struct{ VirtualPort }

func (failingDriver) Open() error { return errors.New("no chip") }

func TestTransportBeginError(t *testing.T) {
	tr := NewTransport(&failingDriver{}, Config{})
	err := tr.Begin()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chip")
	assert.Equal(t, err, tr.LastError())
}

func TestVirtualBusOverflow(t *testing.T) {
	bus := NewVirtualBus(false)
	tx, rx := bus.Port(), bus.Port()
	require.NoError(t, tx.Open())
	require.NoError(t, rx.Open())

	for i := 0; i < DefaultPortQueue+3; i++ {
		require.NoError(t, tx.Write(Frame{ID: uint32(i), Extended: true}))
	}
	assert.Equal(t, 3, rx.Dropped())

	f, ok, err := rx.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(3), f.ID)
}

func TestVirtualPortClosed(t *testing.T) {
	bus := NewVirtualBus(false)
	p := bus.Port()
	assert.ErrorIs(t, p.Write(Frame{}), ErrPortNotOpen)
	require.NoError(t, p.Close())
	_, _, err := p.Read()
	assert.ErrorIs(t, err, ErrPortClosed)
}

func TestFrameValidate(t *testing.T) {
	assert.NoError(t, Frame{ID: 0x7FF}.Validate())
	assert.ErrorIs(t, Frame{ID: 0x800}.Validate(), ErrIDOverflow)
	assert.NoError(t, Frame{ID: 0x1FFFFFFF, Extended: true}.Validate())
	assert.ErrorIs(t, Frame{ID: 0x20000000, Extended: true}.Validate(), ErrIDOverflow)
	assert.ErrorIs(t, Frame{Len: 9}.Validate(), ErrInvalidLen)
}
