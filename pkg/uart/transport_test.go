package uart

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alog "github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/wire"
)

type captureLogger struct {
	mu     sync.Mutex
	events []alog.Event
}

func (c *captureLogger) Log(e alog.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestTransportSendWritesFrame(t *testing.T) {
	var s BufferStream
	capture := &captureLogger{}
	tr := NewTransport(&s, Config{Name: "uart0", Capture: capture})
	require.NoError(t, tr.Begin())

	meta := wire.Meta{Type: wire.TypeBroadcast, Target: 0x10, Source: 0x20, Port: 5}
	require.True(t, tr.Send(meta, []byte{0x70}))

	meta.Port = wire.PortUnset
	assert.Equal(t, EncodeFrame(mustPacket(t, meta, []byte{0x70})), s.Out.Bytes())
	require.Len(t, capture.events, 1)
	assert.Equal(t, alog.DirectionOut, capture.events[0].Direction)
	assert.Equal(t, "uart0", capture.events[0].Transport)
}

func TestTransportSendRejects(t *testing.T) {
	var s BufferStream
	tr := NewTransport(&s, Config{})
	assert.Equal(t, "uart", tr.Name())

	assert.False(t, tr.Send(wire.Meta{Type: wire.TypeUnicast, Target: 0x800, Source: 1, Port: 0}, nil))
	assert.ErrorIs(t, tr.LastError(), wire.ErrInvalidTarget)

	assert.False(t, tr.Send(wire.Meta{Type: wire.TypeBroadcast, Target: 1, Source: 1, Port: -1}, make([]byte, 9)))
	assert.ErrorIs(t, tr.LastError(), wire.ErrPayloadTooLong)

	assert.Zero(t, s.Out.Len())
}

func TestTransportReceive(t *testing.T) {
	var s BufferStream
	tr := NewTransport(&s, Config{})

	a := mustPacket(t, wire.Meta{Type: wire.TypeUnicast, Target: 0x10, Source: 0x20, Port: 2, Origin: wire.OriginLocal}, []byte{0x40, 0x70})
	b := mustPacket(t, wire.Meta{Type: wire.TypeMulticast, Target: 0x1234, Source: 0x20, Port: wire.PortUnset, Origin: wire.OriginLocal}, nil)
	s.In.Write([]byte("junk"))
	s.In.Write(EncodeFrame(a))
	s.In.Write(EncodeFrame(b))

	var pkt wire.Packet
	require.True(t, tr.Receive(&pkt))
	assert.Equal(t, a, pkt)
	require.True(t, tr.Receive(&pkt))
	assert.Equal(t, b, pkt)
	assert.False(t, tr.Receive(&pkt))

	assert.Equal(t, uint64(2), tr.Stats().Frames)
	assert.Equal(t, uint64(4), tr.Stats().Noise)
}

func TestTransportReceivePartialFrame(t *testing.T) {
	var s BufferStream
	tr := NewTransport(&s, Config{})

	frame := EncodeFrame(mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 1, Source: 2, Port: wire.PortUnset, Origin: wire.OriginLocal}, []byte{1, 2, 3}))

	var pkt wire.Packet
	s.In.Write(frame[:7])
	assert.False(t, tr.Receive(&pkt))
	s.In.Write(frame[7:])
	assert.True(t, tr.Receive(&pkt))
	assert.Equal(t, int8(3), pkt.Len)
}

func TestTransportCapturesReceivedBytes(t *testing.T) {
	var s BufferStream
	capture := &captureLogger{}
	tr := NewTransport(&s, Config{Name: "uart0", Capture: capture})

	// Lower-case digits and a zero-padded source decode fine but do not
	// match the canonical encoding.
	raw := []byte{SOH, '1', US, '1', '2', 'a', US, '0', '0', '2', US, 'F', 'F', US, '1', STX, '5', '1', US, EOT}
	s.In.Write([]byte("xx"))
	s.In.Write(raw)
	s.In.Write([]byte("\n"))

	var pkt wire.Packet
	require.True(t, tr.Receive(&pkt))
	assert.Equal(t, uint16(0x12A), pkt.Meta.Target)
	assert.Equal(t, uint16(0x002), pkt.Meta.Source)

	require.Len(t, capture.events, 1)
	ev := capture.events[0]
	assert.Equal(t, alog.DirectionIn, ev.Direction)
	require.NotNil(t, ev.Frame)
	assert.Equal(t, raw, ev.Frame.Data)
	assert.Equal(t, len(raw), ev.Frame.Size)
	assert.NotEqual(t, EncodeFrame(pkt), ev.Frame.Data)
}

type failingStarter struct {
	BufferStream
}

func (f *failingStarter) Start() error { return errors.New("no device") }

func TestTransportBeginStartsStream(t *testing.T) {
	tr := NewTransport(&failingStarter{}, Config{})
	err := tr.Begin()
	require.Error(t, err)
	assert.Equal(t, err, tr.LastError())
}

func TestNewTransportNilStreamPanics(t *testing.T) {
	assert.Panics(t, func() { NewTransport(nil, Config{}) })
}

func waitBuffered(t *testing.T, s *PumpStream, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Buffered() >= n }, time.Second, 5*time.Millisecond)
}

func TestPumpStreamOverPipe(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	s := NewPumpStream(local, 0)
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	tr := NewTransport(s, Config{})
	require.NoError(t, tr.Begin())

	in := mustPacket(t, wire.Meta{Type: wire.TypeUnicast, Target: 0x30, Source: 0x40, Port: 1, Origin: wire.OriginLocal}, []byte{0x51, 0x00})
	frame := EncodeFrame(in)
	go remote.Write(frame)
	waitBuffered(t, s, len(frame))

	var pkt wire.Packet
	require.True(t, tr.Receive(&pkt))
	assert.Equal(t, in, pkt)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, MaxFrameLen+1)
		n, _ := io.ReadAtLeast(remote, buf, 1)
		got <- buf[:n]
	}()
	require.True(t, tr.Send(in.Meta, in.Payload()))
	assert.Equal(t, frame, <-got)

	require.NoError(t, s.Close())
	<-s.Done()
	assert.ErrorIs(t, s.Err(), ErrStreamClosed)
	_, err := s.Write([]byte{1})
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestPumpStreamDropsOldestOnOverflow(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	s := NewPumpStream(local, 4)
	require.NoError(t, s.Start())

	go remote.Write([]byte("abcdef"))
	require.Eventually(t, func() bool { return s.Dropped() == 2 }, time.Second, 5*time.Millisecond)

	b, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('c'), b)
	s.Close()
}

func TestPumpStreamReadByteEmpty(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	s := NewPumpStream(local, 0)

	_, err := s.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGatewayAcceptsPeers(t *testing.T) {
	g, err := ListenTCP("127.0.0.1:0", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	streams := make(chan *PumpStream, 1)
	served := make(chan error, 1)
	go func() {
		served <- g.Serve(ctx, func(s *PumpStream, _ net.Addr) { streams <- s })
	}()

	client, err := DialTCP(ctx, g.Addr().String())
	require.NoError(t, err)
	require.NoError(t, client.Start())
	defer client.Close()

	server := <-streams
	defer server.Close()

	out := NewTransport(client, Config{Name: "client"})
	in := NewTransport(server, Config{Name: "server"})

	meta := wire.Meta{Type: wire.TypeBroadcast, Target: 0x77, Source: 0x12, Port: wire.PortUnset}
	require.True(t, out.Send(meta, []byte{0x70}))

	var pkt wire.Packet
	require.Eventually(t, func() bool { return in.Receive(&pkt) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint16(0x77), pkt.Meta.Target)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
