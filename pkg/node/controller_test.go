package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alog "github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/storage"
	"github.com/asysbus/asb-go/pkg/wire"
)

// fakeTransport records sends and replays queued packets.
type fakeTransport struct {
	name     string
	beginErr error
	fail     bool
	inbox    []wire.Packet
	sent     []wire.Packet
}

func (f *fakeTransport) Begin() error { return f.beginErr }

func (f *fakeTransport) Send(meta wire.Meta, payload []byte) bool {
	if f.fail {
		return false
	}
	p, err := wire.NewPacket(meta, payload)
	if err != nil {
		return false
	}
	f.sent = append(f.sent, p)
	return true
}

func (f *fakeTransport) Receive(pkt *wire.Packet) bool {
	if len(f.inbox) == 0 {
		return false
	}
	*pkt = f.inbox[0]
	f.inbox = f.inbox[1:]
	return true
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) LastError() error {
	if f.fail {
		return errors.New("bus off")
	}
	return nil
}

// commands returns the first payload byte of every sent packet.
func (f *fakeTransport) commands() []wire.Command {
	var out []wire.Command
	for _, p := range f.sent {
		if cmd, ok := p.Command(); ok {
			out = append(out, cmd)
		}
	}
	return out
}

func (f *fakeTransport) reset() { f.sent = nil }

type recordingObserver struct {
	received, sent, routed, hooks, cfgFailures int
	failedSends                                int
}

func (o *recordingObserver) PacketReceived(int, wire.Packet) { o.received++ }
func (o *recordingObserver) PacketSent(_ int, _ wire.Packet, ok bool) {
	o.sent++
	if !ok {
		o.failedSends++
	}
}
func (o *recordingObserver) PacketRouted(wire.Packet) { o.routed++ }
func (o *recordingObserver) HookFired(int)            { o.hooks++ }
func (o *recordingObserver) ConfigFailed(uint8)       { o.cfgFailures++ }

type captureLogger struct {
	events []alog.Event
}

func (c *captureLogger) Log(e alog.Event) { c.events = append(c.events, e) }

func newController(t *testing.T, id uint16) *Controller {
	t.Helper()
	cfg := DefaultConfig()
	cfg.NodeID = id
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func attachFakes(t *testing.T, c *Controller, n int) []*fakeTransport {
	t.Helper()
	out := make([]*fakeTransport, n)
	for i := range out {
		out[i] = &fakeTransport{name: "fake"}
		slot, err := c.AttachTransport(out[i])
		require.NoError(t, err)
		require.Equal(t, i, slot)
		out[i].reset()
	}
	return out
}

func mustPacket(t *testing.T, meta wire.Meta, payload ...byte) wire.Packet {
	t.Helper()
	p, err := wire.NewPacket(meta, payload)
	require.NoError(t, err)
	return p
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.BusNum = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Storage = storage.NewMemory(16)
	cfg.CfgStop = 17
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestAttachTransportAnnouncesBoot(t *testing.T) {
	c := newController(t, 0x0123)
	tr := &fakeTransport{}

	slot, err := c.AttachTransport(tr)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	require.Len(t, tr.sent, 1)
	boot := tr.sent[0]
	assert.Equal(t, wire.TypeBroadcast, boot.Meta.Type)
	assert.Equal(t, uint16(0x0123), boot.Meta.Source)
	assert.Equal(t, []wire.Command{wire.CmdBoot}, tr.commands())
}

func TestAttachTransportErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeID = 1
	cfg.BusNum = 2
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.AttachTransport(&fakeTransport{beginErr: errors.New("no carrier")})
	var be *BeginError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, ErrBeginFailed)
	assert.Equal(t, 0, be.Slot)

	// The failed slot was rolled back.
	slot, err := c.AttachTransport(&fakeTransport{})
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	_, err = c.AttachTransport(&fakeTransport{})
	require.NoError(t, err)
	_, err = c.AttachTransport(&fakeTransport{})
	assert.ErrorIs(t, err, ErrNoFreeSlot)

	assert.Panics(t, func() { c.AttachTransport(nil) })
}

func TestDetachTransport(t *testing.T) {
	c := newController(t, 1)
	attachFakes(t, c, 2)

	require.NoError(t, c.DetachTransport(0))
	assert.ErrorIs(t, c.DetachTransport(0), ErrSlotEmpty)
	assert.ErrorIs(t, c.DetachTransport(-1), ErrInvalidSlot)
	assert.ErrorIs(t, c.DetachTransport(6), ErrInvalidSlot)

	_, ok := c.Transport(0)
	assert.False(t, ok)
	_, ok = c.Transport(1)
	assert.True(t, ok)

	slot, err := c.AttachTransport(&fakeTransport{})
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
}

func TestSendCountsFailuresAndSubstitutesSource(t *testing.T) {
	obs := &recordingObserver{}
	cfg := DefaultConfig()
	cfg.NodeID = 0x42
	cfg.Observer = obs
	c, err := New(cfg)
	require.NoError(t, err)

	trs := attachFakes(t, c, 3)
	trs[1].fail = true
	obs.sent = 0

	errs := c.Send(wire.TypeMulticast, 0x1000, 0, wire.PortUnset, []byte{byte(wire.Cmd1B), 1}, SkipNone)
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, obs.failedSends)
	assert.Equal(t, 3, obs.sent)

	for _, i := range []int{0, 2} {
		require.Len(t, trs[i].sent, 1)
		assert.Equal(t, uint16(0x42), trs[i].sent[0].Meta.Source)
	}
	assert.Empty(t, trs[1].sent)
}

func TestSendWithoutTransports(t *testing.T) {
	c := newController(t, 1)
	assert.Zero(t, c.SendTo(wire.TypeBroadcast, 0xFFFF, []byte{byte(wire.CmdPing)}))
}

func TestReceiveRoutesToOtherSlotsOnly(t *testing.T) {
	obs := &recordingObserver{}
	cfg := DefaultConfig()
	cfg.NodeID = 0x10
	cfg.Observer = obs
	c, err := New(cfg)
	require.NoError(t, err)
	trs := attachFakes(t, c, 3)

	in := mustPacket(t, wire.Meta{Type: wire.TypeMulticast, Target: 0x2000, Source: 0x55, Port: wire.PortUnset}, byte(wire.Cmd1B), 1)
	trs[1].inbox = append(trs[1].inbox, in)

	pkt, ok := c.Receive(true)
	require.True(t, ok)
	assert.Equal(t, 1, pkt.Meta.Origin)

	assert.Len(t, trs[0].sent, 1)
	assert.Empty(t, trs[1].sent)
	assert.Len(t, trs[2].sent, 1)
	assert.Equal(t, uint16(0x55), trs[2].sent[0].Meta.Source, "relayed packets keep their source")
	assert.Equal(t, 1, obs.routed)
	assert.Equal(t, 1, obs.received)
}

func TestReceiveWithoutRouting(t *testing.T) {
	c := newController(t, 0x10)
	trs := attachFakes(t, c, 2)
	trs[0].inbox = append(trs[0].inbox, mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 1, Source: 2, Port: wire.PortUnset}))

	_, ok := c.Receive(false)
	require.True(t, ok)
	assert.Empty(t, trs[1].sent)
}

func TestReceiveOnePacketPerCallInSlotOrder(t *testing.T) {
	c := newController(t, 0x10)
	trs := attachFakes(t, c, 3)

	a := mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 0xA, Source: 2, Port: wire.PortUnset})
	b := mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 0xB, Source: 3, Port: wire.PortUnset})
	trs[2].inbox = append(trs[2].inbox, b)
	trs[0].inbox = append(trs[0].inbox, a)

	pkt, ok := c.Receive(true)
	require.True(t, ok)
	assert.Equal(t, uint16(0xA), pkt.Meta.Target)
	assert.Len(t, trs[2].inbox, 1, "second packet waits for the next call")

	pkt, ok = c.Receive(true)
	require.True(t, ok)
	assert.Equal(t, uint16(0xB), pkt.Meta.Target)

	pkt, ok = c.Receive(true)
	assert.False(t, ok)
	assert.False(t, pkt.Valid())
}

func TestPingAnsweredOnOriginSlot(t *testing.T) {
	c := newController(t, 0x0100)
	trs := attachFakes(t, c, 3)

	ping := mustPacket(t, wire.Meta{Type: wire.TypeUnicast, Target: 0x0100, Source: 0x0200, Port: 7}, byte(wire.CmdPing))
	trs[2].inbox = append(trs[2].inbox, ping)

	_, ok := c.Receive(false)
	require.True(t, ok)

	assert.Empty(t, trs[0].sent)
	assert.Empty(t, trs[1].sent)
	require.Len(t, trs[2].sent, 1)
	pong := trs[2].sent[0]
	assert.Equal(t, wire.TypeUnicast, pong.Meta.Type)
	assert.Equal(t, uint16(0x0200), pong.Meta.Target)
	assert.Equal(t, uint16(0x0100), pong.Meta.Source)
	assert.Equal(t, int8(7), pong.Meta.Port)
	assert.Equal(t, []wire.Command{wire.CmdPong}, trs[2].commands())
}

func TestPingIgnored(t *testing.T) {
	tests := []struct {
		name string
		meta wire.Meta
	}{
		{"other node", wire.Meta{Type: wire.TypeUnicast, Target: 0x0101, Source: 0x0200, Port: 0}},
		{"broadcast", wire.Meta{Type: wire.TypeBroadcast, Target: 0x0100, Source: 0x0200, Port: wire.PortUnset}},
		{"multicast", wire.Meta{Type: wire.TypeMulticast, Target: 0x0100, Source: 0x0200, Port: wire.PortUnset}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t, 0x0100)
			trs := attachFakes(t, c, 1)
			trs[0].inbox = append(trs[0].inbox, mustPacket(t, tt.meta, byte(wire.CmdPing)))

			_, ok := c.Receive(false)
			require.True(t, ok)
			assert.Empty(t, trs[0].sent)
		})
	}
}

func TestLocalPingToSelfIsAnsweredLocally(t *testing.T) {
	c := newController(t, 0x0100)
	trs := attachFakes(t, c, 1)

	var got []wire.Command
	_, err := c.AttachHook(MatchAll(), func(p wire.Packet) {
		cmd, _ := p.Command()
		got = append(got, cmd)
	})
	require.NoError(t, err)

	c.SendPort(wire.TypeUnicast, 0x0100, 0, []byte{byte(wire.CmdPing)})

	// The pong reaches local hooks before the ping itself does.
	assert.Equal(t, []wire.Command{wire.CmdPong, wire.CmdPing}, got)
	assert.Equal(t, []wire.Command{wire.CmdPing}, trs[0].commands())
}

func TestLoopTicksModules(t *testing.T) {
	c := newController(t, 1)
	m := &fakeModule{id: 20}
	_, err := c.AttachModule(m)
	require.NoError(t, err)

	_, ok := c.Loop()
	assert.False(t, ok)
	_, ok = c.Loop()
	assert.False(t, ok)
	assert.Equal(t, 2, m.loops)
}

func TestCaptureRecordsTraffic(t *testing.T) {
	capture := &captureLogger{}
	cfg := DefaultConfig()
	cfg.NodeID = 0x10
	cfg.Capture = capture
	c, err := New(cfg)
	require.NoError(t, err)
	trs := attachFakes(t, c, 2)

	trs[0].inbox = append(trs[0].inbox, mustPacket(t, wire.Meta{Type: wire.TypeBroadcast, Target: 1, Source: 2, Port: wire.PortUnset}, 0x70))
	_, ok := c.Receive(true)
	require.True(t, ok)

	var packets []alog.Event
	for _, ev := range capture.events {
		assert.NotEmpty(t, ev.SessionID)
		assert.Equal(t, uint16(0x10), ev.NodeID)
		if ev.Category == alog.CategoryPacket {
			packets = append(packets, ev)
		}
	}
	require.Len(t, packets, 1)
	assert.Equal(t, alog.DirectionIn, packets[0].Direction)
	require.NotNil(t, packets[0].Slot)
	assert.Equal(t, 0, *packets[0].Slot)
	assert.Equal(t, "fake", packets[0].Transport)
}

func TestSlots(t *testing.T) {
	c := newController(t, 1)
	assert.Equal(t, DefaultConfig().BusNum, c.Slots())
	attachFakes(t, c, 2)
	_, ok := c.Transport(c.Slots() - 1)
	assert.False(t, ok)
}

func TestCaptureKeepsSharedSession(t *testing.T) {
	capture := &captureLogger{}
	var c *Controller
	session := alog.NewSession(capture, func() uint16 { return c.NodeID() })

	cfg := DefaultConfig()
	cfg.NodeID = 0x11
	cfg.Capture = session
	c, err := New(cfg)
	require.NoError(t, err)
	attachFakes(t, c, 1)

	require.NotEmpty(t, capture.events)
	for _, ev := range capture.events {
		assert.Equal(t, session.ID(), ev.SessionID)
		assert.Equal(t, uint16(0x11), ev.NodeID)
	}
}

func TestNodeIDPersistence(t *testing.T) {
	mem := storage.NewMemory(64)
	cfg := DefaultConfig()
	cfg.Storage = mem
	cfg.CfgStart = 0
	cfg.CfgStop = 64

	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), c.NodeID())

	ran := c.FirstBoot(func() {
		require.NoError(t, c.SetNodeID(0x0321))
	})
	assert.True(t, ran)
	assert.False(t, c.FirstBoot(func() { t.Fatal("first boot ran twice") }))

	assert.ErrorIs(t, c.SetNodeID(0), ErrInvalidNodeID)
	assert.ErrorIs(t, c.SetNodeID(0x0800), ErrInvalidNodeID)

	// A new controller on the same storage picks up the stored ID.
	cfg.NodeID = 0x0007
	again, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0321), again.NodeID())
	assert.False(t, again.FirstBoot(func() {}))
	assert.False(t, again.FirstBoot(nil))
}
