package group

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asysbus/asb-go/pkg/node"
	"github.com/asysbus/asb-go/pkg/wire"
)

// RecordSize is the size of one configuration record.
const RecordSize = 4

// DefaultID is the module ID used when Config.ID is zero.
const DefaultID uint8 = 2

// Record flags.
const (
	// FlagPublisher marks an entry that owns its group.
	FlagPublisher byte = 0x01
)

var (
	// ErrNotAttached indicates use of the module before it was attached.
	ErrNotAttached = errors.New("group: module not attached")

	// ErrUnknownGroup indicates a group without a publisher entry.
	ErrUnknownGroup = errors.New("group: no publisher entry for group")

	// ErrTableFull indicates more records than were reserved.
	ErrTableFull = errors.New("group: entry table full")
)

// Entry is one loaded record plus its live state.
type Entry struct {
	// Target is the multicast group, 0 for every group.
	Target uint16

	// State is the last known state: 0/1 or a percentage.
	State byte

	// Publisher reports whether this node owns the group.
	Publisher bool

	// Addr is the record's block address.
	Addr int

	polled bool
}

// Config configures a Module.
type Config struct {
	// ID is the module ID, DefaultID when zero.
	ID uint8

	// OnChange is called when an entry's state changes.
	OnChange func(e Entry)

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// Module tracks group state. It runs on the controller goroutine.
type Module struct {
	config  Config
	host    node.Host
	entries []Entry
	limit   int
}

// New creates a group module.
func New(config Config) *Module {
	if config.ID == 0 {
		config.ID = DefaultID
	}
	return &Module{config: config}
}

// ID returns the module ID.
func (m *Module) ID() uint8 { return m.config.ID }

// SetHost stores the controller.
func (m *Module) SetHost(h node.Host) { m.host = h }

// CfgReset drops every entry.
func (m *Module) CfgReset() error {
	m.entries = nil
	m.limit = 0
	return nil
}

// CfgReserve sizes the entry table.
func (m *Module) CfgReserve(count int) error {
	m.entries = make([]Entry, 0, count)
	m.limit = count
	return nil
}

// CfgRead loads the record at addr.
func (m *Module) CfgRead(addr int) error {
	if m.host == nil || m.host.Allocator() == nil {
		return ErrNotAttached
	}
	if len(m.entries) >= m.limit {
		return ErrTableFull
	}

	var rec [RecordSize]byte
	if err := m.host.Allocator().Device().Get(addr+1, rec[:]); err != nil {
		return fmt.Errorf("group: read record 0x%04X: %w", addr, err)
	}
	e := Entry{
		Target:    binary.BigEndian.Uint16(rec[0:2]),
		State:     rec[2],
		Publisher: rec[3]&FlagPublisher != 0,
		Addr:      addr,
	}
	m.entries = append(m.entries, e)
	m.debugLog("entry loaded", "target", e.Target, "state", e.State, "publisher", e.Publisher)
	return nil
}

// Process applies state updates and answers requests.
func (m *Module) Process(pkt wire.Packet) bool {
	if m.host == nil || pkt.Meta.Type != wire.TypeMulticast {
		return false
	}
	cmd, ok := pkt.Command()
	if !ok {
		return false
	}

	switch cmd {
	case wire.Cmd1B, wire.CmdPercent:
		if pkt.Len != 2 {
			return false
		}
		state := pkt.Data[1]
		if cmd == wire.Cmd1B {
			state &= 0x01
		}
		return m.update(pkt.Meta.Target, state)

	case wire.CmdReq:
		handled := false
		for _, e := range m.entries {
			if e.Publisher && e.Target == pkt.Meta.Target {
				m.host.SendTo(wire.TypeMulticast, e.Target, []byte{byte(wire.Cmd1B), e.State})
				handled = true
			}
		}
		return handled
	}
	return false
}

func (m *Module) update(target uint16, state byte) bool {
	changed := false
	for i := range m.entries {
		e := &m.entries[i]
		if e.Target != target && (e.Target != 0 || e.Publisher) {
			continue
		}
		e.polled = true
		if e.State == state {
			continue
		}
		e.State = state
		changed = true
		if m.config.OnChange != nil {
			m.config.OnChange(*e)
		}
	}
	return changed
}

// Loop polls one listener group that has not been heard from since the
// configuration was loaded.
func (m *Module) Loop() bool {
	if m.host == nil {
		return false
	}
	for i := range m.entries {
		e := &m.entries[i]
		if e.polled || e.Publisher || e.Target == 0 {
			continue
		}
		e.polled = true
		m.host.SendTo(wire.TypeMulticast, e.Target, []byte{byte(wire.CmdReq)})
		return true
	}
	return false
}

// Set changes the state of an owned group and announces it.
func (m *Module) Set(target uint16, on bool) error {
	if m.host == nil {
		return ErrNotAttached
	}
	var state byte
	if on {
		state = 1
	}
	for _, e := range m.entries {
		if e.Publisher && e.Target == target {
			m.host.SendTo(wire.TypeMulticast, target, []byte{byte(wire.Cmd1B), state})
			return nil
		}
	}
	return fmt.Errorf("%w: 0x%04X", ErrUnknownGroup, target)
}

// Add persists a new record and reattaches the module so the controller
// reloads its configuration.
func (m *Module) Add(target uint16, initial byte, publisher bool) error {
	if m.host == nil || m.host.Allocator() == nil {
		return ErrNotAttached
	}

	var rec [RecordSize]byte
	binary.BigEndian.PutUint16(rec[0:2], target)
	rec[2] = initial
	if publisher {
		rec[3] = FlagPublisher
	}
	if _, err := m.host.Allocator().WriteRecord(m.config.ID, rec[:]); err != nil {
		return fmt.Errorf("group: store record: %w", err)
	}

	host := m.host
	if err := host.DetachModule(m.config.ID); err != nil {
		return err
	}
	if _, err := host.AttachModule(m); err != nil {
		return err
	}
	return nil
}

// Entries returns a copy of the loaded entries.
func (m *Module) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

func (m *Module) debugLog(msg string, args ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, append([]any{"module", m.config.ID}, args...)...)
	}
}

// Compile-time interface satisfaction check.
var _ node.Module = (*Module)(nil)
