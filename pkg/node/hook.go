package node

import (
	"fmt"

	alog "github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/wire"
)

// Hook wildcards.
const (
	AnyType    wire.Type = 0xFF
	AnyTarget  uint16    = 0
	AnyPort    int8      = -1
	AnyCommand uint8     = 0xFF
)

// HookFilter selects packets for a hook. Each field is either a value the
// packet must carry or its wildcard.
type HookFilter struct {
	Type      wire.Type
	Target    uint16
	Port      int8
	FirstByte uint8
}

// MatchAll returns a filter with every field set to its wildcard.
func MatchAll() HookFilter {
	return HookFilter{Type: AnyType, Target: AnyTarget, Port: AnyPort, FirstByte: AnyCommand}
}

// Matches reports whether pkt passes the filter. A specific FirstByte never
// matches an empty payload.
func (f HookFilter) Matches(pkt wire.Packet) bool {
	if f.Type != AnyType && f.Type != pkt.Meta.Type {
		return false
	}
	if f.Target != AnyTarget && f.Target != pkt.Meta.Target {
		return false
	}
	if f.Port != AnyPort && f.Port != pkt.Meta.Port {
		return false
	}
	if f.FirstByte != AnyCommand {
		cmd, ok := pkt.Command()
		if !ok || uint8(cmd) != f.FirstByte {
			return false
		}
	}
	return true
}

// String renders the filter with "*" for wildcards.
func (f HookFilter) String() string {
	typ, target, port, first := "*", "*", "*", "*"
	if f.Type != AnyType {
		typ = f.Type.String()
	}
	if f.Target != AnyTarget {
		target = fmt.Sprintf("0x%04X", f.Target)
	}
	if f.Port != AnyPort {
		port = fmt.Sprintf("%d", f.Port)
	}
	if f.FirstByte != AnyCommand {
		first = wire.Command(f.FirstByte).String()
	}
	return fmt.Sprintf("type=%s target=%s port=%s cmd=%s", typ, target, port, first)
}

// HookFunc is called with every packet a hook's filter matches.
type HookFunc func(pkt wire.Packet)

type hook struct {
	filter HookFilter
	fn     HookFunc
}

// AttachHook registers fn for packets matching filter and returns the hook
// index. Hooks stay attached for the controller's lifetime; every matching
// hook fires, in attachment order.
func (c *Controller) AttachHook(filter HookFilter, fn HookFunc) (int, error) {
	if fn == nil {
		panic("node: nil hook function")
	}
	for i := range c.hooks {
		if c.hooks[i].fn == nil {
			c.hooks[i] = hook{filter: filter, fn: fn}
			c.debugLog("hook attached", "index", i, "filter", filter.String())
			c.captureState(alog.StateEntityHook, i, "", "attached", filter.String())
			return i, nil
		}
	}
	return -1, ErrNoFreeHook
}
