package node

import (
	"fmt"

	"github.com/asysbus/asb-go/pkg/cfgblock"
	alog "github.com/asysbus/asb-go/pkg/log"
)

// AttachModule installs m into the first free module slot and loads its
// configuration records. Records are counted first so the module can size
// its tables, then handed over one by one. If the module refuses the reset
// or the reservation, the slot is released again.
func (c *Controller) AttachModule(m Module) (int, error) {
	if m == nil {
		panic("node: nil module")
	}

	slot := -1
	for i, existing := range c.modules {
		if existing == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, ErrNoFreeModule
	}

	m.SetHost(c)
	c.modules[slot] = m

	if err := c.loadConfig(m); err != nil {
		c.modules[slot] = nil
		c.observer.ConfigFailed(m.ID())
		c.captureError(alog.LayerModule, err.Error(), fmt.Sprintf("attach module %d", m.ID()))
		return -1, err
	}

	c.debugLog("module attached", "slot", slot, "module", m.ID())
	c.captureState(alog.StateEntityModule, slot, "", "attached", fmt.Sprintf("module %d", m.ID()))
	return slot, nil
}

func (c *Controller) loadConfig(m Module) error {
	id := m.ID()
	if c.alloc == nil || c.alloc.Empty() || id < cfgblock.MinModule || id > cfgblock.MaxModule {
		return nil
	}

	count, err := c.alloc.Count(id)
	if err != nil {
		return fmt.Errorf("%w: module %d: %w", ErrConfigLoad, id, err)
	}
	if err := m.CfgReset(); err != nil {
		return fmt.Errorf("%w: module %d reset: %w", ErrConfigLoad, id, err)
	}
	if err := m.CfgReserve(count); err != nil {
		return fmt.Errorf("%w: module %d reserve %d: %w", ErrConfigLoad, id, count, err)
	}

	records, err := c.alloc.Records(id)
	if err != nil {
		return fmt.Errorf("%w: module %d: %w", ErrConfigLoad, id, err)
	}
	for _, rec := range records {
		if err := m.CfgRead(rec.Addr); err != nil {
			c.debugLog("record rejected", "module", id, "addr", rec.Addr, "error", err)
			c.observer.ConfigFailed(id)
		}
	}
	return nil
}

// DetachModule resets and removes the first attached module with the
// given ID. A module that refuses the reset stays attached.
func (c *Controller) DetachModule(id uint8) error {
	for i, m := range c.modules {
		if m == nil || m.ID() != id {
			continue
		}
		if err := m.CfgReset(); err != nil {
			return fmt.Errorf("module %d reset: %w", id, err)
		}
		c.modules[i] = nil
		c.debugLog("module detached", "slot", i, "module", id)
		c.captureState(alog.StateEntityModule, i, "attached", "detached", fmt.Sprintf("module %d", id))
		return nil
	}
	return fmt.Errorf("%w: %d", ErrModuleNotFound, id)
}

// Module returns the first attached module with the given ID.
func (c *Controller) Module(id uint8) (Module, bool) {
	for _, m := range c.modules {
		if m != nil && m.ID() == id {
			return m, true
		}
	}
	return nil, false
}
