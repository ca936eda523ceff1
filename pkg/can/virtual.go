package can

import (
	"errors"
	"sync"
)

// DefaultPortQueue is the default receive queue depth of a VirtualPort.
const DefaultPortQueue = 64

var (
	// ErrPortClosed indicates use of a detached VirtualPort.
	ErrPortClosed = errors.New("can: virtual port closed")

	// ErrPortNotOpen indicates a write before Open.
	ErrPortNotOpen = errors.New("can: virtual port not open")
)

// VirtualBus is an in-process CAN segment. A frame written by one port is
// delivered to every other port. It is safe for concurrent use, so nodes
// driven by separate goroutines can share one bus.
type VirtualBus struct {
	mu        sync.Mutex
	ports     []*VirtualPort
	queueSize int
	interrupt bool
}

// NewVirtualBus creates an empty bus segment. If interrupt is true every
// delivery also calls Signal, emulating a shared interrupt line.
func NewVirtualBus(interrupt bool) *VirtualBus {
	return &VirtualBus{queueSize: DefaultPortQueue, interrupt: interrupt}
}

// Port attaches a new port to the bus.
func (b *VirtualBus) Port() *VirtualPort {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := &VirtualPort{bus: b}
	b.ports = append(b.ports, p)
	return p
}

func (b *VirtualBus) deliver(from *VirtualPort, f Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if from.closed {
		return ErrPortClosed
	}
	if !from.opened {
		return ErrPortNotOpen
	}
	for _, p := range b.ports {
		if p == from || p.closed {
			continue
		}
		if len(p.queue) >= b.queueSize {
			p.queue = p.queue[1:]
			p.dropped++
		}
		p.queue = append(p.queue, f)
	}
	if b.interrupt {
		Signal()
	}
	return nil
}

// VirtualPort is one node's connection to a VirtualBus. It implements Driver.
type VirtualPort struct {
	bus     *VirtualBus
	queue   []Frame
	opened  bool
	closed  bool
	dropped int
}

// Open marks the port ready.
func (p *VirtualPort) Open() error {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.opened = true
	return nil
}

// Write broadcasts f to every other port on the bus. Like a hardware
// driver it rejects identifiers that do not fit the frame format.
func (p *VirtualPort) Write(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return p.bus.deliver(p, f)
}

// Read pops the oldest queued frame.
func (p *VirtualPort) Read() (Frame, bool, error) {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()

	if p.closed {
		return Frame{}, false, ErrPortClosed
	}
	if len(p.queue) == 0 {
		return Frame{}, false, nil
	}
	f := p.queue[0]
	p.queue = p.queue[1:]
	return f, true, nil
}

// Close detaches the port; queued frames are discarded.
func (p *VirtualPort) Close() error {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()

	p.closed = true
	p.queue = nil
	return nil
}

// Dropped returns how many frames were discarded because the queue was full.
func (p *VirtualPort) Dropped() int {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	return p.dropped
}

var _ Driver = (*VirtualPort)(nil)
