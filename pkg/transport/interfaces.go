package transport

import (
	"github.com/asysbus/asb-go/pkg/wire"
)

// Transport is a physical or logical medium carrying aSysBus packets.
type Transport interface {
	// Begin initializes the underlying hardware. A nil error means the
	// transport is ready; any error is transport-specific.
	Begin() error

	// Send transmits one packet and reports whether transmission succeeded.
	// Implementations validate the addressing fields and return false
	// rather than transmit a malformed packet. meta.Origin is ignored.
	Send(meta wire.Meta, payload []byte) bool

	// Receive polls for one complete packet without blocking. It returns
	// true and fills pkt iff a packet was available.
	Receive(pkt *wire.Packet) bool
}

// ErrorReporter is implemented by transports that keep the error of their
// last failed operation.
type ErrorReporter interface {
	// LastError returns the error of the most recent failed Begin, Send or
	// Receive, or nil.
	LastError() error
}

// Namer is implemented by transports that can describe themselves in logs.
type Namer interface {
	Name() string
}

// Name returns t's self-description, or a generic one.
func Name(t Transport) string {
	if n, ok := t.(Namer); ok {
		return n.Name()
	}
	return "transport"
}

// LastError returns t's last error if it reports one.
func LastError(t Transport) error {
	if r, ok := t.(ErrorReporter); ok {
		return r.LastError()
	}
	return nil
}
