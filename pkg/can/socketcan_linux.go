//go:build linux

package can

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// canFrameSize is sizeof(struct can_frame).
const canFrameSize = 16

// SocketCAN drives a Linux CAN network interface (e.g. "can0", "vcan0")
// through a non-blocking raw socket.
type SocketCAN struct {
	iface string
	fd    int
}

// NewSocketCAN creates a driver for the named interface. The socket is
// opened by Open.
func NewSocketCAN(iface string) *SocketCAN {
	return &SocketCAN{iface: iface, fd: -1}
}

// Open binds a raw CAN socket to the interface.
func (s *SocketCAN) Open() error {
	if s.fd >= 0 {
		return nil
	}
	ifi, err := net.InterfaceByName(s.iface)
	if err != nil {
		return fmt.Errorf("socketcan: interface %s: %w", s.iface, err)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return fmt.Errorf("socketcan: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("socketcan: bind %s: %w", s.iface, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("socketcan: nonblock: %w", err)
	}
	s.fd = fd
	return nil
}

// Write sends one frame. Identifiers wider than the 29-bit field are
// rejected instead of being truncated.
func (s *SocketCAN) Write(f Frame) error {
	if s.fd < 0 {
		return errors.New("socketcan: not open")
	}
	if err := f.Validate(); err != nil {
		return err
	}

	var buf [canFrameSize]byte
	id := f.ID
	if f.Extended {
		id |= unix.CAN_EFF_FLAG
	}
	binary.NativeEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:], f.Payload())

	n, err := unix.Write(s.fd, buf[:])
	if err != nil {
		return fmt.Errorf("socketcan: write: %w", err)
	}
	if n != canFrameSize {
		return fmt.Errorf("socketcan: short write: %d", n)
	}
	return nil
}

// Read returns one pending frame. Remote and error frames are skipped.
func (s *SocketCAN) Read() (Frame, bool, error) {
	if s.fd < 0 {
		return Frame{}, false, errors.New("socketcan: not open")
	}

	var buf [canFrameSize]byte
	n, err := unix.Read(s.fd, buf[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return Frame{}, false, nil
		}
		return Frame{}, false, fmt.Errorf("socketcan: read: %w", err)
	}
	if n != canFrameSize {
		return Frame{}, false, fmt.Errorf("socketcan: short read: %d", n)
	}

	raw := binary.NativeEndian.Uint32(buf[0:4])
	if raw&(unix.CAN_RTR_FLAG|unix.CAN_ERR_FLAG) != 0 {
		return Frame{}, false, nil
	}

	f := Frame{Len: buf[4]}
	if raw&unix.CAN_EFF_FLAG != 0 {
		f.Extended = true
		f.ID = raw & unix.CAN_EFF_MASK
	} else {
		f.ID = raw & unix.CAN_SFF_MASK
	}
	if f.Len > MaxDataLen {
		return Frame{}, false, fmt.Errorf("%w: %d", ErrInvalidLen, f.Len)
	}
	copy(f.Data[:], buf[8:8+f.Len])
	return f, true, nil
}

// Close releases the socket.
func (s *SocketCAN) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

var _ Driver = (*SocketCAN)(nil)
