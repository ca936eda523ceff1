package discovery

import (
	"errors"
	"log/slog"
	"time"

	"github.com/asysbus/asb-go/pkg/version"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a bus gateway.
	ServiceType = "_asb._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default gateway port.
	DefaultPort = 4711

	// ProtocolVersion is advertised in the ver TXT record.
	ProtocolVersion = version.Current
)

// TXT record keys.
const (
	TXTKeyNodeID  = "id"
	TXTKeyVersion = "ver"
	TXTKeyName    = "name"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 5 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInvalidNodeID       = errors.New("invalid node ID")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrNotAdvertising      = errors.New("not advertising")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
)

// NodeInfo describes the gateway a node advertises.
type NodeInfo struct {
	// NodeID is the bus address of the node.
	NodeID uint16

	// Port is the TCP port of the gateway. Zero means DefaultPort.
	Port uint16

	// Name is an optional label. It also becomes the instance name when set.
	Name string
}

// NodeService is a gateway found by browsing.
type NodeService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	NodeID  uint16
	Version string
	Name    string
}

// AdvertiserConfig configures the advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertisement to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the record TTL. Zero uses the zeroconf default.
	TTL time.Duration

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger
}

// BrowserConfig configures the browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string

	// BrowseTimeout bounds Find. Zero means BrowseTimeout.
	BrowseTimeout time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}
