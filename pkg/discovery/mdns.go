package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser announces one gateway using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   NodeInfo
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

func (a *MDNSAdvertiser) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}

// Advertise registers the gateway, replacing any previous registration.
// The registration lives until Stop is called or ctx is cancelled.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *NodeInfo) error {
	instanceName := InstanceName(info)
	if err := ValidateInstanceName(instanceName); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		instanceName,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeNodeTXT(info)),
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register gateway service: %w", err)
	}

	a.server = server
	a.info = *info
	a.debugLog("mdns: advertising", "instance", instanceName, "port", port, "node", fmt.Sprintf("0x%03X", info.NodeID))

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.server == server {
			server.Shutdown()
			a.server = nil
		}
	}()

	return nil
}

// Advertising reports the currently announced gateway.
func (a *MDNSAdvertiser) Advertising() (NodeInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info, a.server != nil
}

// Stop withdraws the registration.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.Shutdown()
	a.server = nil
	a.debugLog("mdns: stopped")
	return nil
}

// MDNSBrowser finds gateways using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &MDNSBrowser{config: config}
}

// Browse streams gateways until ctx is done. Services are reported once
// per instance name even when they answer on several interfaces.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *NodeService, error) {
	out := make(chan *NodeService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]bool)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToNode(entry)
				if svc == nil || seen[svc.InstanceName] {
					continue
				}
				seen[svc.InstanceName] = true
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// Find browses for the gateway of one node.
func (b *MDNSBrowser) Find(ctx context.Context, nodeID uint16) (*NodeService, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for svc := range results {
		if svc.NodeID == nodeID {
			return svc, nil
		}
	}
	return nil, fmt.Errorf("node 0x%03X: %w", nodeID, ctx.Err())
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

func entryToNode(entry *zeroconf.ServiceEntry) *NodeService {
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)
	return newNodeService(entry.Instance, entry.HostName, entry.Port, entry.Text, ips)
}

// newNodeService builds a browse result. Malformed TXT records yield nil.
func newNodeService(instance, host string, port int, text []string, ips []net.IP) *NodeService {
	info, ver, err := DecodeNodeTXT(StringsToTXTRecords(text))
	if err != nil {
		return nil
	}

	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}

	return &NodeService{
		InstanceName: instance,
		Host:         host,
		Port:         uint16(port),
		Addresses:    addrs,
		NodeID:       info.NodeID,
		Version:      ver,
		Name:         info.Name,
	}
}

// Addr returns a dialable host:port, preferring the first resolved address.
func (s *NodeService) Addr() string {
	if len(s.Addresses) == 0 {
		return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
	}
	return net.JoinHostPort(s.Addresses[0], fmt.Sprint(s.Port))
}
