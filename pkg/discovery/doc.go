// Package discovery announces aSysBus TCP gateways on the local network.
//
// A node that exposes its bus over TCP (see uart.Gateway) registers one
// DNS-SD service of type _asb._tcp. The instance name defaults to
// ASB-<node id in hex>. TXT records carry:
//
//	id   node address in hex (required)
//	ver  gateway protocol version, major.minor (required)
//	name free-form node label (optional)
//
// Browsers report each instance name once, even when the node answers on
// several interfaces, and skip gateways of another major version.
package discovery
