// Package metrics exports bus activity as Prometheus counters.
//
// Counters live in the default registry under the asb namespace and are
// registered on first use. A Recorder plugs into node.Config.Observer;
// UART decoders are exposed through RegisterResyncSource.
package metrics
