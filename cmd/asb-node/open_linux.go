//go:build linux

package main

import (
	"github.com/asysbus/asb-go/pkg/can"
	"github.com/asysbus/asb-go/pkg/uart"
)

func openSerial(device string, baud int) (*uart.PumpStream, error) {
	return uart.OpenSerial(device, baud)
}

func openSocketCAN(iface string) (canDriver, error) {
	return can.NewSocketCAN(iface), nil
}
