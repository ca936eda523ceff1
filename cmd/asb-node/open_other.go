//go:build !linux

package main

import (
	"errors"
	"runtime"

	"github.com/asysbus/asb-go/pkg/uart"
)

var errUnsupportedOS = errors.New("not supported on " + runtime.GOOS)

func openSerial(string, int) (*uart.PumpStream, error) {
	return nil, errUnsupportedOS
}

func openSocketCAN(string) (canDriver, error) {
	return nil, errUnsupportedOS
}
