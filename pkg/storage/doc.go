// Package storage provides byte-addressable non-volatile storage devices.
//
// A Device models a small EEPROM: single-byte reads and writes plus bulk
// Get/Put over [0, Size()). Memory is a RAM-backed device for tests and
// tools; File keeps a device image on disk so configuration survives a
// restart of the node process.
package storage
