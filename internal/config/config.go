// Package config loads the YAML configuration of an asb-node process.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asysbus/asb-go/pkg/can"
	"github.com/asysbus/asb-go/pkg/cfgblock"
	"github.com/asysbus/asb-go/pkg/discovery"
	"github.com/asysbus/asb-go/pkg/node"
	"github.com/asysbus/asb-go/pkg/wire"
)

// Transport kinds.
const (
	KindUART      = "uart"
	KindTCPListen = "tcp-listen"
	KindTCPDial   = "tcp-dial"
	KindCAN       = "can"
	KindVirtual   = "virtual"
)

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the node process configuration.
type Config struct {
	// NodeID is used until a node ID is stored in the configuration region.
	// Zero requires a stored ID.
	NodeID uint16 `yaml:"node_id"`

	Storage    StorageConfig     `yaml:"storage"`
	Tables     TablesConfig      `yaml:"tables"`
	Transports []TransportConfig `yaml:"transports"`
	Modules    ModulesConfig     `yaml:"modules"`

	// Tick is the controller loop interval.
	Tick time.Duration `yaml:"tick"`

	// Capture is the .alog file protocol events are written to. Empty disables capture.
	Capture string `yaml:"capture"`

	// Metrics is the listen address of the /metrics endpoint. Empty disables it.
	Metrics string `yaml:"metrics"`

	MDNS MDNSConfig `yaml:"mdns"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// StorageConfig describes the configuration store.
type StorageConfig struct {
	// Image is the backing file. Empty keeps the store in memory.
	Image string `yaml:"image"`

	// Size is the device size in bytes.
	Size int `yaml:"size"`

	// Start and Stop bound the configuration region, Stop exclusive.
	Start int `yaml:"start"`
	Stop  int `yaml:"stop"`
}

// TablesConfig sizes the controller tables.
type TablesConfig struct {
	Buses   int `yaml:"buses"`
	Hooks   int `yaml:"hooks"`
	Modules int `yaml:"modules"`
}

// TransportConfig describes one transport. Fields apply per Kind.
type TransportConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Device and Baud configure a uart transport.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	// Address is the listen or dial address of tcp transports.
	Address string `yaml:"address"`

	// Interface is the SocketCAN interface of a can transport.
	Interface string `yaml:"interface"`

	// Interrupt makes a virtual transport poll only after the shared bus
	// signalled new frames.
	Interrupt bool `yaml:"interrupt"`

	// Layout is the identifier layout of can and virtual transports:
	// "classic" (default) or "compact". Classic cannot carry unicast on
	// real hardware.
	Layout string `yaml:"layout"`
}

// CANLayout returns the parsed identifier layout.
func (t TransportConfig) CANLayout() can.Layout {
	l, _ := can.ParseLayout(t.Layout)
	return l
}

// ModulesConfig enables built-in modules.
type ModulesConfig struct {
	Group GroupModuleConfig `yaml:"group"`
}

// GroupModuleConfig configures the group actor module.
type GroupModuleConfig struct {
	Enabled bool  `yaml:"enabled"`
	ID      uint8 `yaml:"id"`
}

// MDNSConfig configures gateway advertisement.
type MDNSConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Name      string        `yaml:"name"`
	Interface string        `yaml:"interface"`
	TTL       time.Duration `yaml:"ttl"`
}

// Default returns the configuration used for missing keys.
func Default() Config {
	nc := node.DefaultConfig()
	return Config{
		Storage: StorageConfig{
			Size:  1024,
			Start: 0,
			Stop:  1024,
		},
		Tables: TablesConfig{
			Buses:   nc.BusNum,
			Hooks:   nc.HookNum,
			Modules: nc.ModNum,
		},
		Modules: ModulesConfig{
			Group: GroupModuleConfig{ID: 2},
		},
		Tick:     time.Millisecond,
		LogLevel: "info",
	}
}

// LoadError reports a configuration file that could not be used.
type LoadError struct {
	// File is the path of the configuration file.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return e.File + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.File + ": " + e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Load reads path, applies defaults for missing keys and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: "invalid", Cause: err}
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.NodeID != 0 && !wire.ValidNodeID(c.NodeID) {
		return fmt.Errorf("%w: node_id 0x%X out of range", ErrInvalid, c.NodeID)
	}

	s := c.Storage
	if s.Size <= 0 {
		return fmt.Errorf("%w: storage.size must be positive", ErrInvalid)
	}
	if s.Start < 0 || s.Stop > s.Size || s.Stop < s.Start+cfgblock.NodeIDSize {
		return fmt.Errorf("%w: storage region [%d,%d) does not fit size %d", ErrInvalid, s.Start, s.Stop, s.Size)
	}

	if c.Tables.Buses <= 0 || c.Tables.Hooks <= 0 || c.Tables.Modules <= 0 {
		return fmt.Errorf("%w: table sizes must be positive", ErrInvalid)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("%w: tick must be positive", ErrInvalid)
	}

	names := make(map[string]bool, len(c.Transports))
	listeners := 0
	for i, t := range c.Transports {
		if t.Name == "" {
			return fmt.Errorf("%w: transports[%d] has no name", ErrInvalid, i)
		}
		if names[t.Name] {
			return fmt.Errorf("%w: duplicate transport %q", ErrInvalid, t.Name)
		}
		names[t.Name] = true

		if err := t.validate(); err != nil {
			return err
		}
		if t.Kind == KindTCPListen {
			listeners++
		}
	}
	if len(c.Transports) > c.Tables.Buses {
		return fmt.Errorf("%w: %d transports exceed %d bus slots", ErrInvalid, len(c.Transports), c.Tables.Buses)
	}

	if g := c.Modules.Group; g.Enabled && (g.ID < cfgblock.MinModule || g.ID > cfgblock.MaxModule) {
		return fmt.Errorf("%w: modules.group.id %d out of range", ErrInvalid, g.ID)
	}

	if c.MDNS.Enabled {
		if listeners == 0 {
			return fmt.Errorf("%w: mdns requires a %s transport", ErrInvalid, KindTCPListen)
		}
		if c.MDNS.Name != "" {
			if err := discovery.ValidateInstanceName(c.MDNS.Name); err != nil {
				return fmt.Errorf("%w: mdns.name: %v", ErrInvalid, err)
			}
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

func (t TransportConfig) validate() error {
	if t.Interrupt && t.Kind != KindVirtual {
		return fmt.Errorf("%w: transport %q: interrupt requires kind %s", ErrInvalid, t.Name, KindVirtual)
	}
	if t.Layout != "" {
		if t.Kind != KindCAN && t.Kind != KindVirtual {
			return fmt.Errorf("%w: transport %q: layout applies to kinds %s and %s", ErrInvalid, t.Name, KindCAN, KindVirtual)
		}
		if _, err := can.ParseLayout(t.Layout); err != nil {
			return fmt.Errorf("%w: transport %q: %v", ErrInvalid, t.Name, err)
		}
	}
	switch t.Kind {
	case KindUART:
		if t.Device == "" {
			return fmt.Errorf("%w: transport %q needs a device", ErrInvalid, t.Name)
		}
		if t.Baud <= 0 {
			return fmt.Errorf("%w: transport %q needs a baud rate", ErrInvalid, t.Name)
		}
	case KindTCPListen, KindTCPDial:
		if t.Address == "" {
			return fmt.Errorf("%w: transport %q needs an address", ErrInvalid, t.Name)
		}
	case KindCAN:
		if t.Interface == "" {
			return fmt.Errorf("%w: transport %q needs an interface", ErrInvalid, t.Name)
		}
	case KindVirtual:
	default:
		return fmt.Errorf("%w: transport %q has unknown kind %q", ErrInvalid, t.Name, t.Kind)
	}
	return nil
}

// NodeConfig maps the file onto a controller configuration. Storage,
// loggers and observer are left for the caller to fill in.
func (c *Config) NodeConfig() node.Config {
	nc := node.DefaultConfig()
	nc.NodeID = c.NodeID
	nc.CfgStart = c.Storage.Start
	nc.CfgStop = c.Storage.Stop
	nc.BusNum = c.Tables.Buses
	nc.HookNum = c.Tables.Hooks
	nc.ModNum = c.Tables.Modules
	return nc
}
