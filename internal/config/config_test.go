package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asysbus/asb-go/pkg/can"
)

const sample = `
node_id: 0x01F
storage:
  image: /var/lib/asb/node.img
  size: 512
  start: 0
  stop: 256
tables:
  buses: 4
transports:
  - name: can0
    kind: can
    interface: can0
    layout: compact
  - name: sim
    kind: virtual
    interrupt: true
  - name: serial
    kind: uart
    device: /dev/ttyUSB0
    baud: 115200
  - name: lan
    kind: tcp-listen
    address: ":4711"
modules:
  group:
    enabled: true
tick: 2ms
capture: /tmp/bus.alog
metrics: ":9110"
mdns:
  enabled: true
  name: cellar
log_level: debug
`

func TestParseSample(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, uint16(0x1F), cfg.NodeID)
	assert.Equal(t, StorageConfig{Image: "/var/lib/asb/node.img", Size: 512, Start: 0, Stop: 256}, cfg.Storage)
	assert.Equal(t, 4, cfg.Tables.Buses)
	assert.Equal(t, 16, cfg.Tables.Hooks, "missing keys keep defaults")
	require.Len(t, cfg.Transports, 4)
	assert.Equal(t, "can0", cfg.Transports[0].Interface)
	assert.Equal(t, can.LayoutCompact, cfg.Transports[0].CANLayout())
	assert.Equal(t, can.LayoutClassic, cfg.Transports[1].CANLayout())
	assert.True(t, cfg.Transports[1].Interrupt)
	assert.Equal(t, 115200, cfg.Transports[2].Baud)
	assert.Equal(t, KindTCPListen, cfg.Transports[3].Kind)
	assert.True(t, cfg.Modules.Group.Enabled)
	assert.Equal(t, uint8(2), cfg.Modules.Group.ID)
	assert.Equal(t, 2*time.Millisecond, cfg.Tick)
	assert.Equal(t, "cellar", cfg.MDNS.Name)
	assert.Equal(t, "debug", cfg.LogLevel)

	nc := cfg.NodeConfig()
	assert.Equal(t, uint16(0x1F), nc.NodeID)
	assert.Equal(t, 4, nc.BusNum)
	assert.Equal(t, 256, nc.CfgStop)
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("node_idd: 3\n"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Message, "parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"node id too large", func(c *Config) { c.NodeID = 0x800 }},
		{"zero storage", func(c *Config) { c.Storage.Size = 0 }},
		{"region beyond storage", func(c *Config) { c.Storage.Stop = c.Storage.Size + 1 }},
		{"region without node id", func(c *Config) { c.Storage.Stop = c.Storage.Start + 1 }},
		{"zero hooks", func(c *Config) { c.Tables.Hooks = 0 }},
		{"zero tick", func(c *Config) { c.Tick = 0 }},
		{"unnamed transport", func(c *Config) { c.Transports = []TransportConfig{{Kind: KindVirtual}} }},
		{"duplicate transport", func(c *Config) {
			c.Transports = []TransportConfig{{Name: "a", Kind: KindVirtual}, {Name: "a", Kind: KindVirtual}}
		}},
		{"uart without device", func(c *Config) { c.Transports = []TransportConfig{{Name: "u", Kind: KindUART, Baud: 9600}} }},
		{"uart without baud", func(c *Config) { c.Transports = []TransportConfig{{Name: "u", Kind: KindUART, Device: "/dev/tty"}} }},
		{"tcp without address", func(c *Config) { c.Transports = []TransportConfig{{Name: "t", Kind: KindTCPDial}} }},
		{"can without interface", func(c *Config) { c.Transports = []TransportConfig{{Name: "c", Kind: KindCAN}} }},
		{"unknown kind", func(c *Config) { c.Transports = []TransportConfig{{Name: "x", Kind: "rs485"}} }},
		{"interrupt on socketcan", func(c *Config) {
			c.Transports = []TransportConfig{{Name: "c", Kind: KindCAN, Interface: "can0", Interrupt: true}}
		}},
		{"unknown layout", func(c *Config) {
			c.Transports = []TransportConfig{{Name: "c", Kind: KindCAN, Interface: "can0", Layout: "wide"}}
		}},
		{"layout on uart", func(c *Config) {
			c.Transports = []TransportConfig{{Name: "u", Kind: KindUART, Device: "/dev/tty", Baud: 9600, Layout: "compact"}}
		}},
		{"too many transports", func(c *Config) {
			c.Tables.Buses = 1
			c.Transports = []TransportConfig{{Name: "a", Kind: KindVirtual}, {Name: "b", Kind: KindVirtual}}
		}},
		{"group id zero", func(c *Config) { c.Modules.Group = GroupModuleConfig{Enabled: true, ID: 0} }},
		{"group id fifteen", func(c *Config) { c.Modules.Group = GroupModuleConfig{Enabled: true, ID: 15} }},
		{"mdns without listener", func(c *Config) { c.MDNS.Enabled = true }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1F), cfg.NodeID)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, filepath.Join(dir, "missing.yaml"), le.File)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tick: 0s\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalid)
	require.ErrorAs(t, err, &le)
	assert.Equal(t, bad, le.File)
}
