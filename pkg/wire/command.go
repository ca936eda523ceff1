package wire

import (
	"encoding/binary"
	"fmt"
)

// Command is the first payload byte of a packet.
type Command uint8

// Protocol and state commands.
const (
	CmdLegacy8B  Command = 0x02
	CmdBoot      Command = 0x21 // node has just booted
	CmdReq       Command = 0x40 // request current state of a group
	Cmd0B        Command = 0x50 // 0-bit, generic pulse
	Cmd1B        Command = 0x51 // 1-bit, on/off
	CmdPercent   Command = 0x52 // 0-100 %
	CmdPing      Command = 0x70
	CmdPong      Command = 0x71
	CmdCfgRead   Command = 0x80 // 2-byte address
	CmdCfgWrite  Command = 0x81 // 2-byte address + data
	CmdCfgCommit Command = 0x82 // 2-byte address
	CmdIdent     Command = 0x85 // change node ID, 2-byte address
)

// Sensor telemetry tags. The comment gives the payload encoding after the tag.
const (
	CmdTemperature Command = 0xA0 // int16, x0.1 degC
	CmdHumidity    Command = 0xA1 // uint16, x0.1 %RH
	CmdPressure    Command = 0xA2 // uint16, x0.1 hPa
	CmdLux         Command = 0xA5 // uint32
	CmdUV          Command = 0xA6 // uint16, x0.1
	CmdIR          Command = 0xA7 // uint32
	CmdPM25        Command = 0xB0
	CmdPM10        Command = 0xB1
	CmdVoltage     Command = 0xC0 // int16, x0.01 V
	CmdCurrent     Command = 0xC1 // int16, x0.01 A
	CmdPower       Command = 0xC2 // int32, x0.1 W or VA
	CmdSensorPer   Command = 0xD0 // uint8, %
	CmdPermille    Command = 0xD1 // uint16
	CmdPPM         Command = 0xD2 // uint16
	CmdPerYear     Command = 0xD5 // uint16
	CmdPerMonth    Command = 0xD6 // uint16
	CmdPerDay      Command = 0xD7 // uint16
	CmdPerHour     Command = 0xD8 // uint16
	CmdPerMinute   Command = 0xD9 // uint16
	CmdPerSecond   Command = 0xDA // uint16
)

var commandNames = map[Command]string{
	CmdLegacy8B:    "LEGACY_8B",
	CmdBoot:        "BOOT",
	CmdReq:         "REQ",
	Cmd0B:          "0B",
	Cmd1B:          "1B",
	CmdPercent:     "PER",
	CmdPing:        "PING",
	CmdPong:        "PONG",
	CmdCfgRead:     "CFG_READ",
	CmdCfgWrite:    "CFG_WRITE",
	CmdCfgCommit:   "CFG_COMMIT",
	CmdIdent:       "IDENT",
	CmdTemperature: "S_TEMP",
	CmdHumidity:    "S_HUM",
	CmdPressure:    "S_PRS",
	CmdLux:         "S_LUX",
	CmdUV:          "S_UV",
	CmdIR:          "S_IR",
	CmdPM25:        "S_PM25",
	CmdPM10:        "S_PM10",
	CmdVoltage:     "S_VOLT",
	CmdCurrent:     "S_AMP",
	CmdPower:       "S_PWR",
	CmdSensorPer:   "S_PER",
	CmdPermille:    "S_PML",
	CmdPPM:         "S_PPM",
	CmdPerYear:     "S_PY",
	CmdPerMonth:    "S_PMo",
	CmdPerDay:      "S_PD",
	CmdPerHour:     "S_PH",
	CmdPerMinute:   "S_PM",
	CmdPerSecond:   "S_PS",
}

// String returns the command name, or its hex value if unknown.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(c))
}

// ParseCommand resolves a command name as returned by String.
func ParseCommand(name string) (Command, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Payload builders. Multi-byte values are big-endian.

// U16 returns a command followed by a big-endian uint16.
func U16(c Command, v uint16) []byte {
	b := []byte{byte(c), 0, 0}
	binary.BigEndian.PutUint16(b[1:], v)
	return b
}

// I16 returns a command followed by a big-endian int16.
func I16(c Command, v int16) []byte {
	return U16(c, uint16(v))
}

// U32 returns a command followed by a big-endian uint32.
func U32(c Command, v uint32) []byte {
	b := []byte{byte(c), 0, 0, 0, 0}
	binary.BigEndian.PutUint32(b[1:], v)
	return b
}

// I32 returns a command followed by a big-endian int32.
func I32(c Command, v int32) []byte {
	return U32(c, uint32(v))
}

// Describe renders a human-readable interpretation of the packet's command
// and payload. Unknown commands and short payloads yield an empty string.
func Describe(p Packet) string {
	cmd, ok := p.Command()
	if !ok {
		return ""
	}
	body := p.Data[1:p.Len]

	u8 := func() (uint8, bool) {
		if len(body) < 1 {
			return 0, false
		}
		return body[0], true
	}
	u16 := func() (uint16, bool) {
		if len(body) < 2 {
			return 0, false
		}
		return binary.BigEndian.Uint16(body), true
	}
	u32 := func() (uint32, bool) {
		if len(body) < 4 {
			return 0, false
		}
		return binary.BigEndian.Uint32(body), true
	}
	scaled := func(label string, signed bool, div float64, unit string) string {
		v, ok := u16()
		if !ok {
			return ""
		}
		f := float64(v)
		if signed {
			f = float64(int16(v))
		}
		return fmt.Sprintf("%s is %.2f%s", label, f/div, unit)
	}
	count := func(label string) string {
		v, ok := u16()
		if !ok {
			return ""
		}
		return fmt.Sprintf("%s is %d", label, v)
	}

	switch cmd {
	case CmdBoot:
		return "node has just booted"
	case CmdReq:
		return "request for the current state of this group"
	case Cmd0B:
		return "0-bit message"
	case Cmd1B:
		if v, ok := u8(); ok {
			return fmt.Sprintf("1-bit message, state is %d", v)
		}
	case CmdPercent:
		if v, ok := u8(); ok {
			return fmt.Sprintf("percent message, state is %d%%", v)
		}
	case CmdPing:
		return "PING request"
	case CmdPong:
		return "PONG (PING response)"
	case CmdCfgRead:
		if v, ok := u16(); ok {
			return fmt.Sprintf("read configuration register 0x%04X", v)
		}
	case CmdCfgWrite:
		if len(body) >= 3 {
			return fmt.Sprintf("write configuration register 0x%04X with 0x%02X",
				binary.BigEndian.Uint16(body), body[2])
		}
	case CmdCfgCommit:
		if v, ok := u16(); ok {
			return fmt.Sprintf("activate configuration register 0x%04X", v)
		}
	case CmdIdent:
		if v, ok := u16(); ok {
			return fmt.Sprintf("change node ID to 0x%04X", v)
		}
	case CmdTemperature:
		return scaled("temperature", true, 10, "°C")
	case CmdHumidity:
		return scaled("humidity", false, 10, "%RH")
	case CmdPressure:
		return scaled("pressure", false, 10, "hPa")
	case CmdLux, CmdIR:
		if v, ok := u32(); ok {
			return fmt.Sprintf("%s is %d", cmd, v)
		}
	case CmdUV:
		return scaled("UV index", false, 10, "")
	case CmdVoltage:
		return scaled("voltage", true, 100, "V")
	case CmdCurrent:
		return scaled("current", true, 100, "A")
	case CmdPower:
		if v, ok := u32(); ok {
			return fmt.Sprintf("power is %.1fW", float64(int32(v))/10)
		}
	case CmdSensorPer:
		if v, ok := u8(); ok {
			return fmt.Sprintf("percent sensor is %d%%", v)
		}
	case CmdPermille:
		return count("permille sensor")
	case CmdPPM:
		return count("ppm sensor")
	case CmdPerYear:
		return count("per-year sensor")
	case CmdPerMonth:
		return count("per-month sensor")
	case CmdPerDay:
		return count("per-day sensor")
	case CmdPerHour:
		return count("per-hour sensor")
	case CmdPerMinute:
		return count("per-minute sensor")
	case CmdPerSecond:
		return count("per-second sensor")
	}
	return ""
}
