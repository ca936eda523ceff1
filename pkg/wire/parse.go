package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyToken is returned for a blank payload token.
var ErrEmptyToken = errors.New("payload token is empty")

// ParseType accepts a type name, its first letter or its number.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "broadcast", "b", "0":
		return TypeBroadcast, nil
	case "multicast", "m", "1":
		return TypeMulticast, nil
	case "unicast", "u", "2":
		return TypeUnicast, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// ParseAddress parses a hex address with an optional 0x prefix.
func ParseAddress(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint16(v), nil
}

// ParsePayload turns tokens into payload bytes. The first token may be a
// command name such as "1B" or "PING" and takes precedence over hex there;
// write "0x1B" for the raw byte. Every other token is a hex byte.
func ParsePayload(tokens []string) ([]byte, error) {
	out := make([]byte, 0, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, ErrEmptyToken
		}
		if i == 0 {
			cmd, ok := ParseCommand(tok)
			if !ok {
				cmd, ok = ParseCommand(strings.ToUpper(tok))
			}
			if ok {
				out = append(out, byte(cmd))
				continue
			}
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(tok), "0x"), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid payload byte %q", tok)
		}
		out = append(out, byte(v))
	}
	if len(out) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(out))
	}
	return out, nil
}
