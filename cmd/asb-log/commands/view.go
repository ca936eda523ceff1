// Package commands implements the asb-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/wire"
)

var (
	inFmt    = color.New(color.FgGreen).SprintFunc()
	outFmt   = color.New(color.FgCyan).SprintFunc()
	stateFmt = color.New(color.FgYellow).SprintFunc()
	errFmt   = color.New(color.FgRed, color.Bold).SprintFunc()
	dimFmt   = color.New(color.Faint).SprintFunc()
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] node DIR LAYER label
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	dir := fmt.Sprintf("%-3s", event.Direction.String())
	if event.Direction == log.DirectionIn {
		dir = inFmt(dir)
	} else {
		dir = outFmt(dir)
	}

	var label string
	switch {
	case event.Frame != nil:
		label = "Frame"
	case event.Packet != nil:
		label = event.Packet.Type.String()
	case event.StateChange != nil:
		label = stateFmt("State")
	case event.Error != nil:
		label = errFmt("Error")
	default:
		label = "Unknown"
	}

	fmt.Fprintf(w, "%s %s 0x%03X %s %s %s%s\n",
		dimFmt(ts), dimFmt("["+shortenSessionID(event.SessionID)+"]"),
		event.NodeID, dir, event.Layer.String(), label, formatWhere(event))

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Packet != nil:
		formatPacketDetails(w, event.Packet)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatWhere(event log.Event) string {
	var parts []string
	if event.Transport != "" {
		parts = append(parts, event.Transport)
	}
	if event.Slot != nil {
		parts = append(parts, "slot "+strconv.Itoa(*event.Slot))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if frame.ID != 0 {
		fmt.Fprintf(w, "  CAN ID: 0x%08X\n", frame.ID)
	}
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(frame.Data))
	}
}

func formatPacketDetails(w io.Writer, pkt *log.PacketEvent) {
	p, err := pkt.Packet()
	if err != nil {
		fmt.Fprintf(w, "  Invalid packet: %v\n", err)
		return
	}
	fmt.Fprintf(w, "  %s\n", p.Meta.String())
	fmt.Fprintf(w, "  %s\n", describePacket(p))
	if len(pkt.Forwarded) > 0 {
		fmt.Fprintf(w, "  Forwarded: %v\n", pkt.Forwarded)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s %d\n", sc.Entity.String(), sc.Index)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayer parses a layer name (case-insensitive).
func ParseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "node":
		return log.LayerNode, nil
	case "module":
		return log.LayerModule, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, node, or module)", s)
	}
}

// ParseDirection parses a direction name (case-insensitive).
func ParseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return log.CategoryFrame, nil
	case "packet":
		return log.CategoryPacket, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be frame, packet, state, or error)", s)
	}
}

// ParseAddress parses a node or group address in hex ("1F", "0x1F") or
// decimal with a "d" prefix ("d31").
func ParseAddress(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	if rest, ok := strings.CutPrefix(s, "d"); ok {
		v, err = strconv.ParseUint(rest, 10, 16)
	} else {
		v, err = strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid address: %s", s)
	}
	return uint16(v), nil
}

// RunView writes every event matching filter to output.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}

// describePacket renders the payload, falling back to the raw command
// name and bytes for commands without a known layout.
func describePacket(p wire.Packet) string {
	if d := wire.Describe(p); d != "" {
		return d
	}
	if cmd, ok := p.Command(); ok {
		return fmt.Sprintf("%s [% X]", cmd, p.Payload())
	}
	return "(empty)"
}
