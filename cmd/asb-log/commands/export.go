package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/asysbus/asb-go/pkg/log"
)

// RunExport writes the log file to w in the given format.
func RunExport(path, format string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "node_id", "direction", "layer", "category", "transport", "slot", "type", "target", "source", "port", "data"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		slot := ""
		if event.Slot != nil {
			slot = strconv.Itoa(*event.Slot)
		}

		var eventType, target, source, port, data string
		switch {
		case event.Frame != nil:
			eventType = "frame"
			data = hex.EncodeToString(event.Frame.Data)
		case event.Packet != nil:
			eventType = event.Packet.Type.String()
			target = fmt.Sprintf("0x%04X", event.Packet.Target)
			source = fmt.Sprintf("0x%03X", event.Packet.Source)
			if event.Packet.Port >= 0 {
				port = strconv.Itoa(int(event.Packet.Port))
			}
			data = hex.EncodeToString(event.Packet.Data)
		case event.StateChange != nil:
			eventType = "state"
		case event.Error != nil:
			eventType = "error"
		default:
			eventType = "unknown"
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.SessionID,
			fmt.Sprintf("0x%03X", event.NodeID),
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.Transport,
			slot,
			eventType,
			target,
			source,
			port,
			data,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
