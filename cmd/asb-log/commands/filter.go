package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/asysbus/asb-go/pkg/log"
)

// FilterOptions holds the string form of the filter flags shared by the
// view and filter commands.
type FilterOptions struct {
	SessionID string
	Transport string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
	Source    string
	Target    string
}

// Build converts the options into a reader filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{
		SessionID: o.SessionID,
		Transport: o.Transport,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if o.Layer != "" {
		l, err := ParseLayer(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}

	if o.Direction != "" {
		d, err := ParseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}

	if o.Category != "" {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}

	if o.Source != "" {
		a, err := ParseAddress(o.Source)
		if err != nil {
			return filter, err
		}
		filter.Source = &a
	}

	if o.Target != "" {
		a, err := ParseAddress(o.Target)
		if err != nil {
			return filter, err
		}
		filter.Target = &a
	}

	return filter, nil
}

// RunFilter copies the events of path matching filter into output and
// returns how many were written.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}

		logger.Log(event)
		count++
	}

	return count, nil
}
