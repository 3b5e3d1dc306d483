package commands

import (
	"fmt"
	"io"

	"github.com/lifesos-protocol/lifesos-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output       string
	ConnectionID string
	DeviceID     string
	Layer        *log.Layer
	Direction    *log.Direction
}

// RunFilter filters the log file and writes matching events to a new file.
func RunFilter(path string, opts FilterOptions) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		ConnectionID: opts.ConnectionID,
		DeviceID:     opts.DeviceID,
		Layer:        opts.Layer,
		Direction:    opts.Direction,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		logger.Log(event)
		count++
	}

	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
	return nil
}
