package commands

import (
	"fmt"
	"io"

	"github.com/wisp-protocol/wisp-go/pkg/log"
)

// RunFilter copies matching events from one capture file into another.
func RunFilter(inPath, outPath string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(inPath, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	writer, err := log.NewFileLogger(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer writer.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		writer.Log(event)
		count++
	}

	fmt.Printf("Wrote %d events to %s\n", count, outPath)
	return nil
}
