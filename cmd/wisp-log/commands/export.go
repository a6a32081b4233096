package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/wisp-protocol/wisp-go/pkg/log"
)

// exportedEvent is the JSONL shape of a capture event.
type exportedEvent struct {
	Timestamp   string                `json:"ts"`
	Category    string                `json:"category"`
	DeviceName  string                `json:"device,omitempty"`
	Stack       *log.StackEvent       `json:"stack,omitempty"`
	StateChange *log.StateChangeEvent `json:"state_change,omitempty"`
	Session     *sessionJSON          `json:"session,omitempty"`
	Error       *log.ErrorEventData   `json:"error,omitempty"`
}

type sessionJSON struct {
	Step string `json:"step"`
	Peer string `json:"peer,omitempty"`
}

// RunExport writes matching events as JSON lines.
func RunExport(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	enc := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		out := exportedEvent{
			Timestamp:   event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			Category:    event.Category.String(),
			DeviceName:  event.DeviceName,
			Stack:       event.Stack,
			StateChange: event.StateChange,
			Error:       event.Error,
		}
		if event.Session != nil {
			out.Session = &sessionJSON{
				Step: event.Session.Step.String(),
				Peer: event.Session.Peer,
			}
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
}
