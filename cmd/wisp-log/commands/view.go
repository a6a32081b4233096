// Package commands implements the wisp-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wisp-protocol/wisp-go/pkg/log"
)

// BuildFilter parses the common -category and -device flag values.
func BuildFilter(category, device string) (log.Filter, error) {
	filter := log.Filter{DeviceName: device}
	if category == "" {
		return filter, nil
	}

	var c log.Category
	switch strings.ToLower(category) {
	case "stack":
		c = log.CategoryStack
	case "state":
		c = log.CategoryState
	case "session":
		c = log.CategorySession
	case "error":
		c = log.CategoryError
	default:
		return filter, fmt.Errorf("unknown category %q", category)
	}
	filter.Category = &c
	return filter, nil
}

// RunView prints matching events in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s %-7s %s\n", ts, event.Category.String(), event.DeviceName)

	switch {
	case event.Stack != nil:
		fmt.Fprintf(w, "  %s/%s", event.Stack.Namespace, event.Stack.Kind)
		if event.Stack.Addr != "" {
			fmt.Fprintf(w, "  addr=%s", event.Stack.Addr)
		}
		if event.Stack.Reason != "" {
			fmt.Fprintf(w, "  reason=%s", event.Stack.Reason)
		}
		fmt.Fprintln(w)

	case event.StateChange != nil:
		fmt.Fprintf(w, "  %s -> %s", event.StateChange.OldState, event.StateChange.NewState)
		if event.StateChange.Reason != "" {
			fmt.Fprintf(w, "  (%s)", event.StateChange.Reason)
		}
		fmt.Fprintln(w)

	case event.Session != nil:
		fmt.Fprintf(w, "  %s", event.Session.Step.String())
		if event.Session.Peer != "" {
			fmt.Fprintf(w, "  peer=%s", event.Session.Peer)
		}
		fmt.Fprintln(w)

	case event.Error != nil:
		fmt.Fprintf(w, "  %s", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  while %s", event.Error.Context)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
}
