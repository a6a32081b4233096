package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/wisp-protocol/wisp-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	Devices          map[string]int
	SessionSteps     map[log.SessionStep]int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		Devices:          make(map[string]int),
		SessionSteps:     make(map[log.SessionStep]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		if event.DeviceName != "" {
			stats.Devices[event.DeviceName]++
		}
		if event.Session != nil {
			stats.SessionSteps[event.Session.Step]++
		}
		if event.Error != nil {
			stats.Errors++
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return
	}

	fmt.Fprintf(w, "Time range:   %s - %s (%s)\n",
		stats.TimeRange.Start.UTC().Format(time.RFC3339),
		stats.TimeRange.End.UTC().Format(time.RFC3339),
		stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))

	fmt.Fprintln(w, "\nBy category:")
	for _, c := range []log.Category{log.CategoryStack, log.CategoryState, log.CategorySession, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-8s %d\n", c.String(), n)
		}
	}

	if len(stats.Devices) > 0 {
		names := make([]string, 0, len(stats.Devices))
		for name := range stats.Devices {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "\nBy device:")
		for _, name := range names {
			fmt.Fprintf(w, "  %-24s %d\n", name, stats.Devices[name])
		}
	}

	if len(stats.SessionSteps) > 0 {
		fmt.Fprintln(w, "\nSession steps:")
		for _, s := range []log.SessionStep{
			log.SessionStarted, log.SessionSecured, log.SessionCredentials,
			log.SessionApplied, log.SessionFailed, log.SessionClosed,
		} {
			if n := stats.SessionSteps[s]; n > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", s.String(), n)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", stats.Errors)
	}
}
