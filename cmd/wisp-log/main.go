// Command wisp-log is a tool for viewing and analyzing WISP capture files.
//
// Capture files are created by running wisp-device with the -capture
// flag.
//
// Usage:
//
//	wisp-log <command> [flags] <file.wlog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSONL
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	wisp-log view device.wlog
//
//	# View only provisioning-session events
//	wisp-log view -category session device.wlog
//
//	# Export to JSONL
//	wisp-log export device.wlog
//
//	# Keep only error events in a new file
//	wisp-log filter -category error -o errors.wlog device.wlog
//
//	# Show statistics
//	wisp-log stats device.wlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wisp-protocol/wisp-go/cmd/wisp-log/commands"
)

const usage = `wisp-log - WISP capture file analyzer

Usage:
  wisp-log <command> [flags] <file.wlog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSONL
  filter   Filter capture file and write to new file
  stats    Show statistics about the capture file

Use "wisp-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "view":
		err = runView(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "filter":
		err = runFilter(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "help", "-help", "--help", "-h":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	category := fs.String("category", "", "Filter by category: stack, state, session, error")
	device := fs.String("device", "", "Filter by device name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("view requires exactly one capture file")
	}
	filter, err := commands.BuildFilter(*category, *device)
	if err != nil {
		return err
	}
	return commands.RunView(fs.Arg(0), filter, os.Stdout)
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	category := fs.String("category", "", "Filter by category: stack, state, session, error")
	device := fs.String("device", "", "Filter by device name")
	output := fs.String("o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("export requires exactly one capture file")
	}
	filter, err := commands.BuildFilter(*category, *device)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return commands.RunExport(fs.Arg(0), filter, out)
}

func runFilter(args []string) error {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	category := fs.String("category", "", "Keep only this category: stack, state, session, error")
	device := fs.String("device", "", "Keep only this device name")
	output := fs.String("o", "", "Output capture file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("filter requires exactly one capture file")
	}
	if *output == "" {
		return fmt.Errorf("filter requires -o output file")
	}
	filter, err := commands.BuildFilter(*category, *device)
	if err != nil {
		return err
	}
	return commands.RunFilter(fs.Arg(0), *output, filter)
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("stats requires exactly one capture file")
	}
	return commands.RunStats(fs.Arg(0), os.Stdout)
}
