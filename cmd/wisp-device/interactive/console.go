// Package interactive provides the interactive command-line interface
// for the WISP device.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/wisp-protocol/wisp-go/pkg/credstore"
	"github.com/wisp-protocol/wisp-go/pkg/netstack"
	"github.com/wisp-protocol/wisp-go/pkg/wifi"
)

// Console handles interactive mode for wisp-device.
type Console struct {
	mod   *wifi.Module
	store *credstore.FileStore
	rl    *readline.Instance
}

// New creates a new interactive console.
func New(mod *wifi.Module, store *credstore.FileStore) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "device> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{mod: mod, store: store, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "s":
			c.cmdStatus()

		case "payload", "p":
			c.cmdPayload()

		case "creds":
			c.cmdCreds()

		case "clear":
			c.cmdClear()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
WISP Device Commands:
  status             - Show device name and connectivity state
  payload            - Print the onboarding payload
  creds              - Show the stored network name
  clear              - Erase stored credentials (takes effect next start)
  help               - Show this help
  quit               - Exit`)
}

func (c *Console) cmdStatus() {
	w := c.rl.Stdout()
	fmt.Fprintf(w, "Name:      %s\n", c.mod.DeviceName())
	fmt.Fprintf(w, "State:     %s\n", c.mod.State())
	fmt.Fprintf(w, "Connected: %t\n", c.mod.Connected())
}

func (c *Console) cmdPayload() {
	payload, err := wifi.EncodePayload(c.mod.DeviceName(), c.mod.PoP(), wifi.DefaultTransport)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), string(payload))
}

func (c *Console) cmdCreds() {
	w := c.rl.Stdout()
	creds, err := c.store.Load()
	if errors.Is(err, netstack.ErrNoCredentials) {
		fmt.Fprintln(w, "No stored credentials")
		return
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "SSID: %s\n", creds.SSID)
}

func (c *Console) cmdClear() {
	w := c.rl.Stdout()
	if err := c.store.Clear(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Credentials cleared; the device will reprovision on next start")
}
