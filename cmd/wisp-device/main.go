// Command wisp-device is a reference WISP device implementation.
//
// On first start it opens a provisioning window, prints an onboarding QR
// code, and waits for a companion client to deliver network credentials.
// On later starts it connects straight to the stored network. The
// simulated radio makes the binary runnable on a development machine;
// the LAN and BLE transports accept real provisioning clients.
//
// Usage:
//
//	wisp-device [flags]
//
// Flags:
//
//	-name string       Service name prefix (default "WISP Device")
//	-config string     Configuration file path (YAML)
//	-creds string      Credential store path (default "wisp-credentials.json")
//	-scheme string     Provisioning scheme: sim, lan, ble (default "sim")
//	-port int          LAN provisioning listen port (0 = ephemeral)
//	-security int      Session security scheme, must be 1 (default 1)
//	-ssid string       Simulated network SSID (scheme=sim)
//	-passphrase string Simulated network passphrase (scheme=sim)
//	-capture string    Protocol capture file path (.wlog)
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-interactive       Run the interactive device console
//
// Examples:
//
//	# Simulated end to end run
//	wisp-device -scheme sim -ssid lab -passphrase hunter22
//
//	# Accept provisioning clients over the local network
//	wisp-device -scheme lan -port 8266 -config /etc/wisp/device.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/wisp-protocol/wisp-go/cmd/wisp-device/interactive"
	"github.com/wisp-protocol/wisp-go/pkg/credstore"
	"github.com/wisp-protocol/wisp-go/pkg/log"
	"github.com/wisp-protocol/wisp-go/pkg/netstack"
	"github.com/wisp-protocol/wisp-go/pkg/netstack/sim"
	"github.com/wisp-protocol/wisp-go/pkg/provd"
	"github.com/wisp-protocol/wisp-go/pkg/scheme/ble"
	"github.com/wisp-protocol/wisp-go/pkg/scheme/lan"
	"github.com/wisp-protocol/wisp-go/pkg/wifi"
)

// Config holds the device configuration. File values are overridden by
// flags set on the command line.
type Config struct {
	Name       string `yaml:"name"`
	CredsPath  string `yaml:"creds_path"`
	Scheme     string `yaml:"scheme"`
	Port       int    `yaml:"port"`
	Security   int    `yaml:"security"`
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`
	Capture    string `yaml:"capture"`
	LogLevel   string `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Name:      "WISP Device",
		CredsPath: "wisp-credentials.json",
		Scheme:    "sim",
		Security:  1,
		LogLevel:  "info",
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := defaultConfig()

	configFile := flag.String("config", "", "Configuration file path (YAML)")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "Service name prefix")
	flag.StringVar(&cfg.CredsPath, "creds", cfg.CredsPath, "Credential store path")
	flag.StringVar(&cfg.Scheme, "scheme", cfg.Scheme, "Provisioning scheme: sim, lan, ble")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "LAN provisioning listen port (0 = ephemeral)")
	flag.IntVar(&cfg.Security, "security", cfg.Security, "Session security scheme, must be 1")
	flag.StringVar(&cfg.SSID, "ssid", cfg.SSID, "Simulated network SSID")
	flag.StringVar(&cfg.Passphrase, "passphrase", cfg.Passphrase, "Simulated network passphrase")
	flag.StringVar(&cfg.Capture, "capture", cfg.Capture, "Protocol capture file path (.wlog)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	interactiveMode := flag.Bool("interactive", false, "Run the interactive device console")
	flag.Parse()

	if *configFile != "" {
		if err := loadConfigFile(*configFile, &cfg); err != nil {
			return err
		}
		// Re-apply command-line values; flags win over file values.
		if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
			return err
		}
	}

	logger, err := setupLogging(cfg.LogLevel)
	if err != nil {
		return err
	}

	if cfg.Security != 1 {
		// Plaintext sessions exist for protocol bring-up, not for devices.
		return fmt.Errorf("unsupported security scheme %d", cfg.Security)
	}
	security := netstack.Security1

	capture := log.Logger(log.NoopLogger{})
	if cfg.Capture != "" {
		fileLogger, err := log.NewFileLogger(cfg.Capture)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer fileLogger.Close()
		capture = fileLogger
	}

	store := credstore.NewFileStore(cfg.CredsPath)

	var transport provd.Transport
	transportName := wifi.DefaultTransport
	switch cfg.Scheme {
	case "sim":
		// The simulated stack provides its own loopback transport.
	case "lan":
		transport = lan.New(lan.Config{Port: cfg.Port, Advertise: true, Logger: logger})
		transportName = "softap"
	case "ble":
		transport = ble.New(ble.Config{Logger: logger})
	default:
		return fmt.Errorf("unknown provisioning scheme %q", cfg.Scheme)
	}

	stack := sim.New(sim.Config{
		Store:       store,
		AP:          netstack.Credentials{SSID: cfg.SSID, Passphrase: cfg.Passphrase},
		Transport:   transport,
		Logger:      logger,
		EventLogger: capture,
	})
	defer stack.Close()

	mod, err := wifi.New(wifi.Config{
		ServiceName: cfg.Name,
		Stack:       stack,
		Security:    security,
		Transport:   transportName,
		Logger:      logger,
		EventLogger: capture,
	})
	if err != nil {
		return err
	}
	defer mod.Close()

	if err := mod.Init(); err != nil {
		return err
	}
	logger.Info("device starting", "name", mod.DeviceName(), "scheme", cfg.Scheme)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *interactiveMode {
		cancelCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		console, err := interactive.New(mod, store)
		if err != nil {
			return err
		}
		go func() {
			if err := mod.Start(cancelCtx); err != nil {
				if cancelCtx.Err() == nil {
					logger.Error("device start failed", "err", err)
				}
				return
			}
			logger.Info("device online", "name", mod.DeviceName())
		}()

		console.Run(cancelCtx, cancel)
		return nil
	}

	if err := mod.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("shutting down")
			return nil
		}
		return err
	}
	logger.Info("device online", "name", mod.DeviceName())

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func setupLogging(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}
