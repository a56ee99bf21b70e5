package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/hog-remote/internal/ble"
	"github.com/chaz8081/hog-remote/internal/bond"
	"github.com/chaz8081/hog-remote/internal/bootlog"
	"github.com/chaz8081/hog-remote/internal/config"
	"github.com/chaz8081/hog-remote/internal/gesture"
	"github.com/chaz8081/hog-remote/internal/hal"
	"github.com/chaz8081/hog-remote/internal/hal/evdev"
	"github.com/chaz8081/hog-remote/internal/hal/gpio"
	"github.com/chaz8081/hog-remote/internal/hal/hooksim"
	"github.com/chaz8081/hog-remote/internal/keymap"
	"github.com/chaz8081/hog-remote/internal/loopback"
	"github.com/chaz8081/hog-remote/internal/power"
	"github.com/chaz8081/hog-remote/internal/report"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/hog-remote/config.yaml)")
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	if *writeConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			log.Printf("Config already exists at %s", config.DefaultConfigPath())
		} else {
			log.Printf("Default config written to %s", path)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg)

	// Buttons. A pin the board cannot provide is fatal: no reports without a
	// complete button map.
	board, err := openBoard(cfg.Board)
	if err != nil {
		log.Fatalf("Failed to open %s board: %v", cfg.Board.Driver, err)
	}
	buttons, err := keymap.New(cfg.Bindings(), board)
	if err != nil {
		log.Fatalf("Button map: %v", err)
	}
	log.Printf("Button map ready (%d buttons on %s)", buttons.Len(), cfg.Board.Driver)

	journal := openJournal(cfg.BootLog)

	// Report sink
	var periph power.Peripheral
	switch cfg.Output {
	case "loopback":
		periph = loopback.New()
		log.Println("Loopback output ready, reports are replayed as host keys")
	default:
		p := ble.NewPeripheral(ble.NewTinyGoAdapter(), ble.PeripheralOptions{Name: cfg.Device.Name})
		if err := p.Start(); err != nil {
			log.Fatalf("Failed to start BLE peripheral: %v\n\nCheck that bluetoothd is running and the adapter is powered.", err)
		}
		periph = p
		log.Printf("Advertising as %q", cfg.Device.Name)
	}

	// Bond store
	var bonds power.BondAuthority = bond.Discard{}
	if cfg.Bonds.Driver == "bluez" {
		bz, err := bond.NewBlueZ(cfg.Bonds.Adapter)
		if err != nil {
			log.Fatalf("Failed to connect to BlueZ: %v", err)
		}
		defer bz.Close()
		bonds = bz
	}

	reset, _ := buttons.Lookup(cfg.Unpair.Reset)
	extra, _ := buttons.Lookup(cfg.Unpair.Extra)

	enc := report.NewEncoder(buttons)
	det := gesture.NewDetector(reset.Key, extra.Key, cfg.Unpair.Hold)
	opts := power.Options{
		IdleTimeout: cfg.Power.IdleTimeout,
		Tick:        cfg.Power.Tick,
		EdgeOnly:    cfg.Unpair.EdgeOnly,
	}
	if journal != nil {
		defer journal.Close()
		opts.Journal = journal
	}
	sched := power.New(enc, det, buttons, periph, bonds, board, opts)

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := board.Listen(ctx, enc.OnEdge); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("[MAIN] button listener stopped", "error", err)
			stop()
		}
	}()

	log.Printf("Ready! Hold %s+%s for %s to forget all hosts. Ctrl+C to quit.",
		cfg.Unpair.Reset, cfg.Unpair.Extra, cfg.Unpair.Hold)

	err = sched.Run(ctx)
	switch {
	case errors.Is(err, power.ErrAsleep):
		// Soft off returned without restarting; treat it as a clean exit.
		log.Println("Asleep")
	case errors.Is(err, context.Canceled):
		log.Println("Goodbye!")
	case err != nil:
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}

// openBoard opens the button hardware named by the config.
func openBoard(cfg config.BoardConfig) (hal.Board, error) {
	switch cfg.Driver {
	case "gpio":
		return gpio.Open(cfg.PollInterval, cfg.SuspendCommand)
	case "hook":
		return hooksim.New(), nil
	default:
		return evdev.Open(cfg.Device, cfg.SuspendCommand)
	}
}

// openJournal opens the boot journal and logs the previous epoch. The journal
// is optional: failures are logged and the remote runs without it.
func openJournal(path string) *bootlog.Journal {
	if path == "" {
		return nil
	}
	dev, err := bootlog.OpenFileDevice(path)
	if err != nil {
		slog.Warn("[MAIN] boot journal unavailable", "path", path, "error", err)
		return nil
	}
	j, err := bootlog.Open(dev)
	if err != nil {
		dev.Close()
		slog.Warn("[MAIN] boot journal unavailable", "path", path, "error", err)
		return nil
	}
	if last, ok := j.Last(); ok {
		log.Printf("Boot #%d (last epoch: boot #%d, up %s, %d reports, %d unpairs)",
			j.Boot(), last.Boot, last.Uptime, last.Reports, last.Unpairs)
	} else {
		log.Printf("Boot #%d", j.Boot())
	}
	return j
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	names := make([]string, len(cfg.Buttons))
	for i, b := range cfg.Buttons {
		names[i] = b.Name + "=" + b.Key
	}
	fmt.Println("=== hog-remote ===")
	fmt.Printf("  Device:  %s\n", cfg.Device.Name)
	fmt.Printf("  Board:   %s\n", cfg.Board.Driver)
	fmt.Printf("  Buttons: %s\n", strings.Join(names, " "))
	fmt.Printf("  Unpair:  %s+%s for %s\n", cfg.Unpair.Reset, cfg.Unpair.Extra, cfg.Unpair.Hold)
	fmt.Printf("  Sleep:   after %s idle\n", cfg.Power.IdleTimeout)
	fmt.Printf("  Output:  %s\n", cfg.Output)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("==================")
}
