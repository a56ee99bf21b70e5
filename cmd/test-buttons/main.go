// Command test-buttons is a manual test for the button board and report
// encoder. Run it, then press buttons to see the reports they produce.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-buttons [--config path] [--driver evdev|gpio|hook]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/hog-remote/internal/config"
	"github.com/chaz8081/hog-remote/internal/hal"
	"github.com/chaz8081/hog-remote/internal/hal/evdev"
	"github.com/chaz8081/hog-remote/internal/hal/gpio"
	"github.com/chaz8081/hog-remote/internal/hal/hooksim"
	"github.com/chaz8081/hog-remote/internal/keymap"
	"github.com/chaz8081/hog-remote/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: built-in button map)")
	driver := flag.String("driver", "", "override board.driver: evdev, gpio or hook")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *driver != "" {
		cfg.Board.Driver = *driver
	}

	var board hal.Board
	var err error
	switch cfg.Board.Driver {
	case "gpio":
		board, err = gpio.Open(cfg.Board.PollInterval, nil)
	case "hook":
		board = hooksim.New()
	default:
		board, err = evdev.Open(cfg.Board.Device, nil)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	m, err := keymap.New(cfg.Bindings(), board)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Listening on %s board with %d buttons...\n", cfg.Board.Driver, m.Len())
	for _, b := range m.Buttons() {
		fmt.Printf("  [%d] %-6s -> %s\n", b.Index, b.Name, b.Key)
	}
	fmt.Println("Press Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := report.NewEncoder(m)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-enc.Notify():
			}
			for enc.Pending() {
				if r, ok := enc.Take(); ok {
					fmt.Println(r)
				}
			}
		}
	}()

	// Blocks until stopped
	if err := board.Listen(ctx, enc.OnEdge); err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
	}
	fmt.Println("\nDone.")
}
