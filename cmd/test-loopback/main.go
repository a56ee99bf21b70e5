// Command test-loopback is a manual test for report delivery on the host.
// It waits 3 seconds, then plays a scripted report sequence through the
// loopback output. Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-loopback [--delay 150ms]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/hog-remote/internal/keymap"
	"github.com/chaz8081/hog-remote/internal/loopback"
	"github.com/chaz8081/hog-remote/internal/report"
)

func keys(codes ...keymap.KeyCode) report.Report {
	var r report.Report
	for i, c := range codes {
		r[2+i] = byte(c)
	}
	return r
}

func main() {
	delay := flag.Duration("delay", 150*time.Millisecond, "pause between reports")
	flag.Parse()

	h, i := keymap.KeyCode(0x0b), keymap.KeyCode(0x0c)
	script := []report.Report{
		keys(h), keys(),
		keys(i), keys(),
		keys(keymap.KeyEnter), keys(),
		keys(keymap.KeyUp), keys(),
		keys(keymap.KeyDown), keys(),
		// Two keys down at once, released one at a time.
		keys(keymap.KeyLeft, keymap.KeyRight), keys(keymap.KeyRight), keys(),
	}

	fmt.Printf("Will play %d reports in 3 seconds...\n", len(script))
	fmt.Println("Focus a text editor now!")

	for n := 3; n > 0; n-- {
		fmt.Printf("%d...\n", n)
		time.Sleep(time.Second)
	}

	out := loopback.New()
	for _, r := range script {
		fmt.Println(r)
		if err := out.SendReport(r); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		time.Sleep(*delay)
	}
	if err := out.StopAdvertising(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
