package ble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chaz8081/hog-remote/internal/report"
)

// ErrNotStarted is returned by operations that need a started peripheral.
var ErrNotStarted = errors.New("ble: peripheral not started")

// PeripheralOptions configures the advertised identity.
type PeripheralOptions struct {
	Name string // local name in advertisements
}

// DefaultPeripheralOptions returns sensible defaults.
func DefaultPeripheralOptions() PeripheralOptions {
	return PeripheralOptions{Name: "HOG Remote"}
}

// Peripheral is the HID keyboard service seen by one central at a time.
type Peripheral struct {
	adapter Adapter
	opts    PeripheralOptions

	mu          sync.Mutex
	report      Characteristic
	adv         Advertisement
	advertising bool
	peer        string

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewPeripheral creates a peripheral on adapter.
func NewPeripheral(adapter Adapter, opts PeripheralOptions) *Peripheral {
	if opts.Name == "" {
		opts.Name = DefaultPeripheralOptions().Name
	}
	return &Peripheral{adapter: adapter, opts: opts}
}

// Start enables the radio, registers the services and begins advertising.
// Reports may be produced once Start has returned without error.
func (p *Peripheral) Start() error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}
	char, err := p.adapter.AddHIDService(ReportMap)
	if err != nil {
		return err
	}
	adv, err := p.adapter.Advertisement(p.opts.Name)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.report = char
	p.adv = adv
	p.mu.Unlock()

	p.adapter.SetConnectHandler(p.onConnect)

	if err := p.startAdvertising(); err != nil {
		return err
	}
	slog.Info("[BLE] advertising", "name", p.opts.Name)
	return nil
}

// onConnect tracks the single peer. Advertising stops on connect and
// resumes when the peer goes away.
func (p *Peripheral) onConnect(addr string, connected bool) {
	p.mu.Lock()
	if connected {
		p.peer = addr
		p.advertising = false
		p.mu.Unlock()
		slog.Info("[BLE] connected", "peer", addr)
		return
	}
	if p.peer != addr {
		p.mu.Unlock()
		return
	}
	p.peer = ""
	p.mu.Unlock()

	slog.Info("[BLE] disconnected, advertising again", "peer", addr)
	if err := p.startAdvertising(); err != nil {
		slog.Warn("[BLE] restart advertising failed", "error", err)
	}
}

func (p *Peripheral) startAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adv == nil {
		return ErrNotStarted
	}
	if p.advertising {
		return nil
	}
	if err := p.adv.Start(); err != nil {
		return fmt.Errorf("ble: start advertising: %w", err)
	}
	p.advertising = true
	return nil
}

// StopAdvertising stops connectable advertising.
func (p *Peripheral) StopAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adv == nil {
		return ErrNotStarted
	}
	if err := p.adv.Stop(); err != nil {
		return fmt.Errorf("ble: stop advertising: %w", err)
	}
	p.advertising = false
	return nil
}

// SendReport writes r to the input report characteristic, which notifies
// whichever central is subscribed. Reports written while nobody is connected
// only update the stored value and are counted as dropped.
func (p *Peripheral) SendReport(r report.Report) error {
	p.mu.Lock()
	char, peer := p.report, p.peer
	p.mu.Unlock()

	if char == nil {
		return ErrNotStarted
	}
	if _, err := char.Write(r[:]); err != nil {
		return fmt.Errorf("ble: notify report: %w", err)
	}
	if peer == "" {
		p.dropped.Add(1)
		return nil
	}
	p.sent.Add(1)
	return nil
}

// Connected reports whether a central is connected.
func (p *Peripheral) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer != ""
}

// Stats returns the number of notified and dropped reports.
func (p *Peripheral) Stats() (sent, dropped uint64) {
	return p.sent.Load(), p.dropped.Load()
}
