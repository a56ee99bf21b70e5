package ble

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chaz8081/hog-remote/internal/report"
)

func startedPeripheral(t *testing.T) (*Peripheral, *mockAdapter) {
	t.Helper()
	adapter := newMockAdapter()
	p := NewPeripheral(adapter, PeripheralOptions{Name: "Test Remote"})
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return p, adapter
}

func TestStartRegistersServiceAndAdvertises(t *testing.T) {
	p, adapter := startedPeripheral(t)

	if !bytes.Equal(adapter.reportMap, ReportMap) {
		t.Error("AddHIDService() did not receive ReportMap")
	}
	if adapter.name != "Test Remote" {
		t.Errorf("advertised name = %q, want %q", adapter.name, "Test Remote")
	}
	if starts, _ := adapter.adv.counts(); starts != 1 {
		t.Errorf("advertisement starts = %d, want 1", starts)
	}
	if p.Connected() {
		t.Error("Connected() = true before any central connected")
	}
}

func TestStartEnableFailure(t *testing.T) {
	adapter := newMockAdapter()
	adapter.enableErr = errMock
	p := NewPeripheral(adapter, DefaultPeripheralOptions())

	err := p.Start()
	if !errors.Is(err, errMock) {
		t.Fatalf("Start() error = %v, want wrapped %v", err, errMock)
	}
}

func TestSendReportBeforeStart(t *testing.T) {
	p := NewPeripheral(newMockAdapter(), DefaultPeripheralOptions())
	if err := p.SendReport(report.Report{}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("SendReport() error = %v, want ErrNotStarted", err)
	}
}

func TestSendReportWritesCharacteristic(t *testing.T) {
	p, adapter := startedPeripheral(t)
	adapter.SimulateConnection("AA:BB:CC:DD:EE:FF", true)

	r := report.Report{0, 0, 0x51, 0x52}
	if err := p.SendReport(r); err != nil {
		t.Fatalf("SendReport() error = %v", err)
	}

	writes := adapter.char.Writes()
	if len(writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(writes))
	}
	if !bytes.Equal(writes[0], r[:]) {
		t.Errorf("write = % x, want % x", writes[0], r[:])
	}
	if sent, dropped := p.Stats(); sent != 1 || dropped != 0 {
		t.Errorf("Stats() = %d, %d, want 1, 0", sent, dropped)
	}
}

func TestSendReportWithoutCentralCountsDropped(t *testing.T) {
	p, _ := startedPeripheral(t)

	if err := p.SendReport(report.Report{}); err != nil {
		t.Fatalf("SendReport() error = %v", err)
	}
	if sent, dropped := p.Stats(); sent != 0 || dropped != 1 {
		t.Errorf("Stats() = %d, %d, want 0, 1", sent, dropped)
	}
}

func TestSendReportWriteError(t *testing.T) {
	p, adapter := startedPeripheral(t)
	adapter.char.err = errMock

	if err := p.SendReport(report.Report{}); !errors.Is(err, errMock) {
		t.Errorf("SendReport() error = %v, want wrapped %v", err, errMock)
	}
}

func TestDisconnectRestartsAdvertising(t *testing.T) {
	p, adapter := startedPeripheral(t)

	adapter.SimulateConnection("AA:BB:CC:DD:EE:FF", true)
	if !p.Connected() {
		t.Fatal("Connected() = false after connect")
	}

	// A stale disconnect for another address is ignored.
	adapter.SimulateConnection("11:22:33:44:55:66", false)
	if !p.Connected() {
		t.Fatal("Connected() = false after unrelated disconnect")
	}

	adapter.SimulateConnection("AA:BB:CC:DD:EE:FF", false)
	if p.Connected() {
		t.Error("Connected() = true after disconnect")
	}
	if starts, _ := adapter.adv.counts(); starts != 2 {
		t.Errorf("advertisement starts = %d, want 2", starts)
	}
}

func TestStopAdvertising(t *testing.T) {
	p, adapter := startedPeripheral(t)

	if err := p.StopAdvertising(); err != nil {
		t.Fatalf("StopAdvertising() error = %v", err)
	}
	if _, stops := adapter.adv.counts(); stops != 1 {
		t.Errorf("advertisement stops = %d, want 1", stops)
	}

	adapter.adv.stopErr = errMock
	if err := p.StopAdvertising(); !errors.Is(err, errMock) {
		t.Errorf("StopAdvertising() error = %v, want wrapped %v", err, errMock)
	}
}

func TestReportMapDescribesEightByteReport(t *testing.T) {
	// Sum Report Size * Report Count over the Input items.
	var size, count, bits int
	for i := 0; i < len(ReportMap); {
		item := ReportMap[i]
		n := int(item & 0x03)
		var v int
		if n > 0 {
			v = int(ReportMap[i+1])
		}
		switch item & 0xfc {
		case 0x74:
			size = v
		case 0x94:
			count = v
		case 0x80:
			bits += size * count
		}
		i += 1 + n
	}
	if bits != report.Size*8 {
		t.Errorf("report map describes %d bits, want %d", bits, report.Size*8)
	}
}
