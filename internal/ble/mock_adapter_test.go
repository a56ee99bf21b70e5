package ble

import (
	"errors"
	"sync"
	"testing"
)

// mockCharacteristic records writes.
type mockCharacteristic struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (c *mockCharacteristic) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return len(data), nil
}

func (c *mockCharacteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// mockAdvertisement counts start and stop calls.
type mockAdvertisement struct {
	mu      sync.Mutex
	starts  int
	stops   int
	stopErr error
}

func (a *mockAdvertisement) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts++
	return nil
}

func (a *mockAdvertisement) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	return a.stopErr
}

func (a *mockAdvertisement) counts() (starts, stops int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts, a.stops
}

// mockAdapter simulates the radio.
type mockAdapter struct {
	mu        sync.Mutex
	enableErr error
	reportMap []byte
	name      string
	char      *mockCharacteristic
	adv       *mockAdvertisement
	handler   func(addr string, connected bool)
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{
		char: &mockCharacteristic{},
		adv:  &mockAdvertisement{},
	}
}

func (a *mockAdapter) Enable() error { return a.enableErr }

func (a *mockAdapter) AddHIDService(reportMap []byte) (Characteristic, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reportMap = reportMap
	return a.char, nil
}

func (a *mockAdapter) Advertisement(name string) (Advertisement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = name
	return a.adv, nil
}

func (a *mockAdapter) SetConnectHandler(h func(addr string, connected bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// SimulateConnection fires the connect handler.
func (a *mockAdapter) SimulateConnection(addr string, connected bool) {
	a.mu.Lock()
	h := a.handler
	a.mu.Unlock()
	if h != nil {
		h(addr, connected)
	}
}

var errMock = errors.New("mock failure")

func TestMockAdapterImplementsInterface(t *testing.T) {
	var _ Adapter = (*mockAdapter)(nil)
}

func TestMockCharacteristicImplementsInterface(t *testing.T) {
	var _ Characteristic = (*mockCharacteristic)(nil)
}

func TestMockAdvertisementImplementsInterface(t *testing.T) {
	var _ Advertisement = (*mockAdvertisement)(nil)
}
