// Package bond forgets paired hosts. On Linux the bonds live in BlueZ, so
// forgetting them means removing the device objects over D-Bus.
package bond

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezBus          = "org.bluez"
	bluezAdapter1     = "org.bluez.Adapter1"
	bluezDevice1      = "org.bluez.Device1"
	dbusObjectManager = "org.freedesktop.DBus.ObjectManager"
)

// caller is the subset of dbus.BusObject BlueZ needs.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// BlueZ removes bonded devices from one adapter.
type BlueZ struct {
	adapter string // e.g. "hci0"
	root    caller
	adapt   caller
	close   func() error
}

// NewBlueZ connects to the system bus.
func NewBlueZ(adapter string) (*BlueZ, error) {
	if adapter == "" {
		adapter = "hci0"
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("bond: connect system bus: %w", err)
	}
	return &BlueZ{
		adapter: adapter,
		root:    conn.Object(bluezBus, "/"),
		adapt:   conn.Object(bluezBus, dbus.ObjectPath("/org/bluez/"+adapter)),
		close:   conn.Close,
	}, nil
}

// Close releases the bus connection.
func (b *BlueZ) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// ForgetAll removes every paired or bonded device known to the adapter. It
// keeps going past individual failures and returns the first one.
func (b *BlueZ) ForgetAll() error {
	paths, err := b.bonded()
	if err != nil {
		return err
	}

	var first error
	for _, path := range paths {
		call := b.adapt.Call(bluezAdapter1+".RemoveDevice", 0, path)
		if call.Err != nil {
			slog.Warn("[BOND] remove device failed", "path", path, "error", call.Err)
			if first == nil {
				first = fmt.Errorf("bond: remove %s: %w", path, call.Err)
			}
			continue
		}
		slog.Info("[BOND] removed device", "path", path)
	}
	return first
}

// bonded lists the device objects under the adapter that hold a bond.
func (b *BlueZ) bonded() ([]dbus.ObjectPath, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := b.root.Call(dbusObjectManager+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("bond: GetManagedObjects: %w", call.Err)
	}
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("bond: parse managed objects: %w", err)
	}

	prefix := "/org/bluez/" + b.adapter + "/"
	var paths []dbus.ObjectPath
	for path, ifaces := range objects {
		props, ok := ifaces[bluezDevice1]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if flag(props, "Paired") || flag(props, "Bonded") {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func flag(props map[string]dbus.Variant, name string) bool {
	v, ok := props[name]
	if !ok {
		return false
	}
	b, ok := v.Value().(bool)
	return ok && b
}

// Discard only logs. It stands in for a bond store on boards without one.
type Discard struct{}

func (Discard) ForgetAll() error {
	slog.Info("[BOND] forget all bonds (no bond store configured)")
	return nil
}
