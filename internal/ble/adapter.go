// Package ble exposes the remote as a BLE HID-over-GATT keyboard. It owns the
// HID service, advertising and the connection state; everything below that
// is the radio stack's business.
package ble

// GATT assigned numbers used by the HID and battery services.
const (
	ServiceHID          = 0x1812
	ServiceBattery      = 0x180f
	CharHIDInformation  = 0x2a4a
	CharReportMap       = 0x2a4b
	CharHIDControlPoint = 0x2a4c
	CharReport          = 0x2a4d
	CharProtocolMode    = 0x2a4e
	CharBatteryLevel    = 0x2a19
)

// Characteristic is a local GATT characteristic. Writing its value notifies
// subscribed centrals.
type Characteristic interface {
	Write(p []byte) (n int, err error)
}

// Advertisement controls connectable advertising.
type Advertisement interface {
	Start() error
	Stop() error
}

// Adapter abstracts the BLE radio for testing.
type Adapter interface {
	// Enable powers on the radio.
	Enable() error
	// AddHIDService registers the HID service with reportMap and returns the
	// input report characteristic.
	AddHIDService(reportMap []byte) (Characteristic, error)
	// Advertisement configures connectable advertising of the HID service
	// under name.
	Advertisement(name string) (Advertisement, error)
	// SetConnectHandler registers a callback for connection changes.
	SetConnectHandler(handler func(addr string, connected bool))
}
