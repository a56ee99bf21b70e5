package ble

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter wraps tinygo-org/bluetooth in peripheral role. On Linux it
// talks to BlueZ, on nRF boards to the SoftDevice.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	report  bluetooth.Characteristic
	battery bluetooth.Characteristic
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

// NewTinyGoAdapter creates an adapter on the default radio.
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{adapter: bluetooth.DefaultAdapter}
}

func (a *TinyGoAdapter) Enable() error {
	return a.adapter.Enable()
}

// AddHIDService registers the HID service and a battery service next to it;
// hosts expect both on a HID peripheral.
func (a *TinyGoAdapter) AddHIDService(reportMap []byte) (Characteristic, error) {
	err := a.adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.New16BitUUID(ServiceHID),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  bluetooth.New16BitUUID(CharHIDInformation),
				Value: hidInformation,
				Flags: bluetooth.CharacteristicReadPermission,
			},
			{
				UUID:  bluetooth.New16BitUUID(CharReportMap),
				Value: reportMap,
				Flags: bluetooth.CharacteristicReadPermission,
			},
			{
				UUID:  bluetooth.New16BitUUID(CharProtocolMode),
				Value: []byte{protocolModeReport},
				Flags: bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
			},
			{
				UUID:  bluetooth.New16BitUUID(CharHIDControlPoint),
				Value: []byte{0},
				Flags: bluetooth.CharacteristicWriteWithoutResponsePermission,
			},
			{
				Handle: &a.report,
				UUID:   bluetooth.New16BitUUID(CharReport),
				Value:  make([]byte, 8),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ble: add HID service: %w", err)
	}

	err = a.adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.New16BitUUID(ServiceBattery),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &a.battery,
				UUID:   bluetooth.New16BitUUID(CharBatteryLevel),
				Value:  []byte{100},
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ble: add battery service: %w", err)
	}

	return &a.report, nil
}

// Advertisement advertises the name with the HID and battery service UUIDs.
// AdvertisementOptions carries no GAP appearance; hosts classify the remote
// by the HID service.
func (a *TinyGoAdapter) Advertisement(name string) (Advertisement, error) {
	adv := a.adapter.DefaultAdvertisement()
	err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName: name,
		ServiceUUIDs: []bluetooth.UUID{
			bluetooth.New16BitUUID(ServiceHID),
			bluetooth.New16BitUUID(ServiceBattery),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ble: configure advertisement: %w", err)
	}
	return adv, nil
}

func (a *TinyGoAdapter) SetConnectHandler(handler func(addr string, connected bool)) {
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		handler(device.Address.String(), connected)
	})
}
