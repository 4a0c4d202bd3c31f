package usbscan

import (
	"testing"

	"github.com/google/gousb"
)

func TestIsNI(t *testing.T) {
	if !IsNI(&gousb.DeviceDesc{Vendor: 0x3923, Product: 0x76c4}) {
		t.Error("expected NI vendor ID to match")
	}
	if IsNI(&gousb.DeviceDesc{Vendor: 0x0cd5, Product: 0x0006}) {
		t.Error("expected a LabJack to be filtered out")
	}
}

func TestDeviceSerialNumber(t *testing.T) {
	d := Device{Serial: "01A2B3C4"}
	sn, err := d.SerialNumber()
	if err != nil {
		t.Fatal(err)
	}
	if sn != 0x01A2B3C4 {
		t.Errorf("expected 0x01A2B3C4, got %#x", sn)
	}
	if _, err := (Device{}).SerialNumber(); err == nil {
		t.Error("expected a blank serial to fail")
	}
}
