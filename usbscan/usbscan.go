/*Package usbscan lists National Instruments devices on the USB bus.

This does not talk to the devices, NI-DAQmx owns them once they are attached.
It is useful to find out whether a device is plugged in and what its serial
number is before the driver has enumerated it, or when the driver is not
installed at all.
*/
package usbscan

import (
	"fmt"

	"github.com/google/gousb"

	"github.com/nasa-jpl/daqmx/nidaqmx"
)

// NIVendorID is the USB vendor ID of National Instruments
const NIVendorID gousb.ID = gousb.ID(0x3923)

// Device describes one NI USB device
type Device struct {
	Bus     int
	Address int
	Vendor  gousb.ID
	Product gousb.ID

	Manufacturer string
	Name         string

	// Serial is the serial number string descriptor, hex as on the label
	Serial string
}

func (d Device) String() string {
	return fmt.Sprintf("bus %03d addr %03d %s:%s %s %s (serial %s)",
		d.Bus, d.Address, d.Vendor, d.Product, d.Manufacturer, d.Name, d.Serial)
}

// SerialNumber converts Serial to the integer form reported by the driver
func (d Device) SerialNumber() (uint32, error) {
	return nidaqmx.HexSerial(d.Serial).Uint32()
}

// IsNI is the filter used by Scan
func IsNI(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == NIVendorID
}

// Scan opens every NI device long enough to read its string descriptors
func Scan() ([]Device, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(IsNI)
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()
	// OpenDevices returns the devices it could open alongside the error
	// for those it could not
	if err != nil && len(devs) == 0 {
		return nil, err
	}
	out := make([]Device, 0, len(devs))
	for _, d := range devs {
		out = append(out, describe(d))
	}
	return out, nil
}

func describe(d *gousb.Device) Device {
	out := Device{
		Bus:     d.Desc.Bus,
		Address: d.Desc.Address,
		Vendor:  d.Desc.Vendor,
		Product: d.Desc.Product,
	}
	// string descriptors are optional, a missing one is left blank
	out.Manufacturer, _ = d.Manufacturer()
	out.Name, _ = d.Product()
	out.Serial, _ = d.SerialNumber()
	return out
}
