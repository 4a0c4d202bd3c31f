package nidaqmx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nasa-jpl/daqmx/util"
)

// Device describes one attached DAQ device
type Device struct {
	// Name is the driver assigned name, e.g. "Dev3"
	Name string `json:"name"`

	// Model is the product type, e.g. "USB-6001"
	Model string `json:"model"`

	SerialNumber uint32 `json:"serial"`
}

// String prints the serial in hex, as it appears on the device label
func (d Device) String() string {
	return fmt.Sprintf("%s %s (serial %X)", d.Name, d.Model, d.SerialNumber)
}

// Serial is a serial number given either as an integer or as hex text
type Serial interface {
	Uint32() (uint32, error)
	String() string
}

// SerialNumber is a serial number in integer form
type SerialNumber uint32

// Uint32 implements Serial
func (s SerialNumber) Uint32() (uint32, error) { return uint32(s), nil }

func (s SerialNumber) String() string { return strconv.FormatUint(uint64(s), 10) }

// HexSerial is a serial number as printed on a device label, e.g. "1A2B3C4D".
// A leading 0x is permitted.
type HexSerial string

// Uint32 implements Serial
func (s HexSerial) Uint32() (uint32, error) {
	str := strings.TrimSpace(string(s))
	str = strings.TrimPrefix(strings.TrimPrefix(str, "0x"), "0X")
	u, err := strconv.ParseUint(str, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("nidaqmx: serial number %q is not 32-bit hex: %w", string(s), err)
	}
	return uint32(u), nil
}

func (s HexSerial) String() string { return string(s) }

// ParseSerial converts user text into a Serial.  Text is always hex, as
// printed on the device label, so "01904571" is 0x01904571.  Use
// SerialNumber for a decimal serial.
func ParseSerial(s string) (Serial, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("nidaqmx: empty serial number")
	}
	h := HexSerial(s)
	if _, err := h.Uint32(); err != nil {
		return nil, err
	}
	return h, nil
}

// Selector holds the criteria used to pick a device.  They are consulted in
// the order Name, Serial, Model.  A zero Selector picks the only attached device.
type Selector struct {
	Name   string
	Serial Serial
	Model  string
}

// Resolve picks one device according to sel
func Resolve(drv Driver, sel Selector) (Device, error) {
	names, err := ListDevices(drv)
	if err != nil {
		return Device{}, err
	}
	switch {
	case sel.Name != "":
		for _, n := range names {
			if n == sel.Name {
				return Describe(drv, n)
			}
		}
		return Device{}, &DeviceNotFoundError{By: "name", Value: sel.Name, Available: names}

	case sel.Serial != nil:
		want, err := sel.Serial.Uint32()
		if err != nil {
			return Device{}, err
		}
		for _, n := range names {
			sn, err := drv.SerialNumber(n)
			if err != nil {
				return Device{}, err
			}
			if sn == want {
				return Describe(drv, n)
			}
		}
		return Device{}, &DeviceNotFoundError{By: "serial", Value: sel.Serial.String(), Available: names}

	case sel.Model != "":
		// first wins; enumeration order decides between identical units
		for _, n := range names {
			model, err := drv.ProductType(n)
			if err != nil {
				return Device{}, err
			}
			if model == sel.Model {
				return Describe(drv, n)
			}
		}
		return Device{}, &DeviceNotFoundError{By: "model", Value: sel.Model, Available: names}
	}

	switch len(names) {
	case 0:
		return Device{}, &NoDeviceFoundError{}
	case 1:
		return Describe(drv, names[0])
	default:
		return Device{}, &AmbiguousDeviceError{Devices: names}
	}
}

// Describe queries the model and serial number of a named device
func Describe(drv Driver, name string) (Device, error) {
	model, err := drv.ProductType(name)
	if err != nil {
		return Device{}, err
	}
	sn, err := drv.SerialNumber(name)
	if err != nil {
		return Device{}, err
	}
	return Device{Name: name, Model: model, SerialNumber: sn}, nil
}

// ListDevices returns the names of all attached devices
func ListDevices(drv Driver) ([]string, error) {
	s, err := drv.DeviceNames()
	if err != nil {
		return nil, err
	}
	return util.SplitList(s), nil
}

// ListAll describes every attached device
func ListAll(drv Driver) ([]Device, error) {
	names, err := ListDevices(drv)
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(names))
	for _, n := range names {
		d, err := Describe(drv, n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ListModels returns the unique models of the attached devices
func ListModels(drv Driver) ([]string, error) {
	devs, err := ListAll(drv)
	if err != nil {
		return nil, err
	}
	models := make([]string, len(devs))
	for i, d := range devs {
		models[i] = d.Model
	}
	return util.UniqueString(models), nil
}

// ListAIChannels returns the canonical names of a device's analog inputs, e.g. "ai0"
func ListAIChannels(drv Driver, dev string) ([]string, error) {
	return listChannels(dev, drv.AIPhysicalChans)
}

// ListAOChannels returns the canonical names of a device's analog outputs, e.g. "ao0"
func ListAOChannels(drv Driver, dev string) ([]string, error) {
	return listChannels(dev, drv.AOPhysicalChans)
}

// ListLines returns the canonical names of a device's digital lines, e.g. "port0/line3"
func ListLines(drv Driver, dev string) ([]string, error) {
	return listChannels(dev, drv.DOLines)
}

func listChannels(dev string, query func(string) (string, error)) ([]string, error) {
	s, err := query(dev)
	if err != nil {
		return nil, err
	}
	phys := util.SplitList(s)
	for i, p := range phys {
		phys[i] = strings.ToLower(strings.TrimPrefix(p, dev+"/"))
	}
	return phys, nil
}
