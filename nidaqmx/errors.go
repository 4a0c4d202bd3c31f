package nidaqmx

import (
	"fmt"
	"strings"
	"time"

	"github.com/nasa-jpl/daqmx/channel"
	"github.com/nasa-jpl/daqmx/spectrum"
)

type (
	// InvalidChannelError is returned when a channel is not present on the device
	InvalidChannelError = channel.InvalidChannelError

	// TypeError is returned by the name-keyed facade when a value has the wrong type
	TypeError = channel.TypeError

	// InsufficientSamplesError is returned when too few samples are captured to find a frequency
	InsufficientSamplesError = spectrum.InsufficientSamplesError
)

// DriverError is an error reported by the vendor driver
type DriverError struct {
	// Op is the driver call that failed, e.g. "DAQmxCreateDIChan"
	Op   string
	Code int32
	Msg  string
}

func (e *DriverError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: DAQmx error %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: DAQmx error %d: %s", e.Op, e.Code, e.Msg)
}

// DeviceNotFoundError is returned when a device is requested by name or
// serial number and no attached device matches
type DeviceNotFoundError struct {
	// By is the criterion, "name" or "serial" (or "model")
	By        string
	Value     string
	Available []string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("device with %s %q not found, available devices are [%s]",
		e.By, e.Value, strings.Join(e.Available, ", "))
}

// NoDeviceFoundError is returned when no device is attached at all
type NoDeviceFoundError struct{}

func (e *NoDeviceFoundError) Error() string { return "no devices found" }

// AmbiguousDeviceError is returned when no selection criteria were given and
// more than one device is attached
type AmbiguousDeviceError struct {
	Devices []string
}

func (e *AmbiguousDeviceError) Error() string {
	return fmt.Sprintf("multiple devices found [%s], select one by name, serial number, or model",
		strings.Join(e.Devices, ", "))
}

// ShortReadError is returned when the driver returns fewer samples than requested
type ShortReadError struct {
	Device    string
	Channel   string
	Requested int
	Read      int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("%s/%s: requested %d samples, driver returned %d",
		e.Device, e.Channel, e.Requested, e.Read)
}

// TimeoutError is returned when a digital input could not be configured
// within the retry ceiling.  Err is the last driver error.
type TimeoutError struct {
	Device   string
	Channel  string
	Elapsed  time.Duration
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s/%s: configuring digital input timed out after %v (%d attempts): %v",
		e.Device, e.Channel, e.Elapsed, e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HardwareRangeError is returned when the driver refuses an output voltage
// outside of the task's configured range
type HardwareRangeError struct {
	Channel string
	Value   float64
	Min     float64
	Max     float64
	Err     error
}

func (e *HardwareRangeError) Error() string {
	msg := fmt.Sprintf("%s: %g V is outside of the range [%g, %g] V", e.Channel, e.Value, e.Min, e.Max)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *HardwareRangeError) Unwrap() error { return e.Err }

// DirectionError is returned in strict mode when a line configured in one
// direction is used in the other without being released first
type DirectionError struct {
	Channel string
	State   LineState
	Want    LineState
}

func (e *DirectionError) Error() string {
	return fmt.Sprintf("%s is %s, refusing to use it as %s without a Release", e.Channel, e.State, e.Want)
}
