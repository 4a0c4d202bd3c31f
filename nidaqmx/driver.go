/*Package nidaqmx provides a convenience layer over the National Instruments
NI-DAQmx driver.

An Instrument is bound to one physical device, chosen by name, serial number,
model, or by being the only device attached.  Every operation validates the
channel against what the device reports, builds a fresh driver task,
configures it, performs exactly one transfer, and tears the task down.

The driver itself is reached through the Driver interface.  Building with the
nidaqmx tag links the real driver via cgo (see NewDriver); the sim subpackage
provides a simulated driver for tests and for running without hardware.
*/
package nidaqmx

import (
	"fmt"
	"strings"
)

// WaitInfinitely is the timeout, in seconds, that makes a driver call block
// until it completes
const WaitInfinitely = -1.

// Driver is the capability surface of the vendor driver used by this package.
// Enumeration calls return the raw comma separated lists the driver produces,
// e.g. "Dev1/ai0, Dev1/ai1".
type Driver interface {
	// DeviceNames lists the names of all attached devices
	DeviceNames() (string, error)

	// ProductType returns the model string of a device, e.g. "USB-6001"
	ProductType(dev string) (string, error)

	// SerialNumber returns the serial number of a device
	SerialNumber(dev string) (uint32, error)

	// AIPhysicalChans lists the analog input channels of a device
	AIPhysicalChans(dev string) (string, error)

	// AOPhysicalChans lists the analog output channels of a device
	AOPhysicalChans(dev string) (string, error)

	// DOLines lists the digital lines of a device
	DOLines(dev string) (string, error)

	// NewTask creates an empty task
	NewTask(name string) (Task, error)
}

// Task is one configured acquisition or generation.  Timeouts are in seconds,
// WaitInfinitely blocks forever.
type Task interface {
	CreateAOVoltageChan(phys string, min, max float64) error
	CreateAIVoltageChan(phys string, term TerminalConfig, min, max float64) error
	CreateDOChan(lines string) error
	CreateDIChan(lines string) error

	// CfgSampClkTiming configures the onboard clock for a finite acquisition
	// of samplesPerChan samples at rate Hz
	CfgSampClkTiming(rate float64, samplesPerChan uint64) error

	Start() error
	Stop() error
	Clear() error

	WriteAnalogScalar(v float64, timeout float64) error

	// ReadAnalog reads len(buf) samples per channel and returns how many were read
	ReadAnalog(buf []float64, timeout float64) (int, error)

	// WriteDigitalLines writes one sample per line, 0 or 1, returns samples written
	WriteDigitalLines(data []uint8, timeout float64) (int, error)

	// ReadDigitalLines fills buf with one sample per line, returns samples read
	ReadDigitalLines(buf []uint8, timeout float64) (int, error)
}

// TerminalConfig is the input terminal configuration (referencing mode) of an
// analog input channel.  The values are the driver's DAQmx_Val_* constants.
type TerminalConfig int32

const (
	// Differential measures between a channel and its paired channel
	Differential TerminalConfig = 10106
	// PseudoDifferential measures against a local, not earth, ground
	PseudoDifferential TerminalConfig = 12529
	// RSE is referenced single ended, measured against AI GND
	RSE TerminalConfig = 10083
	// NRSE is non-referenced single ended, measured against AI SENSE
	NRSE TerminalConfig = 10078
)

var terminalNames = map[TerminalConfig]string{
	Differential:       "differential",
	PseudoDifferential: "pseudo-differential",
	RSE:                "single-ended referenced",
	NRSE:               "single-ended non-referenced",
}

func (t TerminalConfig) String() string {
	if s, ok := terminalNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TerminalConfig(%d)", int32(t))
}

// ParseTerminalConfig parses the name of a referencing mode.  Case, dashes,
// underscores, and spaces are not significant, so "Single_Ended Referenced"
// and "rse" are both RSE.
func ParseTerminalConfig(s string) (TerminalConfig, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	switch norm {
	case "differential", "diff":
		return Differential, nil
	case "pseudodifferential", "pseudodiff":
		return PseudoDifferential, nil
	case "singleendedreferenced", "rse":
		return RSE, nil
	case "singleendednonreferenced", "nrse":
		return NRSE, nil
	}
	return 0, fmt.Errorf("nidaqmx: unknown terminal configuration %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t TerminalConfig) MarshalText() ([]byte, error) {
	if _, ok := terminalNames[t]; !ok {
		return nil, fmt.Errorf("nidaqmx: unknown terminal configuration %d", int32(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TerminalConfig) UnmarshalText(b []byte) error {
	v, err := ParseTerminalConfig(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
