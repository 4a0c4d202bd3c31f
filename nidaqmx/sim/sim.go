/*Package sim provides a simulated NI-DAQmx driver.

Devices are declared with AddDevice.  Analog inputs produce the Signal set on
them (0 V otherwise), or the last value written to an analog output they are
wired to.  Digital lines hold a level that writes and SetLine change, and a
line wired to another reads that line's level.

Faults can be injected: FailDIConfig makes digital input configuration fail
a number of times, ShortRead truncates analog reads.
*/
package sim

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nasa-jpl/daqmx/nidaqmx"
)

// Error codes returned by the simulator.  They match the real driver's.
const (
	CodeInvalidValue     int32 = -200077
	CodeResourceReserved int32 = -200022
	CodeInvalidTask      int32 = -200088
	CodeNoSuchChannel    int32 = -200170
	CodeNoSuchDevice     int32 = -200220
)

// Signal is a waveform, t is seconds since the start of the acquisition
type Signal func(t float64) float64

// Constant returns a DC signal
func Constant(v float64) Signal {
	return func(float64) float64 { return v }
}

// Sine returns offset + amp*sin(2πft)
func Sine(freq, amp, offset float64) Signal {
	return func(t float64) float64 {
		return offset + amp*math.Sin(2*math.Pi*freq*t)
	}
}

// DeviceSpec declares a simulated device
type DeviceSpec struct {
	Name   string
	Model  string
	Serial uint32

	// AI and AO are the number of analog inputs and outputs
	AI int
	AO int

	// Ports holds the number of lines on each digital port
	Ports []int
}

// USB6001 returns the spec of a USB-6001: 8 AI, 2 AO, 13 lines on 3 ports
func USB6001(name string, serial uint32) DeviceSpec {
	return DeviceSpec{Name: name, Model: "USB-6001", Serial: serial, AI: 8, AO: 2, Ports: []int{8, 4, 1}}
}

type device struct {
	spec DeviceSpec

	ao      map[string]float64
	levels  map[string]bool
	signals map[string]Signal
}

func (d *device) ai() []string {
	out := make([]string, d.spec.AI)
	for i := range out {
		out[i] = fmt.Sprintf("%s/ai%d", d.spec.Name, i)
	}
	return out
}

func (d *device) aoChans() []string {
	out := make([]string, d.spec.AO)
	for i := range out {
		out[i] = fmt.Sprintf("%s/ao%d", d.spec.Name, i)
	}
	return out
}

func (d *device) lines() []string {
	var out []string
	for p, n := range d.spec.Ports {
		for l := 0; l < n; l++ {
			out = append(out, fmt.Sprintf("%s/port%d/line%d", d.spec.Name, p, l))
		}
	}
	return out
}

// Driver is a simulated nidaqmx.Driver
type Driver struct {
	sync.Mutex

	devices []*device

	// wires maps a sink physical channel to its source
	wires map[string]string

	diFailures map[string]int
	shortReads map[string]int

	created, cleared int

	logger zerolog.Logger
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the logger of the simulator
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// New returns a Driver with no devices attached
func New(opts ...Option) *Driver {
	d := &Driver{
		wires:      map[string]string{},
		diFailures: map[string]int{},
		shortReads: map[string]int{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddDevice attaches a device.  Enumeration follows the order devices are added.
func (d *Driver) AddDevice(spec DeviceSpec) {
	d.Lock()
	defer d.Unlock()
	d.devices = append(d.devices, &device{
		spec:    spec,
		ao:      map[string]float64{},
		levels:  map[string]bool{},
		signals: map[string]Signal{},
	})
}

func (d *Driver) lookup(name string) (*device, error) {
	for _, dev := range d.devices {
		if dev.spec.Name == name {
			return dev, nil
		}
	}
	return nil, &nidaqmx.DriverError{Op: "DAQmxGetDevAttribute", Code: CodeNoSuchDevice,
		Msg: fmt.Sprintf("device %q not found", name)}
}

// split separates "Dev1/port0/line3" into the device and "port0/line3"
func (d *Driver) split(op, phys string) (*device, string, error) {
	parts := strings.SplitN(phys, "/", 2)
	if len(parts) != 2 {
		return nil, "", &nidaqmx.DriverError{Op: op, Code: CodeNoSuchChannel,
			Msg: fmt.Sprintf("physical channel %q does not exist", phys)}
	}
	dev, err := d.lookup(parts[0])
	if err != nil {
		return nil, "", err
	}
	return dev, parts[1], nil
}

func has(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SetSignal sets the waveform of an analog input, e.g. "Dev1/ai0"
func (d *Driver) SetSignal(phys string, s Signal) {
	d.Lock()
	defer d.Unlock()
	if dev, ch, err := d.split("SetSignal", phys); err == nil {
		dev.signals[ch] = s
	}
}

// Wire connects from to to, so that reading to observes from.  Analog
// outputs may be wired to analog inputs and lines to lines.
func (d *Driver) Wire(from, to string) {
	d.Lock()
	defer d.Unlock()
	d.wires[to] = from
}

// SetLine drives a digital line externally
func (d *Driver) SetLine(phys string, level bool) {
	d.Lock()
	defer d.Unlock()
	if dev, ch, err := d.split("SetLine", phys); err == nil {
		dev.levels[ch] = level
	}
}

// Line returns the level of a digital line
func (d *Driver) Line(phys string) bool {
	d.Lock()
	defer d.Unlock()
	return d.level(phys)
}

func (d *Driver) level(phys string) bool {
	if src, ok := d.wires[phys]; ok {
		phys = src
	}
	dev, ch, err := d.split("level", phys)
	if err != nil {
		return false
	}
	return dev.levels[ch]
}

// AnalogOutput returns the last voltage written to an analog output
func (d *Driver) AnalogOutput(phys string) float64 {
	d.Lock()
	defer d.Unlock()
	dev, ch, err := d.split("AnalogOutput", phys)
	if err != nil {
		return 0
	}
	return dev.ao[ch]
}

// FailDIConfig makes the next n digital input configurations of a line fail
// as if the line were reserved.  A negative n fails forever.
func (d *Driver) FailDIConfig(phys string, n int) {
	d.Lock()
	defer d.Unlock()
	d.diFailures[phys] = n
}

// ShortRead makes analog reads of phys return at most n samples
func (d *Driver) ShortRead(phys string, n int) {
	d.Lock()
	defer d.Unlock()
	d.shortReads[phys] = n
}

// OpenTasks returns the number of tasks created and not yet cleared
func (d *Driver) OpenTasks() int {
	d.Lock()
	defer d.Unlock()
	return d.created - d.cleared
}

// DeviceNames implements nidaqmx.Driver
func (d *Driver) DeviceNames() (string, error) {
	d.Lock()
	defer d.Unlock()
	names := make([]string, len(d.devices))
	for i, dev := range d.devices {
		names[i] = dev.spec.Name
	}
	return strings.Join(names, ", "), nil
}

// ProductType implements nidaqmx.Driver
func (d *Driver) ProductType(name string) (string, error) {
	d.Lock()
	defer d.Unlock()
	dev, err := d.lookup(name)
	if err != nil {
		return "", err
	}
	return dev.spec.Model, nil
}

// SerialNumber implements nidaqmx.Driver
func (d *Driver) SerialNumber(name string) (uint32, error) {
	d.Lock()
	defer d.Unlock()
	dev, err := d.lookup(name)
	if err != nil {
		return 0, err
	}
	return dev.spec.Serial, nil
}

func (d *Driver) list(name string, f func(*device) []string) (string, error) {
	d.Lock()
	defer d.Unlock()
	dev, err := d.lookup(name)
	if err != nil {
		return "", err
	}
	return strings.Join(f(dev), ", "), nil
}

// AIPhysicalChans implements nidaqmx.Driver
func (d *Driver) AIPhysicalChans(name string) (string, error) {
	return d.list(name, (*device).ai)
}

// AOPhysicalChans implements nidaqmx.Driver
func (d *Driver) AOPhysicalChans(name string) (string, error) {
	return d.list(name, (*device).aoChans)
}

// DOLines implements nidaqmx.Driver
func (d *Driver) DOLines(name string) (string, error) {
	return d.list(name, (*device).lines)
}

// NewTask implements nidaqmx.Driver
func (d *Driver) NewTask(name string) (nidaqmx.Task, error) {
	d.Lock()
	defer d.Unlock()
	d.created++
	d.logger.Debug().Str("task", name).Int("open", d.created-d.cleared).Msg("task created")
	return &task{drv: d, name: name}, nil
}
