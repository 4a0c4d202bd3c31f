package sim

import (
	"fmt"

	"github.com/nasa-jpl/daqmx/nidaqmx"
)

type chanKind int

const (
	noChan chanKind = iota
	aoChan
	aiChan
	doChan
	diChan
)

type task struct {
	drv  *Driver
	name string

	kind     chanKind
	phys     string
	min, max float64
	term     nidaqmx.TerminalConfig

	timed   bool
	rate    float64
	samples uint64

	started bool
	cleared bool
}

func (t *task) fail(op string, code int32, format string, args ...interface{}) error {
	return &nidaqmx.DriverError{Op: op, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// create validates and records the single channel of the task.  Called with
// the driver locked.
func (t *task) create(op string, kind chanKind, phys string, valid func(*device) []string) error {
	if t.cleared {
		return t.fail(op, CodeInvalidTask, "task has been cleared")
	}
	if t.kind != noChan {
		return t.fail(op, CodeInvalidValue, "simulated tasks hold one channel, already have %s", t.phys)
	}
	dev, _, err := t.drv.split(op, phys)
	if err != nil {
		return err
	}
	if !has(valid(dev), phys) {
		return t.fail(op, CodeNoSuchChannel, "physical channel %q does not exist", phys)
	}
	t.kind = kind
	t.phys = phys
	return nil
}

func (t *task) CreateAOVoltageChan(phys string, min, max float64) error {
	t.drv.Lock()
	defer t.drv.Unlock()
	if min < nidaqmx.AOMin || max > nidaqmx.AOMax || min >= max {
		return t.fail("DAQmxCreateAOVoltageChan", CodeInvalidValue, "range [%g, %g] is not supported", min, max)
	}
	if err := t.create("DAQmxCreateAOVoltageChan", aoChan, phys, (*device).aoChans); err != nil {
		return err
	}
	t.min, t.max = min, max
	return nil
}

func (t *task) CreateAIVoltageChan(phys string, term nidaqmx.TerminalConfig, min, max float64) error {
	t.drv.Lock()
	defer t.drv.Unlock()
	if min >= max {
		return t.fail("DAQmxCreateAIVoltageChan", CodeInvalidValue, "min %g must be below max %g", min, max)
	}
	if err := t.create("DAQmxCreateAIVoltageChan", aiChan, phys, (*device).ai); err != nil {
		return err
	}
	t.term, t.min, t.max = term, min, max
	return nil
}

func (t *task) CreateDOChan(lines string) error {
	t.drv.Lock()
	defer t.drv.Unlock()
	return t.create("DAQmxCreateDOChan", doChan, lines, (*device).lines)
}

func (t *task) CreateDIChan(lines string) error {
	t.drv.Lock()
	defer t.drv.Unlock()
	if n := t.drv.diFailures[lines]; n != 0 {
		if n > 0 {
			t.drv.diFailures[lines] = n - 1
		}
		return t.fail("DAQmxCreateDIChan", CodeResourceReserved, "%s is reserved", lines)
	}
	return t.create("DAQmxCreateDIChan", diChan, lines, (*device).lines)
}

func (t *task) CfgSampClkTiming(rate float64, samplesPerChan uint64) error {
	t.drv.Lock()
	defer t.drv.Unlock()
	if t.kind != aiChan {
		return t.fail("DAQmxCfgSampClkTiming", CodeInvalidValue, "sample clock requires an analog input channel")
	}
	if rate <= 0 || samplesPerChan < 2 {
		return t.fail("DAQmxCfgSampClkTiming", CodeInvalidValue, "rate %g with %d samples is not supported", rate, samplesPerChan)
	}
	t.timed, t.rate, t.samples = true, rate, samplesPerChan
	return nil
}

func (t *task) Start() error {
	if t.cleared {
		return t.fail("DAQmxStartTask", CodeInvalidTask, "task has been cleared")
	}
	if t.kind == noChan {
		return t.fail("DAQmxStartTask", CodeInvalidValue, "task has no channels")
	}
	t.started = true
	return nil
}

func (t *task) Stop() error {
	if t.cleared {
		return t.fail("DAQmxStopTask", CodeInvalidTask, "task has been cleared")
	}
	t.started = false
	return nil
}

func (t *task) Clear() error {
	t.drv.Lock()
	defer t.drv.Unlock()
	if t.cleared {
		return t.fail("DAQmxClearTask", CodeInvalidTask, "task has been cleared")
	}
	t.cleared = true
	t.drv.cleared++
	t.drv.logger.Debug().Str("task", t.name).Str("channel", t.phys).Int("open", t.drv.created-t.drv.cleared).Msg("task cleared")
	return nil
}

func (t *task) ready(op string, kind chanKind) error {
	if !t.started {
		return t.fail(op, CodeInvalidTask, "task is not running")
	}
	if t.kind != kind {
		return t.fail(op, CodeInvalidValue, "task does not hold a channel of that kind")
	}
	return nil
}

func (t *task) WriteAnalogScalar(v float64, timeout float64) error {
	t.drv.Lock()
	defer t.drv.Unlock()
	if err := t.ready("DAQmxWriteAnalogScalarF64", aoChan); err != nil {
		return err
	}
	if v < t.min || v > t.max {
		return t.fail("DAQmxWriteAnalogScalarF64", CodeInvalidValue, "%g V is outside of [%g, %g] V", v, t.min, t.max)
	}
	dev, ch, err := t.drv.split("DAQmxWriteAnalogScalarF64", t.phys)
	if err != nil {
		return err
	}
	dev.ao[ch] = v
	return nil
}

func (t *task) ReadAnalog(buf []float64, timeout float64) (int, error) {
	t.drv.Lock()
	defer t.drv.Unlock()
	if err := t.ready("DAQmxReadAnalogF64", aiChan); err != nil {
		return 0, err
	}
	if t.timed && uint64(len(buf)) > t.samples {
		return 0, t.fail("DAQmxReadAnalogF64", CodeInvalidValue, "requested %d samples of a %d sample acquisition", len(buf), t.samples)
	}
	n := len(buf)
	if lim, ok := t.drv.shortReads[t.phys]; ok && lim < n {
		n = lim
	}

	var sig Signal
	if src, ok := t.drv.wires[t.phys]; ok {
		dev, ch, err := t.drv.split("DAQmxReadAnalogF64", src)
		if err != nil {
			return 0, err
		}
		sig = Constant(dev.ao[ch])
	} else {
		dev, ch, err := t.drv.split("DAQmxReadAnalogF64", t.phys)
		if err != nil {
			return 0, err
		}
		sig = dev.signals[ch]
	}
	if sig == nil {
		sig = Constant(0)
	}
	for i := 0; i < n; i++ {
		var ts float64
		if t.timed {
			ts = float64(i) / t.rate
		}
		v := sig(ts)
		// the ADC saturates at the configured range
		if v < t.min {
			v = t.min
		}
		if v > t.max {
			v = t.max
		}
		buf[i] = v
	}
	return n, nil
}

func (t *task) WriteDigitalLines(data []uint8, timeout float64) (int, error) {
	t.drv.Lock()
	defer t.drv.Unlock()
	if err := t.ready("DAQmxWriteDigitalLines", doChan); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	dev, ch, err := t.drv.split("DAQmxWriteDigitalLines", t.phys)
	if err != nil {
		return 0, err
	}
	dev.levels[ch] = data[len(data)-1] != 0
	return len(data), nil
}

func (t *task) ReadDigitalLines(buf []uint8, timeout float64) (int, error) {
	t.drv.Lock()
	defer t.drv.Unlock()
	if err := t.ready("DAQmxReadDigitalLines", diChan); err != nil {
		return 0, err
	}
	var v uint8
	if t.drv.level(t.phys) {
		v = 1
	}
	for i := range buf {
		buf[i] = v
	}
	return len(buf), nil
}
