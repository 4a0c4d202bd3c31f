package nidaqmx

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/nasa-jpl/daqmx/channel"
	"github.com/nasa-jpl/daqmx/spectrum"
)

// ErrWrongKind is wrapped when a channel of one kind is passed to an
// operation for another, e.g. reading from "ao0"
var ErrWrongKind = errors.New("wrong kind of channel")

// Instrument is one DAQ device.  All hardware access is serialized by an
// internal mutex, separate Instruments do not coordinate.
type Instrument struct {
	mu sync.Mutex

	drv    Driver
	dev    Device
	retry  RetryPolicy
	lines  *lineTable
	logger zerolog.Logger
}

// Option configures an Instrument
type Option func(*Instrument)

// WithLogger sets the logger, the default discards everything
func WithLogger(logger zerolog.Logger) Option {
	return func(in *Instrument) {
		in.logger = logger
	}
}

// WithRetry sets the digital input configuration retry policy
func WithRetry(p RetryPolicy) Option {
	return func(in *Instrument) {
		in.retry = p.orDefault()
	}
}

// WithStrictLines refuses to flip the direction of a line without a Release
func WithStrictLines(strict bool) Option {
	return func(in *Instrument) {
		in.lines.strict = strict
	}
}

// New resolves a device and returns an Instrument bound to it
func New(drv Driver, sel Selector, opts ...Option) (*Instrument, error) {
	in := &Instrument{
		drv:    drv,
		retry:  DefaultRetry(),
		lines:  newLineTable(false),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	dev, err := Resolve(drv, sel)
	if err != nil {
		return nil, err
	}
	in.dev = dev
	in.logger = in.logger.With().Str("device", dev.Name).Logger()
	in.logger.Debug().Str("model", dev.Model).Uint32("serial", dev.SerialNumber).Msg("device resolved")
	return in, nil
}

// Device returns the device the Instrument is bound to
func (in *Instrument) Device() Device {
	return in.dev
}

func (in *Instrument) String() string {
	return in.dev.String()
}

// AIChannels lists the analog inputs, e.g. "ai0"
func (in *Instrument) AIChannels() ([]string, error) {
	return ListAIChannels(in.drv, in.dev.Name)
}

// AOChannels lists the analog outputs, e.g. "ao0"
func (in *Instrument) AOChannels() ([]string, error) {
	return ListAOChannels(in.drv, in.dev.Name)
}

// Lines lists the digital lines, e.g. "port0/line0"
func (in *Instrument) Lines() ([]string, error) {
	return ListLines(in.drv, in.dev.Name)
}

// validate checks the kind of id and that the device has it, returning
// the physical channel name.  The channel list is queried on every call.
func (in *Instrument) validate(id channel.ID, kind channel.Kind) (string, error) {
	if id.Kind != kind {
		return "", fmt.Errorf("%w: %s, want %s", ErrWrongKind, id, kind)
	}
	var (
		valid []string
		err   error
	)
	switch kind {
	case channel.AnalogIn:
		valid, err = in.AIChannels()
	case channel.AnalogOut:
		valid, err = in.AOChannels()
	case channel.DigitalLine:
		valid, err = in.Lines()
	}
	if err != nil {
		return "", err
	}
	name := id.String()
	if err := channel.Validate(in.dev.Name, name, valid); err != nil {
		return "", err
	}
	return in.dev.Name + "/" + name, nil
}

// withTask runs fn against a new task and always stops and clears it
func (in *Instrument) withTask(fn func(Task) error) (err error) {
	task, err := in.drv.NewTask("")
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, task.Stop(), task.Clear())
	}()
	return fn(task)
}

// WriteAnalog sets an analog output to v volts.  The task range is
// [AOMin, AOMax], the driver refuses anything outside of it.
func (in *Instrument) WriteAnalog(id channel.ID, v float64) error {
	if math.IsNaN(v) {
		return &HardwareRangeError{Channel: id.String(), Value: v, Min: AOMin, Max: AOMax}
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	phys, err := in.validate(id, channel.AnalogOut)
	if err != nil {
		return err
	}
	err = in.withTask(func(t Task) error {
		if err := t.CreateAOVoltageChan(phys, AOMin, AOMax); err != nil {
			return err
		}
		if err := t.Start(); err != nil {
			return err
		}
		return t.WriteAnalogScalar(v, ioTimeout)
	})
	var de *DriverError
	if errors.As(err, &de) && (v < AOMin || v > AOMax) {
		return &HardwareRangeError{Channel: id.String(), Value: v, Min: AOMin, Max: AOMax, Err: err}
	}
	if err == nil {
		in.logger.Debug().Str("channel", id.String()).Float64("volts", v).Msg("analog output written")
	}
	return err
}

// ReadAnalog performs one acquisition on an analog input
func (in *Instrument) ReadAnalog(id channel.ID, cfg CaptureConfig) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	phys, err := in.validate(id, channel.AnalogIn)
	if err != nil {
		return nil, err
	}
	buf := make([]float64, cfg.SampleCount)
	err = in.withTask(func(t Task) error {
		if err := t.CreateAIVoltageChan(phys, cfg.Mode, cfg.MinVoltage, cfg.MaxVoltage); err != nil {
			return err
		}
		if cfg.SampleCount > 1 {
			if err := t.CfgSampClkTiming(cfg.Rate, uint64(cfg.SampleCount)); err != nil {
				return err
			}
		}
		if err := t.Start(); err != nil {
			return err
		}
		n, err := t.ReadAnalog(buf, cfg.driverTimeout())
		if err != nil {
			return err
		}
		if n != cfg.SampleCount {
			return &ShortReadError{Device: in.dev.Name, Channel: id.String(), Requested: cfg.SampleCount, Read: n}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	in.logger.Debug().Str("channel", id.String()).Int("samples", cfg.SampleCount).
		Float64("rate", cfg.Rate).Stringer("mode", cfg.Mode).Msg("analog input read")
	return buf, nil
}

// WriteLine drives a digital line high (true) or low (false)
func (in *Instrument) WriteLine(id channel.ID, v bool) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	phys, err := in.validate(id, channel.DigitalLine)
	if err != nil {
		return err
	}
	name := id.String()
	if err := in.lines.check(name, ConfiguredOutput); err != nil {
		return err
	}
	data := []uint8{0}
	if v {
		data[0] = 1
	}
	err = in.withTask(func(t Task) error {
		if err := t.CreateDOChan(phys); err != nil {
			return err
		}
		if err := t.Start(); err != nil {
			return err
		}
		n, err := t.WriteDigitalLines(data, ioTimeout)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%s/%s: driver wrote %d samples, expected 1", in.dev.Name, name, n)
		}
		return nil
	})
	if err != nil {
		return err
	}
	in.lines.commit(name, ConfiguredOutput, in.logger)
	return nil
}

// ReadLine reads a digital line.  Configuring a line as an input fails
// transiently while it is being reconfigured from a previous write, so driver
// errors from that step are retried per the RetryPolicy before a
// *TimeoutError is returned.
func (in *Instrument) ReadLine(id channel.ID) (bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	phys, err := in.validate(id, channel.DigitalLine)
	if err != nil {
		return false, err
	}
	name := id.String()
	if err := in.lines.check(name, ConfiguredInput); err != nil {
		return false, err
	}
	buf := []uint8{0}
	err = in.withTask(func(t Task) error {
		attempts := 0
		start := time.Now()
		op := func() error {
			attempts++
			err := t.CreateDIChan(phys)
			var de *DriverError
			if err != nil && !errors.As(err, &de) {
				return backoff.Permanent(err)
			}
			return err
		}
		notify := func(err error, wait time.Duration) {
			in.logger.Debug().Err(err).Str("line", name).Int("attempt", attempts).
				Dur("wait", wait).Msg("digital input configuration failed, retrying")
		}
		if err := backoff.RetryNotify(op, in.retry.backoff(), notify); err != nil {
			var de *DriverError
			if errors.As(err, &de) {
				return &TimeoutError{Device: in.dev.Name, Channel: name,
					Elapsed: time.Since(start), Attempts: attempts, Err: err}
			}
			return err
		}
		if err := t.Start(); err != nil {
			return err
		}
		n, err := t.ReadDigitalLines(buf, ioTimeout)
		if err != nil {
			return err
		}
		if n != 1 {
			return &ShortReadError{Device: in.dev.Name, Channel: name, Requested: 1, Read: n}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	in.lines.commit(name, ConfiguredInput, in.logger)
	return buf[0] != 0, nil
}

// LineState returns the direction a line was last used in
func (in *Instrument) LineState(id channel.ID) LineState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.lines.get(id.String())
}

// Release returns a line to Unconfigured, allowing its direction to change
// in strict mode
func (in *Instrument) Release(id channel.ID) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, err := in.validate(id, channel.DigitalLine); err != nil {
		return err
	}
	in.lines.release(id.String(), in.logger)
	return nil
}

// FundamentalFrequency captures count samples at rate Hz and returns the
// dominant non-DC frequency, see spectrum.DominantFrequency
func (in *Instrument) FundamentalFrequency(id channel.ID, count int, rate float64) (float64, error) {
	cfg := DefaultCapture()
	cfg.SampleCount = count
	cfg.Rate = rate
	samples, err := in.ReadAnalog(id, cfg)
	if err != nil {
		return 0, err
	}
	return spectrum.DominantFrequency(samples, rate)
}
