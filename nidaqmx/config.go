package nidaqmx

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff"
)

// Output range of analog output tasks, in volts
const (
	AOMin = -10.
	AOMax = 10.
)

// ioTimeout bounds single-sample reads and writes, in seconds
const ioTimeout = 10.

// ErrBadConfig is wrapped by every CaptureConfig validation failure
var ErrBadConfig = errors.New("invalid capture configuration")

// CaptureConfig configures one analog input acquisition
type CaptureConfig struct {
	// SampleCount is the number of samples to take.  When it is 1 no sample
	// clock is configured and the read is software timed.
	SampleCount int `json:"samples"`

	// Rate is the sample clock rate in Hz
	Rate float64 `json:"rate"`

	MinVoltage float64 `json:"min"`
	MaxVoltage float64 `json:"max"`

	Mode TerminalConfig `json:"mode"`

	// Timeout bounds the read.  Zero, or anything below one second, blocks
	// until the acquisition completes.
	Timeout time.Duration `json:"timeout"`
}

// DefaultCapture returns a single differential sample over ±10 V at 1 kHz
// with a 10 s timeout
func DefaultCapture() CaptureConfig {
	return CaptureConfig{
		SampleCount: 1,
		Rate:        1000,
		MinVoltage:  -10,
		MaxVoltage:  10,
		Mode:        Differential,
		Timeout:     10 * time.Second,
	}
}

// Validate checks the configuration for internal consistency
func (c CaptureConfig) Validate() error {
	if c.SampleCount < 1 {
		return fmt.Errorf("%w: sample count %d must be at least 1", ErrBadConfig, c.SampleCount)
	}
	if !(c.Rate > 0) || math.IsInf(c.Rate, 0) {
		return fmt.Errorf("%w: rate %v Hz must be positive", ErrBadConfig, c.Rate)
	}
	if !(c.MinVoltage < c.MaxVoltage) {
		return fmt.Errorf("%w: min voltage %v must be below max voltage %v", ErrBadConfig, c.MinVoltage, c.MaxVoltage)
	}
	if _, ok := terminalNames[c.Mode]; !ok {
		return fmt.Errorf("%w: %v is not a terminal configuration", ErrBadConfig, c.Mode)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout %v is negative", ErrBadConfig, c.Timeout)
	}
	return nil
}

// driverTimeout converts Timeout to the driver's seconds convention
func (c CaptureConfig) driverTimeout() float64 {
	if c.Timeout < time.Second {
		return WaitInfinitely
	}
	return c.Timeout.Seconds()
}

// RetryPolicy bounds the retries of digital input configuration.  The
// configuration is attempted every Interval until Ceiling has elapsed, which
// caps the number of attempts at roughly Ceiling/Interval.
type RetryPolicy struct {
	Interval time.Duration
	Ceiling  time.Duration
}

// DefaultRetry retries every millisecond for 100 ms
func DefaultRetry() RetryPolicy {
	return RetryPolicy{Interval: time.Millisecond, Ceiling: 100 * time.Millisecond}
}

func (p RetryPolicy) orDefault() RetryPolicy {
	def := DefaultRetry()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.Ceiling <= 0 {
		p.Ceiling = def.Ceiling
	}
	return p
}

// backoff returns a constant-interval policy; a multiplier of one and no
// jitter turns the exponential backoff into a fixed poll
func (p RetryPolicy) backoff() *backoff.ExponentialBackOff {
	p = p.orDefault()
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.Interval,
		RandomizationFactor: 0.,
		Multiplier:          1.,
		MaxInterval:         p.Interval,
		MaxElapsedTime:      p.Ceiling,
		Clock:               backoff.SystemClock}
}
