package nidaqmx_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	c "github.com/smartystreets/goconvey/convey"

	"github.com/nasa-jpl/daqmx/channel"
	"github.com/nasa-jpl/daqmx/nidaqmx"
	"github.com/nasa-jpl/daqmx/nidaqmx/sim"
)

func setup(t *testing.T, opts ...nidaqmx.Option) (*nidaqmx.Instrument, *sim.Driver) {
	t.Helper()
	drv := sim.New()
	drv.AddDevice(sim.USB6001("Dev1", 0x1A2B3C4D))
	in, err := nidaqmx.New(drv, nidaqmx.Selector{}, opts...)
	if err != nil {
		t.Fatalf("constructing instrument: %v", err)
	}
	return in, drv
}

func TestInstrumentString(t *testing.T) {
	in, _ := setup(t)
	if s := in.String(); s != "Dev1 USB-6001 (serial 1A2B3C4D)" {
		t.Errorf("unexpected String() %q", s)
	}
}

func TestWriteAnalog(t *testing.T) {
	in, drv := setup(t)
	if err := in.WriteAnalog(channel.AO(1), 2.5); err != nil {
		t.Fatal(err)
	}
	if v := drv.AnalogOutput("Dev1/ao1"); v != 2.5 {
		t.Errorf("expected 2.5 V on ao1, got %v", v)
	}
	if n := drv.OpenTasks(); n != 0 {
		t.Errorf("expected every task to be cleared, %d open", n)
	}
}

func TestWriteAnalogOutOfRange(t *testing.T) {
	in, drv := setup(t)
	err := in.WriteAnalog(channel.AO(0), 10.5)
	var hre *nidaqmx.HardwareRangeError
	if !errors.As(err, &hre) {
		t.Fatalf("expected HardwareRangeError, got %v", err)
	}
	var de *nidaqmx.DriverError
	if !errors.As(err, &de) {
		t.Errorf("expected the driver error to be wrapped, got %v", err)
	}
	if drv.OpenTasks() != 0 {
		t.Error("task leaked on a failed write")
	}
}

func TestWriteAnalogNaN(t *testing.T) {
	in, drv := setup(t)
	err := in.WriteAnalog(channel.AO(0), math.NaN())
	var hre *nidaqmx.HardwareRangeError
	if !errors.As(err, &hre) {
		t.Fatalf("expected HardwareRangeError for NaN, got %v", err)
	}
	if drv.AnalogOutput("Dev1/ao0") != 0 {
		t.Error("NaN must not reach the output")
	}
	if drv.OpenTasks() != 0 {
		t.Error("task leaked on a rejected write")
	}
}

func TestInvalidChannel(t *testing.T) {
	in, _ := setup(t)
	err := in.WriteAnalog(channel.AO(7), 0)
	var ice *nidaqmx.InvalidChannelError
	if !errors.As(err, &ice) {
		t.Fatalf("expected InvalidChannelError, got %v", err)
	}
	if strings.Join(ice.Valid, ",") != "ao0,ao1" {
		t.Errorf("expected valid options [ao0 ao1], got %v", ice.Valid)
	}
	_, err = in.ReadLine(channel.Line(2, 1))
	if !errors.As(err, &ice) {
		t.Fatalf("expected InvalidChannelError for a missing line, got %v", err)
	}
}

func TestWrongKind(t *testing.T) {
	in, _ := setup(t)
	if _, err := in.ReadAnalog(channel.AO(0), nidaqmx.DefaultCapture()); !errors.Is(err, nidaqmx.ErrWrongKind) {
		t.Errorf("expected ErrWrongKind reading an output, got %v", err)
	}
	if err := in.WriteLine(channel.AI(0), true); !errors.Is(err, nidaqmx.ErrWrongKind) {
		t.Errorf("expected ErrWrongKind writing an input as a line, got %v", err)
	}
}

func TestReadAnalogSingle(t *testing.T) {
	in, drv := setup(t)
	drv.SetSignal("Dev1/ai2", sim.Constant(1.25))
	out, err := in.ReadAnalog(channel.AI(2), nidaqmx.DefaultCapture())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != 1.25 {
		t.Errorf("expected [1.25], got %v", out)
	}
}

func TestReadAnalogLoopback(t *testing.T) {
	in, drv := setup(t)
	drv.Wire("Dev1/ao0", "Dev1/ai0")
	if err := in.WriteAnalog(channel.AO(0), -3); err != nil {
		t.Fatal(err)
	}
	cfg := nidaqmx.DefaultCapture()
	cfg.SampleCount = 10
	cfg.Mode = nidaqmx.RSE
	out, err := in.ReadAnalog(channel.AI(0), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(out))
	}
	for i, v := range out {
		if v != -3 {
			t.Errorf("sample %d: expected -3 V, got %v", i, v)
		}
	}
}

func TestReadAnalogShortRead(t *testing.T) {
	in, drv := setup(t)
	drv.ShortRead("Dev1/ai1", 7)
	cfg := nidaqmx.DefaultCapture()
	cfg.SampleCount = 100
	out, err := in.ReadAnalog(channel.AI(1), cfg)
	var sre *nidaqmx.ShortReadError
	if !errors.As(err, &sre) {
		t.Fatalf("expected ShortReadError, got %v (%d samples)", err, len(out))
	}
	if sre.Requested != 100 || sre.Read != 7 {
		t.Errorf("unexpected short read context %+v", sre)
	}
	if out != nil {
		t.Error("a short read must not return a partial buffer")
	}
	if drv.OpenTasks() != 0 {
		t.Error("task leaked on a short read")
	}
}

func TestCaptureConfigValidate(t *testing.T) {
	base := nidaqmx.DefaultCapture()
	if err := base.Validate(); err != nil {
		t.Fatalf("default capture should be valid: %v", err)
	}
	bad := []func(*nidaqmx.CaptureConfig){
		func(c *nidaqmx.CaptureConfig) { c.SampleCount = 0 },
		func(c *nidaqmx.CaptureConfig) { c.Rate = 0 },
		func(c *nidaqmx.CaptureConfig) { c.MinVoltage, c.MaxVoltage = 1, 1 },
		func(c *nidaqmx.CaptureConfig) { c.Mode = 0 },
		func(c *nidaqmx.CaptureConfig) { c.Timeout = -time.Second },
	}
	for i, mut := range bad {
		cfg := base
		mut(&cfg)
		if err := cfg.Validate(); !errors.Is(err, nidaqmx.ErrBadConfig) {
			t.Errorf("case %d: expected ErrBadConfig, got %v", i, err)
		}
	}
}

func TestFundamentalFrequency(t *testing.T) {
	in, drv := setup(t)
	drv.SetSignal("Dev1/ai3", sim.Sine(50, 2, 0.5))
	f, err := in.FundamentalFrequency(channel.AI(3), 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if f != 50.0 {
		t.Errorf("expected 50.0 Hz, got %v", f)
	}
}

func TestFundamentalFrequencyDCOnly(t *testing.T) {
	in, drv := setup(t)
	drv.SetSignal("Dev1/ai3", sim.Constant(4))
	f, err := in.FundamentalFrequency(channel.AI(3), 1000, 1000)
	if err == nil {
		t.Errorf("expected an error for a DC-only input, got %v Hz", f)
	}
}

func TestDigitalLoopback(t *testing.T) {
	in, drv := setup(t)
	drv.Wire("Dev1/port0/line0", "Dev1/port1/line0")
	for _, v := range []bool{true, false, true} {
		if err := in.WriteLine(channel.Line(0, 0), v); err != nil {
			t.Fatal(err)
		}
		got, err := in.ReadLine(channel.Line(1, 0))
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Errorf("wrote %v, read back %v", v, got)
		}
	}
	if drv.OpenTasks() != 0 {
		t.Error("task leaked")
	}
}

func TestReadLineRetry(t *testing.T) {
	c.Convey("Given a line whose input configuration transiently fails", t, func() {
		policy := nidaqmx.RetryPolicy{Interval: time.Millisecond, Ceiling: 40 * time.Millisecond}
		in, drv := setup(t, nidaqmx.WithRetry(policy))
		drv.SetLine("Dev1/port0/line4", true)

		c.Convey("When it fails fewer times than the ceiling allows", func() {
			const k = 5
			drv.FailDIConfig("Dev1/port0/line4", k)
			start := time.Now()
			v, err := in.ReadLine(channel.Line(0, 4))
			elapsed := time.Since(start)

			c.Convey("Then the read succeeds after about k intervals", func() {
				c.So(err, c.ShouldBeNil)
				c.So(v, c.ShouldBeTrue)
				c.So(int64(elapsed), c.ShouldBeGreaterThanOrEqualTo, int64(k*policy.Interval))
				c.So(drv.OpenTasks(), c.ShouldEqual, 0)
			})
		})

		c.Convey("When it never succeeds", func() {
			drv.FailDIConfig("Dev1/port0/line4", -1)
			_, err := in.ReadLine(channel.Line(0, 4))

			c.Convey("Then a TimeoutError wrapping the driver error is returned at or after the ceiling", func() {
				var te *nidaqmx.TimeoutError
				c.So(errors.As(err, &te), c.ShouldBeTrue)
				c.So(int64(te.Elapsed), c.ShouldBeGreaterThanOrEqualTo, int64(policy.Ceiling))
				c.So(te.Attempts, c.ShouldBeGreaterThan, 1)
				var de *nidaqmx.DriverError
				c.So(errors.As(err, &de), c.ShouldBeTrue)
				c.So(de.Code, c.ShouldEqual, sim.CodeResourceReserved)
				c.So(drv.OpenTasks(), c.ShouldEqual, 0)
			})
		})
	})
}

func TestStrictLines(t *testing.T) {
	in, _ := setup(t, nidaqmx.WithStrictLines(true))
	id := channel.Line(0, 2)
	if err := in.WriteLine(id, true); err != nil {
		t.Fatal(err)
	}
	if s := in.LineState(id); s != nidaqmx.ConfiguredOutput {
		t.Errorf("expected output state, got %v", s)
	}
	_, err := in.ReadLine(id)
	var de *nidaqmx.DirectionError
	if !errors.As(err, &de) {
		t.Fatalf("expected DirectionError, got %v", err)
	}
	if err := in.Release(id); err != nil {
		t.Fatal(err)
	}
	if _, err := in.ReadLine(id); err != nil {
		t.Errorf("expected read after release to succeed, got %v", err)
	}
	if s := in.LineState(id); s != nidaqmx.ConfiguredInput {
		t.Errorf("expected input state, got %v", s)
	}
}

func TestLineTransitionsLogged(t *testing.T) {
	var buf bytes.Buffer
	in, _ := setup(t, nidaqmx.WithLogger(zerolog.New(&buf)))
	id := channel.Line(0, 1)
	if err := in.WriteLine(id, false); err != nil {
		t.Fatal(err)
	}
	if _, err := in.ReadLine(id); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "line direction changed") != 2 {
		t.Errorf("expected two logged transitions, got log:\n%s", out)
	}
	if !strings.Contains(out, `"to":"input"`) {
		t.Errorf("expected the input transition to be logged, got log:\n%s", out)
	}
}
