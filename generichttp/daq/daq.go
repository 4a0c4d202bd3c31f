// Package daq provides a generic HTTP interface to multifunction DAQ devices
//
// This is not the last word in speed, due to HTTP having reasonable latency in
// most client languages, but it is the last word in ease of use.
package daq

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/types"
	"net/http"
	"strconv"

	"github.com/nasa-jpl/daqmx/channel"
	"github.com/nasa-jpl/daqmx/generichttp"
	"github.com/nasa-jpl/daqmx/nidaqmx"
	"github.com/nasa-jpl/daqmx/server"
	"github.com/nasa-jpl/daqmx/spectrum"
	"github.com/nasa-jpl/daqmx/util"
)

// DAQ is a device with analog inputs, analog outputs, and digital lines.
// *nidaqmx.Instrument satisfies it.
type DAQ interface {
	Device() nidaqmx.Device

	AIChannels() ([]string, error)
	AOChannels() ([]string, error)
	Lines() ([]string, error)

	WriteAnalog(channel.ID, float64) error
	ReadAnalog(channel.ID, nidaqmx.CaptureConfig) ([]float64, error)
	WriteLine(channel.ID, bool) error
	ReadLine(channel.ID) (bool, error)
	Release(channel.ID) error
	FundamentalFrequency(channel.ID, int, float64) (float64, error)
}

type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

// classify attaches an HTTP status to an error from the instrument
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		ice *nidaqmx.InvalidChannelError
		te  *nidaqmx.TypeError
		hre *nidaqmx.HardwareRangeError
		de  *nidaqmx.DirectionError
		to  *nidaqmx.TimeoutError
		ise *nidaqmx.InsufficientSamplesError
	)
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &ice):
		code = http.StatusNotFound
	case errors.As(err, &te), errors.As(err, &hre),
		errors.Is(err, nidaqmx.ErrBadConfig), errors.Is(err, nidaqmx.ErrWrongKind):
		code = http.StatusBadRequest
	case errors.As(err, &de):
		code = http.StatusConflict
	case errors.As(err, &to):
		code = http.StatusGatewayTimeout
	case errors.As(err, &ise), errors.Is(err, spectrum.ErrFlatSpectrum):
		code = http.StatusUnprocessableEntity
	}
	return &statusError{code: code, err: err}
}

func badRequest(err error) error {
	return &statusError{code: http.StatusBadRequest, err: err}
}

// parseChannel parses a channel name and checks its kind
func parseChannel(name string, kind channel.Kind) (channel.ID, error) {
	id, err := channel.Parse(name)
	if err != nil {
		return id, badRequest(err)
	}
	if id.Kind != kind {
		return id, badRequest(fmt.Errorf("%w: %s, want %s", nidaqmx.ErrWrongKind, id, kind))
	}
	return id, nil
}

type channelVoltage struct {
	Channel string  `json:"channel"`
	Voltage float64 `json:"voltage"`
}

// Output returns an HTTP handlerfunc that will write a voltage to an analog output
func Output(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input channelVoltage
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id, err := parseChannel(input.Channel, channel.AnalogOut)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		if err := d.WriteAnalog(id, input.Voltage); err != nil {
			generichttp.Error(w, classify(err))
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// captureRequest is a CaptureConfig with every field optional and the
// timeout in seconds
type captureRequest struct {
	Channel string                  `json:"channel"`
	Samples *int                    `json:"samples"`
	Rate    *float64                `json:"rate"`
	Min     *float64                `json:"min"`
	Max     *float64                `json:"max"`
	Mode    *nidaqmx.TerminalConfig `json:"mode"`
	Timeout *float64                `json:"timeout"`
}

func (c captureRequest) config() nidaqmx.CaptureConfig {
	cfg := nidaqmx.DefaultCapture()
	if c.Samples != nil {
		cfg.SampleCount = *c.Samples
	}
	if c.Rate != nil {
		cfg.Rate = *c.Rate
	}
	if c.Min != nil {
		cfg.MinVoltage = *c.Min
	}
	if c.Max != nil {
		cfg.MaxVoltage = *c.Max
	}
	if c.Mode != nil {
		cfg.Mode = *c.Mode
	}
	if c.Timeout != nil {
		cfg.Timeout = util.SecsToDuration(*c.Timeout)
	}
	return cfg
}

// Capture returns an HTTP handlerfunc that reads an analog input and replies
// with a JSON array of volts
func Capture(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input captureRequest
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id, err := parseChannel(input.Channel, channel.AnalogIn)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		samples, err := d.ReadAnalog(id, input.config())
		if err != nil {
			generichttp.Error(w, classify(err))
			return
		}
		server.RespondJSON(w, samples)
	}
}

// Sample returns an HTTP handlerfunc that reads one sample of the analog
// input named by the channel query parameter
func Sample(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseChannel(r.URL.Query().Get("channel"), channel.AnalogIn)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		generichttp.GetFloat(sampleFunc(d, id))(w, r)
	}
}

func sampleFunc(d DAQ, id channel.ID) func() (float64, error) {
	return func() (float64, error) {
		out, err := d.ReadAnalog(id, nidaqmx.DefaultCapture())
		if err != nil {
			return 0, classify(err)
		}
		return out[0], nil
	}
}

type portLine struct {
	Port int `json:"port"`
	Line int `json:"line"`
}

type lineValue struct {
	portLine
	// Value is kept raw so that numbers are rejected rather than coerced
	Value json.RawMessage `json:"value"`
}

// ReadLine returns an HTTP handlerfunc that reads the line given by the port
// and line query parameters
func ReadLine(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		port, err1 := strconv.Atoi(q.Get("port"))
		line, err2 := strconv.Atoi(q.Get("line"))
		if err1 != nil || err2 != nil {
			http.Error(w, "port and line query parameters must be integers", http.StatusBadRequest)
			return
		}
		id := channel.Line(port, line)
		generichttp.GetBool(func() (bool, error) {
			b, err := d.ReadLine(id)
			return b, classify(err)
		})(w, r)
	}
}

// WriteLine returns an HTTP handlerfunc that writes a line.  The value must
// be a JSON boolean, 0 and 1 are a 400.
func WriteLine(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input lineValue
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var raw interface{}
		if err := json.Unmarshal(input.Value, &raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, err := nidaqmx.AsBool(raw)
		if err != nil {
			generichttp.Error(w, classify(err))
			return
		}
		if err := d.WriteLine(channel.Line(input.Port, input.Line), b); err != nil {
			generichttp.Error(w, classify(err))
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Release returns an HTTP handlerfunc that returns a line to the unconfigured state
func Release(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input portLine
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := d.Release(channel.Line(input.Port, input.Line)); err != nil {
			generichttp.Error(w, classify(err))
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type frequencyRequest struct {
	Channel string  `json:"channel"`
	Samples int     `json:"samples"`
	Rate    float64 `json:"rate"`
}

// Frequency returns an HTTP handlerfunc that replies with the dominant
// frequency on an analog input as {"f64": Hz}
func Frequency(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := frequencyRequest{Samples: 1000, Rate: 1000}
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id, err := parseChannel(input.Channel, channel.AnalogIn)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		f, err := d.FundamentalFrequency(id, input.Samples, input.Rate)
		if err != nil {
			generichttp.Error(w, classify(err))
			return
		}
		hp := server.HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// DeviceInfo returns an HTTP handlerfunc replying with the name, model, and serial of the device
func DeviceInfo(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		server.RespondJSON(w, d.Device())
	}
}

type channelList struct {
	AI    []string `json:"ai"`
	AO    []string `json:"ao"`
	Lines []string `json:"lines"`
}

// Channels returns an HTTP handlerfunc replying with every channel of the device
func Channels(d DAQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			out channelList
			err error
		)
		if out.AI, err = d.AIChannels(); err == nil {
			if out.AO, err = d.AOChannels(); err == nil {
				out.Lines, err = d.Lines()
			}
		}
		if err != nil {
			generichttp.Error(w, classify(err))
			return
		}
		server.RespondJSON(w, out)
	}
}

// HTTPBasicDAQ adds the body- and query-addressed routes to a table
func HTTPBasicDAQ(d DAQ, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/device"}] = DeviceInfo(d)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/model"}] = generichttp.GetString(func() (string, error) {
		return d.Device().Model, nil
	})
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/channels"}] = Channels(d)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/ao"}] = Output(d)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/ai"}] = Sample(d)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/ai"}] = Capture(d)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/dio"}] = ReadLine(d)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/dio"}] = WriteLine(d)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/release"}] = Release(d)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/frequency"}] = Frequency(d)
}

// HTTPPerChannel adds one route per channel the device reports at the time
// of the call, e.g. POST /ao/ao0 {"f64": 1.5} and GET /dio/port0/line3
func HTTPPerChannel(d DAQ, table generichttp.RouteTable) error {
	ao, err := d.AOChannels()
	if err != nil {
		return err
	}
	for _, name := range ao {
		id, err := channel.Parse(name)
		if err != nil {
			return err
		}
		table[generichttp.MethodPath{Method: http.MethodPost, Path: "/ao/" + name}] = generichttp.SetFloat(func(v float64) error {
			return classify(d.WriteAnalog(id, v))
		})
	}

	ai, err := d.AIChannels()
	if err != nil {
		return err
	}
	for _, name := range ai {
		id, err := channel.Parse(name)
		if err != nil {
			return err
		}
		table[generichttp.MethodPath{Method: http.MethodGet, Path: "/ai/" + name}] = generichttp.GetFloat(sampleFunc(d, id))
	}

	lines, err := d.Lines()
	if err != nil {
		return err
	}
	for _, name := range lines {
		id, err := channel.Parse(name)
		if err != nil {
			return err
		}
		table[generichttp.MethodPath{Method: http.MethodGet, Path: "/dio/" + name}] = generichttp.GetBool(func() (bool, error) {
			b, err := d.ReadLine(id)
			return b, classify(err)
		})
		table[generichttp.MethodPath{Method: http.MethodPost, Path: "/dio/" + name}] = generichttp.SetBool(func(b bool) error {
			return classify(d.WriteLine(id, b))
		})
	}
	return nil
}

// HTTPDAQ wraps a DAQ in an HTTP interface
type HTTPDAQ struct {
	d DAQ

	RouteTable generichttp.RouteTable
}

// NewHTTPDAQ sets up an HTTP interface to a DAQ
func NewHTTPDAQ(d DAQ) (HTTPDAQ, error) {
	w := HTTPDAQ{d: d}
	rt := generichttp.RouteTable{}
	HTTPBasicDAQ(d, rt)
	if err := HTTPPerChannel(d, rt); err != nil {
		return w, err
	}
	w.RouteTable = rt
	return w, nil
}

// RT satisfies generichttp.HTTPer
func (h HTTPDAQ) RT() generichttp.RouteTable {
	return h.RouteTable
}
