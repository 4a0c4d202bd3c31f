package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"

	"github.com/nasa-jpl/daqmx/generichttp"
	"github.com/nasa-jpl/daqmx/generichttp/daq"
	"github.com/nasa-jpl/daqmx/nidaqmx"
	"github.com/nasa-jpl/daqmx/nidaqmx/sim"
	"github.com/nasa-jpl/daqmx/server/middleware/locker"
	"github.com/nasa-jpl/daqmx/server/middleware/throttle"
)

// DeviceSetup describes one device to serve.  Name, Serial, and Model
// select the device, in that priority; all empty selects the only
// attached device.
type DeviceSetup struct {
	// Endpoint is the full path the routes from this device will be served on
	// ex. Endpoint="/omc/daq" will produce routes of /omc/daq/ao, etc.
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	Name   string `yaml:"Name" koanf:"Name"`
	// Serial is hex, as printed on the device label
	Serial string `yaml:"Serial" koanf:"Serial"`
	Model  string `yaml:"Model" koanf:"Model"`

	// Strict refuses to read a line last written as an output, and vice
	// versa, until it is released
	Strict bool `yaml:"Strict" koanf:"Strict"`

	// RetryIntervalMs and RetryCeilingMs bound the digital input
	// configuration retry.  Zero uses the defaults.
	RetryIntervalMs int `yaml:"RetryIntervalMs" koanf:"RetryIntervalMs"`
	RetryCeilingMs  int `yaml:"RetryCeilingMs" koanf:"RetryCeilingMs"`
}

// Selector converts the setup into a device selector
func (d DeviceSetup) Selector() (nidaqmx.Selector, error) {
	sel := nidaqmx.Selector{Name: d.Name, Model: d.Model}
	if d.Serial != "" {
		s, err := nidaqmx.ParseSerial(d.Serial)
		if err != nil {
			return sel, err
		}
		sel.Serial = s
	}
	return sel, nil
}

// Retry converts the setup into a retry policy
func (d DeviceSetup) Retry() nidaqmx.RetryPolicy {
	return nidaqmx.RetryPolicy{
		Interval: time.Duration(d.RetryIntervalMs) * time.Millisecond,
		Ceiling:  time.Duration(d.RetryCeilingMs) * time.Millisecond,
	}
}

// Config holds the server's initialization parameters.  It is populated by
// koanf from defaults and daqmx.yml.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Mock serves simulated devices instead of the NI-DAQmx driver
	Mock bool `yaml:"Mock" koanf:"Mock"`

	// LogLevel is a zerolog level name, e.g. debug or info
	LogLevel string `yaml:"LogLevel" koanf:"LogLevel"`

	// Rate is the number of requests per second admitted to each device,
	// with bursts of up to Burst.  Zero or less disables the limit.
	Rate  float64 `yaml:"Rate" koanf:"Rate"`
	Burst int     `yaml:"Burst" koanf:"Burst"`

	// Devices is the list of devices to set up
	Devices []DeviceSetup `yaml:"Devices" koanf:"Devices"`
}

// MockDriver builds a simulated driver with a USB-6001 for every configured
// device.  On each, ao0 is wired to ai0 and ai1 carries a 60 Hz sine.
func MockDriver(c Config, logger zerolog.Logger) *sim.Driver {
	drv := sim.New(sim.WithLogger(logger))
	for i, d := range c.Devices {
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("Dev%d", i+1)
		}
		serial := uint32(i + 1)
		if d.Serial != "" {
			if s, err := nidaqmx.ParseSerial(d.Serial); err == nil {
				if u, err := s.Uint32(); err == nil {
					serial = u
				}
			}
		}
		spec := sim.USB6001(name, serial)
		if d.Model != "" {
			spec.Model = d.Model
		}
		drv.AddDevice(spec)
		drv.Wire(name+"/ao0", name+"/ai0")
		drv.SetSignal(name+"/ai1", sim.Sine(60, 1, 0))
	}
	return drv
}

// BuildMux resolves every configured device on drv and mounts its HTTP
// interface at its endpoint.  The root serves /endpoints, a JSON object
// mapping each endpoint to its routes.
func BuildMux(c Config, drv nidaqmx.Driver, logger zerolog.Logger) (chi.Router, error) {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}
	// one Instrument per physical device, so that one mutex guards it
	mounted := map[string]string{}

	for _, setup := range c.Devices {
		sel, err := setup.Selector()
		if err != nil {
			return nil, fmt.Errorf("device at %s: %w", setup.Endpoint, err)
		}
		in, err := nidaqmx.New(drv, sel,
			nidaqmx.WithLogger(logger),
			nidaqmx.WithRetry(setup.Retry()),
			nidaqmx.WithStrictLines(setup.Strict))
		if err != nil {
			return nil, fmt.Errorf("device at %s: %w", setup.Endpoint, err)
		}
		name := in.Device().Name
		if prev, dup := mounted[name]; dup {
			return nil, fmt.Errorf("devices at %s and %s both resolve to %s", prev, setup.Endpoint, name)
		}
		mounted[name] = setup.Endpoint
		httper, err := daq.NewHTTPDAQ(in)
		if err != nil {
			return nil, fmt.Errorf("device at %s: %w", setup.Endpoint, err)
		}

		// prepare the URL, "omc/daq" => "/omc/daq"
		hndlS := generichttp.SubMuxSanitize(setup.Endpoint)
		if _, dup := supergraph[hndlS]; dup {
			return nil, fmt.Errorf("endpoint %s is used more than once", hndlS)
		}

		// add a lock interface for this device
		lock := locker.New()
		locker.Inject(httper, lock)
		supergraph[hndlS] = httper.RT().Endpoints()

		r := chi.NewRouter()
		r.Use(throttle.New(c.Rate, c.Burst).Check)
		r.Use(lock.Check)
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
		logger.Info().Str("endpoint", hndlS).Stringer("device", in).Msg("device mounted")
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root, nil
}
