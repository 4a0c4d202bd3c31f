package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/rs/zerolog"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/daqmx/nidaqmx"
	"github.com/nasa-jpl/daqmx/usbscan"
	"github.com/nasa-jpl/daqmx/util"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "daqmx.yml"
	k              = koanf.New(".")

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:     ":8000",
		LogLevel: "info",
		Devices:  []DeviceSetup{}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			logger.Fatal().Err(err).Msg("error loading config")
		}
	}
}

func loadconfig() Config {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		logger.Fatal().Err(err).Msg("error decoding config")
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		logger.Fatal().Err(err).Msg("bad LogLevel")
	}
	logger = logger.Level(lvl)
	return c
}

func root() {
	str := `daqmx talks to National Instruments DAQ devices through NI-DAQmx and exposes
an HTTP interface to them, as well as a few one-shot commands for the bench.

Usage:
	daqmx <command> [flags] [args]

Commands:
	run
	help
	mkconf
	conf
	version
	list
	usb
	get <channel>
	set <channel> <value>
	capture <channel>
	freq <channel>`
	fmt.Println(str)
}

func help() {
	str := `daqmx is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Each entry under Devices is served at its Endpoint.  A device is chosen by
Name (e.g. Dev1), else Serial (hex as printed on the label, e.g. 1A2B3C4D or
01904571), else Model
(e.g. USB-6001, the first match wins).  If none are given, exactly one device
must be attached.

No two devices can have the same Endpoint.

Endpoints may look like any variation between "omc/daq" or "/omc/daq/", the
leading and trailing slashes are normalized by the server.

Mock: true serves simulated USB-6001s in place of the driver, with ao0 wired
to ai0 and a 60 Hz sine on ai1.

Channels are named ai0, ao1, port0/line3, case insensitive.  Analog values are
volts; line values are true or false.

The get, set, capture, and freq commands take -name, -serial, -model, and -mock
to choose the device, and do not read the Devices list.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
}

func pversion() {
	fmt.Printf("daqmx version %v\n", Version)
}

func driverFor(c Config) nidaqmx.Driver {
	if c.Mock {
		return MockDriver(c, logger)
	}
	return nidaqmx.NewDriver()
}

func run() {
	c := loadconfig()
	if len(c.Devices) == 0 {
		logger.Fatal().Msg("no devices configured, see daqmx help")
	}
	mux, err := BuildMux(c, driverFor(c), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("building server")
	}
	logger.Info().Str("addr", c.Addr).Msg("now listening for requests")
	if err := http.ListenAndServe(c.Addr, mux); err != nil {
		logger.Fatal().Err(err).Send()
	}
}

func list() {
	c := loadconfig()
	drv := driverFor(c)
	devs, err := nidaqmx.ListAll(drv)
	if err != nil {
		logger.Fatal().Err(err).Msg("listing devices")
	}
	for _, d := range devs {
		fmt.Println(d)
		for _, q := range []struct {
			label string
			fn    func(nidaqmx.Driver, string) ([]string, error)
		}{
			{"ai", nidaqmx.ListAIChannels},
			{"ao", nidaqmx.ListAOChannels},
			{"lines", nidaqmx.ListLines},
		} {
			chans, err := q.fn(drv, d.Name)
			if err != nil {
				logger.Error().Err(err).Str("device", d.Name).Msg("listing channels")
				continue
			}
			fmt.Printf("\t%-6s %s\n", q.label, strings.Join(chans, ", "))
		}
	}
}

func usb() {
	devs, err := usbscan.Scan()
	if err != nil {
		logger.Fatal().Err(err).Msg("scanning USB")
	}
	if len(devs) == 0 {
		fmt.Println("no NI devices on the USB bus")
	}
	for _, d := range devs {
		fmt.Println(d)
	}
}

// deviceFlags registers the device selection flags on fs
type deviceFlags struct {
	name, serial, model string
	mock                bool
}

func (d *deviceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.name, "name", "", "device name, e.g. Dev1")
	fs.StringVar(&d.serial, "serial", "", "device serial number, hex as printed on the label")
	fs.StringVar(&d.model, "model", "", "device model, e.g. USB-6001")
	fs.BoolVar(&d.mock, "mock", false, "use a simulated device")
}

func (d *deviceFlags) open() *nidaqmx.Instrument {
	setup := DeviceSetup{Name: d.name, Serial: d.serial, Model: d.model}
	sel, err := setup.Selector()
	if err != nil {
		logger.Fatal().Err(err).Msg("bad serial")
	}
	c := loadconfig()
	c.Mock = c.Mock || d.mock
	if c.Mock {
		c.Devices = []DeviceSetup{setup}
	}
	in, err := nidaqmx.New(driverFor(c), sel, nidaqmx.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("opening device")
	}
	return in
}

func parseArgs(cmd string, args []string, nargs int, extra func(*flag.FlagSet)) (*deviceFlags, []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	df := &deviceFlags{}
	df.register(fs)
	if extra != nil {
		extra(fs)
	}
	fs.Parse(args)
	if fs.NArg() != nargs {
		logger.Fatal().Msgf("%s takes %d positional arguments, got %d", cmd, nargs, fs.NArg())
	}
	return df, fs.Args()
}

func get(args []string) {
	df, pos := parseArgs("get", args, 1, nil)
	in := df.open()
	v, err := in.Get(pos[0])
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	switch x := v.(type) {
	case *nidaqmx.AnalogInput:
		f, err := x.Value()
		if err != nil {
			logger.Fatal().Err(err).Send()
		}
		fmt.Println(f)
	case *nidaqmx.Port:
		lines, err := in.Lines()
		if err != nil {
			logger.Fatal().Err(err).Send()
		}
		for _, name := range lines {
			if !strings.HasPrefix(name, pos[0]+"/") {
				continue
			}
			b, err := in.Get(name)
			if err != nil {
				logger.Fatal().Err(err).Send()
			}
			fmt.Printf("%s\t%v\n", name, b)
		}
	default:
		fmt.Println(x)
	}
}

func set(args []string) {
	df, pos := parseArgs("set", args, 2, nil)
	in := df.open()
	var value interface{}
	if strings.Contains(strings.ToLower(pos[0]), "port") {
		switch strings.ToLower(pos[1]) {
		case "true":
			value = true
		case "false":
			value = false
		default:
			logger.Fatal().Str("value", pos[1]).Msg("line values are true or false")
		}
	} else {
		f, err := strconv.ParseFloat(pos[1], 64)
		if err != nil {
			logger.Fatal().Err(err).Msg("analog values are volts")
		}
		value = f
	}
	if err := in.Set(pos[0], value); err != nil {
		logger.Fatal().Err(err).Send()
	}
}

func spinner(msg string) *yacspin.Spinner {
	s, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " " + msg,
		StopCharacter:     "✓",
		StopFailCharacter: "✗",
		Writer:            os.Stderr,
	})
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	return s
}

func capture(args []string) {
	cfg := nidaqmx.DefaultCapture()
	var (
		mode    string
		timeout float64
	)
	df, pos := parseArgs("capture", args, 1, func(fs *flag.FlagSet) {
		fs.IntVar(&cfg.SampleCount, "samples", 1000, "number of samples")
		fs.Float64Var(&cfg.Rate, "rate", cfg.Rate, "sample rate, Hz")
		fs.Float64Var(&cfg.MinVoltage, "min", cfg.MinVoltage, "minimum expected voltage")
		fs.Float64Var(&cfg.MaxVoltage, "max", cfg.MaxVoltage, "maximum expected voltage")
		fs.StringVar(&mode, "mode", cfg.Mode.String(), "terminal configuration")
		fs.Float64Var(&timeout, "timeout", cfg.Timeout.Seconds(), "timeout, seconds; under 1 waits forever")
	})
	m, err := nidaqmx.ParseTerminalConfig(mode)
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	cfg.Mode = m
	cfg.Timeout = util.SecsToDuration(timeout)
	in := df.open()
	ai, err := in.AnalogInput(pos[0])
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	s := spinner(fmt.Sprintf("capturing %d samples from %s", cfg.SampleCount, ai.ID()))
	s.Start()
	samples, err := ai.Capture(cfg)
	if err != nil {
		s.StopFail()
		logger.Fatal().Err(err).Send()
	}
	s.Stop()
	for _, v := range samples {
		fmt.Println(v)
	}
}

func freq(args []string) {
	var (
		count int
		rate  float64
	)
	df, pos := parseArgs("freq", args, 1, func(fs *flag.FlagSet) {
		fs.IntVar(&count, "samples", 1000, "number of samples")
		fs.Float64Var(&rate, "rate", 1000, "sample rate, Hz")
	})
	in := df.open()
	ai, err := in.AnalogInput(pos[0])
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	s := spinner(fmt.Sprintf("measuring %s", ai.ID()))
	s.Start()
	f, err := ai.Frequency(count, rate)
	if err != nil {
		s.StopFail()
		logger.Fatal().Err(err).Send()
	}
	s.Stop()
	fmt.Printf("%.1f Hz\n", f)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	case "list":
		list()
	case "usb":
		usb()
	case "get":
		get(args[2:])
	case "set":
		set(args[2:])
	case "capture":
		capture(args[2:])
	case "freq":
		freq(args[2:])
	default:
		logger.Fatal().Str("command", cmd).Msg("unknown command")
	}
}
