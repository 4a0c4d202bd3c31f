package nidaqmx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nasa-jpl/daqmx/channel"
)

// AsBool accepts only a Go bool.  Numbers such as 0, 1, 0.0 and 1.0 are
// rejected with a *TypeError since a line's direction is stateful and
// truthiness is not a substitute for a boolean.
func AsBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Value: v, Want: "bool"}
	}
	return b, nil
}

// AsFloat accepts any Go integer or float type and converts it to volts
func AsFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	}
	return 0, &TypeError{Value: v, Want: "number"}
}

var portRE = regexp.MustCompile(`^port(\d+)$`)

// Set writes a value by channel name.  Names containing "ao" write an analog
// output, names of digital lines ("port0/line3") write the line and require
// a bool.
func (in *Instrument) Set(name string, value interface{}) error {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, channel.PrefixAO):
		id, err := channel.Parse(lower)
		if err != nil {
			return err
		}
		v, err := AsFloat(value)
		if err != nil {
			return err
		}
		return in.WriteAnalog(id, v)
	case strings.Contains(lower, channel.PrefixPort):
		id, err := channel.Parse(lower)
		if err != nil {
			return err
		}
		b, err := AsBool(value)
		if err != nil {
			return err
		}
		return in.WriteLine(id, b)
	case strings.Contains(lower, channel.PrefixAI):
		return fmt.Errorf("%w: %s is an input and cannot be set", ErrWrongKind, lower)
	}
	return fmt.Errorf("nidaqmx: no channel named %q", name)
}

// Get returns an accessor or value by channel name:
//	"ai3"         => *AnalogInput
//	"port0"       => *Port
//	"port0/line3" => bool, the line is read
func (in *Instrument) Get(name string) (interface{}, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, channel.PrefixAI):
		ai, err := in.AnalogInput(lower)
		if err != nil {
			return nil, err
		}
		return ai, nil
	case strings.Contains(lower, channel.PrefixPort):
		if portRE.MatchString(lower) {
			p, err := in.Port(lower)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
		id, err := channel.Parse(lower)
		if err != nil {
			return nil, err
		}
		return in.ReadLine(id)
	case strings.Contains(lower, channel.PrefixAO):
		return nil, fmt.Errorf("%w: %s is an output and cannot be read", ErrWrongKind, lower)
	}
	return nil, fmt.Errorf("nidaqmx: no channel named %q", name)
}

// AnalogInput is an accessor bound to one analog input
type AnalogInput struct {
	in *Instrument
	id channel.ID
}

// AnalogInput returns an accessor for an analog input given by index (3) or name ("ai3")
func (in *Instrument) AnalogInput(ch interface{}) (*AnalogInput, error) {
	name, err := channel.Format(ch, channel.PrefixAI)
	if err != nil {
		return nil, err
	}
	id, err := channel.Parse(name)
	if err != nil {
		return nil, err
	}
	if _, err := in.validateLocked(id, channel.AnalogIn); err != nil {
		return nil, err
	}
	return &AnalogInput{in: in, id: id}, nil
}

// ID returns the channel of the accessor
func (a *AnalogInput) ID() channel.ID { return a.id }

// Value takes one sample with the default configuration
func (a *AnalogInput) Value() (float64, error) {
	out, err := a.in.ReadAnalog(a.id, DefaultCapture())
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Capture takes cfg.SampleCount samples
func (a *AnalogInput) Capture(cfg CaptureConfig) ([]float64, error) {
	return a.in.ReadAnalog(a.id, cfg)
}

// Frequency returns the dominant frequency seen on the input
func (a *AnalogInput) Frequency(count int, rate float64) (float64, error) {
	return a.in.FundamentalFrequency(a.id, count, rate)
}

// Port is an accessor for one digital port
type Port struct {
	in   *Instrument
	port int
}

// Port returns an accessor for a digital port given by index (0) or name ("port0")
func (in *Instrument) Port(p interface{}) (*Port, error) {
	name, err := channel.Format(p, channel.PrefixPort)
	if err != nil {
		return nil, err
	}
	m := portRE.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("nidaqmx: %q is not a port name", name)
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, err
	}
	lines, err := in.Lines()
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if strings.HasPrefix(l, name+"/") {
			return &Port{in: in, port: idx}, nil
		}
	}
	return nil, &InvalidChannelError{Device: in.dev.Name, Requested: name, Valid: ports(lines)}
}

func ports(lines []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range lines {
		p := strings.SplitN(l, "/", 2)[0]
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Line returns an accessor for a line of the port given by index (3) or name ("line3")
func (p *Port) Line(l interface{}) (*Line, error) {
	name, err := channel.Format(l, channel.PrefixLine)
	if err != nil {
		return nil, err
	}
	id, err := channel.Parse(channel.PrefixPort + strconv.Itoa(p.port) + "/" + name)
	if err != nil {
		return nil, err
	}
	if _, err := p.in.validateLocked(id, channel.DigitalLine); err != nil {
		return nil, err
	}
	return &Line{in: p.in, id: id}, nil
}

// Line is an accessor for one digital line
type Line struct {
	in *Instrument
	id channel.ID
}

// ID returns the channel of the accessor
func (l *Line) ID() channel.ID { return l.id }

// Get reads the line
func (l *Line) Get() (bool, error) { return l.in.ReadLine(l.id) }

// Set writes the line, v must be a bool
func (l *Line) Set(v interface{}) error {
	b, err := AsBool(v)
	if err != nil {
		return err
	}
	return l.in.WriteLine(l.id, b)
}

// Release returns the line to Unconfigured
func (l *Line) Release() error { return l.in.Release(l.id) }

// State returns the direction the line was last used in
func (l *Line) State() LineState { return l.in.LineState(l.id) }

func (in *Instrument) validateLocked(id channel.ID, kind channel.Kind) (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.validate(id, kind)
}
