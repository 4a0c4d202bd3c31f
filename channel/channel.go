// Package channel names and validates the physical channels of a DAQ device.
//
// Canonical names are lower case: "ai3" and "ao0" for analog channels, and
// "port0/line5" for a single digital line.
package channel

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the kind of a channel
type Kind int

const (
	// Unknown is the zero Kind
	Unknown Kind = iota
	// AnalogIn is an analog input ("ai")
	AnalogIn
	// AnalogOut is an analog output ("ao")
	AnalogOut
	// DigitalLine is one line of a digital port ("portN/lineM")
	DigitalLine
)

// Prefixes used in canonical channel names
const (
	PrefixAI   = "ai"
	PrefixAO   = "ao"
	PrefixPort = "port"
	PrefixLine = "line"
)

func (k Kind) String() string {
	switch k {
	case AnalogIn:
		return "analog input"
	case AnalogOut:
		return "analog output"
	case DigitalLine:
		return "digital line"
	default:
		return "unknown"
	}
}

// ID identifies one channel of a device.  Port is only meaningful for
// DigitalLine, where Index is the line number.
type ID struct {
	Kind  Kind
	Port  int
	Index int
}

// AI returns the ID of analog input i
func AI(i int) ID { return ID{Kind: AnalogIn, Index: i} }

// AO returns the ID of analog output i
func AO(i int) ID { return ID{Kind: AnalogOut, Index: i} }

// Line returns the ID of a digital line on a port
func Line(port, line int) ID { return ID{Kind: DigitalLine, Port: port, Index: line} }

// String returns the canonical name of the channel
func (id ID) String() string {
	switch id.Kind {
	case AnalogIn:
		return PrefixAI + strconv.Itoa(id.Index)
	case AnalogOut:
		return PrefixAO + strconv.Itoa(id.Index)
	case DigitalLine:
		return PrefixPort + strconv.Itoa(id.Port) + "/" + PrefixLine + strconv.Itoa(id.Index)
	default:
		return ""
	}
}

var (
	analogRE = regexp.MustCompile(`^(ai|ao)(\d+)$`)
	lineRE   = regexp.MustCompile(`^port(\d+)/line(\d+)$`)
)

// Parse converts a channel name into an ID.  The name is lower-cased first,
// so "AO0" and "Port1/Line2" are accepted.
func Parse(s string) (ID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if m := analogRE.FindStringSubmatch(name); m != nil {
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return ID{}, fmt.Errorf("channel: index of %q: %w", s, err)
		}
		if m[1] == PrefixAI {
			return AI(idx), nil
		}
		return AO(idx), nil
	}
	if m := lineRE.FindStringSubmatch(name); m != nil {
		port, err := strconv.Atoi(m[1])
		if err != nil {
			return ID{}, fmt.Errorf("channel: port of %q: %w", s, err)
		}
		line, err := strconv.Atoi(m[2])
		if err != nil {
			return ID{}, fmt.Errorf("channel: line of %q: %w", s, err)
		}
		return Line(port, line), nil
	}
	return ID{}, fmt.Errorf("channel: %q is not a channel name, want aiN, aoN, or portN/lineM", s)
}

// Format produces a channel name from an integer index or a string.
// Integers are appended to prefix, Format(3, "ao") == "ao3".  Strings are
// trusted to be canonical already and are only lower-cased, the prefix is not
// injected.  Any other type is a *TypeError.
func Format(v interface{}, prefix string) (string, error) {
	var i int64
	switch t := v.(type) {
	case string:
		return strings.ToLower(t), nil
	case int:
		i = int64(t)
	case int8:
		i = int64(t)
	case int16:
		i = int64(t)
	case int32:
		i = int64(t)
	case int64:
		i = t
	case uint:
		i = int64(t)
	case uint8:
		i = int64(t)
	case uint16:
		i = int64(t)
	case uint32:
		i = int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return "", fmt.Errorf("channel: index %d overflows", t)
		}
		i = int64(t)
	default:
		return "", &TypeError{Value: v, Want: "integer or string"}
	}
	if i < 0 {
		return "", fmt.Errorf("channel: index %d is negative", i)
	}
	return prefix + strconv.FormatInt(i, 10), nil
}

// Validate returns an *InvalidChannelError if requested is not one of valid
func Validate(device, requested string, valid []string) error {
	for _, v := range valid {
		if v == requested {
			return nil
		}
	}
	cpy := make([]string, len(valid))
	copy(cpy, valid)
	return &InvalidChannelError{Device: device, Requested: requested, Valid: cpy}
}

// InvalidChannelError is returned when a channel is not present on a device
type InvalidChannelError struct {
	Device    string
	Requested string
	// Valid holds every channel of the same kind the device has
	Valid []string
}

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("channel %s is not valid for device %s, valid channels are [%s]",
		e.Requested, e.Device, strings.Join(e.Valid, ", "))
}

// TypeError is returned when a value of the wrong Go type is supplied
type TypeError struct {
	Value interface{}
	Want  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("value %v of type %T is not allowed, want %s", e.Value, e.Value, e.Want)
}
