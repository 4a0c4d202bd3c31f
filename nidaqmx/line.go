package nidaqmx

import (
	"github.com/rs/zerolog"
)

// LineState is the direction a digital line was last configured in
type LineState int

const (
	// Unconfigured lines have not been used since construction or Release
	Unconfigured LineState = iota
	// ConfiguredOutput lines were last written
	ConfiguredOutput
	// ConfiguredInput lines were last read
	ConfiguredInput
)

func (s LineState) String() string {
	switch s {
	case ConfiguredOutput:
		return "output"
	case ConfiguredInput:
		return "input"
	default:
		return "unconfigured"
	}
}

// lineTable tracks the direction of every line that has been touched.
// It is guarded by the Instrument's mutex.
type lineTable struct {
	strict bool
	states map[string]LineState
}

func newLineTable(strict bool) *lineTable {
	return &lineTable{strict: strict, states: map[string]LineState{}}
}

func (lt *lineTable) get(name string) LineState {
	return lt.states[name]
}

// check is the first step of every digital read or write.  Outside of strict
// mode any transition is allowed.
func (lt *lineTable) check(name string, want LineState) error {
	cur := lt.states[name]
	if lt.strict && cur != Unconfigured && cur != want {
		return &DirectionError{Channel: name, State: cur, Want: want}
	}
	return nil
}

// commit records a transition after the hardware accepted it
func (lt *lineTable) commit(name string, to LineState, logger zerolog.Logger) {
	from := lt.states[name]
	if from == to {
		return
	}
	lt.states[name] = to
	logger.Info().Str("line", name).Stringer("from", from).Stringer("to", to).Msg("line direction changed")
}

func (lt *lineTable) release(name string, logger zerolog.Logger) {
	if from, ok := lt.states[name]; ok && from != Unconfigured {
		logger.Info().Str("line", name).Stringer("from", from).Msg("line released")
	}
	delete(lt.states, name)
}
