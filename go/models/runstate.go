package models

import (
	"github.com/mgutz/ansi"
)

type RunState int32

const (
	StoppedNormal RunState = iota
	StoppedBreak
	StoppedAddressFallout
	StoppedBadInstruction
	Running
)

var runStateNames = map[RunState]string{
	StoppedNormal:         "stopped",
	StoppedBreak:          "break",
	StoppedAddressFallout: "address fallout",
	StoppedBadInstruction: "bad instruction",
	Running:               "running",
}

var runStateColors = map[RunState]string{
	StoppedNormal:         ansi.ColorCode("default+b"),
	StoppedBreak:          ansi.ColorCode("yellow+b"),
	StoppedAddressFallout: ansi.ColorCode("red+b"),
	StoppedBadInstruction: ansi.ColorCode("red+b"),
	Running:               ansi.ColorCode("green+b"),
}

func (s RunState) String() string {
	if name, ok := runStateNames[s]; ok {
		return name
	}
	return "invalid"
}

// Color returns the state name wrapped in an ansi color sequence.
func (s RunState) Color() string {
	if c, ok := runStateColors[s]; ok {
		return c + s.String() + ansi.Reset
	}
	return s.String()
}

func (s RunState) Stopped() bool {
	return s != Running
}

// Fallout reports whether the state is one of the two fault states.
func (s RunState) Fallout() bool {
	return s == StoppedAddressFallout || s == StoppedBadInstruction
}

func (s RunState) Valid() bool {
	_, ok := runStateNames[s]
	return ok
}
