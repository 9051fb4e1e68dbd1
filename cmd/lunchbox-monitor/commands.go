package main

import "fmt"

// Command is an operator-issued control command. Commands reach the
// main loop through a channel regardless of the carrier that delivered
// them (dbus method call or serial line).
type Command int

const (
	CommandShowCalibration Command = iota
	CommandSoftReset
	CommandClearAndReset
	CommandForceRecalAndReset
)

func (c Command) String() string {
	switch c {
	case CommandShowCalibration:
		return "show-cal"
	case CommandSoftReset:
		return "reset"
	case CommandClearAndReset:
		return "clear-reset"
	case CommandForceRecalAndReset:
		return "recal"
	default:
		return "unknown"
	}
}

func parseCommand(s string) (Command, error) {
	switch s {
	case "show-cal":
		return CommandShowCalibration, nil
	case "reset":
		return CommandSoftReset, nil
	case "clear-reset":
		return CommandClearAndReset, nil
	case "recal":
		return CommandForceRecalAndReset, nil
	}
	return 0, fmt.Errorf("unknown command %q", s)
}
