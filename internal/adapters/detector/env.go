// Package detector selects the output mode from the environment.
package detector

import (
	"os"

	"github.com/muesli/termenv"
	"go.trai.ch/memo/internal/ui/output"
	"golang.org/x/term"
)

// OutputMode represents how run output is rendered.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeInteractive renders for a terminal with the detected color profile.
	ModeInteractive
	// ModeCI renders for log collectors with plain ANSI colors.
	ModeCI
	// ModeQuiet prints step results without step output.
	ModeQuiet
)

// DetectEnvironment returns the recommended output mode based on whether
// stdout is a terminal and whether a CI environment variable is set.
func DetectEnvironment() OutputMode {
	return detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv("CI"))
}

func detect(isTTY bool, ci string) OutputMode {
	if !isTTY || ci == "true" || ci == "1" {
		return ModeCI
	}
	return ModeInteractive
}

// ResolveMode applies the user's --output flag to the detected mode.
// userFlag is one of "auto", "interactive", "ci", "quiet", or empty.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "interactive", "tty":
		return ModeInteractive
	case "ci", "linear":
		return ModeCI
	case "quiet":
		return ModeQuiet
	default:
		return autoDetected
	}
}

// ColorProfile returns the color profile selector for mode.
func ColorProfile(mode OutputMode) func() termenv.Profile {
	if mode == ModeCI {
		return output.ANSIProfile
	}
	return output.DetectedProfile
}

// StreamsStepOutput reports whether step output is shown in mode.
func StreamsStepOutput(mode OutputMode) bool {
	return mode != ModeQuiet
}
