// Package output builds the termenv outputs the logger and the renderer write
// through. Every profile honors NO_COLOR.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// DetectedProfile returns the profile termenv detects for the environment.
func DetectedProfile() termenv.Profile {
	return unlessNoColor(termenv.EnvColorProfile())
}

// ANSIProfile returns the 16 color profile used for CI logs.
func ANSIProfile() termenv.Profile {
	return unlessNoColor(termenv.ANSI)
}

// PlainProfile never emits escape codes.
func PlainProfile() termenv.Profile {
	return termenv.Ascii
}

func unlessNoColor(p termenv.Profile) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return p
}

// New returns an output writing to w with the detected profile.
func New(w io.Writer) *termenv.Output {
	return NewWithProfile(w, DetectedProfile)
}

// NewWithProfile returns an output writing to w with the profile chosen by
// profile. A nil w writes to stderr. The output is treated as a terminal so
// the profile alone decides whether colors are emitted.
func NewWithProfile(w io.Writer, profile func() termenv.Profile) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	return termenv.NewOutput(w, termenv.WithProfile(profile()), termenv.WithTTY(true))
}
