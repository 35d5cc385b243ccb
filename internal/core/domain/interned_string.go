package domain

import (
	"strings"
	"unique"
)

// InternedString is a canonicalized task or mode name. Equal names share one
// handle, so comparing two InternedStrings is a pointer comparison.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// NewInternedStrings interns every element of names, keeping their order.
func NewInternedStrings(names []string) []InternedString {
	out := make([]InternedString, 0, len(names))
	for _, name := range names {
		out = append(out, NewInternedString(name))
	}
	return out
}

// IsZero reports whether the name was never set.
func (s InternedString) IsZero() bool {
	return s == InternedString{}
}

func (s InternedString) String() string {
	if s.IsZero() {
		return ""
	}
	return s.h.Value()
}

// Compare orders names lexically. The zero value sorts first.
func (s InternedString) Compare(other InternedString) int {
	return strings.Compare(s.String(), other.String())
}

// MarshalText implements encoding.TextMarshaler.
func (s InternedString) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to the
// zero value.
func (s *InternedString) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = InternedString{}
		return nil
	}
	*s = NewInternedString(string(text))
	return nil
}
