// Package build holds build-time information.
package build

import "fmt"

// Version, Commit and Date describe the build.
// They default to development values and can be overwritten by linker flags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Summary returns the one line version banner.
func Summary() string {
	return fmt.Sprintf("memo version %s (commit: %s, date: %s)", Version, Commit, Date)
}
