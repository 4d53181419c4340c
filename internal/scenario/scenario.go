// Package scenario holds the compiled workflows virtual users execute and
// the registry that maps workload names to them.
package scenario

import (
	"fmt"

	"authload/internal/runner"
)

const (
	password   = "password123"
	emailSpace = 1_000_000
)

// CheckRecorder records named boolean assertions.
type CheckRecorder interface {
	RecordCheck(name string, passed bool)
}

// check records the assertion and returns its outcome.
func check(rec CheckRecorder, name string, ok bool) bool {
	rec.RecordCheck(name, ok)
	return ok
}

// email derives an address from the VU identity and a draw from its own
// random source, e.g. loaduser_7_482913@example.test.
func email(prefix string, vu *runner.VU) string {
	return fmt.Sprintf("%s_%d_%d@example.test", prefix, vu.ID, vu.Rand.Intn(emailSpace))
}

func oneOf(status int, accepted ...int) bool {
	for _, s := range accepted {
		if status == s {
			return true
		}
	}
	return false
}
