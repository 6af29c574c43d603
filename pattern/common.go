package pattern

import (
	"log"

	"github.com/pkg/errors"
)

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}

	// ErrPatternNotFound indicates that a signature does not occur
	// in the searched memory. Scanner itself reports absence with
	// a boolean; callers that treat absence as a failure wrap
	// this error.
	ErrPatternNotFound = errors.New("pattern not found")
)
