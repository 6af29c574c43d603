// Package loader loads shared objects into the current process.
package loader

import (
	"log"
)

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}
)

func OpenOrExit(path string) *Library {
	lib, err := Open(path)
	if err != nil {
		DefaultExitFn(err)
	}

	return lib
}
