package memory

import (
	"fmt"
	"log"

	"github.com/pkg/errors"
)

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}

	// ErrUnreadable is matched (using errors.Is) by every error
	// returned when a View cannot supply the requested bytes.
	ErrUnreadable = errors.New("memory is not readable")
)

// View is a read-only window onto foreign memory.
type View interface {
	// ReadAt fills p with the bytes starting at addr. If any byte
	// in the range is not readable, ReadAt returns an error that
	// wraps ErrUnreadable and the contents of p are unspecified.
	ReadAt(p []byte, addr uint64) error
}

// ReadError describes a failed read of foreign memory.
type ReadError struct {
	Addr uint64
	Size int
	Err  error
}

func (o *ReadError) Error() string {
	if o.Err == nil {
		return fmt.Sprintf("failed to read %d bytes at 0x%x - address is not mapped", o.Size, o.Addr)
	}

	return fmt.Sprintf("failed to read %d bytes at 0x%x - %s", o.Size, o.Addr, o.Err)
}

func (o *ReadError) Unwrap() error {
	return o.Err
}

// Is reports whether target is ErrUnreadable.
func (o *ReadError) Is(target error) bool {
	return target == ErrUnreadable
}
