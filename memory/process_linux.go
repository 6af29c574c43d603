//go:build linux

package memory

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Self returns a View of the current process' address space.
func Self() *Process {
	return &Process{
		pid: os.Getpid(),
	}
}

// Process is a View of the current process' address space.
//
// Reads are performed with process_vm_readv, which reports unmapped or
// protected memory as an error instead of raising SIGSEGV.
type Process struct {
	pid int
}

func (o *Process) ReadAt(p []byte, addr uint64) error {
	if len(p) == 0 {
		return nil
	}

	local := []unix.Iovec{{Base: &p[0]}}
	local[0].SetLen(len(p))

	remote := []unix.RemoteIovec{{
		Base: uintptr(addr),
		Len:  len(p),
	}}

	n, err := unix.ProcessVMReadv(o.pid, local, remote, 0)
	if err != nil {
		return &ReadError{
			Addr: addr,
			Size: len(p),
			Err:  err,
		}
	}

	if n != len(p) {
		return &ReadError{
			Addr: addr,
			Size: len(p),
			Err:  io.ErrUnexpectedEOF,
		}
	}

	return nil
}
