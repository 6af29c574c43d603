// Package memory provides read-only access to foreign memory.
//
// Foreign memory is memory the caller does not own: the static data and
// heap of a shared object loaded into the current process, or a synthetic
// image used for testing. All access goes through the View interface, whose
// implementations check every read before touching the underlying bytes.
// Callers never dereference raw addresses themselves.
//
// # Views
//
// Buffer wraps a []byte and pretends it is mapped at a chosen base address.
// It is useful for building synthetic structures and for replaying dumps.
//
// Process reads the live address space of the current process with the
// process_vm_readv system call. Unlike a raw pointer dereference, a read of
// unmapped memory fails with an error wrapping ErrUnreadable rather than
// crashing the process.
//
// # Reading typed values
//
// Reader layers typed reads (integers, pointers, C strings) on top of a View
// using a PointerMaker, which describes the target's byte order and pointer
// width.
package memory
