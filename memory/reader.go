package memory

import (
	"bytes"

	"github.com/pkg/errors"
)

const cStringChunkSize = 64

// NewReader returns a Reader for view on a platform described by pm.
func NewReader(view View, pm PointerMaker) Reader {
	return Reader{
		view: view,
		pm:   pm,
	}
}

// Reader reads typed values from a View.
type Reader struct {
	view View
	pm   PointerMaker
}

// View returns the underlying View.
func (o Reader) View() View {
	return o.view
}

// PointerMaker returns the PointerMaker used to decode pointers.
func (o Reader) PointerMaker() PointerMaker {
	return o.pm
}

// Bytes returns a copy of size bytes starting at addr.
func (o Reader) Bytes(addr uint64, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Errorf("size cannot be negative (%d)", size)
	}

	b := make([]byte, size)

	err := o.view.ReadAt(b, addr)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (o Reader) Uint32(addr uint64) (uint32, error) {
	b, err := o.Bytes(addr, 4)
	if err != nil {
		return 0, err
	}

	return o.pm.byteOrder.Uint32(b), nil
}

func (o Reader) Int32(addr uint64) (int32, error) {
	v, err := o.Uint32(addr)
	return int32(v), err
}

func (o Reader) Uint64(addr uint64) (uint64, error) {
	b, err := o.Bytes(addr, 8)
	if err != nil {
		return 0, err
	}

	return o.pm.byteOrder.Uint64(b), nil
}

func (o Reader) Uint8(addr uint64) (uint8, error) {
	b, err := o.Bytes(addr, 1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Pointer reads a pointer-sized value at addr.
func (o Reader) Pointer(addr uint64) (Pointer, error) {
	b, err := o.Bytes(addr, o.pm.ptrSize)
	if err != nil {
		return Pointer{}, err
	}

	return o.pm.FromRawBytes(b)
}

// Deref follows a chain of pointers starting at addr. Each element
// of offsets is added to the current address before it is
// dereferenced. A null pointer anywhere in the chain is an error.
func (o Reader) Deref(addr uint64, offsets ...int64) (Pointer, error) {
	current := o.pm.FromUint(addr)

	for i, offset := range offsets {
		next, err := o.Pointer(current.Offset(offset).Uint64())
		if err != nil {
			return Pointer{}, errors.Wrapf(err, "failed to dereference step %d (%s%+#x)",
				i, current, offset)
		}

		if next.IsNull() {
			return Pointer{}, errors.Errorf("null pointer at step %d (%s%+#x)",
				i, current, offset)
		}

		current = next
	}

	return current, nil
}

// CString reads a NUL-terminated string of at most maxLen bytes
// (excluding the terminator) starting at addr.
//
// The string is read in small chunks so that a string near the end
// of a mapping can still be read. If no terminator is found within
// maxLen bytes, the first maxLen bytes are returned along with an error.
func (o Reader) CString(addr uint64, maxLen int) (string, error) {
	if maxLen <= 0 {
		return "", errors.Errorf("maximum string length must be greater than zero - got %d", maxLen)
	}

	buf := bytes.NewBuffer(nil)
	chunk := make([]byte, cStringChunkSize)

	for buf.Len() < maxLen {
		want := cStringChunkSize
		if remaining := maxLen - buf.Len(); remaining < want {
			want = remaining
		}

		at := addr + uint64(buf.Len())

		err := o.view.ReadAt(chunk[:want], at)
		if err != nil {
			// The string may end right before an unmapped page.
			// Fall back to reading one byte at a time.
			terminated, err := o.readCStringBytewise(buf, at, want)
			if err != nil {
				return "", err
			}

			if terminated {
				return buf.String(), nil
			}

			continue
		}

		if i := bytes.IndexByte(chunk[:want], 0); i > -1 {
			buf.Write(chunk[:i])
			return buf.String(), nil
		}

		buf.Write(chunk[:want])
	}

	return buf.String(), errors.Errorf("string at 0x%x is not terminated within %d bytes",
		addr, maxLen)
}

func (o Reader) readCStringBytewise(buf *bytes.Buffer, addr uint64, max int) (bool, error) {
	b := make([]byte, 1)

	for i := 0; i < max; i++ {
		err := o.view.ReadAt(b, addr+uint64(i))
		if err != nil {
			return false, err
		}

		if b[0] == 0 {
			return true, nil
		}

		buf.WriteByte(b[0])
	}

	return false, nil
}
