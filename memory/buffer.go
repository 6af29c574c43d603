package memory

// NewBuffer returns a View over data, which is treated as if it were
// mapped at base. The slice is not copied.
func NewBuffer(base uint64, data []byte) *Buffer {
	return &Buffer{
		base: base,
		data: data,
	}
}

// Buffer is a View backed by a []byte.
type Buffer struct {
	base uint64
	data []byte
}

// Base returns the address of the first byte of the buffer.
func (o *Buffer) Base() uint64 {
	return o.base
}

// Len returns the number of bytes in the buffer.
func (o *Buffer) Len() int {
	return len(o.data)
}

// End returns the address one past the last byte of the buffer.
func (o *Buffer) End() uint64 {
	return o.base + uint64(len(o.data))
}

func (o *Buffer) ReadAt(p []byte, addr uint64) error {
	if !o.contains(addr, len(p)) {
		return &ReadError{
			Addr: addr,
			Size: len(p),
		}
	}

	start := addr - o.base
	copy(p, o.data[start:start+uint64(len(p))])

	return nil
}

func (o *Buffer) contains(addr uint64, size int) bool {
	if addr < o.base {
		return false
	}

	end := addr + uint64(size)
	if end < addr {
		// Overflow.
		return false
	}

	return end <= o.End()
}
