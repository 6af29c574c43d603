package bstruct

import (
	"encoding/binary"
	"fmt"

	"gitlab.com/stephen-fox/memwalk/memory"
)

// NewImageX86_64 returns an empty little-endian Image with 8-byte
// pointers that starts at base.
func NewImageX86_64(base uint64) *Image {
	return NewImage(base, binary.LittleEndian, 8)
}

// NewImage returns an empty Image starting at base.
func NewImage(base uint64, bo binary.ByteOrder, ptrSize int) *Image {
	return &Image{
		base:    base,
		bo:      bo,
		ptrSize: ptrSize,
	}
}

// Image is a growable block of memory that records are written into
// at fixed addresses. It implements memory.View, so the records can
// be decoded as if they were foreign memory.
//
// Write methods panic if the destination lies outside of the image.
type Image struct {
	base    uint64
	bo      binary.ByteOrder
	ptrSize int
	data    []byte
	holes   []memory.ReadError
}

// Base returns the address of the first byte of the image.
func (o *Image) Base() uint64 {
	return o.base
}

// End returns the address one past the last allocated byte.
func (o *Image) End() uint64 {
	return o.base + uint64(len(o.data))
}

// PointerSize returns the size of pointers written by PutPointer.
func (o *Image) PointerSize() int {
	return o.ptrSize
}

// Bytes returns the image contents. Holes read as zeros.
func (o *Image) Bytes() []byte {
	return o.data
}

// Alloc reserves size zeroed bytes aligned to the pointer size and
// returns their address.
func (o *Image) Alloc(size int) uint64 {
	if rem := len(o.data) % o.ptrSize; rem != 0 {
		o.data = append(o.data, make([]byte, o.ptrSize-rem)...)
	}

	addr := o.End()

	o.data = append(o.data, make([]byte, size)...)

	return addr
}

// Hole reserves size bytes that cannot be read through ReadAt.
func (o *Image) Hole(size int) uint64 {
	addr := o.Alloc(size)

	o.holes = append(o.holes, memory.ReadError{
		Addr: addr,
		Size: size,
	})

	return addr
}

func (o *Image) Write(addr uint64, b []byte) {
	if addr < o.base || addr+uint64(len(b)) > o.End() || addr+uint64(len(b)) < addr {
		panic(fmt.Sprintf("bstruct: write of %d bytes at 0x%x is outside of image [0x%x, 0x%x)",
			len(b), addr, o.base, o.End()))
	}

	copy(o.data[addr-o.base:], b)
}

func (o *Image) PutUint8(addr uint64, v uint8) {
	o.Write(addr, []byte{v})
}

func (o *Image) PutUint32(addr uint64, v uint32) {
	o.Write(addr, appendUint32(nil, o.bo, v))
}

func (o *Image) PutInt32(addr uint64, v int32) {
	o.PutUint32(addr, uint32(v))
}

func (o *Image) PutUint64(addr uint64, v uint64) {
	o.Write(addr, appendUint64(nil, o.bo, v))
}

// PutPointer writes ptr using the image's pointer size.
func (o *Image) PutPointer(addr uint64, ptr uint64) {
	switch o.ptrSize {
	case 4:
		o.PutUint32(addr, uint32(ptr))
	case 8:
		o.PutUint64(addr, ptr)
	default:
		panic(fmt.Sprintf("bstruct: unsupported pointer size %d", o.ptrSize))
	}
}

// CString allocates a NUL-terminated copy of s and returns its address.
func (o *Image) CString(s string) uint64 {
	addr := o.Alloc(len(s) + 1)

	o.Write(addr, []byte(s))

	return addr
}

// Struct allocates space for s, encodes it with StructToBytes and
// returns its address.
func (o *Image) Struct(s interface{}) (uint64, error) {
	b, err := StructToBytes(s, o.bo, nil)
	if err != nil {
		return 0, err
	}

	addr := o.Alloc(len(b))

	o.Write(addr, b)

	return addr, nil
}

// PutStruct encodes s with StructToBytes at addr.
func (o *Image) PutStruct(addr uint64, s interface{}) error {
	b, err := StructToBytes(s, o.bo, nil)
	if err != nil {
		return err
	}

	o.Write(addr, b)

	return nil
}

func (o *Image) ReadAt(p []byte, addr uint64) error {
	end := addr + uint64(len(p))

	if addr < o.base || end > o.End() || end < addr {
		return &memory.ReadError{
			Addr: addr,
			Size: len(p),
		}
	}

	for _, hole := range o.holes {
		if addr < hole.Addr+uint64(hole.Size) && hole.Addr < end {
			return &memory.ReadError{
				Addr: addr,
				Size: len(p),
			}
		}
	}

	copy(p, o.data[addr-o.base:])

	return nil
}
