package memory

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// PointerMakerForX86_32 returns a PointerMaker for 32-bit x86.
func PointerMakerForX86_32() PointerMaker {
	return PointerMaker{
		byteOrder: binary.LittleEndian,
		ptrSize:   4,
	}
}

// PointerMakerForX86_64 returns a PointerMaker for x86-64.
func PointerMakerForX86_64() PointerMaker {
	return PointerMaker{
		byteOrder: binary.LittleEndian,
		ptrSize:   8,
	}
}

func PointerMakerForOrExit(endianness binary.ByteOrder, pointerSize int) PointerMaker {
	pm, err := PointerMakerFor(endianness, pointerSize)
	if err != nil {
		DefaultExitFn(errors.Wrap(err, "failed to create pointer maker"))
	}
	return pm
}

// PointerMakerFor returns a PointerMaker for a platform with the
// specified byte order and pointer size in bytes (4 or 8).
func PointerMakerFor(endianness binary.ByteOrder, pointerSize int) (PointerMaker, error) {
	if endianness == nil {
		return PointerMaker{}, errors.New("endianness cannot be nil")
	}

	switch pointerSize {
	case 4, 8:
	default:
		return PointerMaker{}, errors.Errorf("unsupported pointer size: %d", pointerSize)
	}

	return PointerMaker{
		byteOrder: endianness,
		ptrSize:   pointerSize,
	}, nil
}

// PointerMaker creates Pointer values for a particular platform.
//
// The zero value is not usable; use one of the PointerMakerFor
// functions instead.
type PointerMaker struct {
	byteOrder binary.ByteOrder
	ptrSize   int
}

// Size returns the size of a pointer in bytes.
func (o PointerMaker) Size() int {
	return o.ptrSize
}

// ByteOrder returns the platform's byte order.
func (o PointerMaker) ByteOrder() binary.ByteOrder {
	return o.byteOrder
}

// FromUint returns a Pointer to address. Addresses wider than the
// platform's pointer are truncated.
func (o PointerMaker) FromUint(address uint64) Pointer {
	if o.ptrSize == 4 {
		address = uint64(uint32(address))
	}

	return Pointer{
		address: address,
		maker:   o,
	}
}

// FromRawBytes decodes a Pointer from its in-memory representation.
func (o PointerMaker) FromRawBytes(raw []byte) (Pointer, error) {
	if len(raw) != o.ptrSize {
		return Pointer{}, errors.Errorf("raw pointer must be %d bytes - got %d",
			o.ptrSize, len(raw))
	}

	var address uint64
	switch o.ptrSize {
	case 4:
		address = uint64(o.byteOrder.Uint32(raw))
	case 8:
		address = o.byteOrder.Uint64(raw)
	default:
		return Pointer{}, errors.Errorf("unsupported pointer size: %d", o.ptrSize)
	}

	return o.FromUint(address), nil
}

// NullPtr returns a Pointer to address zero.
func (o PointerMaker) NullPtr() Pointer {
	return o.FromUint(0)
}

// Pointer is an address in foreign memory along with the
// platform details needed to encode it.
type Pointer struct {
	address uint64
	maker   PointerMaker
}

// Uint64 returns the pointer's address.
func (o Pointer) Uint64() uint64 {
	return o.address
}

// IsNull returns true if the pointer's address is zero.
func (o Pointer) IsNull() bool {
	return o.address == 0
}

// Offset returns a new Pointer adjusted by the signed offset.
func (o Pointer) Offset(offset int64) Pointer {
	return o.maker.FromUint(uint64(int64(o.address) + offset))
}

// Bytes returns the pointer's in-memory representation.
func (o Pointer) Bytes() []byte {
	out := make([]byte, o.maker.ptrSize)

	switch o.maker.ptrSize {
	case 4:
		o.maker.byteOrder.PutUint32(out, uint32(o.address))
	case 8:
		o.maker.byteOrder.PutUint64(out, o.address)
	}

	return out
}

// HexString returns the address formatted as fixed-width hex,
// prefixed with "0x".
func (o Pointer) HexString() string {
	return fmt.Sprintf("0x%0*x", o.maker.ptrSize*2, o.address)
}

func (o Pointer) String() string {
	return o.HexString()
}
