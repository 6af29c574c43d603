package bstruct

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/stephen-fox/memwalk/memory"
)

type movRIP struct {
	Xchg   uint8
	REX    uint8
	Opcode uint8
	ModRM  uint8
	Disp   int32
	Tail   [3]byte
}

func TestStructToBytes_SignedAndArrays(t *testing.T) {
	b, err := StructToBytes(movRIP{
		Xchg:   0x91,
		REX:    0x48,
		Opcode: 0x8b,
		ModRM:  0x05,
		Disp:   -2,
		Tail:   [3]byte{0x8b, 0x53, 0x14},
	}, binary.LittleEndian, nil)
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0x91, 0x48, 0x8b, 0x05,
		0xfe, 0xff, 0xff, 0xff,
		0x8b, 0x53, 0x14,
	}, b)
}

func TestStructToBytes_Pointer(t *testing.T) {
	type pair struct {
		A uint16
		B uint16
	}

	b, err := StructToBytes(&pair{A: 1, B: 2}, binary.BigEndian, nil)
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 1, 0, 2}, b)
}

func TestStructToBytes_Errors(t *testing.T) {
	_, err := StructToBytes(nil, binary.LittleEndian, nil)
	assert.Error(t, err)

	_, err = StructToBytes(42, binary.LittleEndian, nil)
	assert.Error(t, err)

	type bad struct {
		S string
	}

	_, err = StructToBytes(bad{}, binary.LittleEndian, nil)
	assert.Error(t, err)
}

func TestImage_AllocAligns(t *testing.T) {
	img := NewImageX86_64(0x1000)

	a := img.Alloc(3)
	b := img.Alloc(8)

	assert.Equal(t, uint64(0x1000), a)
	assert.Equal(t, uint64(0x1008), b)
	assert.Equal(t, uint64(0x1010), img.End())
}

func TestImage_ReadAt(t *testing.T) {
	img := NewImageX86_64(0x1000)

	addr := img.Alloc(16)
	img.PutUint64(addr, 0x1122334455667788)
	img.PutUint32(addr+8, 0xaabbccdd)

	reader := memory.NewReader(img, memory.PointerMakerForX86_64())

	v64, err := reader.Uint64(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1122334455667788), v64)

	v32, err := reader.Uint32(addr + 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xaabbccdd), v32)

	_, err = reader.Uint64(addr + 12)
	assert.ErrorIs(t, err, memory.ErrUnreadable)

	_, err = reader.Uint8(0xfff)
	assert.ErrorIs(t, err, memory.ErrUnreadable)
}

func TestImage_Hole(t *testing.T) {
	img := NewImageX86_64(0x1000)

	before := img.Alloc(8)
	hole := img.Hole(16)
	after := img.Alloc(8)

	p := make([]byte, 8)

	assert.NoError(t, img.ReadAt(p, before))
	assert.NoError(t, img.ReadAt(p, after))
	assert.ErrorIs(t, img.ReadAt(p, hole+8), memory.ErrUnreadable)
	assert.ErrorIs(t, img.ReadAt(make([]byte, 16), before+4), memory.ErrUnreadable)
}

func TestImage_Struct(t *testing.T) {
	img := NewImageX86_64(0x4000)

	addr, err := img.Struct(movRIP{Xchg: 0x91, Disp: 0x10})
	require.NoError(t, err)

	b := make([]byte, 11)
	require.NoError(t, img.ReadAt(b, addr))

	assert.Equal(t, byte(0x91), b[0])
	assert.Equal(t, byte(0x10), b[4])
}

func TestImage_WriteOutsidePanics(t *testing.T) {
	img := NewImageX86_64(0x1000)
	img.Alloc(4)

	assert.Panics(t, func() {
		img.PutUint64(0x1000, 1)
	})
}
