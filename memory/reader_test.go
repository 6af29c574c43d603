package memory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Integers(t *testing.T) {
	image := []byte{
		0x78, 0x56, 0x34, 0x12,
		0xfe, 0xff, 0xff, 0xff,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}

	r := NewReader(NewBuffer(0x100, image), PointerMakerForX86_64())

	u32, err := r.Uint32(0x100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	i32, err := r.Int32(0x104)
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)

	u64, err := r.Uint64(0x108)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	u8, err := r.Uint8(0x10f)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), u8)

	_, err = r.Uint64(0x10c)
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestReader_CString(t *testing.T) {
	image := make([]byte, 0x100)
	copy(image[0x10:], "m_iHealth\x00")
	copy(image[0xf8:], "tailtail") // Not terminated before the end.

	r := NewReader(NewBuffer(0x4000, image), PointerMakerForX86_64())

	str, err := r.CString(0x4010, 256)
	require.NoError(t, err)
	assert.Equal(t, "m_iHealth", str)

	str, err = r.CString(0x4010, 4)
	require.Error(t, err)
	assert.Equal(t, "m_iH", str)

	_, err = r.CString(0x40f8, 256)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestReader_CString_NearEndOfView(t *testing.T) {
	image := make([]byte, 0x20)
	copy(image[0x18:], "abc\x00")

	r := NewReader(NewBuffer(0, image), PointerMakerForX86_64())

	// The first 64-byte chunk runs past the end of the view.
	str, err := r.CString(0x18, 256)
	require.NoError(t, err)
	assert.Equal(t, "abc", str)
}

func TestReader_Deref_Null(t *testing.T) {
	pm := PointerMakerForX86_64()
	image := make([]byte, 0x20)
	copy(image, pm.FromUint(0x10).Bytes())

	r := NewReader(NewBuffer(0, image), pm)

	_, err := r.Deref(0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null pointer at step 1")
}
