package memory

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_ReadAt(t *testing.T) {
	buf := NewBuffer(0x1000, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	p := make([]byte, 3)
	require.NoError(t, buf.ReadAt(p, 0x1002))
	assert.Equal(t, []byte{2, 3, 4}, p)

	p = make([]byte, 8)
	require.NoError(t, buf.ReadAt(p, 0x1000))
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, p)
}

func TestBuffer_ReadAt_OutOfBounds(t *testing.T) {
	buf := NewBuffer(0x1000, make([]byte, 8))

	tests := []struct {
		name string
		addr uint64
		size int
	}{
		{name: "before base", addr: 0xfff, size: 1},
		{name: "past end", addr: 0x1008, size: 1},
		{name: "straddles end", addr: 0x1006, size: 4},
		{name: "overflows", addr: math.MaxUint64 - 1, size: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buf.ReadAt(make([]byte, tt.size), tt.addr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnreadable))

			var readErr *ReadError
			require.True(t, errors.As(err, &readErr))
			assert.Equal(t, tt.addr, readErr.Addr)
		})
	}
}

func TestBuffer_Bounds(t *testing.T) {
	buf := NewBuffer(0x2000, make([]byte, 0x10))

	assert.Equal(t, uint64(0x2000), buf.Base())
	assert.Equal(t, uint64(0x2010), buf.End())
	assert.Equal(t, 0x10, buf.Len())
}
