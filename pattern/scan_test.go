package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/stephen-fox/memwalk/memory"
)

// holeyView is a memory.Buffer with unreadable pages.
type holeyView struct {
	*memory.Buffer
	pageSize uint64
	holes    map[uint64]bool
}

func (o *holeyView) ReadAt(p []byte, addr uint64) error {
	for page := addr - addr%o.pageSize; page < addr+uint64(len(p)); page += o.pageSize {
		if o.holes[page] {
			return &memory.ReadError{Addr: addr, Size: len(p)}
		}
	}

	return o.Buffer.ReadAt(p, addr)
}

func TestFindIn_Examples(t *testing.T) {
	p := ParseOrExit("AA BB ? ? CC")

	view := memory.NewBuffer(0x7000, []byte{0xAA, 0xBB, 0x01, 0x02, 0xCC, 0xDD})
	addr, ok, err := FindIn(view, Range{Base: 0x7000, Size: 6}, p)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0x7000), addr)

	view = memory.NewBuffer(0x7000, []byte{0xAA, 0xBB, 0x01, 0x02, 0xCE})
	_, ok, err = FindIn(view, Range{Base: 0x7000, Size: 5}, p)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScanner_MatchAcrossChunkBoundary(t *testing.T) {
	data := make([]byte, 64)
	copy(data[14:], []byte{0xde, 0xad, 0xbe, 0xef})

	s := Scanner{
		View:      memory.NewBuffer(0x1000, data),
		ChunkSize: 16,
	}

	addr, ok, err := s.Find(Range{Base: 0x1000, Size: 64}, ParseOrExit("DE AD ? EF"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0x100e), addr)
}

func TestScanner_FirstMatchWins(t *testing.T) {
	data := make([]byte, 256)
	copy(data[40:], []byte{0x11, 0x22})
	copy(data[200:], []byte{0x11, 0x22})

	s := Scanner{
		View:      memory.NewBuffer(0, data),
		ChunkSize: 32,
	}

	addr, ok, err := s.Find(Range{Base: 0, Size: 256}, ParseOrExit("11 22"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(40), addr)
}

func TestScanner_RangeLimitsSearch(t *testing.T) {
	data := make([]byte, 32)
	copy(data[20:], []byte{0x11, 0x22})

	s := Scanner{View: memory.NewBuffer(0, data)}

	_, ok, err := s.Find(Range{Base: 0, Size: 21}, ParseOrExit("11 22"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScanner_SkipsUnreadablePages(t *testing.T) {
	const pageSize = 16

	data := make([]byte, 4*pageSize)
	// Straddles page 1 (unreadable) and page 2. Must not match.
	copy(data[pageSize*2-1:], []byte{0x11, 0x22, 0x33})
	// Entirely inside page 3.
	copy(data[pageSize*3+4:], []byte{0x11, 0x22, 0x33})

	view := &holeyView{
		Buffer:   memory.NewBuffer(0, data),
		pageSize: pageSize,
		holes:    map[uint64]bool{pageSize: true},
	}

	s := Scanner{
		View:      view,
		ChunkSize: 2 * pageSize,
		PageSize:  pageSize,
	}

	addr, ok, err := s.Find(Range{Base: 0, Size: uint64(len(data))}, ParseOrExit("11 22 33"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(pageSize*3+4), addr)
}

func TestScanner_Errors(t *testing.T) {
	_, _, err := (&Scanner{}).Find(Range{Size: 1}, ParseOrExit("00"))
	assert.Error(t, err)

	s := Scanner{View: memory.NewBuffer(0, []byte{0})}
	_, _, err = s.Find(Range{Size: 1}, Pattern{})
	assert.Error(t, err)
}
