package modules

import (
	"debug/elf"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pieProgHeaders() []elf.ProgHeader {
	return []elf.ProgHeader{
		{Type: elf.PT_PHDR, Off: 0x40, Vaddr: 0x40, Memsz: 0x2d8},
		{Type: elf.PT_LOAD, Off: 0x0, Vaddr: 0x0, Filesz: 0x1c38, Memsz: 0x1c38},
		{Type: elf.PT_LOAD, Off: 0x2000, Vaddr: 0x2000, Filesz: 0x4e1, Memsz: 0x4e1},
		{Type: elf.PT_LOAD, Off: 0x2d90, Vaddr: 0x3d90, Filesz: 0x2f0, Memsz: 0x12a78},
		// Not loadable, and would dominate the size if it were counted.
		{Type: elf.PT_GNU_STACK, Vaddr: 0x0, Memsz: 0x100000},
	}
}

func TestFromProgHeaders_SharedObject(t *testing.T) {
	mod, ok := FromProgHeaders(Image{
		Path:      "/opt/game/bin/linux64/client_client.so",
		MapStart:  0x7f0000000000,
		MapOffset: 0,
	}, pieProgHeaders(), 0x1000)
	require.True(t, ok)

	assert.Equal(t, uint64(0x7f0000000000), mod.Base)
	// 0x3d90 + 0x12a78 = 0x16808 -> 0x17000
	assert.Equal(t, uint64(0x17000), mod.Size)
	assert.Equal(t, "/opt/game/bin/linux64/client_client.so", mod.Name)
	assert.False(t, mod.IsMain())
	assert.Equal(t, uint64(0x7f0000017000), mod.End())
}

func TestFromProgHeaders_NonPIEMainExecutable(t *testing.T) {
	progs := []elf.ProgHeader{
		{Type: elf.PT_LOAD, Off: 0x0, Vaddr: 0x400000, Memsz: 0x1234},
		{Type: elf.PT_LOAD, Off: 0x2000, Vaddr: 0x602000, Memsz: 0x100},
	}

	mod, ok := FromProgHeaders(Image{
		Path:     "/usr/bin/game",
		MapStart: 0x400000,
		Main:     true,
	}, progs, 0x1000)
	require.True(t, ok)

	assert.Equal(t, uint64(0), mod.Base)
	assert.Equal(t, uint64(0x603000), mod.Size)
	assert.Equal(t, "", mod.Name)
	assert.Equal(t, "/usr/bin/game", mod.Path)
	assert.True(t, mod.IsMain())
}

func TestFromProgHeaders_LowestMappingNotAtOffsetZero(t *testing.T) {
	progs := []elf.ProgHeader{
		{Type: elf.PT_LOAD, Off: 0x1000, Vaddr: 0x1000, Memsz: 0x800},
	}

	mod, ok := FromProgHeaders(Image{
		Path:      "/lib/libfoo.so",
		MapStart:  0x7f0000001000,
		MapOffset: 0x1000,
	}, progs, 0x1000)
	require.True(t, ok)

	assert.Equal(t, uint64(0x7f0000000000), mod.Base)
	assert.Equal(t, uint64(0x2000), mod.Size)
}

func TestFromProgHeaders_Skipped(t *testing.T) {
	img := Image{Path: "/lib/libfoo.so", MapStart: 0x10000}

	_, ok := FromProgHeaders(img, nil, 0x1000)
	assert.False(t, ok, "no headers")

	_, ok = FromProgHeaders(img, []elf.ProgHeader{{Type: elf.PT_DYNAMIC, Memsz: 0x10}}, 0x1000)
	assert.False(t, ok, "no loadable segments")

	_, ok = FromProgHeaders(img, pieProgHeaders(), 3000)
	assert.False(t, ok, "page size not a power of two")

	_, ok = FromProgHeaders(Image{Path: "/a", MapStart: 0x1000}, []elf.ProgHeader{
		{Type: elf.PT_LOAD, Vaddr: 0x400000, Memsz: 0x10},
	}, 0x1000)
	assert.False(t, ok, "mapped below its own virtual address")
}

func TestFromProgHeaders_SizeIsPageMultiple(t *testing.T) {
	for _, pageSize := range []uint64{0x1000, 0x4000, 0x10000} {
		for memsz := uint64(1); memsz < 0x30000; memsz += 0x1777 {
			mod, ok := FromProgHeaders(Image{Path: "/x", MapStart: 0x7f0000000000}, []elf.ProgHeader{
				{Type: elf.PT_LOAD, Vaddr: 0, Memsz: 0x10},
				{Type: elf.PT_LOAD, Off: 0x1000, Vaddr: 0x1000, Memsz: memsz},
			}, pageSize)
			require.True(t, ok)
			require.Zero(t, mod.Size%pageSize, "page size 0x%x, memsz 0x%x", pageSize, memsz)
			require.GreaterOrEqual(t, mod.Size, 0x1000+memsz)
		}
	}
}

func TestFindBySuffix(t *testing.T) {
	mods := []Module{
		{Base: 0x1000, Size: 0x1000, Path: "/usr/bin/game"},
		{Base: 0x8000, Size: 0x1000, Name: "/game/bin/engine_client.so", Path: "/game/bin/engine_client.so"},
		{Base: 0xa000, Size: 0x1000, Name: "/game/bin/panorama_client.so", Path: "/game/bin/panorama_client.so"},
	}

	mod, err := FindBySuffix(mods, "panorama_client.so")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xa000), mod.Base)

	mod, err = FindBySuffix(mods, "client.so")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000), mod.Base, "first match wins")

	_, err = FindBySuffix(mods, "server.so")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModuleNotFound))

	_, err = FindBySuffix(mods, "")
	require.Error(t, err)
}

func TestModule_Range(t *testing.T) {
	mod := Module{Base: 0x4000, Size: 0x2000}
	r := mod.Range()

	assert.Equal(t, uint64(0x4000), r.Base)
	assert.Equal(t, uint64(0x6000), r.End())
}
