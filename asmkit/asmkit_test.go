package asmkit

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"
)

func TestRIPRelativeTarget_NegativeDisp(t *testing.T) {
	// mov rax, qword ptr [rip-0x10]
	code := []byte{0x48, 0x8b, 0x05, 0xf0, 0xff, 0xff, 0xff}

	ref, err := RIPRelativeTarget(code, 0x1000)
	require.NoError(t, err)

	assert.Equal(t, int64(-0x10), ref.Disp)
	assert.Equal(t, uint64(0x1000+7-0x10), ref.Target)
	assert.Equal(t, 0, ref.Inst.Index)
}

func TestRIPRelativeTarget_None(t *testing.T) {
	// xchg eax, ecx; mov edx, dword ptr [rbx+0x14]
	_, err := RIPRelativeTarget([]byte{0x91, 0x8b, 0x53, 0x14}, 0x1000)
	assert.Error(t, err)
}

func TestRIPRelativeTarget_Truncated(t *testing.T) {
	_, err := RIPRelativeTarget([]byte{0x48, 0x8b, 0x05, 0x00}, 0x1000)
	assert.ErrorIs(t, err, x86asm.ErrTruncated)
}

func TestDisassembler_AllWrapsErrors(t *testing.T) {
	disass, err := NewDisassembler(DisassemblerConfig{Bits: 64})
	require.NoError(t, err)

	// nop; truncated mov
	err = disass.All([]byte{0x90, 0x48, 0x8b}, func(Inst) error { return nil })
	assert.ErrorIs(t, err, x86asm.ErrTruncated)
	assert.ErrorContains(t, err, "offset 1")

	errStop := errors.New("stop")
	err = disass.All([]byte{0x90}, func(Inst) error { return errStop })
	assert.ErrorIs(t, err, errStop)
}

func TestNewDisassembler_Errors(t *testing.T) {
	_, err := NewDisassembler(DisassemblerConfig{Bits: 12})
	assert.Error(t, err)

	_, err = NewDisassembler(DisassemblerConfig{Bits: 64, Syntax: "bogus"})
	assert.Error(t, err)
}

func TestDisassembler_Next(t *testing.T) {
	disass, err := NewDisassembler(DisassemblerConfig{Bits: 64, PC: 0x2000})
	require.NoError(t, err)

	inst, err := disass.Next([]byte{0x91, 0x90})
	require.NoError(t, err)

	assert.Equal(t, 1, inst.Len)
	assert.Equal(t, uint64(0x2000), inst.PC)
	assert.Equal(t, []byte{0x91}, inst.Bin)
	assert.Empty(t, inst.Dis)
}
