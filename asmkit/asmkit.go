// Package asmkit decodes machine code.
package asmkit

import (
	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

const (
	SkipSyntax  DisassemblySyntax = ""
	ATTSyntax   DisassemblySyntax = "att"
	GoSyntax    DisassemblySyntax = "go"
	IntelSyntax DisassemblySyntax = "intel"
)

type DisassemblySyntax string

type DisassemblerConfig struct {
	Syntax DisassemblySyntax
	Bits   int

	// PC is the address of the first instruction. It is used to
	// render PC-relative operands.
	PC uint64
}

func NewDisassembler(config DisassemblerConfig) (*Disassembler, error) {
	switch config.Bits {
	case 16, 32, 64:
	default:
		return nil, errors.Errorf("unsupported x86 mode: %d bits", config.Bits)
	}

	var disassemblyFn func(inst x86asm.Inst, pc uint64) string
	switch config.Syntax {
	case SkipSyntax:
		// Do nothing.
	case ATTSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.GNUSyntax(inst, pc, nil)
		}
	case GoSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.GoSyntax(inst, pc, nil)
		}
	case IntelSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.IntelSyntax(inst, pc, nil)
		}
	default:
		return nil, errors.Errorf("unsupported syntax type for x86: %q", config.Syntax)
	}

	return &Disassembler{
		pc:   config.PC,
		bits: config.Bits,
		fn:   disassemblyFn,
	}, nil
}

type Disassembler struct {
	pc   uint64
	bits int
	fn   func(inst x86asm.Inst, pc uint64) string
}

// All decodes every instruction in rawInstructions, calling
// onDecodeFn for each one.
func (o *Disassembler) All(rawInstructions []byte, onDecodeFn func(Inst) error) error {
	index := 0

	for index < len(rawInstructions) {
		inst, err := o.decode(rawInstructions[index:], index)
		if err != nil {
			return errors.Wrapf(err, "failed to decode instruction at offset %d - remaining data: 0x%x",
				index, rawInstructions[index:])
		}

		err = onDecodeFn(inst)
		if err != nil {
			return errors.Wrapf(err, "on decode function failed for instruction at offset %d (%q)",
				index, inst.Dis)
		}

		index += inst.Len
	}

	return nil
}

// Next decodes the first instruction in rawInstructions.
func (o *Disassembler) Next(rawInstructions []byte) (Inst, error) {
	return o.decode(rawInstructions, 0)
}

func (o *Disassembler) decode(remaining []byte, index int) (Inst, error) {
	x86Inst, err := x86asm.Decode(remaining, o.bits)
	if err != nil {
		return Inst{}, err
	}

	pc := o.pc + uint64(index)

	var disassembly string
	if o.fn != nil {
		disassembly = o.fn(x86Inst, pc)
	}

	return Inst{
		Bin:   copySlice(remaining, x86Inst.Len),
		Len:   x86Inst.Len,
		Index: index,
		PC:    pc,
		Dis:   disassembly,
		Inst:  x86Inst,
	}, nil
}

func copySlice(src []byte, numBytes int) []byte {
	cp := make([]byte, numBytes)

	copy(cp, src[0:numBytes])

	return cp
}

type Inst struct {
	Bin   []byte
	Len   int
	Index int
	PC    uint64
	Dis   string
	Inst  x86asm.Inst
}

// RIPReference is an instruction operand that addresses memory
// relative to the instruction pointer.
type RIPReference struct {
	Inst Inst

	// Disp is the signed displacement encoded in the instruction.
	Disp int64

	// Target is the address the operand refers to.
	Target uint64
}

// RIPRelativeTarget decodes code, which is located at pc, as 64-bit
// x86 and returns the first memory operand that is relative to RIP.
func RIPRelativeTarget(code []byte, pc uint64) (RIPReference, error) {
	disass, err := NewDisassembler(DisassemblerConfig{
		Syntax: IntelSyntax,
		Bits:   64,
		PC:     pc,
	})
	if err != nil {
		return RIPReference{}, err
	}

	var ref RIPReference
	errFound := errors.New("found")

	err = disass.All(code, func(inst Inst) error {
		for _, arg := range inst.Inst.Args {
			mem, ok := arg.(x86asm.Mem)
			if !ok || mem.Base != x86asm.RIP {
				continue
			}

			// x86asm stores disp32 zero-extended.
			disp := int64(int32(mem.Disp))

			ref = RIPReference{
				Inst:   inst,
				Disp:   disp,
				Target: inst.PC + uint64(inst.Len) + uint64(disp),
			}

			return errFound
		}

		return nil
	})
	switch {
	case errors.Is(err, errFound):
		return ref, nil
	case err != nil:
		return RIPReference{}, errors.Wrap(err, "failed to decode instructions")
	default:
		return RIPReference{}, errors.Errorf("no rip-relative memory operand in 0x%x", code)
	}
}
