package dumper

import (
	"github.com/pkg/errors"

	"gitlab.com/stephen-fox/memwalk/asmkit"
	"gitlab.com/stephen-fox/memwalk/memory"
	"gitlab.com/stephen-fox/memwalk/profile"
)

// ErrRootMismatch is returned by ResolveRoot when the target decoded
// from the matched instruction differs from the target computed
// with the profile's offsets.
var ErrRootMismatch = errors.New("decoded instruction target does not match profile offsets")

// Root describes how the first class descriptor was found.
type Root struct {
	// Match is the address of the signature match.
	Match uint64

	// Disp is the signed displacement read from the match.
	Disp int32

	// Target is the address the displacement refers to.
	Target uint64

	// Descriptor is the address of the first class descriptor.
	Descriptor uint64

	// Instruction is the disassembly of the instruction containing
	// the displacement. It is only set if the profile enables
	// verification.
	Instruction string
}

// ResolveRoot computes the address of the first class descriptor from
// a signature match.
//
// The signed 32-bit displacement at match+p.DispOffset is added to the
// end of its instruction (match+p.InstrEnd). The resulting address is
// then dereferenced p.Derefs times. Every pointer in the chain must be
// non-null.
func ResolveRoot(view memory.View, match uint64, p profile.Profile) (Root, error) {
	reader := memory.NewReader(view, memory.PointerMakerForX86_64())

	disp, err := reader.Int32(match + uint64(p.DispOffset))
	if err != nil {
		return Root{}, errors.Wrap(err, "failed to read displacement")
	}

	root := Root{
		Match:  match,
		Disp:   disp,
		Target: uint64(int64(match) + p.InstrEnd + int64(disp)),
	}

	if p.Verify {
		code, err := reader.Bytes(match, int(p.InstrEnd))
		if err != nil {
			return Root{}, errors.Wrap(err, "failed to read instructions for verification")
		}

		ref, err := asmkit.RIPRelativeTarget(code, match)
		if err != nil {
			return Root{}, errors.Wrap(err, "failed to decode matched instructions")
		}

		root.Instruction = ref.Inst.Dis

		if ref.Target != root.Target {
			return Root{}, errors.Wrapf(ErrRootMismatch, "%q refers to 0x%x, expected 0x%x",
				ref.Inst.Dis, ref.Target, root.Target)
		}
	}

	if p.Derefs == 0 {
		root.Descriptor = root.Target
		return root, nil
	}

	ptr, err := reader.Deref(root.Target, make([]int64, p.Derefs)...)
	if err != nil {
		return Root{}, errors.Wrapf(err, "failed to dereference target 0x%x", root.Target)
	}

	root.Descriptor = ptr.Uint64()

	return root, nil
}
