package dumper

import (
	"github.com/pkg/errors"

	"gitlab.com/stephen-fox/memwalk/bstruct"
	"gitlab.com/stephen-fox/memwalk/classinfo"
	"gitlab.com/stephen-fox/memwalk/modules"
	"gitlab.com/stephen-fox/memwalk/profile"
)

const (
	DemoBase       = 0x10000000
	demoModulePath = "/opt/memwalk/demo/libdemo_client.so"
	demoPageSize   = 0x1000
)

// movRIPSequence is the code that the built-in profile's signature
// matches: xchg eax, ecx; mov rax, [rip+Disp]; mov edx, [rbx+0x14].
type movRIPSequence struct {
	Xchg   uint8
	REX    uint8
	Opcode uint8
	ModRM  uint8
	Disp   int32
	Tail   [3]byte
}

// Demo is a synthetic module containing a class list and the code
// that refers to it.
type Demo struct {
	Image   *bstruct.Image
	Module  modules.Module
	Profile profile.Profile
}

// Dumper returns a Dumper that reads the demo image instead of the
// current process.
func (o *Demo) Dumper() *Dumper {
	return &Dumper{
		Profile: o.Profile,
		OptView: o.Image,
		OptModules: func() ([]modules.Module, error) {
			return []modules.Module{o.Module}, nil
		},
	}
}

// NewDemo builds a Demo at DemoBase laid out like the built-in
// profile's target.
func NewDemo() (*Demo, error) {
	img := bstruct.NewImageX86_64(DemoBase)
	b := classinfo.NewBuilder(img, classinfo.DefaultLayout())

	code, err := img.Struct(movRIPSequence{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate code")
	}

	headSlot := img.Alloc(img.PointerSize())
	headPtrSlot := img.Alloc(img.PointerSize())

	local := b.Table("DT_Local",
		classinfo.PropSpec{Name: "m_nTickBase", Type: classinfo.PropInt, Offset: 0x3430},
		classinfo.PropSpec{Name: "m_aimPunchAngle", Type: classinfo.PropVector, Offset: 0x70},
		classinfo.PropSpec{Name: "m_flFallVelocity", Type: classinfo.PropFloat, Offset: 0x64})

	basePlayer := b.Table("DT_BasePlayer",
		classinfo.PropSpec{Name: "m_Local", Type: classinfo.PropDataTable, Offset: 0x36f0, Child: local},
		classinfo.PropSpec{Name: "m_iHealth", Type: classinfo.PropInt, Offset: 0x138},
		classinfo.PropSpec{Name: "m_szLastPlaceName", Type: classinfo.PropString, Offset: 0x35b4})

	csPlayer := b.Table("DT_CSPlayer",
		classinfo.PropSpec{Name: "baseclass", Type: classinfo.PropDataTable, Child: basePlayer},
		classinfo.PropSpec{Name: "m_iAccount", Type: classinfo.PropInt, Offset: 0xb354},
		classinfo.PropSpec{Name: "m_hMyWeapons", Type: classinfo.PropArray, Offset: 0x2e08, Elements: 64, Stride: 4},
		classinfo.PropSpec{Name: "m_iMatchStats_Kills", Type: classinfo.PropArray, Offset: 0xa848, Elements: 30, Stride: 4})

	ak47 := b.Table("DT_WeaponAK47",
		classinfo.PropSpec{Name: "m_iClip1", Type: classinfo.PropInt, Offset: 0x3264},
		classinfo.PropSpec{Name: "m_OriginalOwnerXuidLow", Type: classinfo.PropInt64, Offset: 0x31b0})

	world := b.Table("DT_WORLD",
		classinfo.PropSpec{Name: "m_flWaveHeight", Type: classinfo.PropFloat, Offset: 0xa0},
		classinfo.PropSpec{Name: "m_WorldMins", Type: classinfo.PropVector, Offset: 0xa4})

	head := b.List(
		b.Class("CCSPlayer", 40, csPlayer),
		b.Class("CAK47", 1, ak47),
		b.Class("CWorld", 275, world),
		b.Class("CEnvTonemapController", 69, 0))

	img.PutPointer(headSlot, head)
	img.PutPointer(headPtrSlot, headSlot)

	p := profile.CSGOClientProfile()
	p.Name = "demo"
	p.Library = ""
	p.Module = "libdemo_client.so"

	err = img.PutStruct(code, movRIPSequence{
		Xchg:   0x91,
		REX:    0x48,
		Opcode: 0x8b,
		ModRM:  0x05,
		Disp:   int32(int64(headPtrSlot) - int64(code) - p.InstrEnd),
		Tail:   [3]byte{0x8b, 0x53, 0x14},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to write code")
	}

	img.Alloc(0)
	if rem := (img.End() - img.Base()) % demoPageSize; rem != 0 {
		img.Alloc(int(demoPageSize - rem))
	}

	return &Demo{
		Image: img,
		Module: modules.Module{
			Base: img.Base(),
			Size: img.End() - img.Base(),
			Name: demoModulePath,
			Path: demoModulePath,
		},
		Profile: p,
	}, nil
}
