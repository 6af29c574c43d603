package classinfo

import (
	"github.com/samber/lo"

	"gitlab.com/stephen-fox/memwalk/bstruct"
)

// PropSpec describes a property written by a Builder.
type PropSpec struct {
	Name   string
	Type   PropType
	Flags  int32
	Offset int32

	// Child is the address of a table returned by Builder.Table.
	Child uint64

	Elements int32
	Stride   int32
}

// Builder writes class lists into a bstruct.Image using a Layout.
// The resulting image can be walked like a loaded module.
type Builder struct {
	img    *bstruct.Image
	layout Layout
	props  map[uint64]uint64
}

// NewBuilder returns a Builder that writes into img.
func NewBuilder(img *bstruct.Image, layout Layout) *Builder {
	return &Builder{
		img:    img,
		layout: layout,
		props:  make(map[uint64]uint64),
	}
}

// Image returns the image being written to.
func (o *Builder) Image() *bstruct.Image {
	return o.img
}

// Table writes a table named name containing props and returns
// its address.
func (o *Builder) Table(name string, props ...PropSpec) uint64 {
	return o.TableDeclaring(name, int32(len(props)), props...)
}

// TableDeclaring is like Table, but stores declared as the property
// count. If declared is larger than len(props), the stored records
// are followed by unreadable memory.
func (o *Builder) TableDeclaring(name string, declared int32, props ...PropSpec) uint64 {
	tl := o.layout.Table
	ptr := int64(o.img.PointerSize())

	addr := o.img.Alloc(int(lo.Max([]int64{tl.Props + ptr, tl.Count + 4, tl.Name + ptr})))
	o.img.PutPointer(addr+uint64(tl.Name), o.img.CString(name))
	o.img.PutInt32(addr+uint64(tl.Count), declared)

	if len(props) == 0 && declared <= 0 {
		return addr
	}

	array := o.img.Alloc(len(props) * int(o.layout.Prop.Stride))
	if int(declared) > len(props) {
		o.img.Hole(int(o.layout.Prop.Stride))
	}

	o.img.PutPointer(addr+uint64(tl.Props), array)
	o.props[addr] = array

	for i, prop := range props {
		o.putProperty(array+uint64(i)*uint64(o.layout.Prop.Stride), prop)
	}

	return addr
}

// SetChild points property i of table at child. It allows building
// self-referencing tables.
func (o *Builder) SetChild(table uint64, i int, child uint64) {
	array, ok := o.props[table]
	if !ok {
		panic("classinfo: table was not created by this builder")
	}

	pl := o.layout.Prop
	o.img.PutPointer(array+uint64(i)*uint64(pl.Stride)+uint64(pl.DataTable), child)
}

func (o *Builder) putProperty(addr uint64, prop PropSpec) {
	pl := o.layout.Prop

	if prop.Name != "" {
		o.img.PutPointer(addr+uint64(pl.Name), o.img.CString(prop.Name))
	}

	o.img.PutInt32(addr+uint64(pl.Type), int32(prop.Type))
	o.img.PutInt32(addr+uint64(pl.Flags), prop.Flags)
	o.img.PutPointer(addr+uint64(pl.DataTable), prop.Child)
	o.img.PutInt32(addr+uint64(pl.Offset), prop.Offset)
	o.img.PutInt32(addr+uint64(pl.ElementStride), prop.Stride)
	o.img.PutInt32(addr+uint64(pl.Elements), prop.Elements)
}

// Class writes a descriptor and returns its address. table may be 0.
func (o *Builder) Class(name string, id int32, table uint64) uint64 {
	cl := o.layout.Class
	ptr := int64(o.img.PointerSize())

	addr := o.img.Alloc(int(lo.Max([]int64{cl.Name + ptr, cl.Table + ptr, cl.Next + ptr, cl.ID + 4})))
	o.img.PutPointer(addr+uint64(cl.Name), o.img.CString(name))
	o.img.PutPointer(addr+uint64(cl.Table), table)
	o.img.PutInt32(addr+uint64(cl.ID), id)

	return addr
}

// List links classes in order and returns the address of the first
// one, or 0 if classes is empty.
func (o *Builder) List(classes ...uint64) uint64 {
	for i := 0; i+1 < len(classes); i++ {
		o.img.PutPointer(classes[i]+uint64(o.layout.Class.Next), classes[i+1])
	}

	if len(classes) == 0 {
		return 0
	}

	return classes[0]
}
