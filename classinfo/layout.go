package classinfo

import (
	"bytes"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Layout holds the byte offsets of the fields decoded from foreign
// memory. Offsets are relative to the start of each structure.
//
// The layout is an external contract of the binary being inspected.
// It is spelled out field by field instead of being derived from Go
// struct layout.
type Layout struct {
	Class ClassLayout `yaml:"class"`
	Table TableLayout `yaml:"table"`
	Prop  PropLayout  `yaml:"prop"`
}

// ClassLayout describes a class descriptor (list node).
type ClassLayout struct {
	Name  int64 `yaml:"name"`
	Table int64 `yaml:"table"`
	Next  int64 `yaml:"next"`
	ID    int64 `yaml:"id"`
}

// TableLayout describes a property table.
type TableLayout struct {
	Props int64 `yaml:"props"`
	Count int64 `yaml:"count"`
	Name  int64 `yaml:"name"`
}

// PropLayout describes one record of a table's contiguous
// property array.
type PropLayout struct {
	// Stride is the size of one property record.
	Stride        int64 `yaml:"stride"`
	Name          int64 `yaml:"name"`
	Type          int64 `yaml:"type"`
	Flags         int64 `yaml:"flags"`
	DataTable     int64 `yaml:"data_table"`
	Offset        int64 `yaml:"offset"`
	ElementStride int64 `yaml:"element_stride"`
	Elements      int64 `yaml:"elements"`
}

// DefaultLayout returns the x86-64 layout of the Source engine's
// ClientClass, RecvTable and RecvProp structures.
func DefaultLayout() Layout {
	return Layout{
		Class: ClassLayout{
			Name:  0x10,
			Table: 0x18,
			Next:  0x20,
			ID:    0x28,
		},
		Table: TableLayout{
			Props: 0x00,
			Count: 0x08,
			Name:  0x18,
		},
		Prop: PropLayout{
			Stride:        0x60,
			Name:          0x00,
			Type:          0x08,
			Flags:         0x0c,
			DataTable:     0x40,
			Offset:        0x48,
			ElementStride: 0x4c,
			Elements:      0x50,
		},
	}
}

// Limits bounds a walk over possibly corrupted memory.
type Limits struct {
	// MaxDepth is the deepest table nesting that is followed.
	// A descriptor's own table is at depth 1.
	MaxDepth int `yaml:"max_depth"`

	// MaxDescriptors bounds the length of the class list.
	MaxDescriptors int `yaml:"max_descriptors"`

	// MaxTableProperties is the largest plausible declared
	// property count of a single table.
	MaxTableProperties int `yaml:"max_table_properties"`

	// MaxProperties bounds the total number of properties decoded
	// in one walk.
	MaxProperties int `yaml:"max_properties"`

	// MaxStringLen bounds names read from foreign memory.
	MaxStringLen int `yaml:"max_string_len"`

	// MinAddress and MaxAddress bound plausible pointers.
	MinAddress uint64 `yaml:"min_address"`
	MaxAddress uint64 `yaml:"max_address"`
}

// DefaultLimits returns limits suited to x86-64 user space.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:           32,
		MaxDescriptors:     8192,
		MaxTableProperties: 4096,
		MaxProperties:      1 << 20,
		MaxStringLen:       256,
		MinAddress:         0x1000,
		MaxAddress:         0x00007fffffffffff,
	}
}

// UnmarshalYAML decodes a partial layout over DefaultLayout.
func (o *Layout) UnmarshalYAML(value *yaml.Node) error {
	type plain Layout

	layout := plain(DefaultLayout())

	err := decodeNodeStrict(value, &layout)
	if err != nil {
		return err
	}

	*o = Layout(layout)

	return nil
}

// Validate returns a non-nil error if the layout cannot describe
// any structure.
func (o Layout) Validate() error {
	if o.Prop.Stride <= 0 {
		return errors.New("property stride must be greater than zero")
	}

	offsets := []int64{
		o.Class.Name, o.Class.Table, o.Class.Next, o.Class.ID,
		o.Table.Props, o.Table.Count, o.Table.Name,
		o.Prop.Name, o.Prop.Type, o.Prop.Flags, o.Prop.DataTable,
		o.Prop.Offset, o.Prop.ElementStride, o.Prop.Elements,
	}
	for _, offset := range offsets {
		if offset < 0 {
			return errors.Errorf("field offset cannot be negative (%d)", offset)
		}
	}

	return nil
}

// UnmarshalYAML decodes partial limits over DefaultLimits.
func (o *Limits) UnmarshalYAML(value *yaml.Node) error {
	type plain Limits

	limits := plain(DefaultLimits())

	err := decodeNodeStrict(value, &limits)
	if err != nil {
		return err
	}

	*o = Limits(limits)

	return nil
}

// Validate returns a non-nil error if no walk could succeed
// within the limits.
func (o Limits) Validate() error {
	switch {
	case o.MaxDepth <= 0:
		return errors.Errorf("max depth must be greater than zero (%d)", o.MaxDepth)
	case o.MaxDescriptors <= 0:
		return errors.Errorf("max descriptors must be greater than zero (%d)", o.MaxDescriptors)
	case o.MaxTableProperties < 0:
		return errors.Errorf("max table properties cannot be negative (%d)", o.MaxTableProperties)
	case o.MaxProperties < 0:
		return errors.Errorf("max properties cannot be negative (%d)", o.MaxProperties)
	case o.MaxStringLen <= 0:
		return errors.Errorf("max string length must be greater than zero (%d)", o.MaxStringLen)
	case o.MaxAddress <= o.MinAddress:
		return errors.Errorf("max address 0x%x must be greater than min address 0x%x",
			o.MaxAddress, o.MinAddress)
	}

	return nil
}

// decodeNodeStrict decodes value into out, rejecting unknown fields.
// yaml.Node.Decode does not inherit the parent decoder's KnownFields
// setting, so the node is re-encoded and decoded again.
func decodeNodeStrict(value *yaml.Node, out interface{}) error {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	err = decoder.Decode(out)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}

	return nil
}

func (o Limits) plausible(addr uint64) bool {
	return addr >= o.MinAddress && addr <= o.MaxAddress
}
