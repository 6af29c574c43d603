package classinfo

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"gitlab.com/stephen-fox/memwalk/memory"
)

// Walker decodes a class list from a memory.View.
//
// Failures below a descriptor (an unreadable table, a nonsensical
// property count, nesting deeper than Limits.MaxDepth) abandon that
// subtree only and are reported as Warning values. Failing to read
// the list itself stops the walk.
type Walker struct {
	View memory.View

	// Pointers decodes pointer fields. The zero value selects
	// memory.PointerMakerForX86_64.
	Pointers memory.PointerMaker

	Layout Layout
	Limits Limits

	// OptLogger, if non-nil, receives a warn level message
	// for each Warning.
	OptLogger log.Logger
}

// NewWalker returns a Walker for an x86-64 view using DefaultLayout
// and DefaultLimits.
func NewWalker(view memory.View) *Walker {
	return &Walker{
		View:     view,
		Pointers: memory.PointerMakerForX86_64(),
		Layout:   DefaultLayout(),
		Limits:   DefaultLimits(),
	}
}

// Walk decodes the list whose first descriptor is at root.
//
// If the list itself cannot be read, a non-nil error is returned
// along with the descriptors decoded before the failure.
func (o *Walker) Walk(root uint64) (*Result, error) {
	pm := o.Pointers
	if pm.Size() == 0 {
		pm = memory.PointerMakerForX86_64()
	}

	logger := o.OptLogger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	state := &walkState{
		reader: memory.NewReader(o.View, pm),
		layout: o.Layout,
		limits: o.Limits,
		logger: logger,
		budget: o.Limits.MaxProperties,
		result: &Result{},
	}

	if !state.limits.plausible(root) {
		return state.result, errors.Wrapf(ErrInconsistent,
			"root descriptor address 0x%x is not a plausible pointer", root)
	}

	addr := root

	for addr != 0 {
		if len(state.result.Descriptors) >= state.limits.MaxDescriptors {
			state.warn("classes", errors.Wrapf(ErrInconsistent,
				"list is longer than %d descriptors, stopping at 0x%x",
				state.limits.MaxDescriptors, addr))
			break
		}

		desc, next, err := state.descriptor(addr)
		if err != nil {
			return state.result, errors.Wrapf(err, "failed to decode class descriptor %d at 0x%x",
				len(state.result.Descriptors), addr)
		}

		state.result.Descriptors = append(state.result.Descriptors, desc)

		if next != 0 && !state.limits.plausible(next) {
			state.warn(desc.Name, errors.Wrapf(ErrInconsistent,
				"next descriptor pointer 0x%x is not plausible, stopping", next))
			break
		}

		addr = next
	}

	return state.result, nil
}

type walkState struct {
	reader memory.Reader
	layout Layout
	limits Limits
	logger log.Logger
	budget int
	result *Result
}

func (o *walkState) warn(path string, err error) {
	o.result.Warnings = append(o.result.Warnings, Warning{
		Path: path,
		Err:  err,
	})

	level.Warn(o.logger).Log(
		"msg", "abandoned subtree",
		"path", path,
		"err", err)
}

func (o *walkState) pointer(addr uint64) (uint64, error) {
	ptr, err := o.reader.Pointer(addr)
	if err != nil {
		return 0, err
	}

	return ptr.Uint64(), nil
}

// descriptor decodes the descriptor at addr and returns it along
// with the address of the next one. Only failing to read the
// descriptor's own fields is returned as an error.
func (o *walkState) descriptor(addr uint64) (Descriptor, uint64, error) {
	cl := o.layout.Class

	namePtr, err := o.pointer(addr + uint64(cl.Name))
	if err != nil {
		return Descriptor{}, 0, errors.Wrap(err, "failed to read name pointer")
	}

	tablePtr, err := o.pointer(addr + uint64(cl.Table))
	if err != nil {
		return Descriptor{}, 0, errors.Wrap(err, "failed to read table pointer")
	}

	next, err := o.pointer(addr + uint64(cl.Next))
	if err != nil {
		return Descriptor{}, 0, errors.Wrap(err, "failed to read next pointer")
	}

	id, err := o.reader.Int32(addr + uint64(cl.ID))
	if err != nil {
		return Descriptor{}, 0, errors.Wrap(err, "failed to read class id")
	}

	desc := Descriptor{
		Address: addr,
		ClassID: id,
	}

	desc.Name, err = o.str(namePtr)
	if err != nil {
		desc.Name = fmt.Sprintf("class@0x%x", addr)
		o.warn(desc.Name, errors.Wrap(err, "failed to read class name"))
	}

	if tablePtr != 0 {
		desc.Table = o.table(tablePtr, desc.Name, 1)
	}

	return desc, next, nil
}

// table decodes the table at addr. It returns nil when not even
// the table header could be decoded.
func (o *walkState) table(addr uint64, path string, depth int) *Table {
	if depth > o.limits.MaxDepth {
		o.warn(path, errors.Wrapf(ErrInconsistent,
			"table at 0x%x exceeds the maximum nesting depth of %d", addr, o.limits.MaxDepth))
		return nil
	}

	if !o.limits.plausible(addr) {
		o.warn(path, errors.Wrapf(ErrInconsistent,
			"table pointer 0x%x is not plausible", addr))
		return nil
	}

	tl := o.layout.Table

	propsPtr, err := o.pointer(addr + uint64(tl.Props))
	if err != nil {
		o.warn(path, errors.Wrapf(err, "failed to read properties pointer of table at 0x%x", addr))
		return nil
	}

	count, err := o.reader.Int32(addr + uint64(tl.Count))
	if err != nil {
		o.warn(path, errors.Wrapf(err, "failed to read property count of table at 0x%x", addr))
		return nil
	}

	namePtr, err := o.pointer(addr + uint64(tl.Name))
	if err != nil {
		o.warn(path, errors.Wrapf(err, "failed to read name pointer of table at 0x%x", addr))
		return nil
	}

	table := &Table{
		Address:  addr,
		Declared: count,
	}

	table.Name, err = o.str(namePtr)
	if err != nil {
		table.Name = fmt.Sprintf("table@0x%x", addr)
		o.warn(path+"/"+table.Name, errors.Wrap(err, "failed to read table name"))
	}

	path = path + "/" + table.Name

	if count < 0 || int(count) > o.limits.MaxTableProperties {
		table.Truncated = true
		o.warn(path, errors.Wrapf(ErrInconsistent,
			"property count %d is outside of [0, %d]", count, o.limits.MaxTableProperties))
		return table
	}

	if count > 0 && !o.limits.plausible(propsPtr) {
		table.Truncated = true
		o.warn(path, errors.Wrapf(ErrInconsistent,
			"properties pointer 0x%x is not plausible", propsPtr))
		return table
	}

	stride := uint64(o.layout.Prop.Stride)

	for i := 0; i < int(count); i++ {
		if o.budget <= 0 {
			table.Truncated = true
			o.warn(path, errors.Wrapf(ErrInconsistent,
				"total property limit of %d reached", o.limits.MaxProperties))
			break
		}
		o.budget--

		prop, childPtr, nameErr, err := o.property(propsPtr + uint64(i)*stride)
		if err != nil {
			table.Truncated = true
			o.warn(path, errors.Wrapf(err, "failed to decode property %d of %d", i, count))
			break
		}

		if prop.Name == "" {
			prop.Name = fmt.Sprintf("prop%d", i)
		}

		if nameErr != nil {
			o.warn(path+"/"+prop.Name, errors.Wrap(nameErr, "failed to read property name"))
		}

		if childPtr != 0 {
			prop.Child = o.table(childPtr, path+"/"+prop.Name, depth+1)
		}

		table.Properties = append(table.Properties, prop)
	}

	return table
}

// property decodes one property record. The returned uint64 is the
// address of the property's nested table, if any. A name that cannot
// be read is reported by nameErr and leaves the record usable.
func (o *walkState) property(addr uint64) (prop Property, child uint64, nameErr error, err error) {
	pl := o.layout.Prop

	namePtr, err := o.pointer(addr + uint64(pl.Name))
	if err != nil {
		return Property{}, 0, nil, err
	}

	typ, err := o.reader.Int32(addr + uint64(pl.Type))
	if err != nil {
		return Property{}, 0, nil, err
	}

	flags, err := o.reader.Int32(addr + uint64(pl.Flags))
	if err != nil {
		return Property{}, 0, nil, err
	}

	child, err = o.pointer(addr + uint64(pl.DataTable))
	if err != nil {
		return Property{}, 0, nil, err
	}

	offset, err := o.reader.Int32(addr + uint64(pl.Offset))
	if err != nil {
		return Property{}, 0, nil, err
	}

	prop = Property{
		Offset: offset,
		Flags:  flags,
		Type:   PropType(typ),
	}

	if prop.Type == PropArray {
		elements, err := o.reader.Int32(addr + uint64(pl.Elements))
		if err != nil {
			return Property{}, 0, nil, err
		}

		elemStride, err := o.reader.Int32(addr + uint64(pl.ElementStride))
		if err != nil {
			return Property{}, 0, nil, err
		}

		prop.Array = &ArraySpec{
			Elements: elements,
			Stride:   elemStride,
		}
	}

	prop.Name, nameErr = o.str(namePtr)
	if nameErr != nil {
		prop.Name = ""
	}

	return prop, child, nameErr, nil
}

func (o *walkState) str(addr uint64) (string, error) {
	if addr == 0 {
		return "", nil
	}

	if !o.limits.plausible(addr) {
		return "", errors.Wrapf(ErrInconsistent, "string pointer 0x%x is not plausible", addr)
	}

	return o.reader.CString(addr, o.limits.MaxStringLen)
}
