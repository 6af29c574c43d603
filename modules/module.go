// Package modules enumerates the binary images mapped into the
// current process.
//
// Each image is described by a Module: its load bias, the span of its
// loadable segments rounded up to the page size, and its name. The
// main executable has an empty name, like the loader reports it.
package modules

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"gitlab.com/stephen-fox/memwalk/pattern"
)

// ErrModuleNotFound is returned when no enumerated module matches
// the requested name.
var ErrModuleNotFound = errors.New("module not found")

// Order controls the order of Enumerate's result.
type Order int

const (
	// OrderMaps lists modules in the order their first mapping
	// appears in the process' memory map (ascending address).
	OrderMaps Order = iota

	// OrderReverse lists modules in the reverse of OrderMaps.
	OrderReverse
)

func (o Order) String() string {
	switch o {
	case OrderMaps:
		return "maps"
	case OrderReverse:
		return "reverse"
	default:
		return fmt.Sprintf("unknown (%d)", int(o))
	}
}

// Module is one binary image mapped into the process.
type Module struct {
	// Base is the load bias: the address the image's ELF virtual
	// addresses are relative to.
	Base uint64

	// Size is the span of the image's loadable segments, rounded
	// up to a multiple of the page size.
	Size uint64

	// Name is the image's path, or an empty string for the
	// main executable.
	Name string

	// Path is the image's path, including for the main executable.
	Path string
}

// End returns the address one past the end of the module.
func (o Module) End() uint64 {
	return o.Base + o.Size
}

// Range returns the module's address range for scanning.
func (o Module) Range() pattern.Range {
	return pattern.Range{
		Base: o.Base,
		Size: o.Size,
	}
}

// IsMain returns true if the module is the main executable.
func (o Module) IsMain() bool {
	return o.Name == ""
}

func (o Module) String() string {
	name := o.Name
	if o.IsMain() {
		name = "<main> " + o.Path
	}

	return fmt.Sprintf("0x%x-0x%x %s", o.Base, o.End(), name)
}

// Image describes where a file is mapped, before its module
// size is known.
type Image struct {
	// Path is the mapped file.
	Path string

	// MapStart is the start address of the file's mapping with
	// the lowest file offset.
	MapStart uint64

	// MapOffset is the file offset of that mapping.
	MapOffset uint64

	// Main is true if the file is the main executable.
	Main bool
}

// FromProgHeaders computes the Module for an image given its ELF
// program headers. ok is false if the image has no loadable segments
// or if its headers are inconsistent with where it is mapped.
func FromProgHeaders(img Image, progs []elf.ProgHeader, pageSize uint64) (Module, bool) {
	if pageSize == 0 || pageSize&(pageSize-1) != 0 {
		return Module{}, false
	}

	var first *elf.ProgHeader
	var size uint64

	for i := range progs {
		prog := &progs[i]
		if prog.Type != elf.PT_LOAD {
			continue
		}

		if first == nil || prog.Off < first.Off {
			first = prog
		}

		end := roundUp(prog.Vaddr+prog.Memsz, pageSize)
		if end > size {
			size = end
		}
	}

	if first == nil || size == 0 {
		return Module{}, false
	}

	// A segment is mapped so that its virtual address and file
	// offset stay congruent: vaddr - off is the same on disk and
	// in memory, modulo the bias.
	if first.Vaddr < first.Off {
		return Module{}, false
	}

	delta := first.Vaddr - first.Off
	if img.MapStart < img.MapOffset+delta {
		return Module{}, false
	}

	mod := Module{
		Base: img.MapStart - img.MapOffset - delta,
		Size: size,
		Name: img.Path,
		Path: img.Path,
	}

	if img.Main {
		mod.Name = ""
	}

	return mod, true
}

func roundUp(v uint64, pageSize uint64) uint64 {
	return (v + pageSize - 1) &^ (pageSize - 1)
}

// FindBySuffix returns the first module whose path ends with suffix.
func FindBySuffix(mods []Module, suffix string) (Module, error) {
	if suffix == "" {
		return Module{}, errors.New("module suffix cannot be empty")
	}

	mod, found := lo.Find(mods, func(m Module) bool {
		return strings.HasSuffix(m.Path, suffix)
	})
	if !found {
		return Module{}, errors.Wrapf(ErrModuleNotFound, "no module ending with %q (searched %d modules)",
			suffix, len(mods))
	}

	return mod, nil
}
