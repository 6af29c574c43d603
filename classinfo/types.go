// Package classinfo decodes and renders a linked list of class
// descriptors and their property tables.
//
// The list lives in memory owned by another binary. Each descriptor
// optionally points to a property table; a table is a named array of
// properties, and a property may point to a nested table. Decoding
// produces an owned snapshot (Descriptor values) that can be rendered
// or inspected without touching foreign memory again.
package classinfo

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrInconsistent is matched (using errors.Is) by warnings about
// structures that violate sanity bounds, such as an implausible
// property count or a nesting depth beyond the configured limit.
var ErrInconsistent = errors.New("inconsistent structure")

// PropType is the declared type of a property.
type PropType int32

const (
	PropInt PropType = iota
	PropFloat
	PropVector
	PropVectorXY
	PropString
	PropArray
	PropDataTable
	PropInt64
)

var propTypeNames = []string{
	PropInt:       "int",
	PropFloat:     "float",
	PropVector:    "vector",
	PropVectorXY:  "vectorxy",
	PropString:    "string",
	PropArray:     "array",
	PropDataTable: "datatable",
	PropInt64:     "int64",
}

func (o PropType) String() string {
	if o >= 0 && int(o) < len(propTypeNames) {
		return propTypeNames[o]
	}

	return fmt.Sprintf("type%d", int32(o))
}

func (o PropType) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *PropType) UnmarshalText(text []byte) error {
	for i, name := range propTypeNames {
		if name == string(text) {
			*o = PropType(i)
			return nil
		}
	}

	var v int32
	_, err := fmt.Sscanf(string(text), "type%d", &v)
	if err != nil {
		return errors.Errorf("unknown property type %q", text)
	}

	*o = PropType(v)

	return nil
}

// Descriptor is one element of the class list.
type Descriptor struct {
	Address uint64 `json:"address"`
	Name    string `json:"name"`
	ClassID int32  `json:"class_id"`
	Table   *Table `json:"table,omitempty"`
}

// Table is a named, ordered list of properties.
type Table struct {
	Address    uint64     `json:"address"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`

	// Declared is the property count stored in the table.
	Declared int32 `json:"declared"`

	// Truncated is true if fewer than Declared properties
	// could be decoded.
	Truncated bool `json:"truncated,omitempty"`
}

// Property describes one field of an instance.
type Property struct {
	Name string `json:"name"`

	// Offset is relative to the instance that owns the property,
	// including for properties with a Child table.
	Offset int32    `json:"offset"`
	Flags  int32    `json:"flags"`
	Type   PropType `json:"type"`

	// Child is the nested table for structured properties.
	Child *Table `json:"child,omitempty"`

	// Array is set for fixed-size array properties.
	Array *ArraySpec `json:"array,omitempty"`
}

// ArraySpec describes a fixed-size array property.
type ArraySpec struct {
	Elements int32 `json:"elements"`
	Stride   int32 `json:"stride"`
}

// Warning records a subtree that could not be fully decoded.
type Warning struct {
	// Path names the affected subtree, for example
	// "CCSPlayer/DT_CSPlayer/m_Local".
	Path string
	Err  error
}

func (o Warning) Error() string {
	return fmt.Sprintf("%s: %s", o.Path, o.Err)
}

func (o Warning) Unwrap() error {
	return o.Err
}

// Result is the output of a walk.
type Result struct {
	// Descriptors are in list order.
	Descriptors []Descriptor

	// Warnings lists subtrees that were abandoned. Their siblings
	// are still present in Descriptors.
	Warnings []Warning
}

// Err returns the warnings combined into a single error, or nil
// if there are none.
func (o *Result) Err() error {
	if o == nil || len(o.Warnings) == 0 {
		return nil
	}

	var err *multierror.Error
	for _, w := range o.Warnings {
		err = multierror.Append(err, w)
	}

	err.ErrorFormat = func(errs []error) string {
		lines := make([]string, len(errs))
		for i, e := range errs {
			lines[i] = "  " + e.Error()
		}

		return fmt.Sprintf("%d structural decode warning(s):\n%s",
			len(errs), strings.Join(lines, "\n"))
	}

	return err
}

// Count returns the number of tables and properties in the snapshot.
func Count(descs []Descriptor) (tables int, props int) {
	var countTable func(t *Table)
	countTable = func(t *Table) {
		tables++
		props += len(t.Properties)
		for _, p := range t.Properties {
			if p.Child != nil {
				countTable(p.Child)
			}
		}
	}

	for _, d := range descs {
		if d.Table != nil {
			countTable(d.Table)
		}
	}

	return tables, props
}
