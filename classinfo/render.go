package classinfo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xlab/treeprint"
)

// Render returns an indented tree describing descs.
//
// Each descriptor is printed as "Name (id N)" followed by its table.
// Properties are printed as "[0xOFFSET]  name (type)". A property with
// a nested table is followed by " -> TableName" and the nested
// properties one level deeper.
func Render(descs []Descriptor) string {
	tables, props := Count(descs)

	tree := treeprint.NewWithRoot(fmt.Sprintf("%d classes, %d tables, %d properties",
		len(descs), tables, props))

	for _, desc := range descs {
		label := fmt.Sprintf("%s (id %d)", desc.Name, desc.ClassID)

		if desc.Table == nil {
			tree.AddNode(label)
			continue
		}

		branch := tree.AddBranch(label)
		addProperties(branch.AddBranch(tableLabel(desc.Table)), desc.Table)
	}

	return tree.String()
}

func addProperties(branch treeprint.Tree, table *Table) {
	for _, prop := range table.Properties {
		offset := fmt.Sprintf("0x%08X", uint32(prop.Offset))

		if prop.Child == nil {
			branch.AddMetaNode(offset, propertyLabel(prop))
			continue
		}

		child := branch.AddMetaBranch(offset,
			fmt.Sprintf("%s -> %s", propertyLabel(prop), tableLabel(prop.Child)))
		addProperties(child, prop.Child)
	}
}

func tableLabel(table *Table) string {
	if table.Truncated {
		return fmt.Sprintf("%s (truncated, %d of %d)",
			table.Name, len(table.Properties), table.Declared)
	}

	return table.Name
}

func propertyLabel(prop Property) string {
	if prop.Array != nil {
		return fmt.Sprintf("%s (%s) [%d x %d]",
			prop.Name, prop.Type, prop.Array.Elements, prop.Array.Stride)
	}

	return fmt.Sprintf("%s (%s)", prop.Name, prop.Type)
}

// RenderJSON writes descs to w as indented JSON.
func RenderJSON(w io.Writer, descs []Descriptor) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(descs)
}
