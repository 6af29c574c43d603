package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"gitlab.com/stephen-fox/memwalk/loader"
	"gitlab.com/stephen-fox/memwalk/modules"
)

func (o *app) newModulesCommand() *cobra.Command {
	var reverse bool
	var libraries []string

	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the modules loaded into this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closeFn, err := o.loadLibraries(libraries)
			if err != nil {
				return err
			}
			defer closeFn()

			order := modules.OrderMaps
			if reverse {
				order = modules.OrderReverse
			}

			mods, err := modules.Enumerate(
				modules.WithOrder(order),
				modules.WithLogger(o.logger))
			if err != nil {
				return err
			}

			writeModuleTable(o.stdout, mods)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false,
		"List modules in reverse load order")
	cmd.Flags().StringArrayVarP(&libraries, "library", "l", nil,
		"Load the specified library first (can be specified multiple times)")

	return cmd
}

func writeModuleTable(w io.Writer, mods []modules.Module) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Base", "End", "Size", "Path"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, mod := range mods {
		path := mod.Path
		if mod.IsMain() {
			path += " (main)"
		}

		table.Append([]string{
			fmt.Sprintf("0x%016x", mod.Base),
			fmt.Sprintf("0x%016x", mod.End()),
			humanize.IBytes(mod.Size),
			path,
		})
	}

	table.Render()
}

// loadLibraries loads each library in paths. The returned function
// unloads them.
func (o *app) loadLibraries(paths []string) (func(), error) {
	var libs []*loader.Library

	closeFn := func() {
		for _, lib := range libs {
			lib.Close()
		}
	}

	for _, path := range paths {
		lib, err := loader.Open(path)
		if err != nil {
			closeFn()
			return nil, err
		}

		level.Debug(o.logger).Log("msg", "loaded library", "path", path)

		libs = append(libs, lib)
	}

	return closeFn, nil
}
