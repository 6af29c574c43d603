package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"gitlab.com/stephen-fox/memwalk/memory"
	"gitlab.com/stephen-fox/memwalk/modules"
	"gitlab.com/stephen-fox/memwalk/pattern"
)

func (o *app) newScanCommand() *cobra.Command {
	var moduleSuffix string
	var sig string
	var mask string
	var libraries []string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find the first occurrence of a byte pattern in a module",
		Long: `scan searches a loaded module for a byte pattern and prints the address
of the first match.

The pattern is written as hex bytes and wildcards ("48 8B 05 ? ? ? ?").
If --mask is specified, the pattern is instead an escaped byte string
("\x48\x8B\x05\x00\x00\x00\x00") and the mask marks exact bytes with 'x'
and wildcards with '?' ("xxx????").

The module and pattern default to the selected profile's.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.currentProfile()
			if err != nil {
				return err
			}

			if moduleSuffix == "" {
				moduleSuffix = p.Module
			}

			if sig == "" {
				sig = p.Signature
			}

			var pat pattern.Pattern
			if mask != "" {
				pat, err = pattern.ParseEscapedCodeStyle(sig, mask)
			} else {
				pat, err = pattern.Parse(sig)
			}
			if err != nil {
				return err
			}

			closeFn, err := o.loadLibraries(libraries)
			if err != nil {
				return err
			}
			defer closeFn()

			mods, err := modules.Enumerate(modules.WithLogger(o.logger))
			if err != nil {
				return err
			}

			mod, err := modules.FindBySuffix(mods, moduleSuffix)
			if err != nil {
				return err
			}

			scanner := pattern.Scanner{
				View:      memory.Self(),
				OptLogger: o.logger,
			}

			addr, found, err := scanner.Find(mod.Range(), pat)
			if err != nil {
				return err
			}

			if !found {
				return errors.Wrapf(pattern.ErrPatternNotFound, "%q does not occur in %s",
					pat, mod.Path)
			}

			fmt.Fprintf(o.stdout, "0x%x (%s+0x%x)\n", addr, mod.Path, addr-mod.Base)

			return nil
		},
	}

	cmd.Flags().StringVarP(&moduleSuffix, "module", "m", "",
		"Suffix of the module to search")
	cmd.Flags().StringVar(&sig, "pattern", "",
		"The pattern to search for")
	cmd.Flags().StringVar(&mask, "mask", "",
		"Treat the pattern as an escaped byte string with this mask")
	cmd.Flags().StringArrayVarP(&libraries, "library", "l", nil,
		"Load the specified library first (can be specified multiple times)")

	return cmd
}
