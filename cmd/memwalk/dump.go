package main

import (
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"gitlab.com/stephen-fox/memwalk/dumper"
)

type dumpOptions struct {
	library string
	module  string
	format  string
	strict  bool
}

func (o *app) newDumpCommand() *cobra.Command {
	opts := &dumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Load the profile's library and print its class list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.currentProfile()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("library") {
				p.Library = opts.library
			}

			if opts.module != "" {
				p.Module = opts.module
			}

			d := &dumper.Dumper{
				Profile:   p,
				OptLogger: o.logger,
			}
			defer d.Close()

			return o.runDump(d, opts)
		},
	}

	cmd.Flags().StringVar(&opts.library, "library", "",
		"Path of the library to load (overrides the profile, empty skips loading)")
	cmd.Flags().StringVar(&opts.module, "module", "",
		"Suffix of the module to scan (overrides the profile)")
	addFormatFlag(cmd, &opts.format)
	cmd.Flags().BoolVar(&opts.strict, "strict", false,
		"Fail if any part of the class list could not be decoded")

	return cmd
}

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, formatArg, "f", string(dumper.TextFormat),
		"Output format ("+string(dumper.TextFormat)+", "+string(dumper.JSONFormat)+")")
}

func (o *app) runDump(d *dumper.Dumper, opts *dumpOptions) error {
	format, err := dumper.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	report, err := d.Run()
	if err != nil {
		return err
	}

	err = report.Render(o.stdout, format)
	if err != nil {
		return err
	}

	if len(report.Result.Warnings) > 0 {
		if opts.strict {
			return report.Result.Err()
		}

		level.Warn(o.logger).Log("msg", "class list was only partially decoded",
			"warnings", len(report.Result.Warnings))
	}

	return nil
}
