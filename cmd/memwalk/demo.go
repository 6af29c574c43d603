package main

import (
	"github.com/spf13/cobra"

	"gitlab.com/stephen-fox/memwalk/dumper"
)

func (o *app) newDemoCommand() *cobra.Command {
	opts := &dumpOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Dump a synthetic class list built in memory",
		Long: `demo builds an image containing a small class list and the code that
refers to it, then runs the same pipeline as dump against it. It is
useful for checking the output format without the target library.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			demo, err := dumper.NewDemo()
			if err != nil {
				return err
			}

			d := demo.Dumper()
			d.OptLogger = o.logger

			return o.runDump(d, opts)
		},
	}

	addFormatFlag(cmd, &opts.format)
	cmd.Flags().BoolVar(&opts.strict, "strict", false,
		"Fail if any part of the class list could not be decoded")

	return cmd
}
