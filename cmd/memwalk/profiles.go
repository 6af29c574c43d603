package main

import (
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"gitlab.com/stephen-fox/memwalk/profile"
)

func (o *app) newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Print the available profiles as YAML",
		Long: `profiles prints the built-in profiles and the profiles loaded using
--` + profilesArg + `. The output can be used as a starting point for a
profiles file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := o.profiles()
			if err != nil {
				return err
			}

			current, err := table.Current()
			if err != nil {
				return err
			}

			return profile.Encode(o.stdout, profile.File{
				Default: current.Name,
				Profiles: lo.Map(table.Contexts(), func(context string, _ int) profile.Profile {
					p, _ := table.Lookup(context)
					return p
				}),
			})
		},
	}
}
