// memwalk locates the class list of a Source engine client library
// loaded into its own process and prints the classes, their property
// tables and the property offsets.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/spf13/cobra"

	"gitlab.com/stephen-fox/memwalk/logging"
	"gitlab.com/stephen-fox/memwalk/profile"
)

const (
	appName = "memwalk"

	logLevelArg = "log-level"
	verboseArg  = "verbose"
	profileArg  = "profile"
	profilesArg = "profiles"
	formatArg   = "format"
)

func main() {
	log.SetFlags(0)

	err := mainWithError(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalln("fatal:", err)
	}
}

func mainWithError(args []string, stdout io.Writer, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	return root.Execute()
}

// app holds state shared by all sub-commands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	logLevel     string
	verbose      bool
	profileName  string
	profilesPath string

	logger kitlog.Logger
}

func newRootCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	a := &app{
		stdout: stdout,
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:   appName + " [command]",
		Short: "Find and dump client class property tables from process memory",
		Long: appName + ` loads a client library into its own process, finds
the head of its class list using a byte signature and prints every class
along with its property tables and property offsets.

Built-in profile: ` + profile.CSGOClient + `
Additional profiles can be loaded from a YAML file using --` + profilesArg + `.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.logLevel, logLevelArg, "info",
		fmt.Sprintf("Log level (%v)", logging.Levels))
	root.PersistentFlags().BoolVarP(&a.verbose, verboseArg, "v", false,
		"Enable debug logging (same as --"+logLevelArg+" debug)")
	root.PersistentFlags().StringVarP(&a.profileName, profileArg, "p", "",
		"Name of the profile to use (defaults to the profiles file's default, then "+profile.CSGOClient+")")
	root.PersistentFlags().StringVar(&a.profilesPath, profilesArg, "",
		"Path to a YAML file containing additional profiles")

	root.AddCommand(
		a.newDumpCommand(),
		a.newModulesCommand(),
		a.newScanCommand(),
		a.newDisasmCommand(),
		a.newDemoCommand(),
		a.newProfilesCommand())

	return root
}

func (o *app) setup(*cobra.Command, []string) error {
	levelName := o.logLevel
	if o.verbose {
		levelName = "debug"
	}

	logger, err := logging.New(o.stderr, levelName)
	if err != nil {
		return err
	}

	o.logger = logger

	return nil
}

// profiles returns the built-in profiles merged with the profiles
// file, with the selected profile as the current context.
func (o *app) profiles() (*profile.Table, error) {
	table := profile.Builtin()

	if o.profilesPath != "" {
		err := profile.Load(o.profilesPath, table)
		if err != nil {
			return nil, err
		}
	}

	if o.profileName != "" {
		table.SetContext(o.profileName)
	}

	return table, nil
}

func (o *app) currentProfile() (profile.Profile, error) {
	table, err := o.profiles()
	if err != nil {
		return profile.Profile{}, err
	}

	return table.Current()
}
