// Package dumper locates a class list in the current process and
// produces a snapshot of it.
//
// A dump runs the following stages in order: load the profile's
// library, enumerate modules, select the module named by the profile,
// scan it for the profile's signature, resolve the list head from the
// match and walk the list. A failure is reported as a *StageError.
package dumper

import (
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"gitlab.com/stephen-fox/memwalk/classinfo"
	"gitlab.com/stephen-fox/memwalk/loader"
	"gitlab.com/stephen-fox/memwalk/logging"
	"gitlab.com/stephen-fox/memwalk/memory"
	"gitlab.com/stephen-fox/memwalk/modules"
	"gitlab.com/stephen-fox/memwalk/pattern"
	"gitlab.com/stephen-fox/memwalk/profile"
)

type Stage string

const (
	StageLoad      Stage = "load"
	StageEnumerate Stage = "enumerate"
	StageSelect    Stage = "select"
	StageScan      Stage = "scan"
	StageResolve   Stage = "resolve"
	StageWalk      Stage = "walk"
	StageRender    Stage = "render"
)

// StageError is returned when a stage of a dump fails.
type StageError struct {
	Stage Stage
	Err   error
}

func (o *StageError) Error() string {
	return fmt.Sprintf("%s stage failed - %s", o.Stage, o.Err)
}

func (o *StageError) Unwrap() error {
	return o.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{
		Stage: stage,
		Err:   err,
	}
}

// Dumper finds and walks the class list described by Profile.
type Dumper struct {
	Profile profile.Profile

	// OptView is the memory to search. Defaults to memory.Self().
	OptView memory.View

	// OptModules replaces modules.Enumerate.
	OptModules func() ([]modules.Module, error)

	// OptLoadFn replaces loader.Open.
	OptLoadFn func(path string) (io.Closer, error)

	OptLogger log.Logger

	libs []io.Closer
}

// Report is the outcome of a successful dump.
type Report struct {
	Profile profile.Profile
	Module  modules.Module
	Root    Root

	// Result holds the snapshot. Its Warnings are not errors.
	Result *classinfo.Result
}

// Run performs a dump. Libraries loaded by Run stay loaded until
// Close is called.
func (o *Dumper) Run() (*Report, error) {
	logger := logging.OrNop(o.OptLogger)

	loc, err := o.Locate()
	if err != nil {
		return nil, err
	}

	root, err := ResolveRoot(loc.View, loc.Match, o.Profile)
	if err != nil {
		return nil, stageErr(StageResolve, err)
	}

	level.Info(logger).Log("msg", "resolved class list",
		"target", fmt.Sprintf("0x%x", root.Target),
		"head", fmt.Sprintf("0x%x", root.Descriptor),
		"instruction", root.Instruction)

	walker := classinfo.Walker{
		View:      loc.View,
		Pointers:  memory.PointerMakerForX86_64(),
		Layout:    o.Profile.StructLayout(),
		Limits:    o.Profile.WalkLimits(),
		OptLogger: logger,
	}

	result, err := walker.Walk(root.Descriptor)
	if err != nil {
		return nil, stageErr(StageWalk, err)
	}

	tables, props := classinfo.Count(result.Descriptors)

	level.Info(logger).Log("msg", "walked class list",
		"classes", len(result.Descriptors),
		"tables", tables,
		"properties", props,
		"warnings", len(result.Warnings))

	return &Report{
		Profile: o.Profile,
		Module:  loc.Module,
		Root:    root,
		Result:  result,
	}, nil
}

// Location is the outcome of the stages that precede root resolution.
type Location struct {
	View   memory.View
	Module modules.Module
	Match  uint64
}

// Locate runs the load, enumerate, select and scan stages and returns
// the first signature match.
func (o *Dumper) Locate() (Location, error) {
	logger := logging.OrNop(o.OptLogger)

	err := o.Profile.Validate()
	if err != nil {
		return Location{}, stageErr(StageLoad, err)
	}

	if o.Profile.Library != "" {
		load := o.OptLoadFn
		if load == nil {
			load = openLibrary
		}

		lib, err := load(o.Profile.Library)
		if err != nil {
			return Location{}, stageErr(StageLoad, err)
		}

		o.libs = append(o.libs, lib)

		level.Info(logger).Log("msg", "loaded library", "path", o.Profile.Library)
	}

	enumerate := o.OptModules
	if enumerate == nil {
		enumerate = func() ([]modules.Module, error) {
			return modules.Enumerate(modules.WithLogger(logger))
		}
	}

	mods, err := enumerate()
	if err != nil {
		return Location{}, stageErr(StageEnumerate, err)
	}

	level.Debug(logger).Log("msg", "enumerated modules", "count", len(mods))

	mod, err := modules.FindBySuffix(mods, o.Profile.Module)
	if err != nil {
		return Location{}, stageErr(StageSelect, err)
	}

	level.Info(logger).Log("msg", "selected module", "module", mod)

	view := o.OptView
	if view == nil {
		view = memory.Self()
	}

	sig, err := o.Profile.Pattern()
	if err != nil {
		return Location{}, stageErr(StageScan, err)
	}

	scanner := pattern.Scanner{
		View:      view,
		OptLogger: logger,
	}

	match, found, err := scanner.Find(mod.Range(), sig)
	if err != nil {
		return Location{}, stageErr(StageScan, err)
	}

	if !found {
		return Location{}, stageErr(StageScan, errors.Wrapf(pattern.ErrPatternNotFound,
			"%q does not occur in %s", sig, mod.Path))
	}

	level.Info(logger).Log("msg", "found signature", "addr", fmt.Sprintf("0x%x", match),
		"module_offset", fmt.Sprintf("0x%x", match-mod.Base))

	return Location{
		View:   view,
		Module: mod,
		Match:  match,
	}, nil
}

// Close unloads libraries loaded by Run.
func (o *Dumper) Close() error {
	var err error

	for i := len(o.libs) - 1; i >= 0; i-- {
		closeErr := o.libs[i].Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}

	o.libs = nil

	return err
}

func openLibrary(path string) (io.Closer, error) {
	return loader.Open(path)
}
