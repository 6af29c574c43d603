// Package profile describes where and how to find a class list in
// a particular binary.
package profile

import (
	"github.com/pkg/errors"

	"gitlab.com/stephen-fox/memwalk/classinfo"
	"gitlab.com/stephen-fox/memwalk/pattern"
)

const (
	// CSGOClient is the name of the built-in profile for the
	// CS:GO Linux client library.
	CSGOClient = "csgo-client"
)

// CSGOClientProfile returns the built-in profile for the CS:GO Linux
// client library.
//
// The signature matches a load of g_pClientClassHead:
//
//	91                xchg eax, ecx
//	48 8B 05 ? ? ? ?  mov rax, qword ptr [rip+disp32]
//	8B 53 14          mov edx, dword ptr [rbx+0x14]
func CSGOClientProfile() Profile {
	return Profile{
		Name:       CSGOClient,
		Library:    "client_panorama_client.so",
		Module:     "panorama_client.so",
		Signature:  "91 48 8B 05 ? ? ? ? 8B 53 14",
		DispOffset: 4,
		InstrEnd:   8,
		Derefs:     2,
		Verify:     true,
	}
}

// Profile is the configuration needed to locate and decode a class
// list in one binary.
type Profile struct {
	Name string `yaml:"name"`

	// Library, if non-empty, is loaded into the process before
	// modules are enumerated.
	Library string `yaml:"library,omitempty"`

	// Module is matched against the end of each module's path.
	Module string `yaml:"module"`

	// Signature is a wildcard byte pattern in pattern.Parse format.
	Signature string `yaml:"signature"`

	// DispOffset is the distance from the start of a match to the
	// signed 32-bit displacement.
	DispOffset int64 `yaml:"disp_offset"`

	// InstrEnd is the distance from the start of a match to the end
	// of the instruction that contains the displacement.
	InstrEnd int64 `yaml:"instr_end"`

	// Derefs is the number of pointers followed from the
	// displacement's target to reach the first descriptor.
	Derefs int `yaml:"derefs"`

	// Verify cross-checks the displacement arithmetic by decoding
	// the matched bytes as x86-64.
	Verify bool `yaml:"verify,omitempty"`

	// Layout and Limits fields that are omitted from YAML keep
	// their default values.
	Layout *classinfo.Layout `yaml:"layout,omitempty"`
	Limits *classinfo.Limits `yaml:"limits,omitempty"`
}

// Validate returns a non-nil error if the profile cannot be used.
func (o Profile) Validate() error {
	if o.Name == "" {
		return errors.New("profile name is empty")
	}

	if o.Module == "" {
		return errors.Errorf("profile %q: module suffix is empty", o.Name)
	}

	p, err := o.Pattern()
	if err != nil {
		return err
	}

	if o.DispOffset < 0 {
		return errors.Errorf("profile %q: displacement offset cannot be negative (%d)",
			o.Name, o.DispOffset)
	}

	if o.InstrEnd < o.DispOffset+4 {
		return errors.Errorf("profile %q: instruction end (%d) must be at least displacement offset + 4 (%d)",
			o.Name, o.InstrEnd, o.DispOffset+4)
	}

	if o.DispOffset+4 > int64(p.Len()) {
		return errors.Errorf("profile %q: displacement at offset %d does not fit in the %d byte signature",
			o.Name, o.DispOffset, p.Len())
	}

	if o.Derefs < 0 {
		return errors.Errorf("profile %q: dereference count cannot be negative (%d)",
			o.Name, o.Derefs)
	}

	if o.Layout != nil {
		err := o.Layout.Validate()
		if err != nil {
			return errors.Wrapf(err, "profile %q: invalid layout", o.Name)
		}
	}

	if o.Limits != nil {
		err := o.Limits.Validate()
		if err != nil {
			return errors.Wrapf(err, "profile %q: invalid limits", o.Name)
		}
	}

	return nil
}

// Pattern parses the profile's signature.
func (o Profile) Pattern() (pattern.Pattern, error) {
	p, err := pattern.Parse(o.Signature)
	if err != nil {
		return pattern.Pattern{}, errors.Wrapf(err, "profile %q: failed to parse signature", o.Name)
	}

	return p, nil
}

// StructLayout returns the profile's layout, or classinfo.DefaultLayout
// if it does not specify one.
func (o Profile) StructLayout() classinfo.Layout {
	if o.Layout != nil {
		return *o.Layout
	}

	return classinfo.DefaultLayout()
}

// WalkLimits returns the profile's limits, or classinfo.DefaultLimits
// if it does not specify any.
func (o Profile) WalkLimits() classinfo.Limits {
	if o.Limits != nil {
		return *o.Limits
	}

	return classinfo.DefaultLimits()
}
