package profile

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the YAML representation of a set of profiles.
//
//	default: my-build
//	profiles:
//	  - name: my-build
//	    module: client_client.so
//	    signature: 48 8B 05 ? ? ? ? 8B 53 14
//	    disp_offset: 3
//	    instr_end: 7
//	    derefs: 2
type File struct {
	Default  string    `yaml:"default,omitempty"`
	Profiles []Profile `yaml:"profiles"`
}

// Load reads the YAML file at path into table. Profiles replace
// existing profiles of the same name. If the file names a default
// profile, it becomes the table's current context.
func Load(path string, table *Table) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = Decode(f, table)
	if err != nil {
		return errors.Wrapf(err, "failed to load profiles from %q", path)
	}

	return nil
}

// Decode is like Load, but reads from r.
func Decode(r io.Reader, table *Table) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var file File

	err := decoder.Decode(&file)
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "failed to decode yaml")
	}

	for i, p := range file.Profiles {
		err := p.Validate()
		if err != nil {
			return errors.Wrapf(err, "profile %d is invalid", i)
		}
	}

	for _, p := range file.Profiles {
		table.Add(p)
	}

	if file.Default != "" {
		_, err := table.Lookup(file.Default)
		if err != nil {
			return errors.Wrap(err, "failed to select default profile")
		}

		table.SetContext(file.Default)
	}

	return nil
}

// Encode writes profiles as YAML. It is the inverse of Decode.
func Encode(w io.Writer, file File) error {
	buf := bytes.NewBuffer(nil)

	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)

	err := encoder.Encode(file)
	if err != nil {
		return err
	}

	err = encoder.Close()
	if err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())
	return err
}
