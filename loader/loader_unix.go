//go:build darwin || freebsd || linux

package loader

import (
	"sync"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// Open loads the shared object at path with RTLD_LAZY | RTLD_GLOBAL.
// path is resolved the way dlopen(3) resolves it, so a bare file
// name is searched for in the library search path.
func Open(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %q", path)
	}

	return &Library{
		path:   path,
		handle: handle,
	}, nil
}

// Library is a loaded shared object.
type Library struct {
	path   string
	handle uintptr
	once   sync.Once
}

// Path returns the path the library was opened with.
func (o *Library) Path() string {
	return o.path
}

// Handle returns the dlopen(3) handle.
func (o *Library) Handle() uintptr {
	return o.handle
}

// Symbol returns the address of the named symbol.
func (o *Library) Symbol(name string) (uint64, error) {
	addr, err := purego.Dlsym(o.handle, name)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to find symbol %q in %q", name, o.path)
	}

	return uint64(addr), nil
}

// Close releases the library. The library may remain mapped if
// another handle refers to it.
func (o *Library) Close() error {
	var err error

	o.once.Do(func() {
		err = purego.Dlclose(o.handle)
	})

	return err
}
