//go:build !darwin && !freebsd && !linux

package loader

import (
	"runtime"

	"github.com/pkg/errors"
)

func Open(path string) (*Library, error) {
	return nil, errors.Errorf("loading shared objects is not supported on %s", runtime.GOOS)
}

type Library struct{}

func (o *Library) Path() string {
	return ""
}

func (o *Library) Handle() uintptr {
	return 0
}

func (o *Library) Symbol(name string) (uint64, error) {
	return 0, errors.Errorf("loading shared objects is not supported on %s", runtime.GOOS)
}

func (o *Library) Close() error {
	return nil
}
