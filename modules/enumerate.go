package modules

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"github.com/samber/lo"
	"golang.org/x/sys/unix"
)

// Source supplies the memory map of a process. procfs.Proc
// implements it.
type Source interface {
	ProcMaps() ([]*procfs.ProcMap, error)
	Executable() (string, error)
}

// Option configures Enumerate.
type Option func(*config)

type config struct {
	pageSize uint64
	order    Order
	logger   log.Logger
	source   Source
	progsFn  func(path string) ([]elf.ProgHeader, error)
}

// WithPageSize overrides the system page size.
func WithPageSize(pageSize uint64) Option {
	return func(c *config) {
		c.pageSize = pageSize
	}
}

// WithOrder sets the order of the result. The default is OrderMaps.
func WithOrder(order Order) Option {
	return func(c *config) {
		c.order = order
	}
}

// WithLogger sets a logger for images that are skipped.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSource reads the memory map from source rather than
// from /proc/self.
func WithSource(source Source) Option {
	return func(c *config) {
		c.source = source
	}
}

// EnumerateOrExit calls Enumerate, invoking DefaultExitFn if an
// error occurs.
func EnumerateOrExit(opts ...Option) []Module {
	mods, err := Enumerate(opts...)
	if err != nil {
		DefaultExitFn(errors.Wrap(err, "failed to enumerate modules"))
	}
	return mods
}

// Enumerate returns one Module per binary image mapped into the
// process.
//
// Images are discovered from the process' memory map. Each file-backed
// mapping contributes an image; pseudo mappings such as "[vdso]" and
// anonymous memory are ignored. An image whose ELF program headers
// cannot be read, or that has no loadable segments, is skipped rather
// than reported as an error. Only failing to read the memory map
// itself is an error.
func Enumerate(opts ...Option) ([]Module, error) {
	cfg := config{
		pageSize: uint64(unix.Getpagesize()),
		order:    OrderMaps,
		logger:   log.NewNopLogger(),
		progsFn:  readProgHeaders,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.source == nil {
		self, err := procfs.Self()
		if err != nil {
			return nil, errors.Wrap(err, "failed to open /proc/self")
		}

		cfg.source = self
	}

	maps, err := cfg.source.ProcMaps()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read memory map")
	}

	exe, err := cfg.source.Executable()
	if err != nil {
		level.Debug(cfg.logger).Log("msg", "failed to resolve main executable", "err", err)
	}

	images := imagesFromMaps(maps, exe)

	var mods []Module
	for _, img := range images {
		progs, err := cfg.progsFn(img.Path)
		if err != nil {
			level.Debug(cfg.logger).Log("msg", "skipping image with unreadable headers",
				"path", img.Path, "err", err)
			continue
		}

		mod, ok := FromProgHeaders(img, progs, cfg.pageSize)
		if !ok {
			level.Debug(cfg.logger).Log("msg", "skipping image without a resolvable size",
				"path", img.Path, "map_start", fmt.Sprintf("0x%x", img.MapStart))
			continue
		}

		mods = append(mods, mod)
	}

	if cfg.order == OrderReverse {
		mods = lo.Reverse(mods)
	}

	return mods, nil
}

// imagesFromMaps groups file-backed mappings by path, keeping the
// mapping with the lowest file offset. Images are returned in order of
// first appearance.
func imagesFromMaps(maps []*procfs.ProcMap, exe string) []Image {
	var order []string
	byPath := make(map[string]*Image)

	for _, m := range maps {
		if !isFileBacked(m) {
			continue
		}

		path := m.Pathname
		offset := uint64(m.Offset)

		img, hasIt := byPath[path]
		if !hasIt {
			order = append(order, path)
			byPath[path] = &Image{
				Path:      path,
				MapStart:  uint64(m.StartAddr),
				MapOffset: offset,
				Main:      exe != "" && path == exe,
			}
			continue
		}

		if offset < img.MapOffset {
			img.MapStart = uint64(m.StartAddr)
			img.MapOffset = offset
		}
	}

	images := make([]Image, 0, len(order))
	for _, path := range order {
		images = append(images, *byPath[path])
	}

	return images
}

func isFileBacked(m *procfs.ProcMap) bool {
	if m.Pathname == "" || m.Inode == 0 {
		return false
	}

	if strings.HasPrefix(m.Pathname, "[") {
		return false
	}

	return !strings.HasSuffix(m.Pathname, " (deleted)")
}

func readProgHeaders(path string) ([]elf.ProgHeader, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	progs := make([]elf.ProgHeader, len(f.Progs))
	for i, prog := range f.Progs {
		progs[i] = prog.ProgHeader
	}

	return progs, nil
}
