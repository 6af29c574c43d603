package pattern

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"gitlab.com/stephen-fox/memwalk/memory"
)

const (
	// DefaultChunkSize is the number of bytes a Scanner reads
	// from its View at once.
	DefaultChunkSize = 1 << 20

	// DefaultPageSize is the page granularity a Scanner falls
	// back to when a chunk cannot be read.
	DefaultPageSize = 4096
)

// Range is a window of foreign memory.
type Range struct {
	Base uint64
	Size uint64
}

// End returns the address one past the last byte of the range.
func (o Range) End() uint64 {
	return o.Base + o.Size
}

func (o Range) String() string {
	return fmt.Sprintf("0x%x-0x%x", o.Base, o.End())
}

// FindIn searches r in view for p using a Scanner with default settings.
func FindIn(view memory.View, r Range, p Pattern) (uint64, bool, error) {
	s := Scanner{View: view}
	return s.Find(r, p)
}

// Scanner searches a View for patterns.
//
// The range is read in chunks. If a chunk cannot be read, the Scanner
// retries it one page at a time and skips pages that are unreadable.
// A match never spans a skipped page.
type Scanner struct {
	// View is the memory to search.
	View memory.View

	// ChunkSize overrides DefaultChunkSize when greater than zero.
	ChunkSize int

	// PageSize overrides DefaultPageSize when greater than zero.
	PageSize int

	// OptLogger, if specified, receives debug messages about
	// skipped pages.
	OptLogger log.Logger
}

// Find returns the address of the first match of p in r. If p does not
// occur, ok is false and err is nil. err is non-nil only if the View
// fails for a reason other than unreadable memory.
func (o *Scanner) Find(r Range, p Pattern) (addr uint64, ok bool, err error) {
	if o.View == nil {
		return 0, false, errors.New("scanner view cannot be nil")
	}

	if p.Len() == 0 {
		return 0, false, errors.New("pattern cannot be empty")
	}

	if r.End() < r.Base {
		return 0, false, errors.Errorf("range %s overflows", r)
	}

	logger := o.OptLogger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	chunkSize := uint64(DefaultChunkSize)
	if o.ChunkSize > 0 {
		chunkSize = uint64(o.ChunkSize)
	}

	pageSize := uint64(DefaultPageSize)
	if o.PageSize > 0 {
		pageSize = uint64(o.PageSize)
	}

	s := &scanState{
		pattern: p,
		buf:     make([]byte, chunkSize),
	}

	skipped := 0
	end := r.End()

	for at := r.Base; at < end; {
		size := min(chunkSize, end-at)

		found, err := s.feed(o.View, at, size)
		if err == nil {
			if found {
				return s.match, true, nil
			}

			at += size
			continue
		}

		if !errors.Is(err, memory.ErrUnreadable) {
			return 0, false, err
		}

		for page := at; page < at+size; {
			pageLen := min(pageSize-page%pageSize, at+size-page)

			found, err := s.feed(o.View, page, pageLen)
			switch {
			case err == nil:
				if found {
					return s.match, true, nil
				}
			case errors.Is(err, memory.ErrUnreadable):
				skipped++
				s.carry = s.carry[:0]
				level.Debug(logger).Log("msg", "skipping unreadable page",
					"addr", fmt.Sprintf("0x%x", page), "size", pageLen)
			default:
				return 0, false, err
			}

			page += pageLen
		}

		at += size
	}

	if skipped > 0 {
		level.Debug(logger).Log("msg", "scan finished with unreadable pages",
			"range", r.String(), "skipped", skipped)
	}

	return 0, false, nil
}

type scanState struct {
	pattern Pattern
	buf     []byte
	window  []byte
	// carry holds the readable bytes immediately preceding the
	// next read, at most pattern.Len()-1 of them.
	carry []byte
	match uint64
}

func (o *scanState) feed(view memory.View, addr uint64, size uint64) (bool, error) {
	data := o.buf[:size]

	err := view.ReadAt(data, addr)
	if err != nil {
		return false, err
	}

	o.window = append(append(o.window[:0], o.carry...), data...)
	windowAddr := addr - uint64(len(o.carry))

	if i := o.pattern.Find(o.window); i > -1 {
		o.match = windowAddr + uint64(i)
		return true, nil
	}

	keep := o.pattern.Len() - 1
	if keep > len(o.window) {
		keep = len(o.window)
	}

	o.carry = append(o.carry[:0], o.window[len(o.window)-keep:]...)

	return false, nil
}
