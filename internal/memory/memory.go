// Package memory provides emulated guest memory and the virtual aliases
// ("mirrors") that buffers use to address fragmented guest ranges as one
// contiguous slice.
//
// Guest memory is a memfd mapped MAP_SHARED; guest address a is byte a of
// that mapping. A mirror maps the same memfd pages a second time at another
// host address, so writes through either are visible through both.
package memory

import "errors"

// Region is a range of guest address space.
type Region struct {
	Addr uint64
	Size uint64
}

// End returns the first guest address past the region.
func (r Region) End() uint64 {
	return r.Addr + r.Size
}

// Space is guest address space that can hand out its bytes and alias
// ranges of itself. *GuestMemory implements it.
type Space interface {
	PageSize() int

	// Bytes returns the guest bytes of r, aliasing guest memory.
	Bytes(r Region) []byte

	// CreateMirror aliases one page-aligned region.
	CreateMirror(r Region) (*Mirror, error)

	// CreateMirrors aliases regions back to back in one contiguous
	// mirror. Every region must start on a page boundary and every region
	// but the last must span whole pages.
	CreateMirrors(regions []Region) (*Mirror, error)
}

// Error represents a guest memory error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "memory: " + e.Op + ": " + e.Err.Error()
	}
	return "memory: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrUnaligned   = errors.New("region is not page aligned")
	ErrOutOfRange  = errors.New("region outside guest memory")
	ErrEmpty       = errors.New("no regions")
	ErrClosed      = errors.New("guest memory closed")
	ErrUnsupported = errors.New("guest memory mirroring is not supported on this platform")
)

func AlignDown(v, align uint64) uint64 {
	return v &^ (align - 1)
}

func AlignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

func IsAligned(v, align uint64) bool {
	return v&(align-1) == 0
}
