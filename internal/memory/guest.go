package memory

import (
	"sync"

	"go.uber.org/zap"
)

// GuestMemory is the emulated machine's address space.
type GuestMemory struct {
	log      *zap.Logger
	name     string
	pageSize int

	mu     sync.Mutex
	fd     int
	data   []byte
	closed bool
}

var _ Space = (*GuestMemory)(nil)

func (g *GuestMemory) PageSize() int {
	return g.pageSize
}

// Size returns the guest address space size in bytes.
func (g *GuestMemory) Size() int {
	return len(g.data)
}

func (g *GuestMemory) Bytes(r Region) []byte {
	return g.data[r.Addr:r.End():r.End()]
}

// checkRegions validates mirror requests and returns their total size.
func (g *GuestMemory) checkRegions(regions []Region) (uint64, error) {
	if len(regions) == 0 {
		return 0, &Error{Op: "create mirror", Err: ErrEmpty}
	}
	pageSize := uint64(g.pageSize)
	var total uint64
	for i, r := range regions {
		if r.Size == 0 || r.End() > uint64(len(g.data)) || r.End() < r.Addr {
			return 0, &Error{Op: "create mirror", Err: ErrOutOfRange}
		}
		if !IsAligned(r.Addr, pageSize) || (i < len(regions)-1 && !IsAligned(r.Size, pageSize)) {
			return 0, &Error{Op: "create mirror", Err: ErrUnaligned}
		}
		total += r.Size
	}
	return total, nil
}

func (g *GuestMemory) CreateMirror(r Region) (*Mirror, error) {
	return g.CreateMirrors([]Region{r})
}
