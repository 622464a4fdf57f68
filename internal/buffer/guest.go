package buffer

import "github.com/fxnlabs/bufsync/internal/memory"

// GuestBuffer describes the guest memory behind one buffer: disjoint
// regions whose concatenation, in order, is the buffer's byte layout.
type GuestBuffer struct {
	Mappings []memory.Region
}

// BufferSize is the sum of the mapping sizes.
func (g GuestBuffer) BufferSize() uint64 {
	var size uint64
	for _, mapping := range g.Mappings {
		size += mapping.Size
	}
	return size
}
