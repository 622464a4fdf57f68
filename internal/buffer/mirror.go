package buffer

import (
	"github.com/fxnlabs/bufsync/internal/memory"
)

// setupGuestMappings creates one contiguous alias over the guest mappings
// and returns it along with the sub-span that lines up byte for byte with
// the buffer.
//
// A single mapping is widened to whole pages on both sides. With several
// mappings only the extremities are widened: the front mapping's start is
// aligned down, the back mapping's size is aligned up, and the mappings in
// between are requested as they are.
func setupGuestMappings(space memory.Space, mappings []memory.Region) (*memory.Mirror, []byte, error) {
	pageSize := uint64(space.PageSize())

	if len(mappings) == 1 {
		mapping := mappings[0]
		alignedAddr := memory.AlignDown(mapping.Addr, pageSize)
		alignedSize := memory.AlignUp(mapping.End(), pageSize) - alignedAddr

		alignedMirror, err := space.CreateMirror(memory.Region{Addr: alignedAddr, Size: alignedSize})
		if err != nil {
			return nil, nil, err
		}
		return alignedMirror, alignedMirror.Subspan(int(mapping.Addr-alignedAddr), int(mapping.Size)), nil
	}

	alignedMappings := make([]memory.Region, 0, len(mappings))

	front := mappings[0]
	alignedAddr := memory.AlignDown(front.Addr, pageSize)
	alignedMappings = append(alignedMappings, memory.Region{Addr: alignedAddr, Size: front.End() - alignedAddr})

	totalSize := front.Size
	for _, mapping := range mappings[1 : len(mappings)-1] {
		alignedMappings = append(alignedMappings, mapping)
		totalSize += mapping.Size
	}

	back := mappings[len(mappings)-1]
	totalSize += back.Size
	alignedMappings = append(alignedMappings, memory.Region{Addr: back.Addr, Size: memory.AlignUp(back.Size, pageSize)})

	alignedMirror, err := space.CreateMirrors(alignedMappings)
	if err != nil {
		return nil, nil, err
	}
	return alignedMirror, alignedMirror.Subspan(int(front.Addr-alignedAddr), int(totalSize)), nil
}
