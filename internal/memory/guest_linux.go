//go:build linux

package memory

import (
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// NewGuestMemory creates size bytes of guest memory, rounded up to whole
// pages, backed by a memfd called name.
func NewGuestMemory(name string, size int, log *zap.Logger) (*GuestMemory, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pageSize := unix.Getpagesize()
	if size <= 0 {
		return nil, &Error{Op: "invalid size", Err: ErrOutOfRange}
	}
	size = int(AlignUp(uint64(size), uint64(pageSize)))

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, &Error{Op: "memfd_create", Err: err}
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, &Error{Op: "ftruncate", Err: err}
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, &Error{Op: "mmap", Err: err}
	}

	g := &GuestMemory{
		log:      log.Named("memory"),
		name:     name,
		pageSize: pageSize,
		fd:       fd,
		data:     data,
	}
	g.log.Info("guest memory mapped", zap.String("name", name), zap.Int("size", size), zap.Int("page_size", pageSize))
	return g, nil
}

// CreateMirrors reserves one contiguous range of address space and maps
// each region's memfd pages into it back to back.
func (g *GuestMemory) CreateMirrors(regions []Region) (*Mirror, error) {
	total, err := g.checkRegions(regions)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, &Error{Op: "create mirror", Err: ErrClosed}
	}

	mapLen := uintptr(AlignUp(total, uint64(g.pageSize)))
	base, err := unix.MmapPtr(-1, 0, nil, mapLen, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, &Error{Op: "reserve mirror", Err: err}
	}

	var offset uintptr
	for _, r := range regions {
		_, err := unix.MmapPtr(g.fd, int64(r.Addr), unsafe.Add(base, offset), uintptr(r.Size),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED)
		if err != nil {
			_ = unix.MunmapPtr(base, mapLen)
			return nil, &Error{Op: "map mirror region", Err: err}
		}
		offset += uintptr(r.Size)
	}

	data := unsafe.Slice((*byte)(base), int(total))
	return NewMirror(data, func() error {
		return unix.MunmapPtr(base, mapLen)
	}), nil
}

// Close unmaps guest memory. Mirrors created earlier stay valid until
// released.
func (g *GuestMemory) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	err := unix.Munmap(g.data)
	g.data = nil
	if cerr := unix.Close(g.fd); err == nil {
		err = cerr
	}
	if err != nil {
		return &Error{Op: "close", Err: err}
	}
	g.log.Info("guest memory unmapped", zap.String("name", g.name))
	return nil
}
