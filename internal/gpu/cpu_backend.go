package gpu

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/fxnlabs/bufsync/internal/metrics"
	"go.uber.org/zap"
)

var ErrNotInitialized = errors.New("backend not initialized")

// CPUBackend implements Backend with page-aligned host memory.
type CPUBackend struct {
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
	used        int64
	live        map[*cpuBuffer]struct{}
}

// NewCPUBackend creates a new CPU backend instance
func NewCPUBackend(logger *zap.Logger) *CPUBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CPUBackend{
		logger: logger.Named("cpu"),
		live:   make(map[*cpuBuffer]struct{}),
	}
}

// Initialize prepares the CPU backend for use
func (c *CPUBackend) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	c.initialized = true
	c.logger.Info("CPU backend initialized")
	return nil
}

// Cleanup frees every buffer still allocated
func (c *CPUBackend) Cleanup() error {
	c.mu.Lock()
	live := c.live
	c.live = make(map[*cpuBuffer]struct{})
	c.initialized = false
	c.mu.Unlock()

	for buf := range live {
		_ = buf.Free()
	}
	if len(live) > 0 {
		c.logger.Warn("freed buffers still allocated at cleanup", zap.Int("count", len(live)))
	}
	return nil
}

// IsAvailable checks if the backend is available (always true for CPU)
func (c *CPUBackend) IsAvailable() bool {
	return true
}

// GetDeviceInfo returns device information for CPU
func (c *CPUBackend) GetDeviceInfo() DeviceInfo {
	c.mu.Lock()
	used := c.used
	c.mu.Unlock()

	total := getTotalSystemMemory()
	return DeviceInfo{
		Name:            fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		TotalMemory:     total,
		AvailableMemory: total - used,
		DriverVersion:   runtime.Version(),
	}
}

// AllocateBuffer returns a zeroed host buffer of size bytes whose first byte
// sits on a page boundary.
func (c *CPUBackend) AllocateBuffer(size int) (HostBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid host buffer size: %d", size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, ErrNotInitialized
	}

	buf := &cpuBuffer{backend: c, data: alignedBytes(size, os.Getpagesize())}
	c.live[buf] = struct{}{}
	c.used += int64(size)
	metrics.HostMemoryUsedBytes.Add(float64(size))
	return buf, nil
}

func (c *CPUBackend) release(buf *cpuBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live[buf]; !ok {
		return
	}
	delete(c.live, buf)
	c.used -= int64(len(buf.data))
	metrics.HostMemoryUsedBytes.Sub(float64(len(buf.data)))
}

type cpuBuffer struct {
	backend *CPUBackend
	once    sync.Once
	data    []byte
}

func (b *cpuBuffer) Data() []byte {
	return b.data
}

func (b *cpuBuffer) Size() int {
	return len(b.data)
}

func (b *cpuBuffer) Free() error {
	b.once.Do(func() {
		b.backend.release(b)
	})
	return nil
}

// alignedBytes over-allocates by one alignment unit and slices forward to
// the first aligned address.
func alignedBytes(size, align int) []byte {
	buf := make([]byte, size+align-1)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := 0
	if mod := int(ptr % uintptr(align)); mod != 0 {
		offset = align - mod
	}
	return buf[offset : offset+size : offset+size]
}

// getTotalSystemMemory returns total system memory in bytes
func getTotalSystemMemory() int64 {
	// Return a default value for now
	// TODO: read MemTotal from /proc/meminfo on linux
	return 8 * 1024 * 1024 * 1024 // 8GB
}
