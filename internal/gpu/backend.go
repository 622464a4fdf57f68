package gpu

// DeviceInfo contains information about the device backing host buffers
type DeviceInfo struct {
	Name            string `json:"name"`
	TotalMemory     int64  `json:"totalMemory"`     // in bytes
	AvailableMemory int64  `json:"availableMemory"` // in bytes
	DriverVersion   string `json:"driverVersion"`
}

// HostBuffer is a contiguous host-side buffer resource. The owner is the
// only writer; Data stays valid until Free.
type HostBuffer interface {
	// Data returns the buffer contents, exactly Size bytes
	Data() []byte

	Size() int

	// Free releases the buffer. Calls after the first are no-ops.
	Free() error
}

// Allocator hands out host buffers. Buffers take an Allocator rather than a
// Backend so that a Manager can sit in front of whichever backend it picked.
type Allocator interface {
	AllocateBuffer(size int) (HostBuffer, error)
}

// Backend defines the interface for host buffer backends.
//
// Implementation notes:
// - Backends must be safe for concurrent AllocateBuffer calls
// - Selection and fallback is handled by the Manager, not the backend
// - Cleanup must release every buffer still outstanding
type Backend interface {
	Allocator

	// GetDeviceInfo returns information about the device
	GetDeviceInfo() DeviceInfo

	// IsAvailable checks if the backend is available for use
	// This should perform a quick check without heavy initialization
	IsAvailable() bool

	// Initialize prepares the backend for use
	// Should be called once before the first allocation
	Initialize() error

	// Cleanup releases any resources held by the backend
	Cleanup() error
}
