package gpu

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Manager handles backend selection and lifecycle
type Manager struct {
	backend Backend
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewManager creates a new manager and selects the best available backend
func NewManager(logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		logger: logger.Named("gpu"),
	}

	if err := m.detectAndInitialize(); err != nil {
		return nil, err
	}

	return m, nil
}

// detectAndInitialize initializes the first available backend from the
// factory candidates, falling back to host memory
func (m *Manager) detectAndInitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, candidate := range candidateBackends(m.logger) {
		if !candidate.IsAvailable() {
			continue
		}
		if err := candidate.Initialize(); err != nil {
			m.logger.Warn("backend initialization failed", zap.Error(err))
			_ = candidate.Cleanup()
			continue
		}
		m.backend = candidate
		return nil
	}

	cpuBackend := NewCPUBackend(m.logger)
	if err := cpuBackend.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize CPU backend: %w", err)
	}
	m.backend = cpuBackend
	return nil
}

// GetBackend returns the current backend
func (m *Manager) GetBackend() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend
}

// AllocateBuffer allocates a host buffer from the selected backend
func (m *Manager) AllocateBuffer(size int) (HostBuffer, error) {
	backend := m.GetBackend()
	if backend == nil {
		return nil, fmt.Errorf("no backend available")
	}
	buf, err := backend.AllocateBuffer(size)
	if err != nil {
		m.logger.Error("host buffer allocation failed", zap.Int("size", size), zap.Error(err))
		return nil, err
	}
	return buf, nil
}

// GetDeviceInfo returns device information from the current backend
func (m *Manager) GetDeviceInfo() DeviceInfo {
	backend := m.GetBackend()
	if backend == nil {
		return DeviceInfo{Name: "No backend available"}
	}
	return backend.GetDeviceInfo()
}

// Cleanup releases resources held by the current backend
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		if err := m.backend.Cleanup(); err != nil {
			return err
		}
		m.backend = nil
	}
	return nil
}

// GetBackendType returns a string describing the current backend type
func (m *Manager) GetBackendType() string {
	backend := m.GetBackend()
	if backend == nil {
		return "none"
	}
	if _, isCPU := backend.(*CPUBackend); isCPU {
		return "cpu"
	}
	return "unknown"
}
