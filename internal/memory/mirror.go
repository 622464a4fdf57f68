package memory

import "sync"

// Mirror is a contiguous virtual alias over one or more guest regions.
type Mirror struct {
	mu      sync.Mutex
	data    []byte
	release func() error
	err     error
}

// NewMirror wraps data; release unmaps it and is called at most once.
func NewMirror(data []byte, release func() error) *Mirror {
	return &Mirror{data: data, release: release}
}

// Data returns the aliased bytes, or nil once released.
func (m *Mirror) Data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

func (m *Mirror) Len() int {
	return len(m.Data())
}

func (m *Mirror) Valid() bool {
	return m != nil && m.Data() != nil
}

// Subspan returns size bytes starting at offset. Capacity is clipped so an
// append can never reach past the sub-span.
func (m *Mirror) Subspan(offset, size int) []byte {
	data := m.Data()
	return data[offset : offset+size : offset+size]
}

// Release unmaps the mirror. Only the first call does anything; later calls
// return the first call's error.
func (m *Mirror) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return m.err
	}
	m.data = nil
	if m.release != nil {
		m.err = m.release()
		m.release = nil
	}
	return m.err
}
