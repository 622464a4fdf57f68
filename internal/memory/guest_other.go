//go:build !linux

package memory

import "go.uber.org/zap"

// NewGuestMemory needs memfd_create, which only linux provides.
func NewGuestMemory(name string, size int, log *zap.Logger) (*GuestMemory, error) {
	return nil, ErrUnsupported
}

func (g *GuestMemory) CreateMirrors(regions []Region) (*Mirror, error) {
	return nil, ErrUnsupported
}

func (g *GuestMemory) Close() error {
	return nil
}
