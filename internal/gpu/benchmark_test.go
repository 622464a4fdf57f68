package gpu

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func BenchmarkCPUBackend_AllocateBuffer(b *testing.B) {
	backend := NewCPUBackend(zap.NewNop())
	if err := backend.Initialize(); err != nil {
		b.Fatal(err)
	}
	defer backend.Cleanup()

	for _, size := range []int{4 << 10, 64 << 10, 1 << 20} {
		b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				buf, err := backend.AllocateBuffer(size)
				if err != nil {
					b.Fatal(err)
				}
				_ = buf.Free()
			}
		})
	}
}
