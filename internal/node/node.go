// Package node assembles the host side of a guest: its memory, the GPU
// allocator and the buffers shared between them.
package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"

	"github.com/fxnlabs/bufsync/internal/buffer"
	"github.com/fxnlabs/bufsync/internal/config"
	"github.com/fxnlabs/bufsync/internal/fence"
	"github.com/fxnlabs/bufsync/internal/gpu"
	"github.com/fxnlabs/bufsync/internal/memory"
	"github.com/fxnlabs/bufsync/internal/metrics"
	"github.com/fxnlabs/bufsync/internal/stress"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var ErrMismatch = errors.New("guest and host contents differ")

// Module provides the GPU manager, guest memory and Node. Both resources are
// released when the fx app stops.
var Module = fx.Options(
	fx.Provide(
		NewGPUManager,
		NewGuestMemory,
		New,
	),
)

// Options is Module with the process config and logger supplied and fx's
// own events logged through zap.
func Options(cfg *config.Config, log *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, log),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		Module,
	)
}

func NewGPUManager(lc fx.Lifecycle, log *zap.Logger) (*gpu.Manager, error) {
	manager, err := gpu.NewManager(log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(manager.Cleanup))
	return manager, nil
}

func NewGuestMemory(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*memory.GuestMemory, error) {
	guest, err := memory.NewGuestMemory(cfg.Memory.Name, cfg.Memory.GuestSize, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(guest.Close))
	return guest, nil
}

// RegisterMetricsServer serves /metrics on cfg.Metrics.ListenAddress for the
// lifetime of the app. It does nothing when no address is configured.
func RegisterMetricsServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) {
	addr := cfg.Metrics.ListenAddress
	if addr == "" {
		return
	}
	srv := metrics.NewServer(addr)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("Serving metrics", zap.String("address", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

type Node struct {
	log   *zap.Logger
	cfg   *config.Config
	gpu   *gpu.Manager
	guest *memory.GuestMemory
}

func New(cfg *config.Config, log *zap.Logger, manager *gpu.Manager, guest *memory.GuestMemory) *Node {
	return &Node{
		log:   log.Named("node"),
		cfg:   cfg,
		gpu:   manager,
		guest: guest,
	}
}

func (n *Node) Guest() *memory.GuestMemory {
	return n.guest
}

func (n *Node) NewBuffer(mappings ...memory.Region) (*buffer.Buffer, error) {
	return buffer.New(n.gpu, n.guest, buffer.GuestBuffer{Mappings: mappings}, n.log)
}

// Layout places spans guest regions of spanSize bytes (rounded up to whole
// pages) one page apart. With more than one span the first starts and the
// last ends off a page boundary, so the layout needs a front and back
// mirror.
func (n *Node) Layout(spans int, spanSize uint64) ([]memory.Region, error) {
	if spans <= 0 || spanSize == 0 {
		return nil, fmt.Errorf("layout needs at least one non-empty span, got %d x %d", spans, spanSize)
	}
	page := uint64(n.guest.PageSize())
	size := memory.AlignUp(spanSize, page)
	stride := size + page
	if need := uint64(spans) * stride; need > uint64(n.guest.Size()) {
		return nil, fmt.Errorf("layout needs %d bytes of guest memory, have %d", need, n.guest.Size())
	}

	regions := make([]memory.Region, spans)
	for i := range regions {
		regions[i] = memory.Region{Addr: uint64(i) * stride, Size: size}
	}
	if spans > 1 {
		skew := page / 4
		regions[0].Addr += skew
		regions[0].Size -= skew
		regions[spans-1].Size -= skew
	}
	return regions, nil
}

type RoundTripResult struct {
	Size     uint64
	Mappings int
}

// RoundTrip moves random payloads across a buffer built from Layout in both
// directions, through an immediate and a cycle-deferred guest sync, and
// through the mirror. It fails with ErrMismatch on the first copy that did
// not land.
func (n *Node) RoundTrip(spans int, spanSize uint64, seed int64) (RoundTripResult, error) {
	mappings, err := n.Layout(spans, spanSize)
	if err != nil {
		return RoundTripResult{}, err
	}
	rng := rand.New(rand.NewSource(seed))

	for _, mapping := range mappings {
		rng.Read(n.guest.Bytes(mapping))
	}
	b, err := n.NewBuffer(mappings...)
	if err != nil {
		return RoundTripResult{}, err
	}
	defer b.Close()
	result := RoundTripResult{Size: b.Size(), Mappings: len(mappings)}

	if err := n.compare("host sync", b, mappings); err != nil {
		return result, err
	}

	rng.Read(b.Backing())
	b.SynchronizeGuest()
	if err := n.compare("guest sync", b, mappings); err != nil {
		return result, err
	}

	before := n.concat(mappings)
	rng.Read(b.Backing())
	cycle := fence.NewCycle()
	b.SynchronizeGuestWithCycle(cycle)
	if !bytes.Equal(before, n.concat(mappings)) {
		return result, fmt.Errorf("deferred guest sync: guest changed before cycle %d completed", cycle.ID())
	}
	cycle.Signal()
	b.WaitOnFence()
	if err := n.compare("deferred guest sync", b, mappings); err != nil {
		return result, err
	}

	payload := make([]byte, b.Size())
	rng.Read(payload)
	b.Write(payload, 0)
	b.SynchronizeHost()
	if !bytes.Equal(payload, b.Backing()) {
		return result, fmt.Errorf("mirror write: %w", ErrMismatch)
	}

	n.log.Info("round trip complete",
		zap.Uint64("size", result.Size),
		zap.Int("mappings", result.Mappings),
		zap.String("backend", n.gpu.GetBackendType()))
	return result, nil
}

func (n *Node) concat(mappings []memory.Region) []byte {
	var all []byte
	for _, mapping := range mappings {
		all = append(all, n.guest.Bytes(mapping)...)
	}
	return all
}

func (n *Node) compare(stage string, b *buffer.Buffer, mappings []memory.Region) error {
	if !bytes.Equal(n.concat(mappings), b.Backing()) {
		return fmt.Errorf("%s: %w", stage, ErrMismatch)
	}
	return nil
}

// Stress runs the view swap harness over single-page buffers carved from
// guest memory.
func (n *Node) Stress(ctx context.Context, opts stress.Options) (stress.Report, error) {
	page := uint64(n.guest.PageSize())
	if pages := n.guest.Size() / int(page); opts.Swaps+1 > pages {
		return stress.Report{}, fmt.Errorf("%d buffers do not fit in %d guest pages", opts.Swaps+1, pages)
	}
	return stress.Run(ctx, opts, func(i int) (*buffer.Buffer, error) {
		return n.NewBuffer(memory.Region{Addr: uint64(i) * page, Size: page})
	}, n.log)
}
