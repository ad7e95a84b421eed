package natcalc

import (
	"context"
	"fmt"

	natcalcerrors "github.com/katsys/natcalc/errors"
	"github.com/katsys/natcalc/jhash"
	"golang.org/x/sync/errgroup"
)

// mapChunkSize is the number of addresses a MapAll worker handles per task.
// Context cancellation is observed between chunks.
const mapChunkSize = 4096

// Pool computes persistent SNAT assignments for one address pool.
//
// Thread Safety: a Pool is immutable after NewPool and safe for concurrent use.
type Pool struct {
	r        Range
	seed     uint32
	keyOrder KeyOrder
}

// NewPool creates a Pool for the inclusive range [minAddr, maxAddr].
// Returns ErrInvalidRange if minAddr > maxAddr and ErrInvalidKeyOrder for an
// unknown WithKeyOrder value.
func NewPool(minAddr, maxAddr uint32, opts ...PoolOption) (*Pool, error) {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	r, err := NewRange(minAddr, maxAddr)
	if err != nil {
		return nil, err
	}
	if !cfg.keyOrder.Valid() {
		return nil, fmt.Errorf("%w: %d", natcalcerrors.ErrInvalidKeyOrder, cfg.keyOrder)
	}

	return &Pool{
		r:        r,
		seed:     cfg.seed,
		keyOrder: cfg.keyOrder,
	}, nil
}

// Range returns the pool bounds.
func (p *Pool) Range() Range { return p.r }

// Seed returns the hash seed.
func (p *Pool) Seed() uint32 { return p.seed }

// KeyOrder returns the key byte order.
func (p *Pool) KeyOrder() KeyOrder { return p.keyOrder }

// Hash returns the persistent SNAT hash of a host-order source address:
// the two-word jhash of the address key and a zero destination word.
func (p *Pool) Hash(addr uint32) uint32 {
	return jhash.Hash2Words(p.keyOrder.Key(addr), 0, p.seed)
}

// Map returns the pool address assigned to a host-order source address.
func (p *Pool) Map(addr uint32) uint32 {
	return p.r.Map(p.Hash(addr))
}

// MapConn returns the address the kernel selects without --persistent,
// where the destination address takes the place of the zero word.
func (p *Pool) MapConn(src, dst uint32) uint32 {
	h := jhash.Hash2Words(p.keyOrder.Key(src), p.keyOrder.Key(dst), p.seed)
	return p.r.Map(h)
}

// MapAll maps every address in addrs, preserving order.
//
// With workers > 1 the batch is split into chunks mapped by an errgroup of
// at most workers goroutines. The only possible error is ctx's.
func (p *Pool) MapAll(ctx context.Context, addrs []uint32, workers int) ([]uint32, error) {
	out := make([]uint32, len(addrs))
	if err := p.mapInto(ctx, out, addrs, workers); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pool) mapInto(ctx context.Context, dst, addrs []uint32, workers int) error {
	if workers < 2 || len(addrs) <= mapChunkSize {
		for start := 0; start < len(addrs); start += mapChunkSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(start+mapChunkSize, len(addrs))
			p.mapChunk(dst[start:end], addrs[start:end])
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(addrs); start += mapChunkSize {
		end := min(start+mapChunkSize, len(addrs))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.mapChunk(dst[start:end], addrs[start:end])
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) mapChunk(dst, addrs []uint32) {
	for i, a := range addrs {
		dst[i] = p.Map(a)
	}
}
