package natcalc

import (
	"context"
	"fmt"
	"math"

	natcalcerrors "github.com/katsys/natcalc/errors"
	"golang.org/x/sync/errgroup"
)

// MaxDistributionSize is the largest pool a Distribution can tally.
const MaxDistributionSize = 1 << 20

// tallyChunkSize is the number of input addresses per TallySpan task.
const tallyChunkSize = 1 << 16

// Distribution counts how often each pool address was assigned.
// It is not safe for concurrent use; TallySpan merges per-worker copies.
type Distribution struct {
	r       Range
	counts  []uint64
	total   uint64
	outside uint64
}

// NewDistribution creates an empty tally for r.
// Returns ErrPoolTooLarge if r holds more than MaxDistributionSize addresses.
func NewDistribution(r Range) (*Distribution, error) {
	if r.Min > r.Max {
		return nil, natcalcerrors.ErrInvalidRange
	}
	if r.Size() > MaxDistributionSize {
		return nil, fmt.Errorf("%w: %d addresses (max %d)", natcalcerrors.ErrPoolTooLarge, r.Size(), MaxDistributionSize)
	}
	return &Distribution{
		r:      r,
		counts: make([]uint64, r.Size()),
	}, nil
}

// Add records one mapped address. Addresses outside the pool are counted
// separately and never affect the per-address counts.
func (d *Distribution) Add(mapped uint32) {
	d.total++
	if !d.r.Contains(mapped) {
		d.outside++
		return
	}
	d.counts[mapped-d.r.Min]++
}

// merge adds the counts of o, which must cover the same range.
func (d *Distribution) merge(o *Distribution) {
	for i, c := range o.counts {
		d.counts[i] += c
	}
	d.total += o.total
	d.outside += o.outside
}

// Range returns the tallied pool.
func (d *Distribution) Range() Range { return d.r }

// Count returns how many times addr was assigned.
func (d *Distribution) Count(addr uint32) uint64 {
	if !d.r.Contains(addr) {
		return 0
	}
	return d.counts[addr-d.r.Min]
}

// Total returns the number of recorded assignments, including Outside.
func (d *Distribution) Total() uint64 { return d.total }

// Outside returns the number of recorded addresses that were not in the pool.
func (d *Distribution) Outside() uint64 { return d.outside }

// Used returns the number of pool addresses assigned at least once.
func (d *Distribution) Used() int {
	n := 0
	for _, c := range d.counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// MinMax returns the smallest and largest per-address counts.
func (d *Distribution) MinMax() (lo, hi uint64) {
	lo = math.MaxUint64
	for _, c := range d.counts {
		lo = min(lo, c)
		hi = max(hi, c)
	}
	return lo, hi
}

// ChiSquare returns Pearson's chi-square statistic of the in-pool counts
// against a uniform expectation. With k pool addresses it has k-1 degrees of
// freedom; values near k-1 indicate uniform spreading. Returns 0 when
// nothing was recorded.
func (d *Distribution) ChiSquare() float64 {
	inPool := d.total - d.outside
	if inPool == 0 {
		return 0
	}
	expected := float64(inPool) / float64(len(d.counts))
	var chi float64
	for _, c := range d.counts {
		diff := float64(c) - expected
		chi += diff * diff / expected
	}
	return chi
}

// TallySpan maps count consecutive input addresses starting at first and
// returns the resulting distribution. Workers tally disjoint sub-spans into
// private distributions that are merged at the end.
func TallySpan(ctx context.Context, p *Pool, first uint32, count uint64, workers int) (*Distribution, error) {
	if err := validateSpan(first, count); err != nil {
		return nil, err
	}
	dist, err := NewDistribution(p.Range())
	if err != nil {
		return nil, err
	}

	chunks := int((count + tallyChunkSize - 1) / tallyChunkSize)
	if workers < 2 || chunks == 1 {
		for c := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tallyChunk(dist, p, first, count, c)
		}
		return dist, nil
	}

	workers = min(workers, chunks)
	partials := make([]*Distribution, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		partial, err := NewDistribution(p.Range())
		if err != nil {
			return nil, err
		}
		partials[w] = partial
		g.Go(func() error {
			for c := w; c < chunks; c += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				tallyChunk(partial, p, first, count, c)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, partial := range partials {
		dist.merge(partial)
	}
	return dist, nil
}

func tallyChunk(d *Distribution, p *Pool, first uint32, count uint64, chunk int) {
	start := uint64(chunk) * tallyChunkSize
	end := min(start+tallyChunkSize, count)
	for i := start; i < end; i++ {
		d.Add(p.Map(first + uint32(i)))
	}
}

// validateSpan checks that [first, first+count) is non-empty and does not
// run past 255.255.255.255.
func validateSpan(first uint32, count uint64) error {
	if count == 0 || uint64(first)+count-1 > math.MaxUint32 {
		return fmt.Errorf("%w: first=%d count=%d", natcalcerrors.ErrInvalidSpan, first, count)
	}
	return nil
}
