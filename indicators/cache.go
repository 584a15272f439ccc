package indicators

import "github.com/rustyeddy/backtester/market"

// Cache memoizes indicator series for one simulation run. Each distinct Ref
// is computed once, in a single causal pass over the bars, the first time it
// is requested; value i depends only on bars[0..i].
//
// A Cache belongs to exactly one run and is not safe for concurrent use.
type Cache struct {
	bars   []market.Bar
	series map[Ref]*series
}

type series struct {
	vals []float64
	ok   []bool
}

// NewCache returns an empty cache over bars. bars must not be modified
// while the cache is in use.
func NewCache(bars []market.Bar) *Cache {
	return &Cache{
		bars:   bars,
		series: make(map[Ref]*series),
	}
}

// Len returns the number of bars the cache covers.
func (c *Cache) Len() int { return len(c.bars) }

// Computed returns how many distinct series have been built.
func (c *Cache) Computed() int { return len(c.series) }

// Prepare validates and computes refs up front so that configuration
// problems surface before a run starts.
func (c *Cache) Prepare(refs ...Ref) error {
	for _, r := range refs {
		if _, err := c.get(r); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the output of ref at bar i. ok is false during warm-up, for
// an out-of-range index, or for an invalid ref.
func (c *Cache) Value(ref Ref, i int) (float64, bool) {
	if i < 0 || i >= len(c.bars) {
		return 0, false
	}
	s, err := c.get(ref)
	if err != nil {
		return 0, false
	}
	return s.vals[i], s.ok[i]
}

func (c *Cache) get(ref Ref) (*series, error) {
	ref = ref.Normalize()
	if s, ok := c.series[ref]; ok {
		return s, nil
	}

	ind, err := New(ref)
	if err != nil {
		return nil, err
	}

	s := &series{
		vals: make([]float64, len(c.bars)),
		ok:   make([]bool, len(c.bars)),
	}
	for i, b := range c.bars {
		ind.Update(b)
		s.vals[i], s.ok[i] = sample(ind, ref.Field)
	}
	c.series[ref] = s
	return s, nil
}
