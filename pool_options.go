package natcalc

// PoolOption is a functional option for configuring a Pool.
type PoolOption func(*poolConfig)

// TableOption is a functional option for configuring table builds.
type TableOption func(*tableConfig)

type poolConfig struct {
	seed     uint32   // initval passed to the hash; the kernel uses 0
	keyOrder KeyOrder // how addresses become hash keys
}

func defaultPoolConfig() *poolConfig {
	return &poolConfig{
		seed:     0,
		keyOrder: KeyLittleEndian,
	}
}

type tableConfig struct {
	workers int
}

func defaultTableConfig() *tableConfig {
	return &tableConfig{
		workers: 0, // Default to single-threaded; use WithTableWorkers(n) to parallelize
	}
}

// WithSeed sets the hash seed (initval). Persistent SNAT in the kernel
// always uses 0; other seeds give independent mappings for what-if audits.
func WithSeed(seed uint32) PoolOption {
	return func(c *poolConfig) {
		c.seed = seed
	}
}

// WithKeyOrder sets the byte order of the kernel being modeled.
// Default is KeyLittleEndian.
func WithKeyOrder(order KeyOrder) PoolOption {
	return func(c *poolConfig) {
		c.keyOrder = order
	}
}

// WithTableWorkers sets the number of goroutines filling the entry region.
// Values below 2 build on the calling goroutine.
func WithTableWorkers(n int) TableOption {
	return func(c *tableConfig) {
		c.workers = n
	}
}
