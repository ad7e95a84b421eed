package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/katsys/natcalc"
	"github.com/katsys/natcalc/internal/inet"
)

// Config is the optional TOML file given with -config.
//
//	log_level = "info"
//	workers = 4
//
//	[[pool]]
//	name = "office"
//	min = "100.64.0.0"
//	max = "100.64.0.255"
//	seed = 0
//	key_order = "little"
type Config struct {
	LogLevel string       `toml:"log_level"`
	Workers  int          `toml:"workers"`
	Pools    []PoolConfig `toml:"pool"`
}

// PoolConfig describes one named SNAT pool.
type PoolConfig struct {
	Name     string `toml:"name"`
	Min      string `toml:"min"`
	Max      string `toml:"max"`
	Seed     uint32 `toml:"seed"`
	KeyOrder string `toml:"key_order"`
}

// loadConfig reads and decodes a config file.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	seen := make(map[string]bool, len(c.Pools))
	for i, p := range c.Pools {
		if p.Name == "" {
			return nil, fmt.Errorf("config: pool #%d has no name", i+1)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("config: duplicate pool %q", p.Name)
		}
		seen[p.Name] = true
	}
	if c.Workers < 0 {
		return nil, fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	return &c, nil
}

// Pool returns the pool named name.
func (c *Config) Pool(name string) (*PoolConfig, error) {
	for i := range c.Pools {
		if c.Pools[i].Name == name {
			return &c.Pools[i], nil
		}
	}
	return nil, fmt.Errorf("config: no pool named %q", name)
}

// build validates the bounds and key order and creates the pool. Explicit
// options are applied after the configured ones and take precedence.
func (pc *PoolConfig) build(opts ...natcalc.PoolOption) (*natcalc.Pool, error) {
	lo, err := inet.ParseBound(pc.Min)
	if err != nil {
		return nil, fmt.Errorf("pool %q min: %w", pc.Name, err)
	}
	hi, err := inet.ParseBound(pc.Max)
	if err != nil {
		return nil, fmt.Errorf("pool %q max: %w", pc.Name, err)
	}
	order, err := natcalc.ParseKeyOrder(pc.KeyOrder)
	if err != nil {
		return nil, fmt.Errorf("pool %q: %w", pc.Name, err)
	}
	base := []natcalc.PoolOption{natcalc.WithSeed(pc.Seed), natcalc.WithKeyOrder(order)}
	p, err := natcalc.NewPool(lo, hi, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("pool %q: %w", pc.Name, err)
	}
	return p, nil
}
