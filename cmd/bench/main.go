// Bench compares the persistent SNAT hash with general-purpose hashes on
// IPv4 source addresses: throughput and how evenly each spreads a pool.
//
// Usage:
//
//	go run ./cmd/bench -keys 10000000 -pool 100.64.0.0/16
//
// Flags:
//
//	-keys        Number of source addresses (default: 10,000,000)
//	-pool        Pool as a CIDR prefix or first-last pair (default: 100.64.0.0/16)
//	-sequential  Use consecutive addresses from 10.0.0.0 instead of random ones
//	-workers     Number of parallel workers for the natcalc pass (default: 1)
package main

import (
	"context"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	"github.com/katsys/natcalc"
	"github.com/katsys/natcalc/internal/inet"
	"github.com/katsys/natcalc/jhash"
)

// hasher reduces one host-order address to a 32-bit hash.
type hasher struct {
	name string
	hash func(addr uint32) uint32
}

var hashers = []hasher{
	{"jhash (kernel)", func(a uint32) uint32 {
		return jhash.Hash2Words(natcalc.KeyLittleEndian.Key(a), 0, 0)
	}},
	{"murmur3", func(a uint32) uint32 {
		b := inet.Bytes(a)
		return murmur3.Sum32WithSeed(b[:], 0)
	}},
	{"xxhash64", func(a uint32) uint32 {
		b := inet.Bytes(a)
		return uint32(xxhash.Sum64(b[:]) >> 32)
	}},
	{"xxh3", func(a uint32) uint32 {
		b := inet.Bytes(a)
		return uint32(xxh3.Hash(b[:]) >> 32)
	}},
}

type result struct {
	name     string
	duration time.Duration
	dist     *natcalc.Distribution
}

func main() {
	keysFlag := flag.Int("keys", 10_000_000, "number of source addresses")
	poolFlag := flag.String("pool", "100.64.0.0/16", "pool as a CIDR prefix or first-last pair")
	sequentialFlag := flag.Bool("sequential", false, "use consecutive addresses from 10.0.0.0")
	workersFlag := flag.Int("workers", 1, "number of parallel workers for the natcalc pass")
	flag.Parse()

	numKeys := *keysFlag
	first, size, err := inet.ParseSpan(*poolFlag)
	if err != nil {
		fmt.Printf("Invalid pool: %v\n", err)
		os.Exit(1)
	}
	r, err := natcalc.NewRange(first, uint32(uint64(first)+size-1))
	if err != nil {
		fmt.Printf("Invalid pool: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Generating addresses...")
	addrs := make([]uint32, numKeys)
	for i := range addrs {
		if *sequentialFlag {
			addrs[i] = 0x0a000000 + uint32(i)
		} else {
			addrs[i] = mrand.Uint32()
		}
	}

	var results []result
	for _, h := range hashers {
		fmt.Printf("Hashing with %s...\n", h.name)
		dist, err := natcalc.NewDistribution(r)
		if err != nil {
			fmt.Printf("NewDistribution failed: %v\n", err)
			os.Exit(1)
		}
		start := time.Now()
		for _, a := range addrs {
			dist.Add(natcalc.MapInto(h.hash(a), r.Min, r.Max))
		}
		results = append(results, result{h.name, time.Since(start), dist})
	}

	// The library path, including MapAll's worker fan-out.
	fmt.Println("Mapping with natcalc.Pool.MapAll...")
	pool, err := natcalc.NewPool(r.Min, r.Max)
	if err != nil {
		fmt.Printf("NewPool failed: %v\n", err)
		os.Exit(1)
	}
	mapStart := time.Now()
	mapped, err := pool.MapAll(context.Background(), addrs, *workersFlag)
	if err != nil {
		fmt.Printf("MapAll failed: %v\n", err)
		os.Exit(1)
	}
	mapDuration := time.Since(mapStart)
	for i, m := range mapped {
		if want := natcalc.MapInto(hashers[0].hash(addrs[i]), r.Min, r.Max); m != want {
			fmt.Printf("MapAll mismatch at %s: got %s, want %s\n",
				inet.FormatAddr(addrs[i]), inet.FormatAddr(m), inet.FormatAddr(want))
			os.Exit(1)
		}
	}

	modeStr := "random"
	if *sequentialFlag {
		modeStr = "sequential"
	}
	dof := float64(r.Size() - 1)

	fmt.Printf("\n")
	fmt.Printf("╔════════════════╦════════════╦══════════════╦═══════════════════════╗\n")
	fmt.Printf("║ Keys: %-9s║ Pool: %-20s║ χ² target ≈ %-10.0f║\n", modeStr, r.String(), dof)
	fmt.Printf("╠════════════════╬════════════╬══════════════╬═══════════════════════╣\n")
	fmt.Printf("║ Hash           ║ Throughput ║ χ²           ║ Min / Max per address ║\n")
	fmt.Printf("╠════════════════╬════════════╬══════════════╬═══════════════════════╣\n")
	for _, res := range results {
		lo, hi := res.dist.MinMax()
		fmt.Printf("║ %-14s ║ %6.1f M/s ║ %12.1f ║ %9d / %-9d ║\n",
			res.name, float64(numKeys)/res.duration.Seconds()/1_000_000, res.dist.ChiSquare(), lo, hi)
	}
	fmt.Printf("╠════════════════╬════════════╬══════════════╬═══════════════════════╣\n")
	fmt.Printf("║ MapAll (%2d w)  ║ %6.1f M/s ║ -            ║ -                     ║\n",
		*workersFlag, float64(numKeys)/mapDuration.Seconds()/1_000_000)
	fmt.Printf("╚════════════════╩════════════╩══════════════╩═══════════════════════╝\n")
}
