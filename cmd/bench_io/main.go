// bench_io measures mapping-table I/O: build throughput, then lookup latency
// with a cold and a warm page cache, for sequential and random access.
//
// Usage:
//
//	go run ./cmd/bench_io -span 10.0.0.0/8 -pool 100.64.0.0/10
//	go run ./cmd/bench_io -span 0.0.0.0/4 -workers 8 -dir /mnt/scratch
//
// Cold runs drop the table's pages with POSIX_FADV_DONTNEED first (Linux).
// To simulate memory pressure (table exceeding page cache):
//
//	sudo systemd-run --scope -p MemoryMax=1G --uid=$(id -u) \
//	  go run ./cmd/bench_io -span 0.0.0.0/2
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/katsys/natcalc"
	"github.com/katsys/natcalc/internal/inet"
)

func main() {
	spanFlag := flag.String("span", "10.0.0.0/8", "input addresses stored in the table")
	poolFlag := flag.String("pool", "100.64.0.0/10", "pool as a CIDR prefix or first-last pair")
	workers := flag.Int("workers", runtime.NumCPU(), "number of build workers")
	lookups := flag.Int("lookups", 1_000_000, "lookups per access pattern")
	tmpDir := flag.String("dir", "", "temp directory (default: os.TempDir())")
	flag.Parse()

	first, count, err := inet.ParseSpan(*spanFlag)
	if err != nil {
		fmt.Printf("Invalid span: %v\n", err)
		os.Exit(1)
	}
	poolFirst, poolSize, err := inet.ParseSpan(*poolFlag)
	if err != nil {
		fmt.Printf("Invalid pool: %v\n", err)
		os.Exit(1)
	}
	pool, err := natcalc.NewPool(poolFirst, uint32(uint64(poolFirst)+poolSize-1))
	if err != nil {
		fmt.Printf("NewPool failed: %v\n", err)
		os.Exit(1)
	}

	if *tmpDir == "" {
		*tmpDir = os.TempDir()
	}
	dir, err := os.MkdirTemp(*tmpDir, "bench_io-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	path := filepath.Join(dir, "bench.natt")

	fmt.Printf("Configuration:\n")
	fmt.Printf("  Span:         %s (%d entries)\n", *spanFlag, count)
	fmt.Printf("  Pool:         %s\n", pool.Range())
	fmt.Printf("  Workers:      %d\n", *workers)
	fmt.Printf("  Temp dir:     %s\n", dir)
	fmt.Printf("  GOMAXPROCS:   %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()

	fmt.Println("=== build ===")
	start := time.Now()
	if err := natcalc.BuildTable(context.Background(), path, pool, first, count, natcalc.WithTableWorkers(*workers)); err != nil {
		fmt.Printf("BuildTable failed: %v\n", err)
		os.Exit(1)
	}
	buildDur := time.Since(start)
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Stat failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  Build:        %v (%.1f M entries/sec, %.1f MB)\n",
		buildDur.Round(time.Millisecond), float64(count)/buildDur.Seconds()/1e6, float64(info.Size())/1e6)

	fmt.Println("\n=== verify (cold) ===")
	dropCache(path)
	start = time.Now()
	if err := natcalc.VerifyTable(path); err != nil {
		fmt.Printf("VerifyTable failed: %v\n", err)
		os.Exit(1)
	}
	verifyDur := time.Since(start)
	fmt.Printf("  Verify:       %v (%.1f MB/sec)\n",
		verifyDur.Round(time.Millisecond), float64(info.Size())/verifyDur.Seconds()/1e6)

	fmt.Println("\n=== lookups ===")
	for _, pattern := range []string{"sequential", "random"} {
		inputs := make([]uint32, *lookups)
		for i := range inputs {
			if pattern == "sequential" {
				inputs[i] = first + uint32(uint64(i)%count)
			} else {
				inputs[i] = first + uint32(rand.Uint64N(count))
			}
		}
		for _, cache := range []string{"cold", "warm"} {
			if cache == "cold" {
				dropCache(path)
			}
			dur := benchLookups(path, inputs)
			fmt.Printf("  %-10s %-4s  %8.1f ns/lookup\n",
				pattern, cache, float64(dur.Nanoseconds())/float64(len(inputs)))
		}
	}
}

// benchLookups opens the table and times lookups of inputs.
func benchLookups(path string, inputs []uint32) time.Duration {
	tbl, err := natcalc.OpenTable(path)
	if err != nil {
		fmt.Printf("OpenTable failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = tbl.Close() }()

	var sink uint32
	start := time.Now()
	for _, a := range inputs {
		m, err := tbl.Lookup(a)
		if err != nil {
			fmt.Printf("Lookup(%s) failed: %v\n", inet.FormatAddr(a), err)
			os.Exit(1)
		}
		sink ^= m
	}
	dur := time.Since(start)
	runtime.KeepAlive(sink)
	return dur
}

// dropCache asks the kernel to evict the file's pages. Best effort.
func dropCache(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
