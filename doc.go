// Package natcalc computes the source address chosen by the Linux netfilter
// SNAT target in --persistent mode (formerly the SAME target), so that NAT
// assignments can be precomputed or audited offline.
//
// The kernel hashes the source address with the two-word form of the
// Jenkins lookup2 hash (see package jhash) and scales the 32-bit result into
// the pool with a multiply-high reduction. natcalc reproduces both steps bit
// for bit for Linux 2.6 kernels.
//
// # Basic Usage
//
// Mapping addresses:
//
//	pool, err := natcalc.NewPool(minAddr, maxAddr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mapped := pool.Map(srcAddr)
//
// Addresses are host-order uint32 values (10.0.0.1 is 0x0a000001).
//
// Precomputing a table for a whole subnet:
//
//	err := natcalc.BuildTable(ctx, "office.natt", pool, first, 1<<16,
//	    natcalc.WithTableWorkers(runtime.NumCPU()))
//
//	tbl, err := natcalc.OpenTable("office.natt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tbl.Close()
//	mapped, err := tbl.Lookup(srcAddr)
//
// # Package Structure
//
//   - Hashing: jhash/ (Mix, Hash, Hash2, Hash3Words and friends)
//   - Range reduction: rangemap.go (Range, MapInto), internal/bits (Scale32)
//   - Pool API: pool.go (NewPool, Map, MapConn, MapAll), key.go (KeyOrder)
//   - Configuration: pool_options.go (PoolOption, TableOption)
//   - Audits: distribution.go (Distribution, TallySpan)
//   - Tables: header.go, table_writer.go (BuildTable), table.go (OpenTable, Lookup, Verify)
//   - Text addresses: internal/inet (inet_aton parsing, dotted-quad formatting)
//   - Platform: sys_*.go (fallocate, prefault, read-ahead hints)
package natcalc
