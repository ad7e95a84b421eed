// Natcalc prints the source address Linux netfilter SNAT --persistent would
// assign to each input address.
//
// Usage:
//
//	natcalc [flags] MIN MAX < addresses
//	natcalc stats [flags] MIN MAX SPAN
//	natcalc table build -o FILE [flags] MIN MAX SPAN
//	natcalc table lookup FILE ADDR...
//	natcalc table verify FILE
//
// Addresses are read one per line and printed as "<input> <mapped>".
// Malformed input lines map as 0.0.0.0. SPAN is a CIDR prefix
// ("192.168.0.0/16"), an inclusive "first-last" pair or a single address.
//
// Flags:
//
//	-seed       Hash seed; the kernel uses 0 (default: 0)
//	-key-order  Byte order of the modeled kernel: little or big (default: little)
//	-workers    Number of parallel workers (default: 1)
//	-config     TOML file with named pools
//	-pool       Pool name from -config, replaces MIN MAX
//	-in         Read addresses from FILE instead of stdin
//	-log-level  debug, info, warn or error (default: warn)
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/katsys/natcalc"
	"github.com/katsys/natcalc/internal/inet"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

var errUsage = errors.New("usage")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

// parseFlags parses args, reporting bad flags as usage errors. The flag
// package has already printed the details.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return usageErrorf("%v", err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

// run executes one natcalc invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    newLogger(stderr, zerolog.WarnLevel),
	}
	if len(args) > 0 {
		switch args[0] {
		case "stats":
			return a.exit(a.stats(ctx, args[1:]))
		case "table":
			return a.exit(a.table(ctx, args[1:]))
		}
	}
	return a.exit(a.mapLines(ctx, args))
}

// exit logs err and converts it to an exit code.
func (a *app) exit(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitUsage
	case errors.Is(err, errUsage):
		a.log.Error().Err(err).Msg("invalid arguments")
		return exitUsage
	default:
		a.log.Error().Err(err).Msg("natcalc failed")
		return exitFailure
	}
}

// poolFlags are the flags shared by every command that needs a pool.
type poolFlags struct {
	fs       *flag.FlagSet
	seed     uint64
	keyOrder string
	workers  int
	config   string
	pool     string
	logLevel string
}

func newPoolFlags(name string, stderr io.Writer) *poolFlags {
	f := &poolFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.SetOutput(stderr)
	f.fs.Uint64Var(&f.seed, "seed", 0, "hash seed (initval); the kernel uses 0")
	f.fs.StringVar(&f.keyOrder, "key-order", "little", "byte order of the modeled kernel: little or big")
	f.fs.IntVar(&f.workers, "workers", 1, "number of parallel workers")
	f.fs.StringVar(&f.config, "config", "", "TOML file with named pools")
	f.fs.StringVar(&f.pool, "pool", "", "pool name from -config, replaces MIN MAX")
	f.fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	return f
}

// resolve applies the config file, configures logging and builds the pool.
// It returns the positional arguments that follow the pool bounds.
func (a *app) resolve(f *poolFlags) (*natcalc.Pool, []string, error) {
	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	var cfg *Config
	if f.config != "" {
		var err error
		if cfg, err = loadConfig(f.config); err != nil {
			return nil, nil, err
		}
		if !set["log-level"] && cfg.LogLevel != "" {
			f.logLevel = cfg.LogLevel
		}
		if !set["workers"] && cfg.Workers > 0 {
			f.workers = cfg.Workers
		}
	}
	a.log = newLogger(a.stderr, parseLevel(f.logLevel, zerolog.WarnLevel))

	if f.seed > math.MaxUint32 {
		return nil, nil, usageErrorf("-seed %d does not fit in 32 bits", f.seed)
	}
	order, err := natcalc.ParseKeyOrder(f.keyOrder)
	if err != nil {
		return nil, nil, usageErrorf("-key-order: %v", err)
	}

	args := f.fs.Args()
	if f.pool != "" {
		if cfg == nil {
			return nil, nil, usageErrorf("-pool requires -config")
		}
		pc, err := cfg.Pool(f.pool)
		if err != nil {
			return nil, nil, err
		}
		var opts []natcalc.PoolOption
		if set["seed"] {
			opts = append(opts, natcalc.WithSeed(uint32(f.seed)))
		}
		if set["key-order"] {
			opts = append(opts, natcalc.WithKeyOrder(order))
		}
		p, err := pc.build(opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, args, nil
	}

	if len(args) < 2 {
		return nil, nil, usageErrorf("expected MIN MAX")
	}
	lo, err := inet.ParseBound(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("MIN: %w", err)
	}
	hi, err := inet.ParseBound(args[1])
	if err != nil {
		return nil, nil, fmt.Errorf("MAX: %w", err)
	}
	p, err := natcalc.NewPool(lo, hi, natcalc.WithSeed(uint32(f.seed)), natcalc.WithKeyOrder(order))
	if err != nil {
		return nil, nil, err
	}
	return p, args[2:], nil
}

// mapLines is the default command: map every input line.
func (a *app) mapLines(ctx context.Context, args []string) error {
	f := newPoolFlags("natcalc", a.stderr)
	in := f.fs.String("in", "", "read addresses from FILE instead of stdin")
	if err := parseFlags(f.fs, args); err != nil {
		return err
	}
	p, rest, err := a.resolve(f)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return usageErrorf("unexpected arguments %q", rest)
	}

	r := a.stdin
	if *in != "" {
		file, err := os.Open(*in)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		r = file
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	w := bufio.NewWriter(a.stdout)

	start := time.Now()
	var n int
	if f.workers > 1 {
		n, err = mapBatch(ctx, p, sc, w, f.workers)
	} else {
		n, err = mapStream(ctx, p, sc, w)
	}
	if err != nil {
		return errors.Join(err, w.Flush())
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	a.log.Info().
		Int("lines", n).
		Str("pool", p.Range().String()).
		Dur("elapsed", time.Since(start)).
		Msg("mapped input")
	return nil
}

// mapStream maps and writes one line at a time without holding the input
// in memory.
func mapStream(ctx context.Context, p *natcalc.Pool, sc *bufio.Scanner, w *bufio.Writer) (int, error) {
	n := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		line := sc.Text()
		mapped := p.Map(inet.ParseAddr(line))
		if _, err := fmt.Fprintf(w, "%s %s\n", line, inet.FormatAddr(mapped)); err != nil {
			return n, fmt.Errorf("write output: %w", err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read input: %w", err)
	}
	return n, nil
}

// mapBatch reads all lines, maps them with MapAll and writes the results
// in input order.
func mapBatch(ctx context.Context, p *natcalc.Pool, sc *bufio.Scanner, w *bufio.Writer, workers int) (int, error) {
	var lines []string
	var addrs []uint32
	for sc.Scan() {
		line := sc.Text()
		lines = append(lines, line)
		addrs = append(addrs, inet.ParseAddr(line))
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read input: %w", err)
	}

	mapped, err := p.MapAll(ctx, addrs, workers)
	if err != nil {
		return 0, err
	}
	for i, line := range lines {
		if _, err := fmt.Fprintf(w, "%s %s\n", line, inet.FormatAddr(mapped[i])); err != nil {
			return i, fmt.Errorf("write output: %w", err)
		}
	}
	return len(lines), nil
}

// stats tallies a span of inputs over the pool.
func (a *app) stats(ctx context.Context, args []string) error {
	f := newPoolFlags("natcalc stats", a.stderr)
	summary := f.fs.Bool("summary", false, "print only the summary line")
	if err := parseFlags(f.fs, args); err != nil {
		return err
	}
	p, rest, err := a.resolve(f)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return usageErrorf("expected MIN MAX SPAN")
	}
	first, count, err := inet.ParseSpan(rest[0])
	if err != nil {
		return err
	}

	start := time.Now()
	d, err := natcalc.TallySpan(ctx, p, first, count, f.workers)
	if err != nil {
		return err
	}
	a.log.Debug().Uint64("inputs", count).Dur("elapsed", time.Since(start)).Msg("tallied span")

	w := bufio.NewWriter(a.stdout)
	if !*summary {
		r := d.Range()
		for addr := uint64(r.Min); addr <= uint64(r.Max); addr++ {
			fmt.Fprintf(w, "%s %d\n", inet.FormatAddr(uint32(addr)), d.Count(uint32(addr)))
		}
	}
	lo, hi := d.MinMax()
	fmt.Fprintf(w, "inputs=%d pool=%d used=%d min=%d max=%d chi2=%.2f\n",
		d.Total(), d.Range().Size(), d.Used(), lo, hi, d.ChiSquare())
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// table dispatches the table subcommands.
func (a *app) table(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErrorf("expected table build, lookup or verify")
	}
	switch args[0] {
	case "build":
		return a.tableBuild(ctx, args[1:])
	case "lookup":
		return a.tableLookup(args[1:])
	case "verify":
		return a.tableVerify(args[1:])
	default:
		return usageErrorf("unknown table command %q", args[0])
	}
}

func (a *app) tableBuild(ctx context.Context, args []string) error {
	f := newPoolFlags("natcalc table build", a.stderr)
	out := f.fs.String("o", "", "output table file (required)")
	if err := parseFlags(f.fs, args); err != nil {
		return err
	}
	p, rest, err := a.resolve(f)
	if err != nil {
		return err
	}
	if *out == "" {
		return usageErrorf("-o is required")
	}
	if len(rest) != 1 {
		return usageErrorf("expected MIN MAX SPAN")
	}
	first, count, err := inet.ParseSpan(rest[0])
	if err != nil {
		return err
	}

	start := time.Now()
	if err := natcalc.BuildTable(ctx, *out, p, first, count, natcalc.WithTableWorkers(f.workers)); err != nil {
		return err
	}
	a.log.Info().
		Str("file", *out).
		Str("pool", p.Range().String()).
		Uint64("entries", count).
		Dur("elapsed", time.Since(start)).
		Msg("built table")
	return nil
}

// simpleFlags parses a flag set that only carries -log-level.
func (a *app) simpleFlags(name string, args []string) ([]string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	level := fs.String("log-level", "warn", "log level: debug, info, warn or error")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	a.log = newLogger(a.stderr, parseLevel(*level, zerolog.WarnLevel))
	return fs.Args(), nil
}

func (a *app) tableLookup(args []string) error {
	rest, err := a.simpleFlags("natcalc table lookup", args)
	if err != nil {
		return err
	}
	if len(rest) < 2 {
		return usageErrorf("expected FILE ADDR...")
	}

	tbl, err := natcalc.OpenTable(rest[0])
	if err != nil {
		return err
	}
	defer tbl.Close()
	a.log.Debug().
		Str("pool", tbl.Range().String()).
		Str("first", inet.FormatAddr(tbl.First())).
		Uint64("entries", tbl.Len()).
		Msg("opened table")

	w := bufio.NewWriter(a.stdout)
	for _, s := range rest[1:] {
		addr, err := inet.ParseBound(s)
		if err != nil {
			return errors.Join(err, w.Flush())
		}
		mapped, err := tbl.Lookup(addr)
		if err != nil {
			return errors.Join(fmt.Errorf("lookup %s: %w", s, err), w.Flush())
		}
		fmt.Fprintf(w, "%s %s\n", s, inet.FormatAddr(mapped))
	}
	return w.Flush()
}

func (a *app) tableVerify(args []string) error {
	rest, err := a.simpleFlags("natcalc table verify", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return usageErrorf("expected FILE")
	}
	if err := natcalc.VerifyTable(rest[0]); err != nil {
		return fmt.Errorf("%s: %w", rest[0], err)
	}
	fmt.Fprintf(a.stdout, "%s: ok\n", rest[0])
	return nil
}
