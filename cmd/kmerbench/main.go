// Kmerbench measures k-mer counting throughput and memory on a synthetic
// sequence, once with the default spill policy and once with a forced spill
// threshold, and checks that both runs report the same result.
//
// Usage:
//
//	go run ./cmd/kmerbench -size 256 -k 21 -n 10 -workers 8
//
// Flags:
//
//	-size        Input size in MiB (default: 64)
//	-k           k-mer length (default: 21)
//	-n           Number of count tiers to report (default: 10)
//	-workers     Concurrent chunk counters (default: number of CPUs)
//	-block-size  Read block size in bytes (default: 32768)
//	-spill       Spill threshold for the second run (default: 1,000,000)
//	-repeat      Fraction of the input drawn from a small motif pool (default: 0.3)
//	-cpuprofile  Write a CPU profile of the first run to this file
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/tamirms/kmercount"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// peakSampler tracks peak heap and RSS every 10ms. runtime/metrics avoids
// the stop-the-world pause of ReadMemStats.
type peakSampler struct {
	heap atomic.Uint64
	rss  atomic.Uint64
	done chan struct{}
}

func startSampler() *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.heap, samples[0].Value.Uint64())
				storeMax(&s.rss, getMaxRSS())
			}
		}
	}()
	return s
}

func (s *peakSampler) stop() (heap, rss uint64) {
	close(s.done)
	return s.heap.Load(), s.rss.Load()
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

// writeSequence writes size bytes of line-wrapped DNA. A fraction of the
// sequence is copied from a small pool of motifs so the top tiers are
// meaningful.
func writeSequence(path string, size int, repeat float64, k int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<20)
	rng := mrand.New(mrand.NewPCG(0x1234, 0x5678))
	const letters = "ACGT"
	motifs := make([][]byte, 64)
	for i := range motifs {
		motifs[i] = make([]byte, k*4)
		for j := range motifs[i] {
			motifs[i][j] = letters[rng.IntN(4)]
		}
	}

	written, col := 0, 0
	put := func(b byte) {
		_ = w.WriteByte(b)
		written++
		if col++; col == 80 {
			_ = w.WriteByte('\n')
			col = 0
		}
	}
	for written < size {
		if rng.Float64() < repeat {
			for _, b := range motifs[rng.IntN(len(motifs))] {
				put(b)
			}
			continue
		}
		for range 64 {
			put(letters[rng.IntN(4)])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// digest summarises a result list so two runs can be compared.
func digest(results []kmercount.Result) (uint64, uint64) {
	h := murmur3.New128WithSeed(0x1234)
	var buf [8]byte
	for _, r := range results {
		_, _ = h.Write([]byte(r.Kmer))
		binary.LittleEndian.PutUint64(buf[:], r.Count)
		_, _ = h.Write(buf[:])
	}
	return h.Sum128()
}

type runReport struct {
	elapsed  time.Duration
	peakHeap uint64
	peakRSS  uint64
	results  []kmercount.Result
}

func countRun(ctx context.Context, path string, k, n int, opts ...kmercount.Option) (runReport, error) {
	runtime.GC()
	sampler := startSampler()
	start := time.Now()
	results, err := kmercount.CountFile(ctx, path, k, n, opts...)
	elapsed := time.Since(start)
	heap, rss := sampler.stop()
	return runReport{elapsed: elapsed, peakHeap: heap, peakRSS: rss, results: results}, err
}

func main() {
	sizeFlag := flag.Int("size", 64, "input size in MiB")
	kFlag := flag.Int("k", 21, "k-mer length")
	nFlag := flag.Int("n", 10, "number of count tiers")
	workersFlag := flag.Int("workers", runtime.NumCPU(), "concurrent chunk counters")
	blockFlag := flag.Int("block-size", kmercount.DefaultBlockSize, "read block size in bytes")
	spillFlag := flag.Int("spill", 1_000_000, "spill threshold for the second run")
	repeatFlag := flag.Float64("repeat", 0.3, "fraction of input drawn from the motif pool")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (first run only)")
	flag.Parse()

	tmpDir, err := os.MkdirTemp("", "kmerbench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	inputPath := filepath.Join(tmpDir, "input.txt")

	fmt.Printf("Generating %d MiB sequence...\n", *sizeFlag)
	genStart := time.Now()
	if err := writeSequence(inputPath, *sizeFlag<<20, *repeatFlag, *kFlag); err != nil {
		fmt.Printf("Failed to write input: %v\n", err)
		return
	}
	genDuration := time.Since(genStart)

	ctx := context.Background()
	common := []kmercount.Option{
		kmercount.WithWorkers(*workersFlag),
		kmercount.WithBlockSize(*blockFlag),
		kmercount.WithTempDir(tmpDir),
		kmercount.WithStripLineBreaks(),
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}
	fmt.Println("Counting (default spill policy)...")
	base, err := countRun(ctx, inputPath, *kFlag, *nFlag, common...)
	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if err != nil {
		fmt.Printf("Counting failed: %v\n", err)
		return
	}

	fmt.Printf("Counting (spill threshold %d)...\n", *spillFlag)
	spilled, err := countRun(ctx, inputPath, *kFlag, *nFlag,
		append(common, kmercount.WithSpillThreshold(*spillFlag))...)
	if err != nil {
		fmt.Printf("Counting failed: %v\n", err)
		return
	}

	mib := float64(*sizeFlag)
	fmt.Println()
	fmt.Printf("Input:      %d MiB, k=%d, n=%d, workers=%d\n", *sizeFlag, *kFlag, *nFlag, *workersFlag)
	fmt.Printf("Generate:   %v\n", genDuration.Round(time.Millisecond))
	for _, r := range []struct {
		name string
		rep  runReport
	}{{"default", base}, {"spill", spilled}} {
		fmt.Printf("%-10s  %8v  %7.1f MiB/s  peak heap %6.1f MiB  peak RSS %6.1f MiB  %d results\n",
			r.name+":",
			r.rep.elapsed.Round(time.Millisecond),
			mib/r.rep.elapsed.Seconds(),
			float64(r.rep.peakHeap)/(1<<20),
			float64(r.rep.peakRSS)/(1<<20),
			len(r.rep.results))
	}

	h1, l1 := digest(base.results)
	h2, l2 := digest(spilled.results)
	if h1 != h2 || l1 != l2 {
		fmt.Printf("Results differ: %016x%016x vs %016x%016x\n", h1, l1, h2, l2)
		_ = os.RemoveAll(tmpDir)
		os.Exit(1)
	}
	fmt.Printf("Results match (digest %016x%016x)\n", h1, l1)
	for i, r := range base.results {
		if i == 10 {
			fmt.Printf("  ... %d more\n", len(base.results)-i)
			break
		}
		fmt.Printf("  %s,%d\n", r.Kmer, r.Count)
	}
}
