// Kmercount prints the N highest count tiers of k-mers in a sequence file.
//
// Usage:
//
//	kmercount [flags] <input-file> <N> <k>
//
// Each result is printed as "kmer,count", highest count first, followed by a
// "Finished!" line. zstd-compressed inputs are decompressed transparently.
//
// Flags:
//
//	-config             TOML file with defaults for the flags below
//	-workers            Concurrent chunk counters (default: number of CPUs)
//	-resolve-workers    Concurrent spill file readers (default: -workers)
//	-block-size         Read block size in bytes (default: 32768)
//	-spill-threshold    Distinct k-mers held before spilling; 0 derives it, -1 disables
//	-temp-dir           Directory for spill files (default: system temp dir)
//	-alphabet           nucleotide or bytes (default: nucleotide)
//	-strip-line-breaks  Ignore '\n' and '\r' in the input (default: true)
//	-v                  Debug logging
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tamirms/kmercount"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kmercount", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML config file")
	workers := fs.Int("workers", 0, "concurrent chunk counters")
	resolveWorkers := fs.Int("resolve-workers", 0, "concurrent spill file readers")
	blockSize := fs.Int("block-size", kmercount.DefaultBlockSize, "read block size in bytes")
	spillThreshold := fs.Int("spill-threshold", 0, "distinct k-mers held before spilling (0 = derive, -1 = never)")
	tempDir := fs.String("temp-dir", "", "directory for spill files")
	alphabet := fs.String("alphabet", "nucleotide", "symbol alphabet: nucleotide or bytes")
	stripBreaks := fs.Bool("strip-line-breaks", true, "ignore line breaks in the input")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: kmercount [flags] <input-file> <N> <k>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return exitUsage
	}
	inputPath := fs.Arg(0)
	n, err := strconv.Atoi(fs.Arg(1))
	if err != nil || n < 1 {
		fmt.Fprintf(stderr, "invalid N %q: must be a positive integer\n", fs.Arg(1))
		return exitUsage
	}
	k, err := strconv.Atoi(fs.Arg(2))
	if err != nil || k < 1 {
		fmt.Fprintf(stderr, "invalid k %q: must be a positive integer\n", fs.Arg(2))
		return exitUsage
	}

	cfg := defaultConfig()
	if *configPath != "" {
		if cfg, err = LoadConfig(*configPath); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "resolve-workers":
			cfg.ResolveWorkers = *resolveWorkers
		case "block-size":
			cfg.BlockSize = *blockSize
		case "spill-threshold":
			cfg.SpillThreshold = *spillThreshold
		case "temp-dir":
			cfg.TempDir = *tempDir
		case "alphabet":
			cfg.Alphabet = *alphabet
		case "strip-line-breaks":
			cfg.StripLineBreaks = *stripBreaks
		case "v":
			cfg.Verbose = *verbose
		}
	})

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts, err := cfg.options()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	opts = append(opts, kmercount.WithLogger(logger))

	start := time.Now()
	results, err := kmercount.CountFile(ctx, inputPath, k, n, opts...)
	if err != nil {
		logger.Error("counting failed", "input", inputPath, "error", err)
		return exitError
	}

	w := bufio.NewWriter(stdout)
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d\n", r.Kmer, r.Count)
	}
	fmt.Fprintln(w, "Finished!")
	if err := w.Flush(); err != nil {
		logger.Error("writing results", "error", err)
		return exitError
	}
	logger.Debug("results written", "results", len(results), "elapsed", time.Since(start))
	return exitOK
}
