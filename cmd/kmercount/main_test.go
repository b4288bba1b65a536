package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tamirms/kmercount"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunPrintsResults(t *testing.T) {
	input := writeFile(t, "seq.txt", "abcbdefdfdf")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-alphabet", "bytes", "-temp-dir", t.TempDir(), "-block-size", "4", input, "3", "3"},
		&stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	want := "fdf,2\nabc,1\nbcb,1\nbde,1\ncbd,1\ndef,1\ndfd,1\nefd,1\nFinished!\n"
	if stdout.String() != want {
		t.Errorf("stdout:\n%s\nwant:\n%s", stdout.String(), want)
	}
}

func TestRunWrappedNucleotides(t *testing.T) {
	input := writeFile(t, "seq.txt", "ACGTACGT\nACGTACGT\nAC\n")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-temp-dir", t.TempDir(), input, "1", "4"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	// ACGTACGTACGTACGTAC once the line breaks are gone.
	if got := stdout.String(); got != "acgt,4\ncgta,4\ngtac,4\nFinished!\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunUsageErrors(t *testing.T) {
	input := writeFile(t, "seq.txt", "acgt")
	for _, args := range [][]string{
		{},
		{input, "3"},
		{input, "x", "3"},
		{input, "3", "0"},
		{"-alphabet", "protein", input, "1", "2"},
		{"-no-such-flag", input, "1", "2"},
	} {
		var stdout, stderr bytes.Buffer
		if code := run(context.Background(), args, &stdout, &stderr); code != exitUsage {
			t.Errorf("args %q: exit %d, want %d", args, code, exitUsage)
		}
	}
}

func TestRunCountingError(t *testing.T) {
	input := writeFile(t, "seq.txt", "acgtxacgt")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-temp-dir", t.TempDir(), input, "1", "3"}, &stdout, &stderr)
	if code != exitError {
		t.Fatalf("exit %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "invalid symbol") {
		t.Errorf("stderr does not mention the invalid symbol: %s", stderr.String())
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "kmercount.toml", `
workers = 3
block_size = 4096
spill_threshold = -1
alphabet = "bytes"
strip_line_breaks = false
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 3 || cfg.BlockSize != 4096 || cfg.SpillThreshold != -1 ||
		cfg.Alphabet != "bytes" || cfg.StripLineBreaks || cfg.ResolveWorkers != 0 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if _, err := cfg.options(); err != nil {
		t.Error(err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "empty.toml", ""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BlockSize != kmercount.DefaultBlockSize || !cfg.StripLineBreaks || cfg.Alphabet != "nucleotide" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	if _, err := LoadConfig(writeFile(t, "bad.toml", "wrokers = 3\n")); err == nil {
		t.Error("unknown key accepted")
	}
	if _, err := LoadConfig(writeFile(t, "broken.toml", "workers = \n")); err == nil {
		t.Error("malformed file accepted")
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfgPath := writeFile(t, "kmercount.toml", "alphabet = \"nucleotide\"\n")
	input := writeFile(t, "seq.txt", "abcabc")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-config", cfgPath, "-alphabet", "bytes", "-temp-dir", t.TempDir(), input, "1", "3"},
		&stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "abc,2\nFinished!\n" {
		t.Errorf("stdout = %q", got)
	}
}
