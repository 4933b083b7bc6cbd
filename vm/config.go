package vm

import (
	"io"
	"os"

	"github.com/adtvm/adtvm/heap"
)

// Config controls a Machine's I/O and heap tuning, grounded on wazero's
// RuntimeConfig: a small options struct built via With* methods, cloned
// rather than mutated so a shared base config can seed independent
// machines.
type Config struct {
	stdout       io.Writer
	stderr       io.Writer
	compactEvery int
}

// NewConfig returns the default configuration: stdout/stderr wired to the
// process's standard streams, and the spec's default 500-instruction
// compaction trigger.
func NewConfig() *Config {
	return &Config{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		compactEvery: 0, // 0 means "use heap's own default"
	}
}

func (c *Config) clone() *Config {
	cp := *c
	return &cp
}

// WithStdout overrides where the print intrinsic writes.
func (c *Config) WithStdout(w io.Writer) *Config {
	ret := c.clone()
	ret.stdout = w
	return ret
}

// WithStderr sets the diagnostics writer stored on the Machine. The
// Machine itself writes nothing to it: failures are returned from Run as
// errors.
func (c *Config) WithStderr(w io.Writer) *Config {
	ret := c.clone()
	ret.stderr = w
	return ret
}

// WithCompactEvery overrides the heap's fixed instruction-count
// compaction trigger; see heap.WithCompactEvery. Unlike there, 0 keeps
// the heap's default interval; a negative value disables automatic
// compaction.
func (c *Config) WithCompactEvery(n int) *Config {
	ret := c.clone()
	ret.compactEvery = n
	return ret
}

func (c *Config) heapOptions() []heap.Option {
	if c.compactEvery == 0 {
		return nil
	}
	return []heap.Option{heap.WithCompactEvery(c.compactEvery)}
}
