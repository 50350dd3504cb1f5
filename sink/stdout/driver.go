// Package stdout writes one result document per line.
package stdout

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
	"github.com/campaneros/TQGenLevelAnalysis/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	PrintCounter bool `yaml:"print_counter"` // prepend seq#
	// Out defaults to os.Stdout.
	Out io.Writer `yaml:"-"`
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu  sync.Mutex // guards out+seq
	out io.Writer
	seq uint64
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg, d.out = c, c.Out
	if d.out == nil {
		d.out = os.Stdout
	}
	return nil
}

func (d *driver) Push(f *frame.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++

	var err error
	if d.cfg.PrintCounter {
		_, err = fmt.Fprintf(d.out, "[sink %06d] %s\n", d.seq, f.Value)
	} else {
		_, err = fmt.Fprintf(d.out, "%s\n", f.Value)
	}
	return err
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
