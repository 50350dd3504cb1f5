// Package file is a source that replays events from a JSON-lines file, one
// encoded event per line.
package file

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
	"github.com/campaneros/TQGenLevelAnalysis/internal/logging"
	"github.com/campaneros/TQGenLevelAnalysis/source"
)

const maxLine = 16 << 20

type Config struct {
	Path string `yaml:"path"`
}

type driver struct {
	cfg Config
	f   *os.File
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("file-source: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return fmt.Errorf("file-source: path is required")
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("file-source: %w", err)
	}
	d.cfg, d.f = c, f
	return nil
}

func (d *driver) Run(ctx context.Context, emit source.EmitFunc) error {
	sc := bufio.NewScanner(d.f)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)

	var line, emitted int64
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == '#' {
			continue
		}
		f := &frame.Frame{
			Value:      append([]byte(nil), b...),
			Ts:         time.Now(),
			Checkpoint: frame.Checkpoint{Source: d.cfg.Path, Offset: line},
		}
		if err := emit(ctx, f); err != nil {
			return err
		}
		emitted++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("file-source: %s line %d: %w", d.cfg.Path, line+1, err)
	}
	logging.L().Info("file-source: drained", "path", d.cfg.Path, "events", emitted)
	return nil
}

func (d *driver) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func init() {
	source.Register("file", func() source.Adapter { return &driver{} })
}
