// Package log stores the world journal: one JSON line per eventful tick,
// zstd-compressed, one file per UTC hour.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"mmoarena.ai/internal/sim/world"
)

const (
	filePrefix = "journal"
	fileSuffix = ".jsonl.zst"
	hourLayout = "2006-01-02-15"
)

// Journal implements world.TickLogger.
type Journal struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	hour string
	file *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func JournalDir(dataDir string) string { return filepath.Join(dataDir, "journal") }

// NewTickLogger returns a journal writing under JournalDir(dataDir). Files are
// opened lazily on the first entry.
func NewTickLogger(dataDir string) *Journal {
	return &Journal{dir: JournalDir(dataDir), now: time.Now}
}

// WriteTick appends one entry and flushes it through the encoder, so a crash
// loses at most the current zstd block.
func (j *Journal) WriteTick(e world.TickLogEntry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: encode tick %d: %w", e.Tick, err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if hour := j.now().UTC().Format(hourLayout); hour != j.hour {
		if err := j.openLocked(hour); err != nil {
			return err
		}
	}
	if _, err := j.buf.Write(line); err != nil {
		return err
	}
	if err := j.buf.Flush(); err != nil {
		return err
	}
	return j.zw.Flush()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal) openLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	// Reopening an hour that already has a file appends another zstd frame.
	path := filepath.Join(j.dir, filePrefix+"-"+hour+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("journal: %w", err)
	}
	j.file, j.zw, j.buf, j.hour = f, zw, bufio.NewWriterSize(zw, 64*1024), hour
	return nil
}

func (j *Journal) closeLocked() error {
	if j.file == nil {
		return nil
	}
	err := j.buf.Flush()
	if cerr := j.zw.Close(); err == nil {
		err = cerr
	}
	if cerr := j.file.Close(); err == nil {
		err = cerr
	}
	j.file, j.zw, j.buf, j.hour = nil, nil, nil, ""
	return err
}

// Files lists the journal files under dir, oldest first.
func Files(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix+"-") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	slices.Sort(out)
	return out, nil
}

// ReadTicks decodes every entry of one journal file in order. A file cut
// short by a crash yields the entries before the cut.
func ReadTicks(path string, fn func(world.TickLogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e world.TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
