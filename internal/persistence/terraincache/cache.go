// Package terraincache stores the generated heightmap as a zstd file so a
// restart skips regeneration.
package terraincache

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"mmoarena.ai/internal/sim/terrain"
)

// ErrStale is returned by Read when the file was built for another key.
var ErrStale = errors.New("terraincache: stale heightmap")

// Key identifies the inputs of a generated heightmap.
type Key struct {
	Version    int     `json:"version"`
	Resolution uint32  `json:"resolution"`
	Width      float32 `json:"width"`
	Height     float32 `json:"height"`
}

func KeyFor(resolution uint32, width, height float32) Key {
	return Key{Version: terrain.GeneratorVersion, Resolution: resolution, Width: width, Height: height}
}

func Path(dataDir string, k Key) string {
	name := fmt.Sprintf("heightmap-v%d-%d-%gx%g.bin.zst", k.Version, k.Resolution, k.Width, k.Height)
	return filepath.Join(dataDir, "terrain", name)
}

// Write stores hm under path: a JSON key line followed by the binary chunk.
// The file is replaced atomically.
func Write(path string, k Key, hm *terrain.Heightmap) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := hm.MarshalBinary()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeTo(f, k, raw); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeTo(w io.Writer, k Key, raw []byte) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, _ := json.Marshal(k)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := bw.Write(raw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// Read loads the heightmap at path and checks it was built for k.
func Read(path string, k Key) (*terrain.Heightmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("terraincache: header: %w", err)
	}
	var got Key
	if err := json.Unmarshal(line, &got); err != nil {
		return nil, fmt.Errorf("terraincache: header: %w", err)
	}
	if got != k {
		return nil, fmt.Errorf("%w: have %+v want %+v", ErrStale, got, k)
	}
	raw, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	hm := new(terrain.Heightmap)
	if err := hm.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return hm, nil
}

// Load returns the cached heightmap for the given world, generating and
// storing it on a miss. hit reports whether the cache was used. A failed
// store is returned as err alongside a usable heightmap.
func Load(dataDir string, resolution uint32, width, height float32) (hm *terrain.Heightmap, hit bool, err error) {
	k := KeyFor(resolution, width, height)
	path := Path(dataDir, k)
	if hm, err := Read(path, k); err == nil {
		return hm, true, nil
	}
	hm = terrain.NewProcedural(resolution, width, height)
	if err := Write(path, k, hm); err != nil {
		return hm, false, err
	}
	return hm, false, nil
}
